package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"quillboard/internal/model"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	recentKey = "articles:recent"
	seqKey    = "articles:seq"
	queueKey  = "queue:import"

	popTimeout = time.Second

	gcInterval     = 5 * time.Minute
	gcDiscardRatio = 0.7
)

func metaKey(id uuid.UUID) string {
	return fmt.Sprintf("article:%s", id)
}

// HybridStore combines Redis (metadata, ordering, queue) and Badger (article bodies)
type HybridStore struct {
	rdb   *redis.Client
	db    *badger.DB
	locks *rowLocks

	stopGC chan struct{}
	gcDone chan struct{}
}

// NewHybridStore initializes both databases.
// Pass badgerPath="" to keep article bodies in memory (tests, throwaway runs).
func NewHybridStore(redisAddr string, badgerPath string) (*HybridStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	opts := badger.DefaultOptions(badgerPath)
	if badgerPath == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // Silence default logger
	db, err := badger.Open(opts)
	if err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	s := newHybridStore(rdb, db)
	if badgerPath != "" {
		s.startGC(gcInterval)
	}
	return s, nil
}

func newHybridStore(rdb *redis.Client, db *badger.DB) *HybridStore {
	return &HybridStore{rdb: rdb, db: db, locks: newRowLocks()}
}

// startGC reclaims value log space on disk-backed stores until Close.
func (s *HybridStore) startGC(every time.Duration) {
	s.stopGC = make(chan struct{})
	s.gcDone = make(chan struct{})

	go func() {
		defer close(s.gcDone)
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-s.stopGC:
				return
			case <-ticker.C:
				// One rewrite per tick; ErrNoRewrite just means nothing to reclaim.
				_ = s.db.RunValueLogGC(gcDiscardRatio)
			}
		}
	}()
}

// Close cleans up connections
func (s *HybridStore) Close() {
	if s.stopGC != nil {
		close(s.stopGC)
		<-s.gcDone
		s.stopGC = nil
	}
	if s.rdb != nil {
		s.rdb.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
}

// Ping reports whether both engines are usable.
func (s *HybridStore) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if s.db.IsClosed() {
		return errors.New("badger: database is closed")
	}
	return nil
}

// Create writes the body to Badger first so metadata never points at a missing body.
func (s *HybridStore) Create(ctx context.Context, userID, title, content string) (*model.Article, error) {
	if err := validateFields(userID, title); err != nil {
		return nil, err
	}

	article := model.NewArticle(userID, title, content)

	seq, err := s.rdb.Incr(ctx, seqKey).Result()
	if err != nil {
		return nil, fmt.Errorf("allocate sequence: %w", err)
	}

	if err := s.putContent(article.ID, content); err != nil {
		return nil, err
	}

	data, err := encodeMeta(&article)
	if err != nil {
		return nil, err
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, metaKey(article.ID), data, 0)
	pipe.ZAdd(ctx, recentKey, redis.Z{Score: float64(seq), Member: article.ID.String()})
	if _, err := pipe.Exec(ctx); err != nil {
		_ = s.deleteContent(article.ID)
		return nil, fmt.Errorf("save metadata: %w", err)
	}

	return &article, nil
}

// FindByID combines metadata from Redis with the body from Badger. It holds
// the row lock so title and body always come from the same write.
func (s *HybridStore) FindByID(ctx context.Context, id uuid.UUID) (*model.Article, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	return s.findByID(ctx, id)
}

func (s *HybridStore) findByID(ctx context.Context, id uuid.UUID) (*model.Article, error) {
	val, err := s.rdb.Get(ctx, metaKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}

	var article model.Article
	if err := json.Unmarshal(val, &article); err != nil {
		return nil, err
	}

	err = s.db.View(func(txn *badger.Txn) error {
		return readContent(txn, &article)
	})
	if err != nil {
		return nil, err
	}

	return &article, nil
}

// ListAll returns every article, newest first. It takes no row locks: an
// article updated during the call may pair its old title with its new body.
func (s *HybridStore) ListAll(ctx context.Context) ([]model.Article, error) {
	ids, err := s.rdb.ZRevRange(ctx, recentKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []model.Article{}, nil
	}

	keys := make([]string, len(ids))
	for i, idStr := range ids {
		keys[i] = "article:" + idStr
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	articles := make([]model.Article, 0, len(vals))
	for _, v := range vals {
		// Deleted between ZRevRange and MGet
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var a model.Article
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}

	err = s.db.View(func(txn *badger.Txn) error {
		for i := range articles {
			if err := readContent(txn, &articles[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return articles, nil
}

// Update replaces title and content while holding the article's row lock.
func (s *HybridStore) Update(ctx context.Context, id uuid.UUID, title, content string) (*model.Article, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	article, err := s.findByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validateFields(article.UserID, title); err != nil {
		return nil, err
	}

	article.Title = title
	article.Content = content
	article.UpdatedAt = time.Now().UTC()

	if err := s.putContent(id, content); err != nil {
		return nil, err
	}
	data, err := encodeMeta(article)
	if err != nil {
		return nil, err
	}
	if err := s.rdb.Set(ctx, metaKey(id), data, 0).Err(); err != nil {
		return nil, fmt.Errorf("save metadata: %w", err)
	}

	return article, nil
}

// Delete removes metadata, index entry and body. Missing ids report ErrNotFound.
func (s *HybridStore) Delete(ctx context.Context, id uuid.UUID) error {
	unlock := s.locks.lock(id)
	defer unlock()

	pipe := s.rdb.TxPipeline()
	del := pipe.Del(ctx, metaKey(id))
	pipe.ZRem(ctx, recentKey, id.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete metadata: %w", err)
	}
	if del.Val() == 0 {
		return ErrNotFound
	}

	return s.deleteContent(id)
}

// PushImport queues a job for the worker
func (s *HybridStore) PushImport(ctx context.Context, job model.ImportJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.rdb.LPush(ctx, queueKey, data).Err()
}

// PopImport waits for a job in the Redis queue (Blocking).
// It polls in short rounds so a cancelled ctx is noticed between them.
func (s *HybridStore) PopImport(ctx context.Context) (model.ImportJob, error) {
	var result []string
	for {
		if err := ctx.Err(); err != nil {
			return model.ImportJob{}, err
		}
		var err error
		result, err = s.rdb.BRPop(ctx, popTimeout, queueKey).Result()
		if err == redis.Nil {
			continue
		} else if err != nil {
			return model.ImportJob{}, err
		}
		break
	}

	var job model.ImportJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return model.ImportJob{}, fmt.Errorf("decode import job: %w", err)
	}
	return job, nil
}

func (s *HybridStore) putContent(id uuid.UUID, content string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(id.String()), []byte(content))
	})
	if err != nil {
		return fmt.Errorf("save content: %w", err)
	}
	return nil
}

func (s *HybridStore) deleteContent(id uuid.UUID) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(id.String()))
	})
	if err != nil {
		return fmt.Errorf("delete content: %w", err)
	}
	return nil
}

func readContent(txn *badger.Txn, article *model.Article) error {
	item, err := txn.Get([]byte(article.ID.String()))
	if err == badger.ErrKeyNotFound {
		return nil
	} else if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		article.Content = string(val)
		return nil
	})
}

// encodeMeta strips the body; Redis only keeps the light fields.
func encodeMeta(article *model.Article) ([]byte, error) {
	meta := *article
	meta.Content = ""
	return json.Marshal(meta)
}
