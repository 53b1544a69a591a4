package service

import (
	"context"
	"errors"
	"strings"

	"quillboard/internal/metrics"
	"quillboard/internal/model"
	"quillboard/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrForbidden is returned when the actor does not own the article.
	ErrForbidden = errors.New("article belongs to another user")
	// ErrNoActor is returned when a mutation is attempted without an acting user.
	ErrNoActor = errors.New("no acting user")
)

// ArticleChanges carries a partial update. Nil fields keep their stored value.
type ArticleChanges struct {
	Title   *string
	Content *string
}

// ArticleService runs the article use cases on top of a store and enforces
// ownership. The acting user is always passed in by the caller.
type ArticleService struct {
	store  store.Store
	logger *zap.Logger
}

func NewArticleService(st store.Store, logger *zap.Logger) *ArticleService {
	return &ArticleService{
		store:  st,
		logger: logger,
	}
}

// Index lists every article, newest first.
func (s *ArticleService) Index(ctx context.Context) ([]model.Article, error) {
	articles, err := s.store.ListAll(ctx)
	s.record("index", err)
	return articles, err
}

func (s *ArticleService) Show(ctx context.Context, id uuid.UUID) (*model.Article, error) {
	article, err := s.store.FindByID(ctx, id)
	s.record("show", err)
	return article, err
}

// Edit loads an article for the edit form. Reads are not restricted to the owner.
func (s *ArticleService) Edit(ctx context.Context, id uuid.UUID) (*model.Article, error) {
	article, err := s.store.FindByID(ctx, id)
	s.record("edit", err)
	return article, err
}

func (s *ArticleService) Store(ctx context.Context, actor, title, content string) (*model.Article, error) {
	if actor == "" {
		s.record("store", ErrNoActor)
		return nil, ErrNoActor
	}
	if err := validateTitle(title); err != nil {
		s.record("store", err)
		return nil, err
	}

	article, err := s.store.Create(ctx, actor, title, content)
	s.record("store", err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Article created",
		zap.String("article_id", article.ID.String()),
		zap.String("user_id", actor))
	return article, nil
}

func (s *ArticleService) Update(ctx context.Context, actor string, id uuid.UUID, changes ArticleChanges) (*model.Article, error) {
	article, err := s.update(ctx, actor, id, changes)
	s.record("update", err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Article updated",
		zap.String("article_id", id.String()),
		zap.String("user_id", actor))
	return article, nil
}

func (s *ArticleService) update(ctx context.Context, actor string, id uuid.UUID, changes ArticleChanges) (*model.Article, error) {
	current, err := s.authorize(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	title, content := current.Title, current.Content
	if changes.Title != nil {
		title = *changes.Title
	}
	if changes.Content != nil {
		content = *changes.Content
	}
	if err := validateTitle(title); err != nil {
		return nil, err
	}

	return s.store.Update(ctx, id, title, content)
}

func (s *ArticleService) Delete(ctx context.Context, actor string, id uuid.UUID) error {
	_, err := s.authorize(ctx, actor, id)
	if err == nil {
		err = s.store.Delete(ctx, id)
	}
	s.record("delete", err)
	if err != nil {
		return err
	}

	s.logger.Info("Article deleted",
		zap.String("article_id", id.String()),
		zap.String("user_id", actor))
	return nil
}

// authorize loads the article and checks that actor owns it.
// user_id is immutable, so the check stays valid for the following write.
func (s *ArticleService) authorize(ctx context.Context, actor string, id uuid.UUID) (*model.Article, error) {
	if actor == "" {
		return nil, ErrNoActor
	}

	article, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !article.OwnedBy(actor) {
		s.logger.Warn("Rejected mutation by non-owner",
			zap.String("article_id", id.String()),
			zap.String("user_id", actor))
		return nil, ErrForbidden
	}
	return article, nil
}

func (s *ArticleService) record(op string, err error) {
	outcome := Outcome(err)
	metrics.ArticleOperations.WithLabelValues(op, outcome).Inc()
	if outcome == metrics.OutcomeError {
		s.logger.Error("Article operation failed", zap.String("operation", op), zap.Error(err))
	}
}

// Outcome classifies err into one of the metric outcome labels.
func Outcome(err error) string {
	var verr *store.ValidationError
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.As(err, &verr):
		return metrics.OutcomeInvalid
	case errors.Is(err, store.ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrNoActor):
		return metrics.OutcomeForbidden
	default:
		return metrics.OutcomeError
	}
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return &store.ValidationError{Fields: map[string]string{"title": "is required"}}
	}
	return nil
}
