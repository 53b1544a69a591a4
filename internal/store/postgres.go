package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"quillboard/internal/model"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25

	// DefaultMaxIdleConns is the default maximum number of idle connections
	DefaultMaxIdleConns = 5

	// DefaultConnMaxLifetime is the default maximum lifetime of a connection
	DefaultConnMaxLifetime = 5 * time.Minute

	articleColumns = "id, user_id, title, content, created_at, updated_at"
)

// PostgresStore keeps articles in a single "articles" table.
// The table is provisioned outside this program:
//
//	CREATE TABLE articles (
//	    id         UUID PRIMARY KEY,
//	    user_id    TEXT NOT NULL,
//	    title      TEXT NOT NULL,
//	    content    TEXT NOT NULL DEFAULT '',
//	    created_at TIMESTAMPTZ NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX articles_recent ON articles (created_at DESC, id DESC);
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore connects to dsn and verifies the connection.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	return &PostgresStore{db: db}, nil
}

// Close closes the database connection
func (s *PostgresStore) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Create(ctx context.Context, userID, title, content string) (*model.Article, error) {
	if err := validateFields(userID, title); err != nil {
		return nil, err
	}

	article := model.NewArticle(userID, title, content)
	query := `
		INSERT INTO articles (` + articleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + articleColumns

	err := s.db.QueryRowxContext(
		ctx, query,
		article.ID, article.UserID, article.Title, article.Content, article.CreatedAt, article.UpdatedAt,
	).StructScan(&article)
	if err != nil {
		return nil, fmt.Errorf("failed to create article: %w", err)
	}

	return &article, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*model.Article, error) {
	article := &model.Article{}
	query := `SELECT ` + articleColumns + ` FROM articles WHERE id = $1`

	if err := s.db.GetContext(ctx, article, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get article: %w", err)
	}

	return article, nil
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]model.Article, error) {
	articles := []model.Article{}
	query := `SELECT ` + articleColumns + ` FROM articles ORDER BY created_at DESC, id DESC`

	if err := s.db.SelectContext(ctx, &articles, query); err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}

	return articles, nil
}

// Update locks the row for the length of the transaction.
func (s *PostgresStore) Update(ctx context.Context, id uuid.UUID, title, content string) (*model.Article, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current := &model.Article{}
	lockQuery := `SELECT ` + articleColumns + ` FROM articles WHERE id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, current, lockQuery, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock article: %w", err)
	}

	if err := validateFields(current.UserID, title); err != nil {
		return nil, err
	}

	updated := &model.Article{}
	query := `
		UPDATE articles SET title = $2, content = $3, updated_at = $4
		WHERE id = $1
		RETURNING ` + articleColumns
	err = tx.QueryRowxContext(ctx, query, id, title, content, time.Now().UTC()).StructScan(updated)
	if err != nil {
		return nil, fmt.Errorf("failed to update article: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit update: %w", err)
	}

	return updated, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM articles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete article: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}
