package store

import (
	"context"
	"errors"
	"sort"
	"strings"

	"quillboard/internal/model"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("article not found")
)

// ValidationError lists the input fields that were rejected and why.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Store persists articles.
type Store interface {
	Create(ctx context.Context, userID, title, content string) (*model.Article, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Article, error)
	ListAll(ctx context.Context) ([]model.Article, error)
	Update(ctx context.Context, id uuid.UUID, title, content string) (*model.Article, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Ping(ctx context.Context) error
	Close()
}

// ImportQueue hands import jobs from the web tier to the worker.
type ImportQueue interface {
	PushImport(ctx context.Context, job model.ImportJob) error
	PopImport(ctx context.Context) (model.ImportJob, error)
}

// validateFields enforces the invariants every engine shares.
func validateFields(userID, title string) error {
	fields := map[string]string{}
	if strings.TrimSpace(title) == "" {
		fields["title"] = "is required"
	}
	if userID == "" {
		fields["user_id"] = "is required"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
