package model

import (
	"time"

	"github.com/google/uuid"
)

// Article is a piece of content owned by a single user.
type Article struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Title     string    `json:"title" db:"title"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewArticle creates a new Article owned by userID with fresh identity and timestamps.
func NewArticle(userID, title, content string) Article {
	now := time.Now().UTC()
	return Article{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// OwnedBy reports whether userID owns the article.
func (a *Article) OwnedBy(userID string) bool {
	return userID != "" && a.UserID == userID
}

// ImportJob asks the worker to turn a web page into an article for UserID.
type ImportJob struct {
	ID       uuid.UUID `json:"id"`
	URL      string    `json:"url"`
	UserID   string    `json:"user_id"`
	QueuedAt time.Time `json:"queued_at"`
}

// NewImportJob creates a queued import for rawURL on behalf of userID.
func NewImportJob(rawURL, userID string) ImportJob {
	return ImportJob{
		ID:       uuid.New(),
		URL:      rawURL,
		UserID:   userID,
		QueuedAt: time.Now().UTC(),
	}
}
