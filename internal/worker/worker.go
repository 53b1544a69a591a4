package worker

import (
	"context"
	"errors"
	"strings"
	"time"

	"quillboard/internal/metrics"
	"quillboard/internal/model"
	"quillboard/internal/service"
	"quillboard/internal/store"

	"github.com/go-shiori/go-readability"
	"go.uber.org/zap"
)

const scrapeTimeout = 30 * time.Second

// Scraper defines the interface for downloading web pages.
// This allows us to mock the "Download" step in tests.
type Scraper interface {
	Scrape(url string, timeout time.Duration) (*readability.Article, error)
}

// DefaultScraper is the real implementation that uses the internet
type DefaultScraper struct{}

func (s *DefaultScraper) Scrape(url string, timeout time.Duration) (*readability.Article, error) {
	art, err := readability.FromURL(url, timeout)
	return &art, err
}

// Worker turns queued import jobs into articles owned by the requester.
type Worker struct {
	queue    store.ImportQueue
	articles *service.ArticleService
	logger   *zap.Logger
	scraper  Scraper
}

// NewWorker initializes the worker with the DefaultScraper
func NewWorker(queue store.ImportQueue, articles *service.ArticleService, logger *zap.Logger) *Worker {
	return &Worker{
		queue:    queue,
		articles: articles,
		logger:   logger,
		scraper:  &DefaultScraper{},
	}
}

// Start runs the worker loop until ctx is cancelled. A job already popped
// from the queue is finished before Start returns.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Worker started. Waiting for jobs...")

	for {
		job, err := w.queue.PopImport(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("Worker shutting down")
				return
			}
			w.logger.Error("Queue error", zap.Error(err))
			select {
			case <-ctx.Done():
				w.logger.Info("Worker shutting down")
				return
			case <-time.After(time.Second):
			}
			continue
		}

		w.processJob(ctx, job)
	}
}

// processJob never retries: a second attempt could publish a duplicate article.
func (w *Worker) processJob(ctx context.Context, job model.ImportJob) {
	logger := w.logger.With(zap.String("job_id", job.ID.String()), zap.String("url", job.URL))
	logger.Info("Import started")

	parsed, err := w.scraper.Scrape(job.URL, scrapeTimeout)
	if err != nil {
		logger.Error("Scraping failed", zap.Error(err))
		metrics.ImportJobs.WithLabelValues(metrics.ImportStatusError).Inc()
		return
	}

	title := strings.TrimSpace(parsed.Title)
	if title == "" {
		title = job.URL
	}

	// The job has left the queue; a shutdown must not drop it halfway.
	article, err := w.articles.Store(context.WithoutCancel(ctx), job.UserID, title, parsed.Content)
	if err != nil {
		var verr *store.ValidationError
		if errors.As(err, &verr) || errors.Is(err, service.ErrNoActor) {
			logger.Warn("Import rejected", zap.Error(err))
		} else {
			logger.Error("Failed to save imported article", zap.Error(err))
		}
		metrics.ImportJobs.WithLabelValues(metrics.ImportStatusError).Inc()
		return
	}

	metrics.ImportJobs.WithLabelValues(metrics.ImportStatusDone).Inc()
	logger.Info("Import complete",
		zap.String("article_id", article.ID.String()),
		zap.String("title", article.Title))
}
