package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"quillboard/internal/auth"
	"quillboard/internal/service"
	"quillboard/internal/server"
	"quillboard/internal/worker"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server and the import worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, queue, err := openStore(cfg, cfg.BadgerPath)
		if err != nil {
			return err
		}
		defer st.Close()

		articles := service.NewArticleService(st, logger)
		sessions := auth.NewJWTManager(cfg.AuthSecret, cfg.SessionTTL)
		srv := server.NewServer(articles, st, queue, sessions, logger)

		workerDone := make(chan struct{})
		if queue != nil {
			w := worker.NewWorker(queue, articles, logger)
			go func() {
				defer close(workerDone)
				w.Start(ctx)
			}()
		} else {
			close(workerDone)
			logger.Warn("URL imports disabled: the postgres store has no job queue")
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start(cfg.Addr)
		}()

		var serveErr error
		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				serveErr = err
			}
			stop()
		case <-ctx.Done():
			logger.Info("Shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Stop(shutdownCtx); err != nil {
				logger.Error("Graceful shutdown failed", zap.Error(err))
				serveErr = err
			}
		}

		// The store closes after this returns; an import in progress (bounded by
		// the scrape timeout) must finish first.
		<-workerDone
		if serveErr != nil {
			return serveErr
		}
		logger.Info("Goodbye!")
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "HTTP listen address")
	if err := v.BindPFlag("addr", serveCmd.Flags().Lookup("addr")); err != nil {
		panic(err)
	}
}
