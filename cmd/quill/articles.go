package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"quillboard/internal/auth"
	"quillboard/internal/model"
	"quillboard/internal/service"
	"quillboard/internal/store"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	userID   string
	title    string
	content  string
	tokenTTL time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token [user-id]",
	Short: "Print a signed session token for a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ttl := cfg.SessionTTL
		if tokenTTL > 0 {
			ttl = tokenTTL
		}
		token, err := auth.NewJWTManager(cfg.AuthSecret, ttl).GenerateToken(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Create an article",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, _, err := openStore(cfg, cfg.BadgerPath)
		if err != nil {
			return err
		}
		defer st.Close()

		article, err := service.NewArticleService(st, logger).Store(context.Background(), userID, title, content)
		if err != nil {
			return err
		}

		logger.Info("Article created",
			zap.String("id", article.ID.String()),
			zap.String("title", article.Title))
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List articles, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, _, err := openStore(cfg, cfg.BadgerPath)
		if err != nil {
			return err
		}
		defer st.Close()

		articles, err := service.NewArticleService(st, logger).Index(context.Background())
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tUSER\tCREATED\tTITLE")
		for _, a := range articles {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.ID, a.UserID, a.CreatedAt.Format(time.RFC3339), a.Title)
		}
		return tw.Flush()
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete an article you own",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid article id %q: %w", args[0], err)
		}

		st, _, err := openStore(cfg, cfg.BadgerPath)
		if err != nil {
			return err
		}
		defer st.Close()

		err = service.NewArticleService(st, logger).Delete(context.Background(), userID, id)
		switch {
		case errors.Is(err, store.ErrNotFound):
			return fmt.Errorf("article %s not found", id)
		case errors.Is(err, service.ErrForbidden):
			return fmt.Errorf("article %s belongs to another user", id)
		case err != nil:
			return err
		}

		logger.Info("Article deleted", zap.String("id", id.String()))
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import [url]",
	Short: "Queue a URL to be imported as an article",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if userID == "" {
			return service.ErrNoActor
		}

		// Only Redis is touched; an in-memory Badger avoids the data dir lock held by serve.
		st, queue, err := openStore(cfg, "")
		if err != nil {
			return err
		}
		defer st.Close()
		if queue == nil {
			return fmt.Errorf("imports need the hybrid store")
		}

		job := model.NewImportJob(args[0], userID)
		if err := queue.PushImport(context.Background(), job); err != nil {
			return err
		}

		logger.Info("Import queued",
			zap.String("job_id", job.ID.String()),
			zap.String("url", job.URL))
		return nil
	},
}

func init() {
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (defaults to session-ttl)")

	addCmd.Flags().StringVar(&userID, "user", "", "owning user id")
	addCmd.Flags().StringVar(&title, "title", "", "article title")
	addCmd.Flags().StringVar(&content, "content", "", "article body")
	_ = addCmd.MarkFlagRequired("user")
	_ = addCmd.MarkFlagRequired("title")

	deleteCmd.Flags().StringVar(&userID, "user", "", "acting user id")
	_ = deleteCmd.MarkFlagRequired("user")

	importCmd.Flags().StringVar(&userID, "user", "", "user that will own the article")
	_ = importCmd.MarkFlagRequired("user")
}
