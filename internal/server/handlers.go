package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"quillboard/internal/auth"
	"quillboard/internal/model"
	"quillboard/internal/store"

	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// articleID parses the {id} route variable. Malformed ids cannot exist in
// the store, so they are reported as not found.
func articleID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		return uuid.Nil, store.ErrNotFound
	}
	return id, nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	articles, err := s.articles.Index(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if wantsJSON(r) {
		render.JSON(w, r, articleList(articles))
		return
	}
	s.renderView(w, r, http.StatusOK, "index", viewData{Title: "Articles", Articles: articles})
}

// handleCreate renders an empty form; nothing is persisted.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		render.JSON(w, r, articleRequest{Title: new(string), Content: new(string)})
		return
	}
	s.renderView(w, r, http.StatusOK, "form", viewData{
		Title:   "New article",
		Article: &model.Article{},
		Action:  "/articles",
	})
}

func (s *Server) handleStore(w http.ResponseWriter, r *http.Request) {
	req, err := bindArticle(r)
	if err == nil {
		var article *model.Article
		article, err = s.articles.Store(r.Context(), auth.UserID(r.Context()), deref(req.Title), deref(req.Content))
		if err == nil {
			if wantsJSON(r) {
				render.Status(r, http.StatusCreated)
				render.JSON(w, r, article)
				return
			}
			http.Redirect(w, r, articlePath(article.ID), http.StatusSeeOther)
			return
		}
	}

	draft := &model.Article{Title: deref(req.Title), Content: deref(req.Content)}
	s.formError(w, r, err, draft, "New article", "/articles", "")
}

func (s *Server) handleShow(w http.ResponseWriter, r *http.Request) {
	id, err := articleID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	article, err := s.articles.Show(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if wantsJSON(r) {
		render.JSON(w, r, article)
		return
	}
	s.renderView(w, r, http.StatusOK, "show", viewData{Title: article.Title, Article: article})
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	id, err := articleID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	article, err := s.articles.Edit(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if wantsJSON(r) {
		render.JSON(w, r, article)
		return
	}
	s.renderView(w, r, http.StatusOK, "form", viewData{
		Title:   "Edit article",
		Article: article,
		Action:  articlePath(article.ID),
		Method:  http.MethodPut,
	})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := articleID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	req, err := bindArticle(r)
	if err == nil {
		var article *model.Article
		article, err = s.articles.Update(r.Context(), auth.UserID(r.Context()), id, req.changes())
		if err == nil {
			if wantsJSON(r) {
				render.JSON(w, r, article)
				return
			}
			http.Redirect(w, r, articlePath(id), http.StatusSeeOther)
			return
		}
	}

	draft := &model.Article{ID: id, Title: deref(req.Title), Content: deref(req.Content)}
	s.formError(w, r, err, draft, "Edit article", articlePath(id), http.MethodPut)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := articleID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.articles.Delete(r.Context(), auth.UserID(r.Context()), id); err != nil {
		s.writeError(w, r, err)
		return
	}

	if wantsJSON(r) {
		render.NoContent(w, r)
		return
	}
	http.Redirect(w, r, "/articles", http.StatusSeeOther)
}

type importRequest struct {
	URL string `json:"url"`
}

// handleImport queues a page for the worker to turn into an article.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if render.GetRequestContentType(r) == render.ContentTypeJSON {
		if err := render.DecodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
			s.writeError(w, r, errInvalidJSON)
			return
		}
	} else {
		req.URL = r.FormValue("url")
	}

	if err := validateImportURL(req.URL); err != nil {
		s.writeError(w, r, err)
		return
	}

	job := model.NewImportJob(req.URL, auth.UserID(r.Context()))
	if err := s.queue.PushImport(r.Context(), job); err != nil {
		s.writeError(w, r, fmt.Errorf("queue import: %w", err))
		return
	}
	s.logger.Info("Import queued",
		zap.String("job_id", job.ID.String()),
		zap.String("url", job.URL))

	if wantsJSON(r) {
		render.Status(r, http.StatusAccepted)
		render.JSON(w, r, job)
		return
	}
	http.Redirect(w, r, "/articles", http.StatusSeeOther)
}

func validateImportURL(raw string) error {
	u, err := url.Parse(raw)
	if raw == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &store.ValidationError{Fields: map[string]string{"url": "must be an absolute http(s) URL"}}
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Warn("Health check failed", zap.Error(err))
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, map[string]string{"status": "unhealthy"})
		return
	}
	render.JSON(w, r, map[string]string{"status": "healthy"})
}

// formError re-renders the form for HTML validation failures and falls back
// to the regular error mapping otherwise.
func (s *Server) formError(w http.ResponseWriter, r *http.Request, err error, draft *model.Article, title, action, method string) {
	var verr *store.ValidationError
	if wantsJSON(r) || !errors.As(err, &verr) {
		s.writeError(w, r, err)
		return
	}
	s.renderView(w, r, http.StatusUnprocessableEntity, "form", viewData{
		Title:   title,
		Article: draft,
		Action:  action,
		Method:  method,
		Errors:  verr.Fields,
	})
}

func articlePath(id uuid.UUID) string {
	return "/articles/" + id.String()
}
