package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"quillboard/internal/model"
	"quillboard/internal/service"
	"quillboard/internal/store"

	"github.com/go-chi/render"
	"go.uber.org/zap"
)

// ErrResponse renderer type for handling all sorts of errors.
type ErrResponse struct {
	Err            error `json:"-"` // low-level runtime error
	HTTPStatusCode int   `json:"-"` // http response status code

	StatusText string            `json:"status"`           // user-level status message
	ErrorText  string            `json:"error,omitempty"`  // application-level error message
	Fields     map[string]string `json:"errors,omitempty"` // per-field validation messages
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

// errResponse maps the domain error taxonomy onto HTTP statuses.
func errResponse(err error) *ErrResponse {
	var verr *store.ValidationError
	switch {
	case errors.As(err, &verr):
		return &ErrResponse{Err: err, HTTPStatusCode: http.StatusUnprocessableEntity,
			StatusText: "Validation failed.", ErrorText: err.Error(), Fields: verr.Fields}
	case errors.Is(err, store.ErrNotFound):
		return &ErrResponse{Err: err, HTTPStatusCode: http.StatusNotFound,
			StatusText: "Resource not found."}
	case errors.Is(err, service.ErrForbidden):
		return &ErrResponse{Err: err, HTTPStatusCode: http.StatusForbidden,
			StatusText: "Forbidden.", ErrorText: err.Error()}
	case errors.Is(err, service.ErrNoActor):
		return &ErrResponse{Err: err, HTTPStatusCode: http.StatusUnauthorized,
			StatusText: "Authentication required."}
	default:
		return &ErrResponse{Err: err, HTTPStatusCode: http.StatusInternalServerError,
			StatusText: "Internal server error."}
	}
}

// writeError answers with the status matching err. Internal errors are logged,
// their text never reaches the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := errResponse(err)
	if resp.HTTPStatusCode == http.StatusInternalServerError {
		s.logger.Error("Request failed",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}

	if wantsJSON(r) {
		if rerr := render.Render(w, r, resp); rerr != nil {
			s.logger.Error("Failed to render error", zap.Error(rerr))
		}
		return
	}
	http.Error(w, resp.StatusText, resp.HTTPStatusCode)
}

// wantsJSON is true unless the client asks for HTML (browsers always do).
func wantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	if strings.Contains(accept, "application/json") {
		return true
	}
	return !strings.Contains(accept, "text/html")
}

// articleRequest is the payload for store and update. Nil means "not sent".
type articleRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

var errInvalidJSON = &store.ValidationError{Fields: map[string]string{"body": "is not valid JSON"}}

// bindArticle decodes JSON bodies with render and everything else as a form.
func bindArticle(r *http.Request) (articleRequest, error) {
	var req articleRequest

	if render.GetRequestContentType(r) == render.ContentTypeJSON {
		if err := render.DecodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
			return req, errInvalidJSON
		}
		return req, nil
	}

	if err := r.ParseForm(); err != nil {
		return req, &store.ValidationError{Fields: map[string]string{"body": "is not a valid form"}}
	}
	if _, ok := r.PostForm["title"]; ok {
		v := r.PostForm.Get("title")
		req.Title = &v
	}
	if _, ok := r.PostForm["content"]; ok {
		v := r.PostForm.Get("content")
		req.Content = &v
	}
	return req, nil
}

func (req articleRequest) changes() service.ArticleChanges {
	return service.ArticleChanges{Title: req.Title, Content: req.Content}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// articleList keeps empty lists encoded as [] rather than null.
func articleList(articles []model.Article) []model.Article {
	if articles == nil {
		return []model.Article{}
	}
	return articles
}
