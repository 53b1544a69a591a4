package server

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"time"

	"quillboard/internal/auth"
	"quillboard/internal/model"

	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

// views holds one template set per page; each page defines its own "content".
type views struct {
	pages map[string]*template.Template
}

type viewData struct {
	Title    string
	User     string
	Article  *model.Article
	Articles []model.Article
	Action   string
	Method   string
	Errors   map[string]string
}

var viewFuncs = template.FuncMap{
	"date": func(t time.Time) string {
		return t.Format("Jan 02, 2006")
	},
}

func loadViews() *views {
	v := &views{pages: make(map[string]*template.Template)}
	for _, page := range []string{"index", "show", "form"} {
		v.pages[page] = template.Must(
			template.New(page).Funcs(viewFuncs).ParseFS(templateFS, "templates/layout.html", "templates/"+page+".html"),
		)
	}
	return v
}

// renderView executes into a buffer first so template errors still produce a clean 500.
func (s *Server) renderView(w http.ResponseWriter, r *http.Request, status int, page string, data viewData) {
	data.User = auth.UserID(r.Context())

	var buf bytes.Buffer
	if err := s.views.pages[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		s.logger.Error("Template error", zap.String("page", page), zap.Error(err))
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
