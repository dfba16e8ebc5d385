package apiserver

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// formView is the data behind form.html.
type formView struct {
	Form  formValues
	Error string
}

// resultView is the data behind result.html.
type resultView struct {
	Origin      string
	Destination string
	DateFrom    string
	DateTo      string
	DownloadURL string
	Itinerary   template.HTML
}

// renderPage executes a template into a buffer first so a template error still
// produces a clean 500 instead of a half-written page.
func (s *Server) renderPage(w http.ResponseWriter, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("Failed to render %s: %v", name, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
