package http

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"

	"fintrack/internal/auth"
	applog "fintrack/internal/log"
	appweb "fintrack/web"
)

// page is the data every template receives.
type page struct {
	Title    string
	Username string
	Flashes  []auth.Flash
	Data     any
}

var templateFuncs = template.FuncMap{
	"alertClass": func(category string) string {
		switch category {
		case auth.FlashSuccess, auth.FlashWarning, auth.FlashDanger:
			return "alert-" + category
		default:
			return "alert-info"
		}
	},
}

func parseTemplates() *template.Template {
	return template.Must(template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html"))
}

// render executes name into a buffer so a template error never leaves a
// half-written page. Pending flashes are consumed.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any, extra ...auth.Flash) {
	p := page{
		Title:   title,
		Flashes: append(auth.PopFlashes(w, r), extra...),
		Data:    data,
	}
	if id, ok := auth.IdentityFrom(r.Context()); ok {
		p.Username = id.Username
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, p); err != nil {
		fields := applog.NewFields()
		fields["template"] = name
		applog.NewStructuredLogger(applog.FromContext(r.Context())).LogError(r.Context(), "Template execution failed", err,
			applog.ComponentTemplate, applog.OpRender, fields)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// redirectWithFlash stores a one-shot notice and redirects with 303 See Other.
func redirectWithFlash(w http.ResponseWriter, r *http.Request, category, message, target string) {
	auth.AddFlash(w, r, category, message)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// serverError logs err with the request's logger and answers 500.
func (s *Server) serverError(w http.ResponseWriter, r *http.Request, msg string, err error, component, op string) {
	fields := applog.NewFields()
	if id, ok := auth.IdentityFrom(r.Context()); ok {
		fields = fields.WithUser(id.UserID)
	}
	applog.NewStructuredLogger(applog.FromContext(r.Context())).LogError(r.Context(), msg, err, component, op, fields)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// userID returns the authenticated user. Routes behind RequireUser always have one.
func userID(r *http.Request) int64 {
	id, _ := auth.IdentityFrom(r.Context())
	return id.UserID
}
