package handlers

import (
	"bytes"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/drfirst/go-mme/internal/domain/mme"
	"github.com/drfirst/go-mme/internal/web"
)

// PageHandler renders the calculator pages and serves the offline app assets
type PageHandler struct {
	table  *mme.Table
	tmpl   *template.Template
	static fs.FS
	logger *zap.Logger
}

// NewPageHandler creates a new handler
func NewPageHandler(table *mme.Table, logger *zap.Logger) (*PageHandler, error) {
	if table == nil {
		table = mme.DefaultTable()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	tmpl, err := web.Templates()
	if err != nil {
		return nil, err
	}
	return &PageHandler{
		table:  table,
		tmpl:   tmpl,
		static: web.Static(),
		logger: logger,
	}, nil
}

type pageData struct {
	Title   string
	Page    string
	Opioids []mme.Entry
}

// Register mounts the page and asset routes on r
func (h *PageHandler) Register(r chi.Router) {
	r.Get("/", h.render("index.html", pageData{Title: "MME Calculator", Page: "calculator"}))
	r.Get("/conversion", h.render("conversion.html", pageData{Title: "Opioid Conversion", Page: "conversion"}))
	r.Get("/sw.js", h.ServiceWorker)
	r.Get("/static/icons/icon-{size:[0-9]+}.svg", h.Icon)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(h.static))))
}

func (h *PageHandler) render(name string, data pageData) http.HandlerFunc {
	data.Opioids = h.table.Entries()
	return func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if err := h.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
			h.logger.Error("render page failed", zap.String("page", name), zap.Error(err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(buf.Bytes())
	}
}

// ServiceWorker serves the service worker from the site root so that its
// scope covers every page
func (h *PageHandler) ServiceWorker(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.static, "sw.js")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(data)
}

// Icon handles GET /static/icons/icon-{size}.svg
func (h *PageHandler) Icon(w http.ResponseWriter, r *http.Request) {
	size, err := strconv.Atoi(chi.URLParam(r, "size"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	var buf bytes.Buffer
	if err := web.WriteIcon(&buf, size); err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(buf.Bytes())
}
