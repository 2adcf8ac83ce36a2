package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/PabloPavan/snipshare_api/internal/telemetry"
)

type App struct {
	ServiceName string
	StaticDir   string

	Health   *HealthHandler
	Config   *ConfigHandler
	Snippets *SnippetsHandler
	Tags     *TagsHandler
	Comments *CommentsHandler
}

func NewRouter(app *App) http.Handler {
	serviceName := app.ServiceName
	if serviceName == "" {
		serviceName = "snipshare-api"
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(telemetry.ChiTraceMiddleware(serviceName))
	r.Use(telemetry.ChiMetricsMiddleware)
	r.Use(telemetry.ChiLogMiddleware(serviceName))
	r.Use(WithCORS)
	r.Use(WithSecurityHeaders)

	r.Get("/health", app.Health.Get)
	r.Get("/config.json", app.Config.Get)
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.Post("/submit-snip-with-tags", app.Snippets.Submit)

	r.Route("/api", func(r chi.Router) {
		r.Get("/discover-snips", app.Snippets.Discover)
		r.Get("/search-snips", app.Snippets.Search)
		r.Get("/languages", app.Snippets.Languages)

		r.Route("/snip/{id}", func(r chi.Router) {
			r.Get("/", app.Snippets.Get)
			r.Get("/image", app.Snippets.Image)
			r.Get("/highlight", app.Snippets.Highlight)
		})

		r.Route("/snips/{snip_id}", func(r chi.Router) {
			r.Get("/", app.Snippets.GetRow)
			r.Get("/tags", app.Tags.ForSnippet)
		})

		r.Route("/tags", func(r chi.Router) {
			r.Get("/", app.Tags.List)
			r.Get("/search", app.Tags.Search)
			r.Get("/{snip_id}", app.Tags.ForSnippet)
		})

		r.Route("/comments", func(r chi.Router) {
			r.Post("/", app.Comments.Create)
			r.Get("/{snip_id}", app.Comments.List)
		})
	})

	if dir := strings.TrimSpace(app.StaticDir); dir != "" {
		files := http.FileServer(http.Dir(dir))
		r.Handle("/snipshare/*", http.StripPrefix("/snipshare", files))
		r.Handle("/*", files)
	}

	return r
}
