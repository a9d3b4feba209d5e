package router

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/FACorreiaa/go-county-ndvi/internal/api/county"
	"github.com/FACorreiaa/go-county-ndvi/internal/api/ndvi"
)

// Config contains dependencies needed for the router setup
type Config struct {
	CountyHandler *county.Handler
	NDVIHandler   *ndvi.Handler
	// CORSMiddleware is applied to every /api route.
	CORSMiddleware func(http.Handler) http.Handler
	// RateLimitMiddleware is applied to the analysis routes only.
	RateLimitMiddleware func(http.Handler) http.Handler
	// StaticDir holds the map frontend; no frontend is served when empty.
	StaticDir string
	IndexFile string
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (like logger, requestID, recoverer) are expected
// to be applied before mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
	))

	r.Route("/api", func(r chi.Router) {
		if cfg.CORSMiddleware != nil {
			r.Use(cfg.CORSMiddleware)
		}

		r.Get("/counties", cfg.CountyHandler.GetCounties)

		r.Group(func(r chi.Router) {
			if cfg.RateLimitMiddleware != nil {
				r.Use(cfg.RateLimitMiddleware)
			}
			r.Post("/sentinel2", cfg.NDVIHandler.Sentinel2)
			r.Post("/landsat8", cfg.NDVIHandler.Landsat8)
			r.Post("/ndvi_trend", cfg.NDVIHandler.Trend)
		})
	})

	if cfg.StaticDir != "" {
		r.Get("/*", frontendHandler(cfg.StaticDir, cfg.IndexFile))
	}

	return r
}

// frontendHandler serves the map pages. "/" is the index page, "/name"
// resolves to name.html when that page exists, and everything else is a
// plain file from dir.
func frontendHandler(dir, index string) http.HandlerFunc {
	files := http.FileServer(http.Dir(dir))
	return func(w http.ResponseWriter, r *http.Request) {
		clean := path.Clean("/" + r.URL.Path)
		if clean == "/" {
			http.ServeFile(w, r, filepath.Join(dir, index))
			return
		}
		if path.Ext(clean) == "" {
			page := filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(clean, "/"))+".html")
			if fi, err := os.Stat(page); err == nil && !fi.IsDir() {
				http.ServeFile(w, r, page)
				return
			}
		}
		files.ServeHTTP(w, r)
	}
}
