package container

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	appMiddleware "github.com/FACorreiaa/go-county-ndvi/app/middleware"
	"github.com/FACorreiaa/go-county-ndvi/app/observability/metrics"
	"github.com/FACorreiaa/go-county-ndvi/config"
	"github.com/FACorreiaa/go-county-ndvi/internal/api/county"
	"github.com/FACorreiaa/go-county-ndvi/internal/api/ndvi"
	"github.com/FACorreiaa/go-county-ndvi/internal/earthengine"
	"github.com/FACorreiaa/go-county-ndvi/internal/router"
)

// Container holds all application dependencies
type Container struct {
	Config        *config.Config
	Logger        *slog.Logger
	Engine        *earthengine.Client
	CountyService county.Service
	NDVIService   ndvi.Service
	CountyHandler *county.Handler
	NDVIHandler   *ndvi.Handler
}

type options struct {
	httpClient *http.Client
	metrics    *metrics.AppMetrics
}

// Option customizes NewContainer.
type Option func(*options)

// WithHTTPClient replaces the authenticated Earth Engine HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithMetrics records application metrics on m.
func WithMetrics(m *metrics.AppMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// NewContainer initializes and returns a new dependency container
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Container, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	httpClient := o.httpClient
	if httpClient == nil {
		var err error
		httpClient, err = earthengine.NewHTTPClient(ctx, cfg.EarthEngine.CredentialsFile, cfg.EarthEngine.Timeout)
		if err != nil {
			logger.Error("Failed to load Earth Engine credentials", slog.Any("error", err))
			return nil, fmt.Errorf("earth engine credentials: %w", err)
		}
	}

	ee := cfg.EarthEngine
	engine, err := earthengine.NewClient(earthengine.Config{
		BaseURL:            ee.BaseURL,
		Project:            ee.Project,
		HTTPClient:         httpClient,
		Logger:             logger.With(slog.String("component", "earthengine")),
		Metrics:            o.metrics,
		BreakerMinRequests: ee.Breaker.MinRequests,
		BreakerFailureRate: ee.Breaker.FailureRate,
		BreakerInterval:    ee.Breaker.Interval,
		BreakerTimeout:     ee.Breaker.Timeout,
	})
	if err != nil {
		logger.Error("Failed to create Earth Engine client", slog.Any("error", err))
		return nil, err
	}

	countyRepo := county.NewEarthEngineRepository(engine, ee.CountiesAsset, logger)
	countyService := county.NewServiceImpl(countyRepo, cfg.Cache.CountiesTTL, cfg.Cache.Cleanup, o.metrics, logger)
	countyHandler := county.NewCountyHandler(countyService, logger)

	ndviRepo := ndvi.NewEarthEngineRepository(engine, ee.CountiesAsset, logger)
	ndviService := ndvi.NewServiceImpl(ndviRepo, countyService, cfg.Cache.AnalysisTTL, cfg.Cache.Cleanup,
		ee.TrendWorkers, o.metrics, logger)
	ndviHandler := ndvi.NewNDVIHandler(ndviService, logger)

	logger.Info("Container initialized",
		slog.String("project", engine.Project()),
		slog.String("counties_asset", ee.CountiesAsset))

	return &Container{
		Config:        cfg,
		Logger:        logger,
		Engine:        engine,
		CountyService: countyService,
		NDVIService:   ndviService,
		CountyHandler: countyHandler,
		NDVIHandler:   ndviHandler,
	}, nil
}

// Routes builds the application router from the container's handlers.
func (c *Container) Routes() chi.Router {
	srv := c.Config.Server
	return router.SetupRouter(&router.Config{
		CountyHandler:       c.CountyHandler,
		NDVIHandler:         c.NDVIHandler,
		CORSMiddleware:      appMiddleware.CORS(srv.AllowedOrigins),
		RateLimitMiddleware: appMiddleware.RateLimit(srv.RateLimit.Requests, srv.RateLimit.Window),
		StaticDir:           srv.StaticDir,
		IndexFile:           srv.IndexFile,
	})
}

// WarmUp loads the county table so the first analysis does not pay for it.
func (c *Container) WarmUp(ctx context.Context) {
	counties, err := c.CountyService.ListCounties(ctx)
	if err != nil {
		c.Logger.WarnContext(ctx, "County warm-up failed", slog.Any("error", err))
		return
	}
	c.Logger.InfoContext(ctx, "County table loaded", slog.Int("count", len(counties)))
}
