package county

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-county-ndvi/app/observability/metrics"
	"github.com/FACorreiaa/go-county-ndvi/internal/types"
)

// ErrCountyNotFound is returned when no county carries the requested code.
var ErrCountyNotFound = errors.New("county not found")

const countiesCacheKey = "counties"

var _ Service = (*ServiceImpl)(nil)

// Service defines the county lookups used by the API.
type Service interface {
	ListCounties(ctx context.Context) ([]types.County, error)
	GetCounty(ctx context.Context, code int) (*types.County, error)
}

type ServiceImpl struct {
	logger     *slog.Logger
	repository Repository
	cache      *cache.Cache
	metrics    *metrics.AppMetrics
}

// NewServiceImpl caches the counties table for ttl. The table is curated and
// changes rarely, so one remote read serves every lookup until expiry.
func NewServiceImpl(repository Repository, ttl, cleanup time.Duration, appMetrics *metrics.AppMetrics, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:     logger,
		repository: repository,
		cache:      cache.New(ttl, cleanup),
		metrics:    appMetrics,
	}
}

func (s *ServiceImpl) ListCounties(ctx context.Context) ([]types.County, error) {
	ctx, span := otel.Tracer("CountyService").Start(ctx, "ListCounties")
	defer span.End()

	if cached, found := s.cache.Get(countiesCacheKey); found {
		if counties, ok := cached.([]types.County); ok {
			s.recordLookup(ctx, "hit")
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return counties, nil
		}
	}
	s.recordLookup(ctx, "miss")

	counties, err := s.repository.ListCounties(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to list counties", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list counties")
		return nil, fmt.Errorf("failed to list counties: %w", err)
	}

	s.cache.Set(countiesCacheKey, counties, cache.DefaultExpiration)
	s.logger.DebugContext(ctx, "Stored counties in cache", slog.Int("count", len(counties)))
	span.SetStatus(codes.Ok, "")
	return counties, nil
}

// GetCounty looks a county up by code. Code 0 marks features without a
// usable code and never matches.
func (s *ServiceImpl) GetCounty(ctx context.Context, code int) (*types.County, error) {
	ctx, span := otel.Tracer("CountyService").Start(ctx, "GetCounty", trace.WithAttributes(
		attribute.Int("county.code", code),
	))
	defer span.End()

	counties, err := s.ListCounties(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	for i := range counties {
		if code != 0 && counties[i].Code == code {
			c := counties[i]
			return &c, nil
		}
	}
	span.SetStatus(codes.Error, "county not found")
	return nil, fmt.Errorf("county code %d: %w", code, ErrCountyNotFound)
}

func (s *ServiceImpl) recordLookup(ctx context.Context, result string) {
	if s.metrics == nil {
		return
	}
	s.metrics.CacheLookupsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache", "counties"),
		attribute.String("result", result),
	))
}
