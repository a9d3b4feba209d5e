package ndvi

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/FACorreiaa/go-county-ndvi/app/observability/metrics"
	"github.com/FACorreiaa/go-county-ndvi/internal/api/county"
	"github.com/FACorreiaa/go-county-ndvi/internal/types"
)

const (
	DefaultTrendStartYear = 2020
	DefaultTrendEndYear   = 2023
	MaxTrendYears         = 40
)

var _ Service = (*ServiceImpl)(nil)

// Service defines the NDVI analyses exposed by the API.
type Service interface {
	Analyze(ctx context.Context, sensor Sensor, q types.SceneQuery) (*types.AnalysisResponse, error)
	Trend(ctx context.Context, sensor Sensor, countyCode, startYear, endYear int) (*types.TrendResponse, error)
}

type ServiceImpl struct {
	logger       *slog.Logger
	repository   Repository
	counties     county.Service
	cache        *cache.Cache
	trendWorkers int
	metrics      *metrics.AppMetrics
}

// NewServiceImpl caches analyses for ttl. trendWorkers bounds the years
// evaluated at once; zero means one per year.
func NewServiceImpl(repository Repository, counties county.Service, ttl, cleanup time.Duration,
	trendWorkers int, appMetrics *metrics.AppMetrics, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:       logger,
		repository:   repository,
		counties:     counties,
		cache:        cache.New(ttl, cleanup),
		trendWorkers: trendWorkers,
		metrics:      appMetrics,
	}
}

// analysisCacheKey leaves out the cloud threshold for sensors that ignore it.
func analysisCacheKey(sensor Sensor, q types.SceneQuery) string {
	cloud := q.CloudPercentage
	if sensor.CloudProperty == "" {
		cloud = 0
	}
	return fmt.Sprintf("%s:%d:%s:%s:%g", sensor.Name, q.CountyCode, q.StartDate, q.EndDate, cloud)
}

func (s *ServiceImpl) Analyze(ctx context.Context, sensor Sensor, q types.SceneQuery) (*types.AnalysisResponse, error) {
	ctx, span := otel.Tracer("NDVIService").Start(ctx, "Analyze", trace.WithAttributes(
		attribute.String("satellite", sensor.Name),
		attribute.Int("county.code", q.CountyCode),
	))
	defer span.End()

	l := s.logger.With(slog.String("satellite", sensor.Name), slog.Int("county_code", q.CountyCode))

	c, err := s.counties.GetCounty(ctx, q.CountyCode)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	key := analysisCacheKey(sensor, q)
	if cached, found := s.cache.Get(key); found {
		if resp, ok := cached.(*types.AnalysisResponse); ok {
			s.recordLookup(ctx, "hit")
			span.SetAttributes(attribute.Bool("cache.hit", true))
			l.DebugContext(ctx, "Serving analysis from cache", slog.String("analysis_id", resp.AnalysisID))
			out := *resp
			return &out, nil
		}
	}
	s.recordLookup(ctx, "miss")

	resp := &types.AnalysisResponse{
		Success:    true,
		AnalysisID: uuid.NewString(),
		Satellite:  sensor.Name,
		CountyName: c.Name,
		RGBVisualization: types.Visualization{
			Min:    sensor.RGBVis().Min,
			Max:    sensor.RGBVis().Max,
			Bands:  sensor.RGB,
			Region: c.Geometry,
		},
		// describes the NDVI range; tiles are rendered from the class band
		NDVIVisualization: types.Visualization{
			Min:     0,
			Max:     1,
			Bands:   []string{BandNDVI},
			Palette: ClassPalette,
			Region:  c.Geometry,
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := s.repository.Statistics(gctx, sensor, q)
		if err != nil {
			return err
		}
		resp.Statistics = stats
		return nil
	})
	g.Go(func() error {
		url, err := s.repository.TileURL(gctx, sensor, LayerRGB, q)
		if err != nil {
			return err
		}
		resp.RGBTileURL = url
		return nil
	})
	g.Go(func() error {
		url, err := s.repository.TileURL(gctx, sensor, LayerNDVIClass, q)
		if err != nil {
			return err
		}
		resp.NDVITileURL = url
		return nil
	})
	if err := g.Wait(); err != nil {
		l.ErrorContext(ctx, "Analysis failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "analysis failed")
		s.recordAnalysis(ctx, sensor, "failure")
		return nil, fmt.Errorf("%s analysis of county %d: %w", sensor.Label, q.CountyCode, err)
	}

	s.cache.Set(key, resp, cache.DefaultExpiration)
	s.recordAnalysis(ctx, sensor, "success")
	l.InfoContext(ctx, "Analysis completed", slog.String("analysis_id", resp.AnalysisID))
	span.SetStatus(codes.Ok, "")
	out := *resp
	return &out, nil
}

func (s *ServiceImpl) Trend(ctx context.Context, sensor Sensor, countyCode, startYear, endYear int) (*types.TrendResponse, error) {
	ctx, span := otel.Tracer("NDVIService").Start(ctx, "Trend", trace.WithAttributes(
		attribute.String("satellite", sensor.Name),
		attribute.Int("county.code", countyCode),
		attribute.Int("start_year", startYear),
		attribute.Int("end_year", endYear),
	))
	defer span.End()

	l := s.logger.With(slog.String("satellite", sensor.Name), slog.Int("county_code", countyCode))

	c, err := s.counties.GetCounty(ctx, countyCode)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var (
		mu     sync.Mutex
		points = make([]types.TrendPoint, 0, endYear-startYear+1)
	)
	g, gctx := errgroup.WithContext(ctx)
	if s.trendWorkers > 0 {
		g.SetLimit(s.trendWorkers)
	}
	for year := startYear; year <= endYear; year++ {
		g.Go(func() error {
			point, ok, err := s.yearPoint(gctx, sensor, countyCode, year)
			if err != nil {
				return err
			}
			if !ok {
				l.DebugContext(gctx, "No scenes for year", slog.Int("year", year))
				return nil
			}
			mu.Lock()
			points = append(points, point)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "trend cancelled")
		return nil, err
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Year < points[j].Year })

	resp := &types.TrendResponse{
		Success:      true,
		Satellite:    sensor.Name,
		TrendData:    points,
		SlopePerYear: slope(points),
		CountyName:   c.Name,
	}
	s.recordAnalysis(ctx, sensor, "trend")
	l.InfoContext(ctx, "Trend completed", slog.Int("years", len(points)))
	span.SetStatus(codes.Ok, "")
	return resp, nil
}

// yearPoint evaluates one calendar year. ok is false when the year has no
// scenes. A failed evaluation yields a null point; only cancellation of the
// whole request is returned as an error.
func (s *ServiceImpl) yearPoint(ctx context.Context, sensor Sensor, countyCode, year int) (types.TrendPoint, bool, error) {
	q := types.SceneQuery{
		CountyCode:      countyCode,
		StartDate:       fmt.Sprintf("%d-01-01", year),
		EndDate:         fmt.Sprintf("%d-12-31", year),
		CloudPercentage: DefaultCloudPercentage,
	}
	point := types.TrendPoint{Year: year}

	size, err := s.repository.CollectionSize(ctx, sensor, q)
	if err != nil {
		return s.failedYear(ctx, point, err)
	}
	if size == 0 {
		return point, false, nil
	}

	mean, err := s.repository.MeanNDVI(ctx, sensor, q)
	if err != nil {
		return s.failedYear(ctx, point, err)
	}
	if mean != nil && *mean != 0 && !math.IsNaN(*mean) {
		rounded := math.Round(*mean*10000) / 10000
		class := ClassOf(rounded)
		point.NDVI = &rounded
		point.Class = &class
	}
	return point, true, nil
}

func (s *ServiceImpl) failedYear(ctx context.Context, point types.TrendPoint, err error) (types.TrendPoint, bool, error) {
	if ctx.Err() != nil {
		return point, false, err
	}
	s.logger.WarnContext(ctx, "Year evaluation failed", slog.Int("year", point.Year), slog.Any("error", err))
	return point, true, nil
}

// slope is the least-squares NDVI change per year over the non-null points.
func slope(points []types.TrendPoint) *float64 {
	var xs, ys []float64
	for _, p := range points {
		if p.NDVI == nil {
			continue
		}
		xs = append(xs, float64(p.Year))
		ys = append(ys, *p.NDVI)
	}
	if len(xs) < 2 {
		return nil
	}
	_, beta := stat.LinearRegression(xs, ys, nil, false)
	if math.IsNaN(beta) {
		return nil
	}
	beta = math.Round(beta*1e6) / 1e6
	return &beta
}

func (s *ServiceImpl) recordLookup(ctx context.Context, result string) {
	if s.metrics == nil {
		return
	}
	s.metrics.CacheLookupsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache", "analyses"),
		attribute.String("result", result),
	))
}

func (s *ServiceImpl) recordAnalysis(ctx context.Context, sensor Sensor, outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.AnalysesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("satellite", sensor.Name),
		attribute.String("outcome", outcome),
	))
}
