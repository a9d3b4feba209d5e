package ndvi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-county-ndvi/internal/api/county"
	ee "github.com/FACorreiaa/go-county-ndvi/internal/earthengine"
	"github.com/FACorreiaa/go-county-ndvi/internal/types"
)

// Layer selects which rendering of a composite to publish as tiles.
type Layer int

const (
	LayerRGB Layer = iota
	LayerNDVIClass
)

func (l Layer) String() string {
	if l == LayerRGB {
		return "rgb"
	}
	return "ndvi_class"
}

var _ Repository = (*EarthEngineRepository)(nil)

// Repository runs vegetation computations on the remote engine.
type Repository interface {
	Statistics(ctx context.Context, sensor Sensor, q types.SceneQuery) (json.RawMessage, error)
	TileURL(ctx context.Context, sensor Sensor, layer Layer, q types.SceneQuery) (string, error)
	CollectionSize(ctx context.Context, sensor Sensor, q types.SceneQuery) (int, error)
	MeanNDVI(ctx context.Context, sensor Sensor, q types.SceneQuery) (*float64, error)
}

// Engine is the subset of the Earth Engine client used here.
type Engine interface {
	ComputeValue(ctx context.Context, v *ee.Value) (json.RawMessage, error)
	GetMapID(ctx context.Context, img ee.Image, vis ee.VisParams) (*ee.MapID, error)
}

type EarthEngineRepository struct {
	engine        Engine
	countiesAsset string
	logger        *slog.Logger
}

func NewEarthEngineRepository(engine Engine, countiesAsset string, logger *slog.Logger) *EarthEngineRepository {
	return &EarthEngineRepository{
		engine:        engine,
		countiesAsset: countiesAsset,
		logger:        logger,
	}
}

func (r *EarthEngineRepository) region(code int) ee.Geometry {
	return county.Geometry(r.countiesAsset, code)
}

func (r *EarthEngineRepository) startSpan(ctx context.Context, name string, sensor Sensor, q types.SceneQuery) (context.Context, trace.Span) {
	return otel.Tracer("NDVIRepository").Start(ctx, name, trace.WithAttributes(
		attribute.String("satellite", sensor.Name),
		attribute.Int("county.code", q.CountyCode),
		attribute.String("start_date", q.StartDate),
		attribute.String("end_date", q.EndDate),
	))
}

func (r *EarthEngineRepository) Statistics(ctx context.Context, sensor Sensor, q types.SceneQuery) (json.RawMessage, error) {
	ctx, span := r.startSpan(ctx, "Statistics", sensor, q)
	defer span.End()

	region := r.region(q.CountyCode)
	ndvi := sensor.WithNDVI(sensor.Composite(region, q))
	result, err := r.engine.ComputeValue(ctx, sensor.Statistics(ndvi, region).Value())
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to compute %s statistics: %w", sensor.Label, err)
	}
	return result, nil
}

func (r *EarthEngineRepository) TileURL(ctx context.Context, sensor Sensor, layer Layer, q types.SceneQuery) (string, error) {
	ctx, span := r.startSpan(ctx, "TileURL", sensor, q)
	defer span.End()
	span.SetAttributes(attribute.String("layer", layer.String()))

	region := r.region(q.CountyCode)
	composite := sensor.Composite(region, q)

	var (
		img ee.Image
		vis ee.VisParams
	)
	switch layer {
	case LayerRGB:
		img, vis = composite.Select(sensor.RGB...), sensor.RGBVis()
	default:
		img, vis = Classify(sensor.WithNDVI(composite)), ClassVis()
	}

	mapID, err := r.engine.GetMapID(ctx, img, vis)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to render %s %s tiles: %w", sensor.Label, layer, err)
	}
	return mapID.URLFormat, nil
}

func (r *EarthEngineRepository) CollectionSize(ctx context.Context, sensor Sensor, q types.SceneQuery) (int, error) {
	ctx, span := r.startSpan(ctx, "CollectionSize", sensor, q)
	defer span.End()

	result, err := r.engine.ComputeValue(ctx, sensor.Collection(r.region(q.CountyCode), q).Size().Value())
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count %s scenes: %w", sensor.Label, err)
	}
	var size int
	if err := json.Unmarshal(result, &size); err != nil {
		return 0, fmt.Errorf("unexpected collection size %s: %w", string(result), err)
	}
	span.SetAttributes(attribute.Int("collection.size", size))
	return size, nil
}

func (r *EarthEngineRepository) MeanNDVI(ctx context.Context, sensor Sensor, q types.SceneQuery) (*float64, error) {
	ctx, span := r.startSpan(ctx, "MeanNDVI", sensor, q)
	defer span.End()

	region := r.region(q.CountyCode)
	ndvi := sensor.WithNDVI(sensor.Composite(region, q))
	result, err := r.engine.ComputeValue(ctx, sensor.MeanNDVI(ndvi, region).Value())
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to compute %s mean NDVI: %w", sensor.Label, err)
	}
	if len(result) == 0 || bytes.Equal(bytes.TrimSpace(result), []byte("null")) {
		return nil, nil
	}
	var mean float64
	if err := json.Unmarshal(result, &mean); err != nil {
		return nil, fmt.Errorf("unexpected mean NDVI %s: %w", string(result), err)
	}
	return &mean, nil
}
