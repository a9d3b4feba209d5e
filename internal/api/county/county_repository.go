package county

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-county-ndvi/internal/earthengine"
	"github.com/FACorreiaa/go-county-ndvi/internal/types"
)

// Property names of the counties table.
const (
	PropCode = "COUNTY_COD"
	PropName = "COUNTY_NAM"
)

var _ Repository = (*EarthEngineRepository)(nil)

// Repository reads county boundaries.
type Repository interface {
	ListCounties(ctx context.Context) ([]types.County, error)
}

// FeatureSource evaluates feature collections on the remote engine.
type FeatureSource interface {
	ComputeFeatures(ctx context.Context, fc earthengine.FeatureCollection) ([]earthengine.GeoJSONFeature, error)
}

// EarthEngineRepository loads counties from a table asset.
type EarthEngineRepository struct {
	engine  FeatureSource
	assetID string
	logger  *slog.Logger
}

func NewEarthEngineRepository(engine FeatureSource, assetID string, logger *slog.Logger) *EarthEngineRepository {
	return &EarthEngineRepository{
		engine:  engine,
		assetID: assetID,
		logger:  logger,
	}
}

// Geometry returns the server-side geometry of the county with the given code.
// It is used to constrain remote computations without shipping polygons.
func Geometry(assetID string, code int) earthengine.Geometry {
	return earthengine.LoadFeatureCollection(assetID).
		Filter(earthengine.FilterEq(PropCode, code)).
		First().
		Geometry()
}

func (r *EarthEngineRepository) ListCounties(ctx context.Context) ([]types.County, error) {
	ctx, span := otel.Tracer("CountyRepository").Start(ctx, "ListCounties", trace.WithAttributes(
		attribute.String("earthengine.asset", r.assetID),
	))
	defer span.End()

	features, err := r.engine.ComputeFeatures(ctx, earthengine.LoadFeatureCollection(r.assetID))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load counties table")
		return nil, fmt.Errorf("failed to load counties table: %w", err)
	}

	counties := make([]types.County, 0, len(features))
	for _, f := range features {
		c, err := countyFromFeature(f)
		if err != nil {
			r.logger.WarnContext(ctx, "County feature has no usable code", slog.String("feature_id", f.ID), slog.Any("error", err))
		}
		counties = append(counties, c)
	}

	span.SetAttributes(attribute.Int("counties.count", len(counties)))
	span.SetStatus(codes.Ok, "")
	return counties, nil
}

// countyFromFeature always returns the descriptor. A feature whose code is
// not an integer keeps Code 0 and is reported through the error.
func countyFromFeature(f earthengine.GeoJSONFeature) (types.County, error) {
	props := f.Properties
	code, codeErr := propertyInt(props[PropCode])
	if codeErr != nil {
		code = 0
		codeErr = fmt.Errorf("bad %s: %w", PropCode, codeErr)
	}
	name, _ := props[PropName].(string)

	geometry := f.Geometry
	if len(geometry) == 0 {
		geometry = json.RawMessage("null")
	}

	return types.County{
		Code:             code,
		Name:             name,
		Geometry:         geometry,
		Constituency:     propertyOrEmpty(props, "CONSTITUEN"),
		ConstituencyCode: propertyOrEmpty(props, "CONST_CODE"),
		CountyCode:       propertyOrEmpty(props, PropCode),
		CountyName:       propertyOrEmpty(props, PropName),
		FeatureID:        propertyOrEmpty(props, "ID_"),
		ObjectID:         propertyOrEmpty(props, "OBJECTID"),
		ShapeArea:        propertyOrEmpty(props, "Shape_Area"),
		ShapeLength:      propertyOrEmpty(props, "Shape_Leng"),
		SystemIndex:      propertyOrEmpty(props, "system:index"),
	}, codeErr
}

// propertyOrEmpty mirrors the frontend contract: absent columns are "".
func propertyOrEmpty(props map[string]any, key string) any {
	if v, ok := props[key]; ok {
		return v
	}
	return ""
}

func propertyInt(v any) (int, error) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("not an integer: %v", n)
		}
		return int(n), nil
	case string:
		return strconv.Atoi(n)
	case nil:
		return 0, fmt.Errorf("missing")
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}
