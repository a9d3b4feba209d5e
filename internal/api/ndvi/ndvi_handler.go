package ndvi

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-county-ndvi/internal/api"
	"github.com/FACorreiaa/go-county-ndvi/internal/api/county"
	"github.com/FACorreiaa/go-county-ndvi/internal/earthengine"
	"github.com/FACorreiaa/go-county-ndvi/internal/types"
)

const (
	msgMissingParams = "Missing required parameters"
	msgMissingCounty = "Missing county code"
	msgUnavailable   = "Earth Engine is temporarily unavailable, please retry later"
)

type Handler struct {
	logger  *slog.Logger
	service Service
}

func NewNDVIHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:  logger,
		service: service,
	}
}

// Sentinel2 godoc
// @Summary      Sentinel-2 NDVI analysis
// @Description  Builds a cloud-masked Sentinel-2 composite over the county and returns NDVI statistics with RGB and classified NDVI tile layers.
// @Tags         ndvi
// @Accept       json
// @Produce      json
// @Param        request  body      types.SceneRequest  true  "County and date range"
// @Success      200      {object}  types.AnalysisResponse
// @Failure      400      {object}  map[string]interface{}
// @Failure      404      {object}  map[string]interface{}
// @Failure      500      {object}  map[string]interface{}
// @Failure      503      {object}  map[string]interface{}
// @Router       /sentinel2 [post]
func (h *Handler) Sentinel2(w http.ResponseWriter, r *http.Request) {
	h.analyze(w, r, Sentinel2, "/api/sentinel2")
}

// Landsat8 godoc
// @Summary      Landsat-8 NDVI analysis
// @Description  Builds a cloud-masked Landsat-8 composite over the county and returns NDVI statistics with RGB and classified NDVI tile layers. cloud_percentage is ignored.
// @Tags         ndvi
// @Accept       json
// @Produce      json
// @Param        request  body      types.SceneRequest  true  "County and date range"
// @Success      200      {object}  types.AnalysisResponse
// @Failure      400      {object}  map[string]interface{}
// @Failure      404      {object}  map[string]interface{}
// @Failure      500      {object}  map[string]interface{}
// @Failure      503      {object}  map[string]interface{}
// @Router       /landsat8 [post]
func (h *Handler) Landsat8(w http.ResponseWriter, r *http.Request) {
	h.analyze(w, r, Landsat8, "/api/landsat8")
}

func (h *Handler) analyze(w http.ResponseWriter, r *http.Request, sensor Sensor, route string) {
	ctx, span := otel.Tracer("NDVIHandler").Start(r.Context(), "Analyze", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String(route),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "Analyze"), slog.String("satellite", sensor.Name))

	var req types.SceneRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateScene(req); err != nil {
		l.WarnContext(ctx, "Invalid analysis request", slog.Any("error", err))
		span.SetStatus(codes.Error, "Invalid request")
		api.ErrorResponse(w, r, http.StatusBadRequest, validationMessage(err, msgMissingParams))
		return
	}

	q := types.SceneQuery{
		CountyCode:      int(req.CountyCode),
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		CloudPercentage: DefaultCloudPercentage,
	}
	if req.CloudPercentage != nil {
		q.CloudPercentage = *req.CloudPercentage
	}

	resp, err := h.service.Analyze(ctx, sensor, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Service operation failed")
		h.writeServiceError(w, r, l, q.CountyCode, err)
		return
	}

	span.SetStatus(codes.Ok, "Analysis returned successfully")
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}

// Trend godoc
// @Summary      Yearly NDVI trend
// @Description  Mean NDVI over the county for each calendar year. Years without scenes are omitted; years that fail to evaluate carry a null ndvi.
// @Tags         ndvi
// @Accept       json
// @Produce      json
// @Param        request  body      types.TrendRequest  true  "County, year range and satellite"
// @Success      200      {object}  types.TrendResponse
// @Failure      400      {object}  map[string]interface{}
// @Failure      404      {object}  map[string]interface{}
// @Failure      500      {object}  map[string]interface{}
// @Router       /ndvi_trend [post]
func (h *Handler) Trend(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("NDVIHandler").Start(r.Context(), "Trend", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/ndvi_trend"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "Trend"))

	var req types.TrendRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := api.ValidateStruct(req); err != nil {
		l.WarnContext(ctx, "Invalid trend request", slog.Any("error", err))
		span.SetStatus(codes.Error, "Invalid request")
		api.ErrorResponse(w, r, http.StatusBadRequest, validationMessage(err, msgMissingCounty))
		return
	}

	startYear, endYear := int(req.StartYear), int(req.EndYear)
	if startYear == 0 {
		startYear = DefaultTrendStartYear
	}
	if endYear == 0 {
		endYear = DefaultTrendEndYear
	}
	if endYear < startYear {
		api.ErrorResponse(w, r, http.StatusBadRequest, "end_year must not be before start_year")
		return
	}
	if endYear-startYear+1 > MaxTrendYears {
		api.ErrorResponse(w, r, http.StatusBadRequest, fmt.Sprintf("year range must not exceed %d years", MaxTrendYears))
		return
	}

	satellite := req.Satellite
	if satellite == "" {
		satellite = types.SatelliteSentinel2
	}
	sensor, err := SensorByName(satellite)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.Trend(ctx, sensor, int(req.CountyCode), startYear, endYear)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Service operation failed")
		h.writeServiceError(w, r, l, int(req.CountyCode), err)
		return
	}

	span.SetStatus(codes.Ok, "Trend returned successfully")
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}

func validateScene(req types.SceneRequest) error {
	if err := api.ValidateStruct(req); err != nil {
		return err
	}
	start, _ := time.Parse(time.DateOnly, req.StartDate)
	end, _ := time.Parse(time.DateOnly, req.EndDate)
	if end.Before(start) {
		return errors.New("end_date must not be before start_date")
	}
	return nil
}

// validationMessage answers missing when a required field is absent.
func validationMessage(err error, missing string) string {
	var ve *api.ValidationError
	if errors.As(err, &ve) && ve.MissingRequired() {
		return missing
	}
	return err.Error()
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, l *slog.Logger, code int, err error) {
	switch {
	case errors.Is(err, county.ErrCountyNotFound):
		l.WarnContext(r.Context(), "County not found", slog.Int("county_code", code))
		api.ErrorResponse(w, r, http.StatusNotFound, fmt.Sprintf("County code %d not found.", code))
	case errors.Is(err, earthengine.ErrUnavailable):
		l.ErrorContext(r.Context(), "Earth Engine unavailable", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusServiceUnavailable, msgUnavailable)
	default:
		l.ErrorContext(r.Context(), "Analysis failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Analysis failed")
	}
}
