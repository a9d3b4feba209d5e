package county

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-county-ndvi/internal/api"
	"github.com/FACorreiaa/go-county-ndvi/internal/types"
)

type Handler struct {
	logger  *slog.Logger
	service Service
}

func NewCountyHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:  logger,
		service: service,
	}
}

// GetCounties godoc
// @Summary      List counties
// @Description  Returns every county of the boundary table with its GeoJSON geometry and attribute columns.
// @Tags         counties
// @Produce      json
// @Success      200  {object}  types.CountiesResponse
// @Failure      500  {object}  map[string]interface{}
// @Router       /counties [get]
func (h *Handler) GetCounties(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CountyHandler").Start(r.Context(), "GetCounties", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/counties"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "GetCounties"))
	l.DebugContext(ctx, "Retrieving all counties")

	counties, err := h.service.ListCounties(ctx)
	if err != nil {
		l.ErrorContext(ctx, "Failed to retrieve counties", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Service operation failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to load counties data")
		return
	}

	l.InfoContext(ctx, "Successfully returned counties", slog.Int("count", len(counties)))
	span.SetStatus(codes.Ok, "Counties returned successfully")
	api.WriteJSONResponse(w, r, http.StatusOK, types.CountiesResponse{
		Success:  true,
		Counties: counties,
	})
}
