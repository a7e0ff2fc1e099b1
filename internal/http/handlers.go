package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/breatheasy/aqi-service/internal/client"
	"github.com/breatheasy/aqi-service/internal/lifecycle"
	"github.com/breatheasy/aqi-service/internal/models"
	"github.com/breatheasy/aqi-service/internal/observability"
	"github.com/breatheasy/aqi-service/internal/service"
	"github.com/breatheasy/aqi-service/internal/validation"
)

// DefaultMaxBatchLocations caps the number of locations in one batch request.
const DefaultMaxBatchLocations = 50

// Geocoder resolves city names to coordinates.
type Geocoder interface {
	SearchCity(ctx context.Context, name string, count int) ([]models.Place, error)
}

// HealthConfig holds dependencies for the health handler.
type HealthConfig struct {
	StartTime time.Time
	// CachePing, when set, is called to check cache reachability. Used when
	// the backend is memcached or redis.
	CachePing func() error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	aqiService        *service.AQIService
	geocoder          Geocoder
	healthConfig      *HealthConfig
	logger            *zap.Logger
	validate          *validator.Validate
	maxBatchLocations int
	batchWorkers      int
	healthStatusMu    sync.Mutex
	healthStatusPrev  string
}

// NewHandler returns a new Handler. maxBatchLocations and batchWorkers fall
// back to defaults when non-positive.
func NewHandler(
	aqiService *service.AQIService,
	geocoder Geocoder,
	healthConfig *HealthConfig,
	logger *zap.Logger,
	maxBatchLocations int,
	batchWorkers int,
) *Handler {
	if maxBatchLocations <= 0 {
		maxBatchLocations = DefaultMaxBatchLocations
	}
	if batchWorkers <= 0 {
		batchWorkers = service.DefaultBatchWorkers
	}
	return &Handler{
		aqiService:        aqiService,
		geocoder:          geocoder,
		healthConfig:      healthConfig,
		logger:            logger,
		validate:          validator.New(),
		maxBatchLocations: maxBatchLocations,
		batchWorkers:      batchWorkers,
	}
}

// GetAQI handles GET /aqi?lat=&lon=&type=&hours=&days=.
func (h *Handler) GetAQI(w http.ResponseWriter, r *http.Request) {
	coord, ok := parseCoordinate(w, r)
	if !ok {
		return
	}

	kindParam := r.URL.Query().Get("type")
	if kindParam == "" {
		kindParam = string(models.KindCurrent)
	}
	kind, err := validation.ValidateKind(kindParam)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_TYPE", err.Error())
		return
	}

	q, ok := parseWindow(w, r, kind)
	if !ok {
		return
	}

	observability.RecordQuery(string(kind))
	report, err := h.aqiService.GetReport(r.Context(), coord, q)
	if err != nil {
		writeAQIError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type batchLocation struct {
	Latitude  float64 `json:"lat" validate:"min=-90,max=90"`
	Longitude float64 `json:"lon" validate:"min=-180,max=180"`
}

type batchRequest struct {
	Locations []batchLocation `json:"locations" validate:"required,min=1,dive"`
	Type      string          `json:"type" validate:"omitempty,oneof=current hourly daily"`
	Hours     int             `json:"hours" validate:"omitempty,min=1,max=240"`
	Days      int             `json:"days" validate:"omitempty,min=1,max=16"`
}

type batchResponse struct {
	Results []service.BatchResult `json:"results"`
	Count   int                   `json:"count"`
}

// PostBatch handles POST /aqi/batch. Results come back in request order;
// per-location failures are reported inline rather than failing the batch.
func (h *Handler) PostBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", validationMessage(err))
		return
	}
	if len(req.Locations) > h.maxBatchLocations {
		writeError(w, r, http.StatusBadRequest, "TOO_MANY_LOCATIONS",
			"at most "+strconv.Itoa(h.maxBatchLocations)+" locations per batch")
		return
	}

	kind := models.QueryKind(req.Type)
	if req.Type == "" {
		kind = models.KindCurrent
	}
	q := service.Query{Kind: kind, Hours: req.Hours, Days: req.Days}
	applyWindowDefaults(&q)

	coords := make([]models.Coordinate, len(req.Locations))
	for i, loc := range req.Locations {
		coords[i] = models.Coordinate{Latitude: loc.Latitude, Longitude: loc.Longitude}
	}

	observability.RecordQuery(string(kind))
	results := h.aqiService.GetBatch(r.Context(), coords, q, h.batchWorkers)
	writeJSON(w, http.StatusOK, batchResponse{Results: results, Count: len(results)})
}

// GetGeocode handles GET /aqi/geocode?city=&count=.
func (h *Handler) GetGeocode(w http.ResponseWriter, r *http.Request) {
	city := strings.TrimSpace(r.URL.Query().Get("city"))
	if city == "" {
		writeError(w, r, http.StatusBadRequest, "INVALID_CITY", "city is required")
		return
	}
	count := 5
	if raw := r.URL.Query().Get("count"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 10 {
			writeError(w, r, http.StatusBadRequest, "INVALID_COUNT", "count must be between 1 and 10")
			return
		}
		count = parsed
	}

	places, err := h.geocoder.SearchCity(r.Context(), city, count)
	if err != nil {
		if errors.Is(err, client.ErrCityNotFound) {
			writeError(w, r, http.StatusNotFound, "CITY_NOT_FOUND", "no match for "+city)
			return
		}
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": places})
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := make(map[string]string)
	if h.healthConfig != nil && h.healthConfig.CachePing != nil {
		if h.healthConfig.CachePing() == nil {
			checks["cache"] = "healthy"
		} else {
			checks["cache"] = "unhealthy"
		}
	}

	resp := map[string]interface{}{
		"status":    result.status,
		"service":   "aqi-service",
		"version":   "dev",
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.healthConfig != nil && !h.healthConfig.StartTime.IsZero() {
		resp["uptime"] = time.Since(h.healthConfig.StartTime).Round(time.Second).String()
	}
	writeJSON(w, result.statusCode, resp)
}

// computeHealthStatus determines the current health status.
// Decision order: shutting-down > cache unreachable > healthy.
func (h *Handler) computeHealthStatus() healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if h.healthConfig != nil && h.healthConfig.CachePing != nil {
		if err := h.healthConfig.CachePing(); err != nil {
			return healthResult{"degraded", http.StatusServiceUnavailable, "cache_unreachable"}
		}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

func parseCoordinate(w http.ResponseWriter, r *http.Request) (models.Coordinate, bool) {
	latRaw := r.URL.Query().Get("lat")
	lonRaw := r.URL.Query().Get("lon")
	if latRaw == "" || lonRaw == "" {
		writeError(w, r, http.StatusBadRequest, "INVALID_COORDINATE", "lat and lon are required")
		return models.Coordinate{}, false
	}
	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_COORDINATE", "lat must be a number")
		return models.Coordinate{}, false
	}
	lon, err := strconv.ParseFloat(lonRaw, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_COORDINATE", "lon must be a number")
		return models.Coordinate{}, false
	}
	coord, err := validation.ValidateCoordinate(lat, lon)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_COORDINATE", err.Error())
		return models.Coordinate{}, false
	}
	return coord, true
}

func parseWindow(w http.ResponseWriter, r *http.Request, kind models.QueryKind) (service.Query, bool) {
	q := service.Query{Kind: kind}
	if raw := r.URL.Query().Get("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "INVALID_WINDOW", "hours must be an integer")
			return service.Query{}, false
		}
		q.Hours = parsed
	}
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "INVALID_WINDOW", "days must be an integer")
			return service.Query{}, false
		}
		q.Days = parsed
	}
	applyWindowDefaults(&q)
	if err := validation.ValidateWindow(q.Kind, q.Hours, q.Days); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_WINDOW", err.Error())
		return service.Query{}, false
	}
	return q, true
}

// applyWindowDefaults fills the forecast window when the caller omitted it:
// 24 hours for hourly, 7 days for daily.
func applyWindowDefaults(q *service.Query) {
	switch q.Kind {
	case models.KindHourly:
		if q.Hours == 0 {
			q.Hours = 24
		}
	case models.KindDaily:
		if q.Days == 0 {
			q.Days = 7
		}
	}
}

// validationMessage flattens a validator error into one client-facing line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return strings.ToLower(fe.Field()) + " failed " + fe.Tag() + " validation"
	}
	return "invalid request body"
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	corrID := ""
	if v := r.Context().Value("correlation_id"); v != nil {
		corrID = v.(string)
	}
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": corrID,
		},
	})
}

// writeAQIError maps a report lookup failure to the right status code:
// validation problems are the caller's fault, everything else is upstream.
func writeAQIError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, validation.ErrLatitudeOutOfRange),
		errors.Is(err, validation.ErrLongitudeOutOfRange):
		writeError(w, r, http.StatusBadRequest, "INVALID_COORDINATE", err.Error())
	case errors.Is(err, validation.ErrInvalidKind):
		writeError(w, r, http.StatusBadRequest, "INVALID_TYPE", err.Error())
	case errors.Is(err, validation.ErrHoursOutOfRange),
		errors.Is(err, validation.ErrDaysOutOfRange):
		writeError(w, r, http.StatusBadRequest, "INVALID_WINDOW", err.Error())
	case errors.Is(err, client.ErrBadRequest):
		writeError(w, r, http.StatusBadRequest, "UPSTREAM_REJECTED", err.Error())
	default:
		writeServiceError(w, r, err)
	}
}

// writeServiceError writes a 503 Service Unavailable error response for upstream failures.
// Logs the underlying error at DEBUG level if logger is available in request context.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "Unable to fetch air quality data")
	if logger, ok := r.Context().Value("logger").(*zap.Logger); ok && logger != nil {
		logger.Debug("upstream error",
			zap.String("errorCategory", string(client.CategorizeError(err))),
			zap.Error(err))
	}
}
