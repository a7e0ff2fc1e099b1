package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/breatheasy/aqi-service/internal/models"
	"github.com/breatheasy/aqi-service/internal/observability"
)

// AirQualityClient fetches pollutant readings from the upstream provider.
// One call maps to one outbound HTTP request; failures surface to the caller
// rather than being retried or defaulted.
type AirQualityClient interface {
	FetchCurrent(ctx context.Context, coord models.Coordinate) (CurrentConditions, error)
	FetchHourly(ctx context.Context, coord models.Coordinate, hours int) (Forecast, error)
	FetchDaily(ctx context.Context, coord models.Coordinate, days int) (Forecast, error)
}

// CurrentConditions is a parsed current-conditions reading.
type CurrentConditions struct {
	Timezone    string
	Observation models.Observation
}

// Forecast is a parsed hourly or daily forecast.
type Forecast struct {
	Timezone string
	Series   models.Series
}

var (
	ErrUpstreamFailure  = errors.New("upstream failure")
	ErrRateLimited      = errors.New("rate limited")
	ErrBadRequest       = errors.New("upstream rejected request")
	ErrMalformedPayload = errors.New("malformed upstream payload")
	ErrCircuitOpen      = errors.New("circuit breaker open")
)

// pollutantParams is the fixed parameter list requested at every granularity.
const pollutantParams = "pm10,pm2_5,carbon_monoxide,nitrogen_dioxide,sulphur_dioxide,ozone,dust,uv_index,european_aqi,us_aqi"

const userAgent = "breatheasy-aqi-service/1.0"

// OpenMeteoClient implements AirQualityClient against the Open-Meteo air
// quality API. Outbound calls are spaced by a token-bucket throttle to stay
// under the provider's rate limit, and wrapped in a circuit breaker so a
// failing upstream sheds load quickly.
type OpenMeteoClient struct {
	baseURL  string
	client   *http.Client
	throttle *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
}

// NewOpenMeteoClient creates a client for the given base URL. timeout bounds
// each request; minInterval spaces consecutive upstream calls (0 disables
// throttling).
func NewOpenMeteoClient(baseURL string, timeout, minInterval time.Duration) (*OpenMeteoClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	var throttle *rate.Limiter
	if minInterval > 0 {
		throttle = rate.NewLimiter(rate.Every(minInterval), 1)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "open-meteo",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &OpenMeteoClient{
		baseURL:  baseURL,
		throttle: throttle,
		breaker:  breaker,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type currentPayload struct {
	Time        string   `json:"time"`
	PM10        *float64 `json:"pm10"`
	PM25        *float64 `json:"pm2_5"`
	CO          *float64 `json:"carbon_monoxide"`
	NO2         *float64 `json:"nitrogen_dioxide"`
	SO2         *float64 `json:"sulphur_dioxide"`
	O3          *float64 `json:"ozone"`
	Dust        *float64 `json:"dust"`
	UVIndex     *float64 `json:"uv_index"`
	EuropeanAQI *float64 `json:"european_aqi"`
	USAQI       *float64 `json:"us_aqi"`
}

type seriesPayload struct {
	Time []string   `json:"time"`
	PM10 []*float64 `json:"pm10"`
	PM25 []*float64 `json:"pm2_5"`
	CO   []*float64 `json:"carbon_monoxide"`
	NO2  []*float64 `json:"nitrogen_dioxide"`
	SO2  []*float64 `json:"sulphur_dioxide"`
	O3   []*float64 `json:"ozone"`
}

type airQualityResponse struct {
	Timezone string          `json:"timezone"`
	Current  *currentPayload `json:"current"`
	Hourly   *seriesPayload  `json:"hourly"`
	Daily    *seriesPayload  `json:"daily"`
	Error    bool            `json:"error"`
	Reason   string          `json:"reason"`
}

// FetchCurrent performs one upstream call for current conditions.
func (c *OpenMeteoClient) FetchCurrent(ctx context.Context, coord models.Coordinate) (CurrentConditions, error) {
	params := c.baseParams(coord)
	params.Set("current", pollutantParams)

	resp, err := c.callAPI(ctx, params)
	if err != nil {
		return CurrentConditions{}, err
	}
	if resp.Current == nil {
		return CurrentConditions{}, fmt.Errorf("%w: missing current block", ErrMalformedPayload)
	}
	return CurrentConditions{
		Timezone:    resp.Timezone,
		Observation: mapObservation(resp.Current),
	}, nil
}

// FetchHourly performs one upstream call for an hourly forecast window.
func (c *OpenMeteoClient) FetchHourly(ctx context.Context, coord models.Coordinate, hours int) (Forecast, error) {
	params := c.baseParams(coord)
	params.Set("hourly", pollutantParams)
	params.Set("forecast_hours", strconv.Itoa(hours))

	resp, err := c.callAPI(ctx, params)
	if err != nil {
		return Forecast{}, err
	}
	if resp.Hourly == nil {
		return Forecast{}, fmt.Errorf("%w: missing hourly block", ErrMalformedPayload)
	}
	return Forecast{
		Timezone: resp.Timezone,
		Series:   mapSeries(resp.Hourly),
	}, nil
}

// FetchDaily performs one upstream call for a daily forecast window.
func (c *OpenMeteoClient) FetchDaily(ctx context.Context, coord models.Coordinate, days int) (Forecast, error) {
	params := c.baseParams(coord)
	params.Set("daily", pollutantParams)
	params.Set("forecast_days", strconv.Itoa(days))

	resp, err := c.callAPI(ctx, params)
	if err != nil {
		return Forecast{}, err
	}
	if resp.Daily == nil {
		return Forecast{}, fmt.Errorf("%w: missing daily block", ErrMalformedPayload)
	}
	return Forecast{
		Timezone: resp.Timezone,
		Series:   mapSeries(resp.Daily),
	}, nil
}

func (c *OpenMeteoClient) baseParams(coord models.Coordinate) url.Values {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(coord.Latitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(coord.Longitude, 'f', -1, 64))
	params.Set("timezone", "auto")
	return params
}

// callAPI throttles, then executes one HTTP GET through the circuit breaker
// and parses the response. No retries: a failure is the caller's to handle.
func (c *OpenMeteoClient) callAPI(ctx context.Context, params url.Values) (*airQualityResponse, error) {
	if c.throttle != nil {
		if err := c.throttle.Wait(ctx); err != nil {
			return nil, fmt.Errorf("throttle wait: %w", err)
		}
	}

	start := time.Now()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doRequest(ctx, params)
	})
	duration := time.Since(start).Seconds()

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			observability.UpstreamCallsTotal.WithLabelValues("circuit_open").Inc()
			return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		observability.UpstreamCallsTotal.WithLabelValues("error").Inc()
		observability.UpstreamDuration.WithLabelValues("error").Observe(duration)
		return nil, err
	}

	observability.UpstreamCallsTotal.WithLabelValues("success").Inc()
	observability.UpstreamDuration.WithLabelValues("success").Observe(duration)
	return result.(*airQualityResponse), nil
}

func (c *OpenMeteoClient) doRequest(ctx context.Context, params url.Values) (*airQualityResponse, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	base.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if corrID := extractCorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("request timeout: %w", err)
		}
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := handleErrorStatus(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedPayload)
	}

	var parsed airQualityResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if parsed.Error {
		return nil, fmt.Errorf("%w: %s", ErrBadRequest, parsed.Reason)
	}
	return &parsed, nil
}

// handleErrorStatus maps non-2xx responses to typed errors, extracting the
// provider's reason field when present.
func handleErrorStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	reason := ""
	var errBody struct {
		Reason string `json:"reason"`
	}
	if body, err := io.ReadAll(io.LimitReader(resp.Body, 4096)); err == nil {
		if json.Unmarshal(body, &errBody) == nil {
			reason = errBody.Reason
		}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w", ErrRateLimited)
	case resp.StatusCode == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrBadRequest, reason)
	default:
		return fmt.Errorf("%w: HTTP %d %s", ErrUpstreamFailure, resp.StatusCode, reason)
	}
}

func mapObservation(p *currentPayload) models.Observation {
	concentrations := make(map[models.Pollutant]float64)
	setIf := func(pollutant models.Pollutant, v *float64) {
		if v != nil {
			concentrations[pollutant] = *v
		}
	}
	setIf(models.PollutantPM25, p.PM25)
	setIf(models.PollutantPM10, p.PM10)
	setIf(models.PollutantO3, p.O3)
	setIf(models.PollutantNO2, p.NO2)
	setIf(models.PollutantSO2, p.SO2)
	setIf(models.PollutantCO, p.CO)

	return models.Observation{
		Time:           p.Time,
		Concentrations: concentrations,
		Dust:           p.Dust,
		UVIndex:        p.UVIndex,
		USAQI:          p.USAQI,
		EuropeanAQI:    p.EuropeanAQI,
	}
}

func mapSeries(p *seriesPayload) models.Series {
	return models.Series{
		Times: p.Time,
		Concentrations: map[models.Pollutant][]*float64{
			models.PollutantPM25: p.PM25,
			models.PollutantPM10: p.PM10,
			models.PollutantO3:   p.O3,
			models.PollutantNO2:  p.NO2,
			models.PollutantSO2:  p.SO2,
			models.PollutantCO:   p.CO,
		},
	}
}

func extractCorrelationID(ctx context.Context) string {
	if v := ctx.Value("correlation_id"); v != nil {
		if corrID, ok := v.(string); ok {
			return corrID
		}
	}
	return ""
}
