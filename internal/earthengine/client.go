package earthengine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/FACorreiaa/go-county-ndvi/app/observability/metrics"
)

const (
	DefaultBaseURL = "https://earthengine.googleapis.com"
	// Scope is the OAuth2 scope required by the REST API.
	Scope = "https://www.googleapis.com/auth/earthengine"

	maxResponseBytes = 64 << 20
)

// Config configures a Client.
type Config struct {
	BaseURL    string
	Project    string
	HTTPClient *http.Client
	Logger     *slog.Logger
	// Metrics is optional.
	Metrics *metrics.AppMetrics

	BreakerName        string
	BreakerMinRequests uint32
	BreakerFailureRate float64
	BreakerInterval    time.Duration
	BreakerTimeout     time.Duration
}

// Client talks to the Earth Engine REST API on behalf of one cloud project.
type Client struct {
	httpClient *http.Client
	baseURL    string
	project    string
	logger     *slog.Logger
	metrics    *metrics.AppMetrics
	cb         *gobreaker.CircuitBreaker[[]byte]
}

// NewHTTPClient builds an authenticated HTTP client. With an empty
// credentialsFile the application default credentials are used.
func NewHTTPClient(ctx context.Context, credentialsFile string, timeout time.Duration) (*http.Client, error) {
	var (
		creds *google.Credentials
		err   error
	)
	if credentialsFile != "" {
		key, readErr := os.ReadFile(credentialsFile)
		if readErr != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", readErr)
		}
		creds, err = google.CredentialsFromJSON(ctx, key, Scope)
	} else {
		creds, err = google.FindDefaultCredentials(ctx, Scope)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load earth engine credentials: %w", err)
	}

	base := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	client := oauth2.NewClient(ctx, creds.TokenSource)
	client.Timeout = timeout
	return client, nil
}

// NewClient returns a Client. HTTPClient defaults to an otelhttp-instrumented
// unauthenticated client, which is only useful against test servers.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Project == "" {
		return nil, errors.New("earthengine: project is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport), Timeout: time.Minute}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.BreakerName == "" {
		cfg.BreakerName = "earthengine"
	}
	if cfg.BreakerMinRequests == 0 {
		cfg.BreakerMinRequests = 10
	}
	if cfg.BreakerFailureRate == 0 {
		cfg.BreakerFailureRate = 0.6
	}
	if cfg.BreakerInterval == 0 {
		cfg.BreakerInterval = time.Minute
	}
	if cfg.BreakerTimeout == 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}

	c := &Client{
		httpClient: cfg.HTTPClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		project:    cfg.Project,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}

	c.cb = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        cfg.BreakerName,
		MaxRequests: 3,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.BreakerMinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.BreakerFailureRate
		},
		// Bad expressions and unknown assets say nothing about engine health.
		IsSuccessful: func(err error) bool {
			return err == nil || IsClientError(err) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("Circuit breaker state transition",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
			if c.metrics != nil {
				c.metrics.BreakerTransitionsTotal.Add(context.Background(), 1, metric.WithAttributes(
					attribute.String("from", from.String()),
					attribute.String("to", to.String()),
				))
			}
		},
	})
	return c, nil
}

// Project returns the cloud project the client bills to.
func (c *Client) Project() string { return c.project }

type computeValueRequest struct {
	Expression *Expression `json:"expression"`
}

type computeValueResponse struct {
	Result json.RawMessage `json:"result"`
}

// ComputeValue evaluates v and returns the raw JSON result.
func (c *Client) ComputeValue(ctx context.Context, v *Value) (json.RawMessage, error) {
	expr, err := Encode(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode expression: %w", err)
	}
	var resp computeValueResponse
	if err := c.post(ctx, "value:compute", c.projectPath("value:compute"), computeValueRequest{Expression: expr}, &resp); err != nil {
		return nil, err
	}
	return resp.Result, nil
}

type computeFeaturesRequest struct {
	Expression *Expression `json:"expression"`
	PageToken  string      `json:"pageToken,omitempty"`
}

type computeFeaturesResponse struct {
	Type          string           `json:"type"`
	Features      []GeoJSONFeature `json:"features"`
	NextPageToken string           `json:"nextPageToken"`
}

// ComputeFeatures evaluates a feature collection and returns all of its
// features, following pagination.
func (c *Client) ComputeFeatures(ctx context.Context, fc FeatureCollection) ([]GeoJSONFeature, error) {
	expr, err := Encode(fc.v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode expression: %w", err)
	}

	var features []GeoJSONFeature
	req := computeFeaturesRequest{Expression: expr}
	for {
		var resp computeFeaturesResponse
		if err := c.post(ctx, "table:computeFeatures", c.projectPath("table:computeFeatures"), req, &resp); err != nil {
			return nil, err
		}
		features = append(features, resp.Features...)
		if resp.NextPageToken == "" {
			return features, nil
		}
		req.PageToken = resp.NextPageToken
	}
}

// VisParams controls how an image is rendered into map tiles.
type VisParams struct {
	Bands   []string
	Min     float64
	Max     float64
	Palette []string
}

type visualizationOptions struct {
	Ranges        []visRange `json:"ranges"`
	PaletteColors []string   `json:"paletteColors,omitempty"`
}

type visRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type createMapRequest struct {
	Expression           *Expression          `json:"expression"`
	FileFormat           string               `json:"fileFormat"`
	BandIDs              []string             `json:"bandIds,omitempty"`
	VisualizationOptions visualizationOptions `json:"visualizationOptions"`
}

type createMapResponse struct {
	Name string `json:"name"`
}

// MapID identifies a rendered map and its tile URL template.
type MapID struct {
	Name      string
	URLFormat string
}

// GetMapID renders img server-side and returns the {z}/{x}/{y} tile template.
func (c *Client) GetMapID(ctx context.Context, img Image, vis VisParams) (*MapID, error) {
	expr, err := Encode(img.v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode expression: %w", err)
	}

	palette := make([]string, 0, len(vis.Palette))
	for _, color := range vis.Palette {
		palette = append(palette, strings.TrimPrefix(color, "#"))
	}
	body := createMapRequest{
		Expression: expr,
		FileFormat: "AUTO_JPEG_PNG",
		BandIDs:    vis.Bands,
		VisualizationOptions: visualizationOptions{
			Ranges:        []visRange{{Min: vis.Min, Max: vis.Max}},
			PaletteColors: palette,
		},
	}

	var resp createMapResponse
	if err := c.post(ctx, "maps.create", c.projectPath("maps"), body, &resp); err != nil {
		return nil, err
	}
	if resp.Name == "" {
		return nil, errors.New("earthengine: map response without name")
	}
	return &MapID{
		Name:      resp.Name,
		URLFormat: fmt.Sprintf("%s/v1/%s/tiles/{z}/{x}/{y}", c.baseURL, resp.Name),
	}, nil
}

func (c *Client) projectPath(method string) string {
	return fmt.Sprintf("%s/v1/projects/%s/%s", c.baseURL, c.project, method)
}

func (c *Client) post(ctx context.Context, method, url string, body, out any) error {
	ctx, span := otel.Tracer("EarthEngineClient").Start(ctx, method, trace.WithAttributes(
		attribute.String("earthengine.project", c.project),
		attribute.String("earthengine.method", method),
	))
	defer span.End()

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	start := time.Now()
	raw, err := c.cb.Execute(func() ([]byte, error) {
		return c.do(ctx, url, payload)
	})
	c.record(ctx, method, start, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "earth engine call failed")
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.logger.WarnContext(ctx, "Earth Engine call rejected by circuit breaker", slog.String("method", method))
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return fmt.Errorf("%s: %w", method, err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func (c *Client) do(ctx context.Context, url string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var envelope struct {
			Error *APIError `json:"error"`
		}
		if json.Unmarshal(raw, &envelope) == nil && envelope.Error != nil {
			if envelope.Error.Code == 0 {
				envelope.Error.Code = resp.StatusCode
			}
			return nil, envelope.Error
		}
		return nil, &APIError{Code: resp.StatusCode, Status: http.StatusText(resp.StatusCode), Message: strings.TrimSpace(string(raw))}
	}
	return raw, nil
}

func (c *Client) record(ctx context.Context, method string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		outcome = "rejected"
	case IsClientError(err):
		outcome = "client_error"
	default:
		outcome = "failure"
	}
	attrs := metric.WithAttributes(attribute.String("method", method), attribute.String("outcome", outcome))
	c.metrics.RemoteRequestsTotal.Add(ctx, 1, attrs)
	c.metrics.RemoteDurationSeconds.Record(ctx, time.Since(start).Seconds(), attrs)
}
