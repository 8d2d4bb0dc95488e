package compute

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/plantpulse/plantpulse/pkg/oee"
)

// Endpoint paths relative to the base URL.
const (
	EndpointCalculate              = "/calculate"
	EndpointCalculateWithEconomics = "/calculate-with-economics"
	EndpointCalculateFull          = "/calculate-full"
	EndpointSensitivity            = "/sensitivity"
	EndpointLeverage               = "/leverage"
	EndpointSystemAggregate        = "/system/aggregate"
	EndpointCompareMethods         = "/system/compare-methods"
)

// DefaultRequestTimeout bounds each round-trip to the compute service.
const DefaultRequestTimeout = 30 * time.Second

// Config configures the compute client.
type Config struct {
	// BaseURL is the deployment-specific API prefix
	// (e.g. "https://calc.example.com/api/v1/oee").
	BaseURL string

	// HTTPClient is the underlying transport. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// RequestTimeout bounds each round-trip. Defaults to 30s.
	RequestTimeout time.Duration

	// Retry configures the optional retry-with-backoff transport helper.
	// Disabled when nil; retry is a hardening layer, not part of the
	// orchestration contract.
	Retry *RetryConfig
}

// Client talks to the remote OEE compute service over HTTP+JSON.
// It is the orchestrator's only side-effecting dependency.
type Client struct {
	baseURL string
	httpc   *http.Client
	timeout time.Duration
	retry   *RetryConfig
	logger  zerolog.Logger
}

// NewClient creates a compute client.
func NewClient(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = http.DefaultClient
	}
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = DefaultRequestTimeout
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpc:   httpc,
		timeout: timeout,
		retry:   cfg.Retry,
		logger:  logger.With().Str("component", "compute-client").Logger(),
	}, nil
}

// Calculate runs the core calculation.
func (c *Client) Calculate(ctx context.Context, req *CalculateRequest) (*CalculateResponse, error) {
	var resp CalculateResponse
	if err := c.post(ctx, EndpointCalculate, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CalculateWithEconomics runs the core calculation with the economic
// analysis enabled.
func (c *Client) CalculateWithEconomics(ctx context.Context, req *CalculateWithEconomicsRequest) (*CalculateResponse, error) {
	var resp CalculateResponse
	if err := c.post(ctx, EndpointCalculateWithEconomics, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CalculateFull runs core metrics plus the optional sensitivity and
// temporal-scrap analyses in a single round-trip.
func (c *Client) CalculateFull(ctx context.Context, req *CalculateFullRequest) (*CalculateFullResponse, error) {
	var resp CalculateFullResponse
	if err := c.post(ctx, EndpointCalculateFull, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Sensitivity runs the standalone sensitivity analysis.
func (c *Client) Sensitivity(ctx context.Context, req *SensitivityRequest) (*SensitivityResponse, error) {
	var resp SensitivityResponse
	if err := c.post(ctx, EndpointSensitivity, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Leverage runs the leverage analysis.
func (c *Client) Leverage(ctx context.Context, req *LeverageRequest) (*LeverageResponse, error) {
	var resp LeverageResponse
	if err := c.post(ctx, EndpointLeverage, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AggregateSystem combines per-machine results into one system figure.
func (c *Client) AggregateSystem(ctx context.Context, req *AggregateRequest) (*AggregateResponse, error) {
	if !req.AggregationMethod.Valid() {
		return nil, oee.NewAPIError(oee.ErrorClassValidation, oee.ErrCodeValidation,
			"api.error.invalid_aggregation_method",
			map[string]any{"method": string(req.AggregationMethod)}, 0)
	}
	var resp AggregateResponse
	if err := c.post(ctx, EndpointSystemAggregate, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CompareMethods runs all aggregation methods and returns the service's
// recommendation.
func (c *Client) CompareMethods(ctx context.Context, req *CompareMethodsRequest) (*CompareMethodsResponse, error) {
	var resp CompareMethodsResponse
	if err := c.post(ctx, EndpointCompareMethods, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// post performs one JSON round-trip, optionally wrapped in retries.
func (c *Client) post(ctx context.Context, endpoint string, reqBody, respBody any) error {
	if c.retry == nil {
		return c.doOnce(ctx, endpoint, reqBody, respBody)
	}
	return withRetry(ctx, c.retry, c.logger, endpoint, func() error {
		return c.doOnce(ctx, endpoint, reqBody, respBody)
	})
}

func (c *Client) doOnce(ctx context.Context, endpoint string, reqBody, respBody any) error {
	ctx, span := otel.Tracer("plantpulse/compute").Start(ctx, "compute.post")
	span.SetAttributes(attribute.String("compute.endpoint", endpoint))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		nerr := classifyTransportError(ctx, err).WithEndpoint(endpoint)
		span.SetStatus(codes.Error, nerr.Code)
		c.logger.Warn().Err(err).
			Str("endpoint", endpoint).
			Str("code", nerr.Code).
			Msg("Compute request failed")
		return nerr
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		nerr := classifyTransportError(ctx, err).WithEndpoint(endpoint)
		span.SetStatus(codes.Error, nerr.Code)
		return nerr
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(started)).
		Msg("Compute request completed")

	if resp.StatusCode >= 400 {
		aerr := decodeErrorBody(resp.StatusCode, body).WithEndpoint(endpoint)
		span.SetStatus(codes.Error, aerr.Code)
		return aerr
	}

	if err := json.Unmarshal(body, respBody); err != nil {
		span.SetStatus(codes.Error, oee.ErrCodeDecode)
		return &oee.AnalysisError{
			Class:      oee.ErrorClassUnknown,
			Code:       oee.ErrCodeDecode,
			MessageKey: "api.error.decode",
			Endpoint:   endpoint,
			Err:        err,
		}
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// classifyTransportError maps transport failures to the typed
// NETWORK_ERROR / TIMEOUT shapes; a timeout never crosses component
// boundaries as a raw exception.
func classifyTransportError(ctx context.Context, err error) *oee.AnalysisError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return oee.NewNetworkError(oee.ErrCodeTimeout, err)
	}
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) && ne.Timeout() {
		return oee.NewNetworkError(oee.ErrCodeTimeout, err)
	}
	return oee.NewNetworkError(oee.ErrCodeNetwork, err)
}

// decodeErrorBody surfaces a well-formed error body verbatim; anything
// malformed falls back to a status-classified error.
func decodeErrorBody(status int, body []byte) *oee.AnalysisError {
	class := oee.ErrorClassCompute
	code := oee.ErrCodeCompute
	if status >= 400 && status < 500 {
		class = oee.ErrorClassValidation
		code = oee.ErrCodeValidation
	}

	var eb ErrorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Code != "" {
		return oee.NewAPIError(class, eb.Code, eb.MessageKey, eb.Params, status)
	}
	return oee.NewAPIError(class, code, "api.error.http_status",
		map[string]any{"status": status}, status)
}
