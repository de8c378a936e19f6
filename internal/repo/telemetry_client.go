package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/miradorstack/mirador-twin/internal/models"
)

// maxBodyBytes bounds how much of a telemetry response is read.
const maxBodyBytes = 1 << 20

// sentData mirrors the machine readings object of the source payload.
type sentData struct {
	Type            string  `json:"Type"`
	AirTemp         float64 `json:"AirTemp"`
	ProcessTemp     float64 `json:"ProcessTemp"`
	RotationalSpeed float64 `json:"RotationalSpeed"`
	Torque          float64 `json:"Torque"`
	ToolWear        float64 `json:"ToolWear"`
}

type apiResponse struct {
	HealthStatus string `json:"HealthStatus"`
}

type telemetryPayload struct {
	SentData    *sentData    `json:"SentData"`
	APIResponse *apiResponse `json:"APIResponse"`
}

// TelemetryClient performs single request/response exchanges against the telemetry source.
type TelemetryClient struct {
	endpoint   string
	httpClient *http.Client
	clock      clock.Clock
}

// NewTelemetryClient constructs a client for the fixed source endpoint.
func NewTelemetryClient(endpoint string, timeout time.Duration, clk clock.Clock) *TelemetryClient {
	if clk == nil {
		clk = clock.New()
	}
	return &TelemetryClient{
		endpoint: strings.TrimSpace(endpoint),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		clock: clk,
	}
}

// Endpoint returns the configured source URL.
func (c *TelemetryClient) Endpoint() string {
	return c.endpoint
}

// Fetch issues one GET to the source and parses the body into a Snapshot.
// The snapshot is stamped with the acquisition time, not a source-provided one.
func (c *TelemetryClient) Fetch(ctx context.Context) (models.Snapshot, error) {
	if c == nil {
		return models.Snapshot{}, fmt.Errorf("telemetry client not initialised")
	}
	if c.endpoint == "" {
		return models.Snapshot{}, &models.FetchError{Kind: models.FetchKindTransport, Detail: "source URL not configured"}
	}

	var payload telemetryPayload
	if err := c.getJSON(ctx, c.endpoint, &payload); err != nil {
		return models.Snapshot{}, err
	}
	if payload.SentData == nil || payload.APIResponse == nil {
		return models.Snapshot{}, &models.FetchError{Kind: models.FetchKindDecode, Detail: "missing SentData or APIResponse"}
	}

	return models.Snapshot{
		Type:               payload.SentData.Type,
		AirTempK:           payload.SentData.AirTemp,
		ProcessTempK:       payload.SentData.ProcessTemp,
		RotationalSpeedRPM: payload.SentData.RotationalSpeed,
		TorqueNm:           payload.SentData.Torque,
		ToolWearMin:        payload.SentData.ToolWear,
		HealthStatus:       payload.APIResponse.HealthStatus,
		CapturedAt:         c.clock.Now().UTC(),
	}, nil
}

func (c *TelemetryClient) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &models.FetchError{Kind: models.FetchKindTransport, Detail: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &models.FetchError{Kind: models.FetchKindTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return &models.FetchError{Kind: models.FetchKindTransport, Detail: resp.Status}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return &models.FetchError{Kind: models.FetchKindTransport, Detail: "read body", Err: err}
		}
		return &models.FetchError{Kind: models.FetchKindDecode, Detail: "decode response", Err: err}
	}
	return nil
}
