package api

import (
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/miradorstack/mirador-twin/internal/models"
)

// HealthReporter publishes per-twin health through the standard gRPC health service.
type HealthReporter struct {
	srv *health.Server
}

// NewHealthReporter returns a reporter whose overall status is SERVING.
func NewHealthReporter() *HealthReporter {
	srv := health.NewServer()
	srv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	return &HealthReporter{srv: srv}
}

// HealthServiceName is the health-check service name for a twin.
func HealthServiceName(twinID string) string {
	return "twin/" + twinID
}

// SetTwinHealth maps a classification onto the twin's health-check status.
func (h *HealthReporter) SetTwinHealth(twinID string, state models.Health) {
	h.srv.SetServingStatus(HealthServiceName(twinID), servingStatus(state))
}

// Shutdown flips every service to NOT_SERVING so clients drain.
func (h *HealthReporter) Shutdown() {
	h.srv.Shutdown()
}

func servingStatus(state models.Health) healthpb.HealthCheckResponse_ServingStatus {
	switch state {
	case models.HealthHealthy:
		return healthpb.HealthCheckResponse_SERVING
	case models.HealthUnhealthy:
		return healthpb.HealthCheckResponse_NOT_SERVING
	default:
		return healthpb.HealthCheckResponse_UNKNOWN
	}
}
