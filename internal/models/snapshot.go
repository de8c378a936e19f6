package models

import "time"

// HealthStatusNoFailure is the status label the telemetry source uses for a healthy machine.
const HealthStatusNoFailure = "No Failure"

// Snapshot is one timestamped telemetry sample for a twin.
type Snapshot struct {
	Type               string
	AirTempK           float64
	ProcessTempK       float64
	RotationalSpeedRPM float64
	TorqueNm           float64
	ToolWearMin        float64
	HealthStatus       string
	CapturedAt         time.Time
}

// AirTempC returns the air temperature in Celsius rounded to two decimals.
func (s Snapshot) AirTempC() float64 { return KelvinToCelsius(s.AirTempK) }

// ProcessTempC returns the process temperature in Celsius rounded to two decimals.
func (s Snapshot) ProcessTempC() float64 { return KelvinToCelsius(s.ProcessTempK) }

// Health is the binary classification derived from a snapshot.
type Health string

const (
	HealthHealthy   Health = "healthy"
	HealthUnhealthy Health = "unhealthy"
	// HealthUnknown is reported for twins without any buffered snapshot.
	HealthUnknown Health = "unknown"
)

// Twin identifies a monitored entity. Name is immutable after registration.
type Twin struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// FailureState is the entity-scoped error recorded after a terminal failure.
type FailureState struct {
	Err        error
	RecordedAt time.Time
}
