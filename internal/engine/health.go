package engine

import "github.com/miradorstack/mirador-twin/internal/models"

// Classify maps a snapshot's status label to a health signal. Only the literal
// "No Failure" is healthy; numeric readings are never inspected.
func Classify(s models.Snapshot) models.Health {
	if s.HealthStatus == models.HealthStatusNoFailure {
		return models.HealthHealthy
	}
	return models.HealthUnhealthy
}

// ClassifyLatest classifies the latest buffered snapshot, reporting
// HealthUnknown when the buffer is still empty.
func ClassifyLatest(s models.Snapshot, ok bool) models.Health {
	if !ok {
		return models.HealthUnknown
	}
	return Classify(s)
}
