package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels poll cycles that appended a snapshot.
	OutcomeSuccess = "success"
	// OutcomeFailure labels poll cycles that ended in a terminal failure.
	OutcomeFailure = "failure"

	// ResultOK labels fetch attempts that produced a snapshot.
	ResultOK = "ok"
)

var (
	fetchAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_twin",
			Name:      "fetch_attempts_total",
			Help:      "Fetch attempts against the telemetry source, partitioned by result (ok, transport, decode).",
		},
		[]string{"result"},
	)

	fetchDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mirador_twin",
			Name:      "fetch_seconds",
			Help:      "Latency of single fetch attempts in seconds.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 4},
		},
	)

	cyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_twin",
			Name:      "cycles_total",
			Help:      "Completed poll cycles, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	twinsRegistered = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mirador_twin",
			Name:      "registered",
			Help:      "Number of registered twins.",
		},
	)

	twinHealthy = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "mirador_twin",
			Name:      "healthy",
			Help:      "1 when the twin's latest snapshot is classified healthy, 0 otherwise.",
		},
		[]string{"twin"},
	)
)

// Register attaches mirador-twin collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		fetchAttemptsTotal,
		fetchDurationSeconds,
		cyclesTotal,
		twinsRegistered,
		twinHealthy,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveFetch records one fetch attempt's duration and result label.
func ObserveFetch(duration time.Duration, result string) {
	if result == "" {
		result = ResultOK
	}
	fetchAttemptsTotal.WithLabelValues(result).Inc()
	if duration < 0 {
		duration = 0
	}
	fetchDurationSeconds.Observe(duration.Seconds())
}

// ObserveCycle counts a completed poll cycle.
func ObserveCycle(outcome string) {
	label := outcome
	if label != OutcomeFailure {
		label = OutcomeSuccess
	}
	cyclesTotal.WithLabelValues(label).Inc()
}

// SetRegistered publishes the number of registered twins.
func SetRegistered(n int) {
	twinsRegistered.Set(float64(n))
}

// SetHealthy publishes the health bit for one twin.
func SetHealthy(twinID string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1
	}
	twinHealthy.WithLabelValues(twinID).Set(v)
}

// ClearHealthy removes the health series for a twin whose state is unknown.
func ClearHealthy(twinID string) {
	twinHealthy.DeleteLabelValues(twinID)
}
