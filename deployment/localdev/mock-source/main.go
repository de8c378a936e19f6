package main

import (
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"net/http"
	"time"
)

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

var failureLabels = []string{
	"Tool Wear Failure",
	"Heat Dissipation Failure",
	"Power Failure",
	"Overstrain Failure",
	"Random Failures",
}

func main() {
	addr := flag.String("addr", ":8090", "listen address")
	failureRate := flag.Float64("failure-rate", 0.1, "fraction of samples labelled with a failure")
	errorRate := flag.Float64("error-rate", 0.05, "fraction of requests answered with 503")
	flag.Parse()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/v1/telemetry", func(w http.ResponseWriter, r *http.Request) {
		if !enforceGet(w, r) {
			return
		}
		if rand.Float64() < *errorRate {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		status := "No Failure"
		if rand.Float64() < *failureRate {
			status = failureLabels[rand.Intn(len(failureLabels))]
		}
		airTemp := 295 + rand.Float64()*10
		writeJSON(w, map[string]any{
			"SentData": sentData{
				Type:            []string{"L", "M", "H"}[rand.Intn(3)],
				AirTemp:         round1(airTemp),
				ProcessTemp:     round1(airTemp + 10 + rand.Float64()*2),
				RotationalSpeed: float64(1200 + rand.Intn(1700)),
				Torque:          round1(20 + rand.Float64()*50),
				ToolWear:        float64(rand.Intn(250)),
			},
			"APIResponse": apiResponse{HealthStatus: status},
		})
	})

	logger := log.New(log.Writer(), "source-mock ", log.LstdFlags|log.Lmicroseconds)
	srv := &http.Server{
		Addr:    *addr,
		Handler: logRequests(logger, mux),
	}

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

func round1(v float64) float64 {
	return float64(int(v*10)) / 10
}

func enforceGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
