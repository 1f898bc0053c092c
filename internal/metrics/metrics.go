package metrics

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/VictoriaMetrics/metrics"
)

// Configuration for metrics collection
type Config struct {
	Enabled bool
	Port    int
	Path    string
}

var config Config

// Init loads configuration and starts the metrics endpoint.
func Init() error {
	config = Config{
		Enabled: getEnvBool("METRICS_ENABLED", true),
		Port:    getEnvInt("METRICS_PORT", 8081),
		Path:    getEnvString("METRICS_PATH", "/metrics"),
	}

	if !config.Enabled {
		log.Printf("[METRICS] Metrics collection is disabled")
		return nil
	}

	log.Printf("[METRICS] Initializing metrics system on port %d", config.Port)
	go startMetricsServer()
	return nil
}

func startMetricsServer() {
	mux := http.NewServeMux()

	mux.HandleFunc(config.Path, func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	addr := fmt.Sprintf("127.0.0.1:%d", config.Port)
	log.Printf("[METRICS] Starting metrics server on %s%s", addr, config.Path)

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("[METRICS] Error starting metrics server: %v", err)
	}
}

// IsEnabled returns true if metrics collection is enabled
func IsEnabled() bool {
	return config.Enabled
}

// RecordDelivery counts a finalized delivery attempt by channel and outcome.
func RecordDelivery(channel, status string) {
	if !IsEnabled() {
		return
	}
	name := `sequence_engine_deliveries_total{channel="` + channel + `",status="` + status + `"}`
	metrics.GetOrCreateCounter(name).Inc()
}

// RecordBatch counts one processor sweep and its claimed rows.
func RecordBatch(attempted int) {
	if !IsEnabled() {
		return
	}
	metrics.GetOrCreateCounter(`sequence_engine_processor_batches_total`).Inc()
	metrics.GetOrCreateCounter(`sequence_engine_processor_claimed_total`).Add(attempted)
}

// RecordEnrollment counts scheduled and skipped steps per enrollment.
func RecordEnrollment(scheduled, skipped int) {
	if !IsEnabled() {
		return
	}
	metrics.GetOrCreateCounter(`sequence_engine_enrollment_scheduled_total`).Add(scheduled)
	metrics.GetOrCreateCounter(`sequence_engine_enrollment_skipped_total`).Add(skipped)
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
