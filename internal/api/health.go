package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mtr002/job-system/internal/jobs"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
}

type ReadinessResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Workers   int       `json:"workers"`
}

const serviceName = "job-system"

func HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Service:   serviceName,
	})
}

// HandleReadiness reports ready once at least one worker can claim jobs.
func HandleReadiness(manager *jobs.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workers := manager.Stats().Workers
		response := ReadinessResponse{
			Status:    "ready",
			Timestamp: time.Now(),
			Service:   serviceName,
			Workers:   workers,
		}
		code := http.StatusOK
		if workers == 0 {
			response.Status = "not ready"
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, response)
	}
}

func HandleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "alive",
		Timestamp: time.Now(),
		Service:   serviceName,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
