package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mtr002/job-system/internal/interfaces"
	"github.com/mtr002/job-system/internal/jobs"
	"github.com/mtr002/job-system/internal/logger"
	"github.com/mtr002/job-system/internal/websocket"
)

type contextKey string

const correlationIDKey contextKey = "correlation_id"

type JobRequest struct {
	Type  string `json:"type"`
	Input string `json:"input"`
}

type JobResponse struct {
	ID         string             `json:"id"`
	Status     string             `json:"status"`
	StatusCode int                `json:"status_code"`
	Complete   bool               `json:"complete"`
	Result     *interfaces.Result `json:"result,omitempty"`
}

type RunResponse struct {
	ID     string `json:"id"`
	Output string `json:"output"`
	Error  string `json:"error,omitempty"`
}

// NewRouter builds the HTTP API. hub may be nil, in which case /ws is not served.
func NewRouter(manager *jobs.Manager, hub *websocket.Hub) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(correlationMiddleware)

	r.Route("/jobs", func(r chi.Router) {
		r.Post("/", handleCreateJob(manager))
		r.Post("/run", handleRunJob(manager))
		r.Get("/types", handleListTypes(manager))
		r.Get("/{id}", handleGetJob(manager))
		r.Delete("/{id}", handleCancelJob(manager))
	})
	r.Post("/workers", handleCreateWorker(manager))
	r.Get("/history", handleHistory(manager))
	r.Get("/stats", handleStats(manager))

	if hub != nil {
		r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
			websocket.HandleWebSocket(hub, w, r)
		})
	}
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", HandleHealth)
	r.Get("/health/ready", HandleReadiness(manager))
	r.Get("/health/live", HandleLiveness)
	return r
}

func correlationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get("X-Correlation-ID")
		if correlationID == "" {
			correlationID = uuid.New().String()
		}
		w.Header().Set("X-Correlation-ID", correlationID)
		ctx := context.WithValue(r.Context(), correlationIDKey, correlationID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

func decodeJobRequest(w http.ResponseWriter, r *http.Request) (*JobRequest, bool) {
	log := logger.WithCorrelationID(getCorrelationID(r.Context()))

	var req JobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn().Err(err).Msg("Invalid JSON request")
		http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}
	if req.Type == "" {
		log.Warn().Msg("Job type missing")
		http.Error(w, "Job type is required", http.StatusBadRequest)
		return nil, false
	}
	return &req, true
}

func handleCreateJob(manager *jobs.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeJobRequest(w, r)
		if !ok {
			return
		}

		id := manager.Enqueue(req.Type, req.Input)
		log := logger.WithCorrelationID(getCorrelationID(r.Context()))
		log.Info().Str("job_id", id).Str("type", req.Type).Msg("Job submitted")

		writeJSON(w, http.StatusCreated, jobResponse(manager, id))
	}
}

func handleRunJob(manager *jobs.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeJobRequest(w, r)
		if !ok {
			return
		}

		id := manager.Enqueue(req.Type, req.Input)
		result, err := manager.Wait(r.Context(), id)
		if err != nil {
			log := logger.WithCorrelationID(getCorrelationID(r.Context()))
			log.Warn().Str("job_id", id).Err(err).Msg("Client stopped waiting for job")
			code := http.StatusServiceUnavailable
			if errors.Is(err, context.DeadlineExceeded) {
				code = http.StatusGatewayTimeout
			}
			http.Error(w, err.Error(), code)
			return
		}

		writeJSON(w, http.StatusOK, RunResponse{
			ID:     id,
			Output: result.Output,
			Error:  result.Err,
		})
	}
}

func handleGetJob(manager *jobs.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		resp := jobResponse(manager, id)
		if resp.StatusCode == int(interfaces.StatusNeverSeen) {
			http.Error(w, "Job not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleCancelJob(manager *jobs.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		manager.Cancel(chi.URLParam(r, "id"))
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleListTypes(manager *jobs.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"types": manager.ListJobTypes()})
	}
}

func handleCreateWorker(manager *jobs.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := manager.CreateWorker()
		if err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": id})
	}
}

func handleHistory(manager *jobs.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := manager.DumpHistory(w); err != nil {
			log := logger.WithCorrelationID(getCorrelationID(r.Context()))
			log.Error().Err(err).Msg("Failed to write history")
		}
	}
}

func handleStats(manager *jobs.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, struct {
			jobs.Stats
			Active bool `json:"active"`
		}{manager.Stats(), manager.HasActiveWork()})
	}
}

func jobResponse(manager *jobs.Manager, id string) JobResponse {
	status := manager.Status(id)
	resp := JobResponse{
		ID:         id,
		Status:     status.String(),
		StatusCode: int(status),
		Complete:   manager.IsComplete(id),
	}
	if result, ok := manager.Result(id); ok {
		resp.Result = &result
	}
	return resp
}
