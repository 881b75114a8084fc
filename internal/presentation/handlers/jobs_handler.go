package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bimakw/facilitator-indexer/internal/application/services"
)

// JobController is the part of the scheduler the admin surface drives
type JobController interface {
	Jobs() []services.JobStatus
	Trigger(jobID string) error
}

// JobsHandler exposes scheduled jobs on the syncer admin server
type JobsHandler struct {
	jobs   JobController
	logger *zap.Logger
}

// NewJobsHandler creates a new jobs handler
func NewJobsHandler(jobs JobController, logger *zap.Logger) *JobsHandler {
	return &JobsHandler{jobs: jobs, logger: logger}
}

// JobsResponse lists the configured jobs
type JobsResponse struct {
	Jobs []services.JobStatus `json:"jobs"`
}

// RegisterRoutes registers the job routes
func (h *JobsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/jobs", h.ListJobs)
	r.Post("/jobs/{id}/run", h.RunJob)
}

// ListJobs handles GET /jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, JobsResponse{Jobs: h.jobs.Jobs()})
}

// RunJob handles POST /jobs/{id}/run. The job runs in the background.
func (h *JobsHandler) RunJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := h.jobs.Trigger(id)
	switch {
	case err == nil:
		h.logger.Info("Job triggered", zap.String("job", id))
		respondJSON(w, http.StatusAccepted, map[string]string{"job": id, "status": "triggered"})
	case errors.Is(err, services.ErrUnknownJob):
		respondError(w, http.StatusNotFound, "job not found")
	case errors.Is(err, services.ErrJobRunning):
		respondError(w, http.StatusConflict, "job is already running")
	default:
		h.logger.Error("Failed to trigger job", zap.String("job", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to trigger job")
	}
}
