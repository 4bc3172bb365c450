package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/vrsandeep/serieswatch/internal/jobs"
	"github.com/vrsandeep/serieswatch/internal/tracker"
)

func (s *Server) handleRunAdminJob(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		JobName string `json:"job_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		RespondWithError(w, r, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if payload.JobName == "" {
		payload.JobName = tracker.SweepJobID
	}

	// The run outlives the request.
	err := s.app.Jobs.RunJob(context.Background(), payload.JobName)
	switch {
	case errors.Is(err, jobs.ErrJobNotFound):
		RespondWithError(w, r, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, jobs.ErrShuttingDown):
		RespondWithError(w, r, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		RespondWithError(w, r, http.StatusConflict, err.Error()) // 409 Conflict if a job is already running
		return
	}

	RespondWithJSON(w, r, http.StatusAccepted, map[string]string{
		"message": "Job '" + payload.JobName + "' started successfully.",
	})
}

func (s *Server) handleGetAdminJobsStatus(w http.ResponseWriter, r *http.Request) {
	statuses := s.app.Jobs.GetStatus()
	RespondWithJSON(w, r, http.StatusOK, statuses)
}
