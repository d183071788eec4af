package server

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/camila/ideaforge/internal/db"
	"github.com/camila/ideaforge/internal/events"
	"github.com/camila/ideaforge/internal/types"
)

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := s.jobs.List()
	s.jsonResponse(w, http.StatusOK, map[string]any{"jobs": jobs, "count": len(jobs)})
}

type runJobRequest struct {
	IdeaID     string `json:"idea_id,omitempty"`
	BucketID   string `json:"bucket_id,omitempty"`
	CategoryID string `json:"category_id,omitempty"`
	Notes      string `json:"notes,omitempty"`
	Stage      string `json:"stage,omitempty"`
}

func (s *Server) handleRunJob(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		s.errorResponse(w, http.StatusBadRequest, "Job name is required")
		return
	}
	var req runJobRequest
	if err := s.decodeBody(r, &req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	payload := events.Payload{Notes: req.Notes}
	for _, field := range []struct {
		raw  string
		dst  **uuid.UUID
		name string
	}{
		{req.IdeaID, &payload.IdeaID, "idea_id"},
		{req.BucketID, &payload.BucketID, "bucket_id"},
		{req.CategoryID, &payload.CategoryID, "category_id"},
	} {
		if field.raw == "" {
			continue
		}
		id, err := uuid.Parse(field.raw)
		if err != nil {
			s.errorResponse(w, http.StatusBadRequest, "Invalid "+field.name+" format")
			return
		}
		*field.dst = &id
	}
	if req.Stage != "" {
		stage := types.Stage(req.Stage)
		if !stage.Valid() {
			s.errorResponse(w, http.StatusBadRequest, "Invalid stage: "+req.Stage)
			return
		}
		payload.Stage = stage
	}

	eventID, err := s.jobs.Trigger(r.Context(), name, payload)
	if err != nil {
		s.domainError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusAccepted, map[string]string{"event_id": eventID, "job": name})
}

func (s *Server) handleListJobRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := db.JobRunFilters{Job: q.Get("job")}
	if raw := q.Get("idea_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			s.errorResponse(w, http.StatusBadRequest, "Invalid idea_id format")
			return
		}
		filters.IdeaID = id
	}

	runs, err := s.db.ListJobRuns(r.Context(), filters)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

func (s *Server) handleGetJobRun(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r, "run_id")
	if !ok {
		return
	}
	run, err := s.db.GetJobRun(r.Context(), id)
	if err != nil {
		s.domainError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"run": run})
}
