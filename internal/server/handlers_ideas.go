package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/camila/ideaforge/internal/db"
	"github.com/camila/ideaforge/internal/types"
)

func (s *Server) handleListIdeas(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := db.IdeaFilters{
		Stage:  types.Stage(q.Get("stage")),
		Status: types.Status(q.Get("status")),
	}
	if filters.Stage != "" && !filters.Stage.Valid() {
		s.errorResponse(w, http.StatusBadRequest, "Invalid stage filter: "+string(filters.Stage))
		return
	}
	if filters.Status != "" && !filters.Status.Valid() {
		s.errorResponse(w, http.StatusBadRequest, "Invalid status filter: "+string(filters.Status))
		return
	}
	if raw := q.Get("category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			s.errorResponse(w, http.StatusBadRequest, "Invalid category ID format")
			return
		}
		filters.CategoryID = id
	}

	ideas, err := s.db.ListIdeas(r.Context(), filters)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"ideas": ideas, "count": len(ideas)})
}

func (s *Server) handleGetIdea(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}

	idea, err := s.db.GetIdea(r.Context(), id)
	if err != nil {
		s.domainError(w, err)
		return
	}
	revisions, err := s.db.ListRevisions(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"idea": idea, "revisions": revisions})
}

type advanceRequest struct {
	Guidance string `json:"guidance,omitempty"`
	BucketID string `json:"bucket_id,omitempty"`
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req advanceRequest
	if err := s.decodeBody(r, &req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	var override *uuid.UUID
	if req.BucketID != "" {
		bucketID, err := uuid.Parse(req.BucketID)
		if err != nil {
			s.errorResponse(w, http.StatusBadRequest, "Invalid bucket ID format")
			return
		}
		override = &bucketID
	}

	idea, err := s.gateway.Advance(r.Context(), id, req.Guidance, override)
	if err != nil {
		s.domainError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"idea": idea})
}

type rejectRequest struct {
	Notes string `json:"notes,omitempty"`
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req rejectRequest
	if err := s.decodeBody(r, &req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	idea, err := s.gateway.Reject(r.Context(), id, req.Notes)
	if err != nil {
		s.domainError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"idea": idea})
}

type refineRequest struct {
	Notes string `json:"notes"`
	Stage string `json:"stage,omitempty"`
}

func (s *Server) handleRefine(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req refineRequest
	if err := s.decodeBody(r, &req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	stage := types.Stage(req.Stage)
	if stage != "" && !stage.Valid() {
		s.errorResponse(w, http.StatusBadRequest, "Invalid stage: "+req.Stage)
		return
	}

	idea, err := s.gateway.Refine(r.Context(), id, req.Notes, stage)
	if err != nil {
		s.domainError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"idea": idea})
}

func (s *Server) handleListBuckets(w http.ResponseWriter, r *http.Request) {
	stage := types.Stage(r.URL.Query().Get("stage"))
	if stage != "" && !stage.Valid() {
		s.errorResponse(w, http.StatusBadRequest, "Invalid stage filter: "+string(stage))
		return
	}
	buckets, err := s.db.ListBuckets(r.Context(), stage, false)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"buckets": buckets, "count": len(buckets)})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.db.ListCategories(r.Context())
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"categories": categories, "count": len(categories)})
}

// pathUUID parses the named path parameter as a UUID, writing the error
// response itself when the value is missing or malformed.
func (s *Server) pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	raw := r.PathValue(name)
	if raw == "" {
		s.errorResponse(w, http.StatusBadRequest, "Missing "+name+" path parameter")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}

// decodeBody decodes an optional JSON request body. An empty body leaves
// the destination zero-valued.
func (s *Server) decodeBody(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}
