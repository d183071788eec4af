package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camila/ideaforge/internal/admin"
	"github.com/camila/ideaforge/internal/buckets"
	"github.com/camila/ideaforge/internal/db"
	"github.com/camila/ideaforge/internal/events"
	"github.com/camila/ideaforge/internal/pipeline"
	"github.com/camila/ideaforge/internal/types"
)

// gatewayStore is an in-memory double for the operator action endpoints.
type gatewayStore struct {
	ideas   map[uuid.UUID]*types.Idea
	buckets map[uuid.UUID]*types.Bucket
}

func newGatewayStore() *gatewayStore {
	return &gatewayStore{
		ideas:   make(map[uuid.UUID]*types.Idea),
		buckets: make(map[uuid.UUID]*types.Bucket),
	}
}

func (g *gatewayStore) addIdea(stage types.Stage, status types.Status) *types.Idea {
	idea := &types.Idea{ID: uuid.New(), Stage: stage, Status: status}
	g.ideas[idea.ID] = idea
	return idea
}

func (g *gatewayStore) GetIdea(ctx context.Context, id uuid.UUID) (*types.Idea, error) {
	idea, ok := g.ideas[id]
	if !ok {
		return nil, fmt.Errorf("idea %s: %w", id, db.ErrNotFound)
	}
	cp := *idea
	return &cp, nil
}

func (g *gatewayStore) UpdateIdea(ctx context.Context, id uuid.UUID, patch db.IdeaPatch, expected *types.Status) (*types.Idea, error) {
	idea, ok := g.ideas[id]
	if !ok {
		return nil, fmt.Errorf("idea %s: %w", id, db.ErrNotFound)
	}
	if expected != nil && idea.Status != *expected {
		return nil, fmt.Errorf("idea %s has status %q: %w", id, idea.Status, db.ErrConflict)
	}
	if patch.Status != nil {
		idea.Status = *patch.Status
	}
	if patch.DesignBucketID != nil {
		idea.DesignBucketID = patch.DesignBucketID
	}
	if patch.ProductBucketID != nil {
		idea.ProductBucketID = patch.ProductBucketID
	}
	if patch.ListingBucketID != nil {
		idea.ListingBucketID = patch.ListingBucketID
	}
	cp := *idea
	return &cp, nil
}

func (g *gatewayStore) UpdateIdeaWithRevision(ctx context.Context, id uuid.UUID, patch db.IdeaPatch, expected *types.Status, entry db.NewRevision) (*types.Idea, error) {
	return g.UpdateIdea(ctx, id, patch, expected)
}

func (g *gatewayStore) GetBucket(ctx context.Context, id uuid.UUID) (*types.Bucket, error) {
	b, ok := g.buckets[id]
	if !ok {
		return nil, fmt.Errorf("bucket %s: %w", id, db.ErrNotFound)
	}
	cp := *b
	return &cp, nil
}

func (g *gatewayStore) ClaimLeastRecentlyAssigned(ctx context.Context, stage types.Stage) (*types.Bucket, error) {
	for _, b := range g.buckets {
		if b.Stage == stage && b.Active {
			cp := *b
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("no active buckets for stage %s: %w", stage, db.ErrNotFound)
}

func (g *gatewayStore) TouchBucketAssigned(ctx context.Context, id uuid.UUID) error {
	return nil
}

// stubRuns satisfies the run ledger without persistence.
type stubRuns struct{}

func (stubRuns) BeginJobRun(ctx context.Context, job, eventID string, ideaID *uuid.UUID) (*db.JobRun, bool, error) {
	return &db.JobRun{ID: uuid.New(), Job: job, EventID: eventID}, true, nil
}

func (stubRuns) CompleteJobRun(ctx context.Context, runID uuid.UUID, status string, attempts int, errMsg *string) error {
	return nil
}

// stubJob is a registered executor that records its triggers.
type stubJob struct {
	name   string
	manual bool
	ran    chan events.Event
}

func (j *stubJob) Name() string { return j.name }
func (j *stubJob) Retries() int { return 1 }
func (j *stubJob) Manual() bool { return j.manual }

func (j *stubJob) Execute(ctx context.Context, ev events.Event) error {
	j.ran <- ev
	return nil
}

type serverFixture struct {
	store      *gatewayStore
	dispatcher *events.Dispatcher
	manualJob  *stubJob
	chainedJob *stubJob
	handler    http.Handler
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	store := newGatewayStore()
	dispatcher := events.NewDispatcher(context.Background())
	t.Cleanup(func() { dispatcher.Close() })

	runner := pipeline.NewRunner(nil, stubRuns{})
	registry := pipeline.NewRegistry(runner, dispatcher)
	manual := &stubJob{name: "generate-ideas", manual: true, ran: make(chan events.Event, 4)}
	chained := &stubJob{name: "publish-to-shopify", manual: false, ran: make(chan events.Event, 4)}
	registry.Register(manual, "job/generate-ideas")
	registry.Register(chained, "job/publish-to-shopify")

	gateway := admin.NewGateway(store, buckets.NewRegistry(store), dispatcher)
	srv := New(Config{Addr: ":0"}, nil, gateway, registry)
	return &serverFixture{
		store:      store,
		dispatcher: dispatcher,
		manualJob:  manual,
		chainedJob: chained,
		handler:    srv.Handler(),
	}
}

func (f *serverFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthEndpoint(t *testing.T) {
	f := newServerFixture(t)
	rec := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeJSON(t, rec)["status"])
}

func TestAdvanceEndpoint(t *testing.T) {
	f := newServerFixture(t)
	idea := f.store.addIdea(types.StageListing, types.StatusPending)

	rec := f.do(t, http.MethodPost, "/ideas/"+idea.ID.String()+"/advance", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.StatusProcessing, f.store.ideas[idea.ID].Status)
}

func TestAdvanceEndpointErrorMapping(t *testing.T) {
	f := newServerFixture(t)
	busy := f.store.addIdea(types.StageListing, types.StatusProcessing)
	rejected := f.store.addIdea(types.StageListing, types.StatusRejected)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"unknown idea", "/ideas/" + uuid.NewString() + "/advance", http.StatusNotFound},
		{"malformed id", "/ideas/not-a-uuid/advance", http.StatusBadRequest},
		{"busy idea", "/ideas/" + busy.ID.String() + "/advance", http.StatusUnprocessableEntity},
		{"rejected idea", "/ideas/" + rejected.ID.String() + "/advance", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, tt.path, nil)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRejectEndpoint(t *testing.T) {
	f := newServerFixture(t)
	idea := f.store.addIdea(types.StagePhrase, types.StatusPending)

	rec := f.do(t, http.MethodPost, "/ideas/"+idea.ID.String()+"/reject", map[string]string{"notes": "off brand"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.StatusRejected, f.store.ideas[idea.ID].Status)
}

func TestRefineEndpointRequiresNotes(t *testing.T) {
	f := newServerFixture(t)
	idea := f.store.addIdea(types.StageDesign, types.StatusPending)

	rec := f.do(t, http.MethodPost, "/ideas/"+idea.ID.String()+"/refine", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing notes is an operator mistake, not a transition error")
}

func TestRefineEndpointRejectsBadStage(t *testing.T) {
	f := newServerFixture(t)
	idea := f.store.addIdea(types.StageDesign, types.StatusPending)

	rec := f.do(t, http.MethodPost, "/ideas/"+idea.ID.String()+"/refine",
		map[string]string{"notes": "redo", "stage": "shipping"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListJobsEndpoint(t *testing.T) {
	f := newServerFixture(t)
	rec := f.do(t, http.MethodGet, "/jobs", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	out := decodeJSON(t, rec)
	assert.EqualValues(t, 2, out["count"])
}

func TestRunJobEndpoint(t *testing.T) {
	f := newServerFixture(t)
	ideaID := uuid.New()

	rec := f.do(t, http.MethodPost, "/jobs/generate-ideas/run", map[string]string{"idea_id": ideaID.String()})
	require.Equal(t, http.StatusAccepted, rec.Code)
	out := decodeJSON(t, rec)
	assert.Equal(t, "generate-ideas", out["job"])
	assert.NotEmpty(t, out["event_id"])

	select {
	case ev := <-f.manualJob.ran:
		require.NotNil(t, ev.Payload.IdeaID)
		assert.Equal(t, ideaID, *ev.Payload.IdeaID)
		assert.Equal(t, out["event_id"], ev.ID, "the returned id is the executed event's id")
	case <-time.After(2 * time.Second):
		t.Fatal("job never ran")
	}
}

func TestRunJobEndpointErrors(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodPost, "/jobs/no-such-job/run", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/jobs/publish-to-shopify/run", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "chain-only jobs cannot be triggered by hand")

	rec = f.do(t, http.MethodPost, "/jobs/generate-ideas/run", map[string]string{"idea_id": "not-a-uuid"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{db.ErrNotFound, http.StatusNotFound},
		{pipeline.ErrUnknownJob, http.StatusNotFound},
		{db.ErrConflict, http.StatusConflict},
		{db.ErrInvalidTransition, http.StatusUnprocessableEntity},
		{pipeline.ErrNotTriggerable, http.StatusUnprocessableEntity},
		{&admin.ActionError{Action: "refine", Message: "notes are required"}, http.StatusBadRequest},
		{fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), "error: %v", tt.err)
		assert.Equal(t, tt.want, HTTPStatus(fmt.Errorf("wrapped: %w", tt.err)), "wrapped error: %v", tt.err)
	}
}
