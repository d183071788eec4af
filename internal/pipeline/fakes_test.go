package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/camila/ideaforge/internal/db"
	"github.com/camila/ideaforge/internal/events"
	"github.com/camila/ideaforge/internal/llm"
	"github.com/camila/ideaforge/internal/printful"
	"github.com/camila/ideaforge/internal/shopify"
	"github.com/camila/ideaforge/internal/types"
)

// revisionRec is one ledger entry held by the in-memory store.
type revisionRec struct {
	IdeaID        uuid.UUID
	Entry         db.NewRevision
	TransitionSeq int
	At            time.Time
}

// memStore is an in-memory double for the persistence layer with the same
// optimistic-concurrency semantics as the real one.
type memStore struct {
	mu         sync.Mutex
	ideas      map[uuid.UUID]*types.Idea
	ideaOrder  []uuid.UUID
	revisions  []revisionRec
	buckets    map[uuid.UUID]*types.Bucket
	categories []*types.Category
	brand      *types.BrandConfig
	phrases    map[uuid.UUID][]string

	runs        map[string]*db.JobRun
	runOutcomes map[uuid.UUID]runOutcome

	recalcs int

	// failCreateOn makes the numbered CreateIdea call fail once.
	createCalls  int
	failCreateOn int
	createErr    error
}

type runOutcome struct {
	Status   string
	Attempts int
	ErrMsg   string
}

func newMemStore() *memStore {
	return &memStore{
		ideas:       make(map[uuid.UUID]*types.Idea),
		buckets:     make(map[uuid.UUID]*types.Bucket),
		phrases:     make(map[uuid.UUID][]string),
		runs:        make(map[string]*db.JobRun),
		runOutcomes: make(map[uuid.UUID]runOutcome),
	}
}

func (m *memStore) addIdea(idea *types.Idea) *types.Idea {
	m.mu.Lock()
	defer m.mu.Unlock()
	if idea.ID == uuid.Nil {
		idea.ID = uuid.New()
	}
	cp := *idea
	m.ideas[idea.ID] = &cp
	m.ideaOrder = append(m.ideaOrder, idea.ID)
	return idea
}

func (m *memStore) addBucket(stage types.Stage, name string) *types.Bucket {
	b := &types.Bucket{ID: uuid.New(), Stage: stage, Name: name, Prompt: name + " direction", Active: true}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buckets[b.ID] = b
	return b
}

func (m *memStore) GetIdea(ctx context.Context, id uuid.UUID) (*types.Idea, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idea, ok := m.ideas[id]
	if !ok {
		return nil, fmt.Errorf("idea %s: %w", id, db.ErrNotFound)
	}
	cp := *idea
	return &cp, nil
}

func (m *memStore) CreateIdea(ctx context.Context, input db.NewIdea) (*types.Idea, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.failCreateOn > 0 && m.createCalls == m.failCreateOn {
		m.failCreateOn = 0
		return nil, m.createErr
	}
	idea := &types.Idea{
		ID:                uuid.New(),
		Stage:             types.StagePhrase,
		Status:            types.StatusPending,
		CategoryID:        input.CategoryID,
		PhraseBucketID:    &input.PhraseBucketID,
		Phrase:            input.Phrase,
		PhraseExplanation: input.PhraseExplanation,
		SourceEventID:     input.SourceEventID,
		CreatedAt:         time.Now(),
	}
	m.ideas[idea.ID] = idea
	m.ideaOrder = append(m.ideaOrder, idea.ID)
	cp := *idea
	return &cp, nil
}

func (m *memStore) ListIdeasForEvent(ctx context.Context, eventID string) ([]*types.Idea, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*types.Idea
	for _, id := range m.ideaOrder {
		idea := m.ideas[id]
		if idea.SourceEventID == eventID {
			cp := *idea
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) UpdateIdea(ctx context.Context, id uuid.UUID, patch db.IdeaPatch, expected *types.Status) (*types.Idea, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLocked(id, patch, expected)
}

func (m *memStore) updateLocked(id uuid.UUID, patch db.IdeaPatch, expected *types.Status) (*types.Idea, error) {
	idea, ok := m.ideas[id]
	if !ok {
		return nil, fmt.Errorf("idea %s: %w", id, db.ErrNotFound)
	}
	if idea.Status == types.StatusRejected {
		return nil, fmt.Errorf("idea %s is rejected: %w", id, db.ErrInvalidTransition)
	}
	if expected != nil && idea.Status != *expected {
		return nil, fmt.Errorf("idea %s has status %q: %w", id, idea.Status, db.ErrConflict)
	}

	if patch.Stage != nil {
		idea.Stage = *patch.Stage
	}
	if patch.Status != nil {
		idea.Status = *patch.Status
	}
	if patch.CategoryID != nil {
		idea.CategoryID = patch.CategoryID
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
	if patch.Phrase != nil {
		idea.Phrase = *patch.Phrase
	}
	if patch.PhraseExplanation != nil {
		idea.PhraseExplanation = *patch.PhraseExplanation
	}
	if patch.MockupImageURL != nil {
		idea.MockupImageURL = *patch.MockupImageURL
	}
	if patch.DesignConcepts != nil {
		idea.DesignConcepts = patch.DesignConcepts
	}
	if patch.ApparelType != nil {
		idea.ApparelType = *patch.ApparelType
	}
	if patch.ProductOptions != nil {
		idea.ProductOptions = patch.ProductOptions
	}
	if patch.ProductTitle != nil {
		idea.ProductTitle = *patch.ProductTitle
	}
	if patch.ProductDescription != nil {
		idea.ProductDescription = *patch.ProductDescription
	}
	if patch.ProductTags != nil {
		idea.ProductTags = patch.ProductTags
	}
	if patch.ListingOptions != nil {
		idea.ListingOptions = patch.ListingOptions
	}
	if patch.PrintfulProductID != nil {
		idea.PrintfulProductID = *patch.PrintfulProductID
	}
	if patch.ShopifyProductID != nil {
		idea.ShopifyProductID = *patch.ShopifyProductID
	}
	if patch.ShopifyProductURL != nil {
		idea.ShopifyProductURL = *patch.ShopifyProductURL
	}
	if patch.PublishedAt != nil {
		idea.PublishedAt = patch.PublishedAt
	}
	if patch.BumpTransitions {
		idea.StageTransitions++
	}
	idea.UpdatedAt = time.Now()

	cp := *idea
	return &cp, nil
}

func (m *memStore) UpdateIdeaWithRevision(ctx context.Context, id uuid.UUID, patch db.IdeaPatch, expected *types.Status, entry db.NewRevision) (*types.Idea, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idea, err := m.updateLocked(id, patch, expected)
	if err != nil {
		return nil, err
	}
	m.revisions = append(m.revisions, revisionRec{
		IdeaID:        id,
		Entry:         entry,
		TransitionSeq: idea.StageTransitions,
		At:            time.Now(),
	})
	return idea, nil
}

func (m *memStore) appendRevision(ideaID uuid.UUID, entry db.NewRevision) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revisions = append(m.revisions, revisionRec{
		IdeaID:        ideaID,
		Entry:         entry,
		TransitionSeq: m.ideas[ideaID].StageTransitions,
		At:            time.Now(),
	})
}

func (m *memStore) ListPhrasesForCategory(ctx context.Context, categoryID uuid.UUID) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phrases[categoryID], nil
}

func (m *memStore) ForwardGuidanceFor(ctx context.Context, ideaID uuid.UUID, fromStage types.Stage) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idea, ok := m.ideas[ideaID]
	if !ok {
		return "", false, fmt.Errorf("idea %s: %w", ideaID, db.ErrNotFound)
	}
	for i := len(m.revisions) - 1; i >= 0; i-- {
		r := m.revisions[i]
		if r.IdeaID == ideaID && r.Entry.Stage == fromStage && r.Entry.Type == types.RevisionForward &&
			r.TransitionSeq == idea.StageTransitions {
			return r.Entry.Notes, true, nil
		}
	}
	return "", false, nil
}

func (m *memStore) LatestRevisionNotes(ctx context.Context, ideaID uuid.UUID, stage types.Stage) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.revisions) - 1; i >= 0; i-- {
		r := m.revisions[i]
		if r.IdeaID == ideaID && r.Entry.Stage == stage && r.Entry.Type == types.RevisionRedo {
			return r.Entry.Notes, true, nil
		}
	}
	return "", false, nil
}

func (m *memStore) revisionsFor(ideaID uuid.UUID) []revisionRec {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []revisionRec
	for _, r := range m.revisions {
		if r.IdeaID == ideaID {
			out = append(out, r)
		}
	}
	return out
}

func (m *memStore) GetBucket(ctx context.Context, id uuid.UUID) (*types.Bucket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buckets[id]
	if !ok {
		return nil, fmt.Errorf("bucket %s: %w", id, db.ErrNotFound)
	}
	cp := *b
	return &cp, nil
}

func (m *memStore) ClaimLeastRecentlyAssigned(ctx context.Context, stage types.Stage) (*types.Bucket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var oldest *types.Bucket
	for _, b := range m.buckets {
		if b.Stage != stage || !b.Active {
			continue
		}
		if oldest == nil {
			oldest = b
			continue
		}
		switch {
		case b.LastAssignedAt == nil && oldest.LastAssignedAt != nil:
			oldest = b
		case b.LastAssignedAt != nil && oldest.LastAssignedAt != nil && b.LastAssignedAt.Before(*oldest.LastAssignedAt):
			oldest = b
		}
	}
	if oldest == nil {
		return nil, fmt.Errorf("no active buckets for stage %s: %w", stage, db.ErrNotFound)
	}
	now := time.Now()
	oldest.LastAssignedAt = &now
	cp := *oldest
	return &cp, nil
}

func (m *memStore) TouchBucketAssigned(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buckets[id]
	if !ok {
		return fmt.Errorf("bucket %s: %w", id, db.ErrNotFound)
	}
	now := time.Now()
	b.LastAssignedAt = &now
	return nil
}

func (m *memStore) GetCategory(ctx context.Context, id uuid.UUID) (*types.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.categories {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("category %s: %w", id, db.ErrNotFound)
}

func (m *memStore) HighestNeedCategory(ctx context.Context) (*types.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *types.Category
	for _, c := range m.categories {
		if best == nil || c.Gap() > best.Gap() {
			best = c
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no categories: %w", db.ErrNotFound)
	}
	cp := *best
	return &cp, nil
}

func (m *memStore) ListCategories(ctx context.Context) ([]*types.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*types.Category, 0, len(m.categories))
	for _, c := range m.categories {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memStore) RecalculatePublishedCounts(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recalcs++
	for _, c := range m.categories {
		count := 0
		for _, idea := range m.ideas {
			if idea.CategoryID != nil && *idea.CategoryID == c.ID &&
				idea.Stage == types.StagePublish && idea.Status == types.StatusApproved {
				count++
			}
		}
		c.PublishedCount = count
	}
	return nil
}

func (m *memStore) GetBrandConfig(ctx context.Context) (*types.BrandConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.brand == nil {
		return nil, fmt.Errorf("brand config: %w", db.ErrNotFound)
	}
	cp := *m.brand
	return &cp, nil
}

func (m *memStore) BeginJobRun(ctx context.Context, job, eventID string, ideaID *uuid.UUID) (*db.JobRun, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.runs[eventID]; dup {
		return nil, false, nil
	}
	run := &db.JobRun{ID: uuid.New(), Job: job, EventID: eventID, IdeaID: ideaID, Status: db.JobRunStatusRunning}
	m.runs[eventID] = run
	return run, true, nil
}

func (m *memStore) CompleteJobRun(ctx context.Context, runID uuid.UUID, status string, attempts int, errMsg *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	outcome := runOutcome{Status: status, Attempts: attempts}
	if errMsg != nil {
		outcome.ErrMsg = *errMsg
	}
	m.runOutcomes[runID] = outcome
	return nil
}

// fakeText returns canned responses per call.
type fakeText struct {
	responses []string
	err       error
	calls     int
	prompts   []string
}

func (f *fakeText) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	idx := f.calls - 1
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return f.responses[idx], nil
}

// fakeImages produces deterministic concepts.
type fakeImages struct {
	concepts []types.DesignConcept
	err      error
	prompts  []string
}

func (f *fakeImages) GenerateConcepts(ctx context.Context, prompt string) ([]types.DesignConcept, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return nil, f.err
	}
	return f.concepts, nil
}

// fakeFulfillment scripts the print-provider steps.
type fakeFulfillment struct {
	uploadErr  error
	fileErr    error
	createErr  error
	syncErr    error
	syncResult string

	uploads []string
	created []printful.SyncProductParams
	waited  []int64
}

func (f *fakeFulfillment) UploadFile(ctx context.Context, fileURL string) (*printful.FileUpload, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.uploads = append(f.uploads, fileURL)
	return &printful.FileUpload{FileID: 7001, Status: "waiting"}, nil
}

func (f *fakeFulfillment) WaitForFile(ctx context.Context, fileID int64) error {
	return f.fileErr
}

func (f *fakeFulfillment) CreateSyncProduct(ctx context.Context, params printful.SyncProductParams) (*printful.SyncProduct, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, params)
	return &printful.SyncProduct{ID: 9001}, nil
}

func (f *fakeFulfillment) WaitForSync(ctx context.Context, productID int64) (string, error) {
	f.waited = append(f.waited, productID)
	if f.syncErr != nil {
		return "", f.syncErr
	}
	if f.syncResult == "" {
		return "sp-1234", nil
	}
	return f.syncResult, nil
}

// fakeStorefront records listing writes.
type fakeStorefront struct {
	updateErr  error
	collectErr error

	updated   map[string]shopify.ProductMetadata
	collected []string
}

func newFakeStorefront() *fakeStorefront {
	return &fakeStorefront{updated: make(map[string]shopify.ProductMetadata)}
}

func (f *fakeStorefront) UpdateProduct(ctx context.Context, productID string, meta shopify.ProductMetadata) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated[productID] = meta
	return nil
}

func (f *fakeStorefront) AddToCollection(ctx context.Context, productID, collectionID string) error {
	if f.collectErr != nil {
		return f.collectErr
	}
	f.collected = append(f.collected, productID)
	return nil
}

func (f *fakeStorefront) GetProductURL(ctx context.Context, productID string) (string, error) {
	return "https://store.example.com/products/" + productID, nil
}

// fakeEmitter records emitted events.
type fakeEmitter struct {
	mu     sync.Mutex
	events []events.Event
}

func (f *fakeEmitter) Emit(ctx context.Context, topic string, payload events.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, events.Event{ID: events.NewID(), Topic: topic, Payload: payload})
	return nil
}

func (f *fakeEmitter) byTopic(topic string) []events.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []events.Event
	for _, ev := range f.events {
		if ev.Topic == topic {
			out = append(out, ev)
		}
	}
	return out
}
