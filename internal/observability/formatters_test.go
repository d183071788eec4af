package observability

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/camila/ideaforge/internal/db"
	"github.com/camila/ideaforge/internal/types"
)

func TestPrintIdea(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	published := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	idea := &types.Idea{
		ID:                uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001"),
		Stage:             types.StagePublish,
		Status:            types.StatusApproved,
		Phrase:            "Ctrl Alt Defeat",
		PhraseExplanation: "gamer humor about losing gracefully",
		MockupImageURL:    "https://img.example.com/mockup.png",
		DesignConcepts:    []types.DesignConcept{{ImageURL: "a.png"}, {ImageURL: "b.png"}},
		ApparelType:       "unisex tee",
		ProductTitle:      "Ctrl Alt Defeat Tee",
		ProductTags:       []string{"gaming", "funny"},
		ShopifyProductURL: "https://forgewear.myshopify.com/products/ctrl-alt-defeat-tee",
		PublishedAt:       &published,
		StageTransitions:  5,
	}

	p.PrintIdea(idea)
	output := buf.String()

	assert.Contains(t, output, "IDEA aaaaaaaa")
	assert.Contains(t, output, "publish / approved")
	assert.Contains(t, output, "Ctrl Alt Defeat")
	assert.Contains(t, output, "unisex tee")
	assert.Contains(t, output, "5 stage transitions")
}

func TestPrintIdea_Nil(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintIdea(nil)

	assert.Empty(t, buf.String())
}

func TestPrintLedger(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	entries := []types.RevisionEntry{
		{
			Stage:         types.StagePhrase,
			Type:          types.RevisionForward,
			Notes:         "lean into retro arcade vibes",
			TransitionSeq: 1,
		},
		{
			Stage:         types.StageDesign,
			Type:          types.RevisionRedo,
			Notes:         "too busy, fewer elements",
			TransitionSeq: 1,
		},
	}

	p.PrintLedger(entries, 1)
	output := buf.String()

	assert.Contains(t, output, "REVISION LEDGER")
	assert.Contains(t, output, "2 entries")
	assert.Contains(t, output, "forward @ phrase (live)")
	assert.Contains(t, output, "retro arcade")
	assert.NotContains(t, output, "revision @ design (live)")
}

func TestPrintLedger_ConsumedGuidanceNotLive(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	entries := []types.RevisionEntry{
		{Stage: types.StagePhrase, Type: types.RevisionForward, Notes: "n", TransitionSeq: 1},
	}

	p.PrintLedger(entries, 2)

	assert.NotContains(t, buf.String(), "(live)")
}

func TestPrintLedger_Empty(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintLedger(nil, 0)

	assert.Contains(t, buf.String(), "No entries")
}

func TestPrintBuckets(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	assigned := time.Date(2026, 2, 1, 12, 30, 0, 0, time.UTC)
	list := []*types.Bucket{
		{Name: "bold-typography", SortOrder: 1, Active: true, LastAssignedAt: &assigned},
		{Name: "retro-wave", SortOrder: 2, Active: false},
	}

	p.PrintBuckets(types.StageDesign, list)
	output := buf.String()

	assert.Contains(t, output, "BUCKETS: DESIGN")
	assert.Contains(t, output, "bold-typography (active)")
	assert.Contains(t, output, "assigned 2026-02-01 12:30")
	assert.Contains(t, output, "retro-wave (inactive)")
	assert.Contains(t, output, "never assigned")
}

func TestPrintJobRun(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	ideaID := uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000002")
	errMsg := "image service returned 502"
	duration := 4210
	run := &db.JobRun{
		ID:           uuid.MustParse("cccccccc-0000-0000-0000-000000000003"),
		Job:          "create-design",
		EventID:      "01JBX0000000000000000000EV",
		IdeaID:       &ideaID,
		Status:       "failed",
		Attempts:     3,
		ErrorMessage: &errMsg,
		StartedAt:    time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
		DurationMs:   &duration,
	}

	p.PrintJobRun(run)
	output := buf.String()

	assert.Contains(t, output, "JOB RUN cccccccc")
	assert.Contains(t, output, "create-design")
	assert.Contains(t, output, "failed (3 attempts)")
	assert.Contains(t, output, "bbbbbbbb")
	assert.Contains(t, output, "4210ms")
	assert.Contains(t, output, "image service returned 502")
}
