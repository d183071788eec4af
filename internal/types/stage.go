// Package types provides type definitions for the idea pipeline: stages,
// statuses, ideas, buckets, revision entries and the typed artifacts produced
// by each stage.
package types

// Stage is one of the five ordered pipeline phases an idea moves through.
type Stage string

const (
	StagePhrase  Stage = "phrase"
	StageDesign  Stage = "design"
	StageProduct Stage = "product"
	StageListing Stage = "listing"
	StagePublish Stage = "publish"
)

// stageOrder defines the fixed progression of the pipeline.
var stageOrder = []Stage{StagePhrase, StageDesign, StageProduct, StageListing, StagePublish}

// AllStages returns the pipeline stages in order.
func AllStages() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	for _, st := range stageOrder {
		if s == st {
			return true
		}
	}
	return false
}

// Next returns the stage that follows s, or empty for the terminal publish
// stage and for unknown stages.
func (s Stage) Next() Stage {
	for i, st := range stageOrder {
		if s == st && i+1 < len(stageOrder) {
			return stageOrder[i+1]
		}
	}
	return ""
}

// Prev returns the stage that precedes s, or empty for the first phrase
// stage and for unknown stages.
func (s Stage) Prev() Stage {
	for i, st := range stageOrder {
		if s == st && i > 0 {
			return stageOrder[i-1]
		}
	}
	return ""
}

// Status is the review state of an idea within its current stage.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
	StatusRefining   Status = "refining"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusApproved, StatusRejected, StatusRefining:
		return true
	}
	return false
}

// Terminal reports whether a (stage, status) pair is absorbing: rejected
// ideas and published+approved ideas never change again.
func Terminal(stage Stage, status Status) bool {
	if status == StatusRejected {
		return true
	}
	return stage == StagePublish && status == StatusApproved
}
