package pipeline

import (
	"context"
	"log"

	"github.com/camila/ideaforge/internal/events"
)

// AnalyzeCategoriesJob refreshes category published counts from the ideas
// table and logs the remaining need gaps, largest first.
type AnalyzeCategoriesJob struct {
	deps Deps
}

func NewAnalyzeCategoriesJob(deps Deps) *AnalyzeCategoriesJob {
	return &AnalyzeCategoriesJob{deps: deps}
}

func (j *AnalyzeCategoriesJob) Name() string { return "analyze-categories" }
func (j *AnalyzeCategoriesJob) Retries() int { return 1 }
func (j *AnalyzeCategoriesJob) Manual() bool { return true }

func (j *AnalyzeCategoriesJob) Execute(ctx context.Context, ev events.Event) error {
	d := j.deps
	if err := d.Store.RecalculatePublishedCounts(ctx); err != nil {
		return err
	}
	categories, err := d.Store.ListCategories(ctx)
	if err != nil {
		return err
	}
	for _, c := range categories {
		if gap := c.Gap(); gap > 0 {
			log.Printf("pipeline: category %q needs %d more published idea(s) (%d/%d)",
				c.Name, gap, c.PublishedCount, c.TargetCount)
		}
	}
	return nil
}
