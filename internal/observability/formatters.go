// Package observability provides formatted output utilities for the inspect CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/camila/ideaforge/internal/db"
	"github.com/camila/ideaforge/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for the inspect command
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintIdea outputs a human-readable summary of an idea and the artifacts
// accumulated for its current stage.
func (p *Printer) PrintIdea(idea *types.Idea) {
	if idea == nil {
		return
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Stage:   %s / %s\n", idea.Stage, idea.Status))
	sb.WriteString(fmt.Sprintf("Hops:    %d stage transitions\n", idea.StageTransitions))
	if idea.Phrase != "" {
		sb.WriteString(fmt.Sprintf("Phrase:  %q\n", idea.Phrase))
	}
	if idea.PhraseExplanation != "" {
		sb.WriteString(fmt.Sprintf("Angle:   %s\n", idea.PhraseExplanation))
	}

	if idea.MockupImageURL != "" {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("Mockup:  %s\n", idea.MockupImageURL))
		sb.WriteString(fmt.Sprintf("Concepts: %d generated\n", len(idea.DesignConcepts)))
	}
	if idea.ApparelType != "" {
		sb.WriteString(fmt.Sprintf("Apparel: %s (%d options)\n", idea.ApparelType, len(idea.ProductOptions)))
	}
	if idea.ProductTitle != "" {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("Title:   %s\n", idea.ProductTitle))
		if len(idea.ProductTags) > 0 {
			sb.WriteString(fmt.Sprintf("Tags:    %s\n", strings.Join(idea.ProductTags, ", ")))
		}
	}
	if idea.ShopifyProductURL != "" {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("Live:    %s\n", idea.ShopifyProductURL))
	}
	if idea.PublishedAt != nil {
		sb.WriteString(fmt.Sprintf("Published: %s\n", idea.PublishedAt.Format(time.RFC3339)))
	}

	p.printBox(fmt.Sprintf("IDEA %s", shortID(idea.ID.String())), strings.TrimSuffix(sb.String(), "\n"))
}

// PrintLedger outputs an idea's revision history, newest first, marking any
// forward entry still waiting to be consumed by the next stage advance.
func (p *Printer) PrintLedger(entries []types.RevisionEntry, currentTransitions int) {
	if len(entries) == 0 {
		p.printBox("REVISION LEDGER", "No entries")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d entries:\n\n", len(entries)))

	count := min(len(entries), maxItemsToShow)
	for i := 0; i < count; i++ {
		e := entries[i]
		marker := ""
		if e.Type == types.RevisionForward && e.TransitionSeq == currentTransitions {
			marker = " (live)"
		}
		sb.WriteString(fmt.Sprintf("• %s @ %s%s\n", e.Type, e.Stage, marker))
		notes := e.Notes
		if len(notes) > 48 {
			notes = notes[:45] + "..."
		}
		sb.WriteString(fmt.Sprintf("  %s\n", notes))
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(entries) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more entries", len(entries)-maxItemsToShow))
	}

	p.printBox("REVISION LEDGER", sb.String())
}

// PrintBuckets outputs the buckets for a stage in assignment-rotation order.
func (p *Printer) PrintBuckets(stage types.Stage, buckets []*types.Bucket) {
	if len(buckets) == 0 {
		p.printBox(fmt.Sprintf("BUCKETS: %s", strings.ToUpper(string(stage))), "No buckets configured")
		return
	}

	var sb strings.Builder
	for i, b := range buckets {
		state := "inactive"
		if b.Active {
			state = "active"
		}
		assigned := "never assigned"
		if b.LastAssignedAt != nil {
			assigned = "assigned " + b.LastAssignedAt.Format("2006-01-02 15:04")
		}
		sb.WriteString(fmt.Sprintf("#%d  %s (%s)\n", b.SortOrder, b.Name, state))
		sb.WriteString(fmt.Sprintf("    %s\n", assigned))
		if i < len(buckets)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox(fmt.Sprintf("BUCKETS: %s", strings.ToUpper(string(stage))), sb.String())
}

// PrintJobRun outputs one job execution record.
func (p *Printer) PrintJobRun(run *db.JobRun) {
	if run == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Job:      %s\n", run.Job))
	sb.WriteString(fmt.Sprintf("Event:    %s\n", run.EventID))
	sb.WriteString(fmt.Sprintf("Status:   %s (%d attempts)\n", run.Status, run.Attempts))
	if run.IdeaID != nil {
		sb.WriteString(fmt.Sprintf("Idea:     %s\n", shortID(run.IdeaID.String())))
	}
	sb.WriteString(fmt.Sprintf("Started:  %s\n", run.StartedAt.Format(time.RFC3339)))
	if run.DurationMs != nil {
		sb.WriteString(fmt.Sprintf("Duration: %dms\n", *run.DurationMs))
	}
	if run.ErrorMessage != nil {
		msg := *run.ErrorMessage
		if len(msg) > 48 {
			msg = msg[:45] + "..."
		}
		sb.WriteString(fmt.Sprintf("Error:    %s\n", msg))
	}

	p.printBox(fmt.Sprintf("JOB RUN %s", shortID(run.ID.String())), strings.TrimSuffix(sb.String(), "\n"))
}

// shortID keeps the first UUID group, enough to eyeball in a terminal.
func shortID(id string) string {
	if i := strings.Index(id, "-"); i > 0 {
		return id[:i]
	}
	return id
}
