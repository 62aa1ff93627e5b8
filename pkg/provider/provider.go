package provider

import (
	"context"
	"fmt"
	"time"
)

// Totals are cumulative counts for one OpenAlex concept.
type Totals struct {
	CitedByCount int64
	WorksCount   int64
}

// CitationSource exposes citation and works counts by external key.
type CitationSource interface {
	FetchTotals(ctx context.Context, key string) (Totals, error)
	FetchRecentWorksCount(ctx context.Context, key string, from, to time.Time) (int64, error)
}

// AttentionSource exposes page-view counts. ResolveTitle maps a topic
// name to an article title; a miss is reported via found, not an error.
type AttentionSource interface {
	ResolveTitle(ctx context.Context, name string) (title string, found bool, err error)
	FetchViews(ctx context.Context, title string, from, to time.Time) (int64, error)
}

// Error is a failed provider lookup.
type Error struct {
	Source  string // "openalex" or "wikipedia"
	Op      string // "totals", "recent_works", "resolve_title", "views"
	Status  int    // HTTP status, 0 for transport errors
	Message string
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: status %d: %s", e.Source, e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: %s", e.Source, e.Op, e.Message)
}
