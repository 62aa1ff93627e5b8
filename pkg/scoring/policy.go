package scoring

import (
	"time"

	"topicrank/internal/store"
)

// Policy decides when cached metric values may be reused and when a
// topic is in a post-failure cooldown.
type Policy struct {
	// TTLs per source. Cumulative totals change slowly; the trailing
	// windows move daily.
	TotalsTTL time.Duration
	RecentTTL time.Duration
	ViewsTTL  time.Duration

	// Backoff is the cooldown applied to a whole topic after any
	// source fails. One clock per topic, not per source.
	Backoff time.Duration
}

// DefaultPolicy returns the standard freshness windows.
func DefaultPolicy() Policy {
	return Policy{
		TotalsTTL: 7 * 24 * time.Hour,
		RecentTTL: 72 * time.Hour,
		ViewsTTL:  24 * time.Hour,
		Backoff:   24 * time.Hour,
	}
}

// Fresh reports whether a cached value fetched at fetchedAt is still
// inside its TTL. A nil timestamp means never fetched.
func (p Policy) Fresh(fetchedAt *time.Time, ttl time.Duration, now time.Time) bool {
	if fetchedAt == nil {
		return false
	}
	return now.Sub(*fetchedAt) < ttl
}

// InBackoff reports whether all external fetching for the topic must
// be skipped.
func (p Policy) InBackoff(m *store.Metrics, now time.Time) bool {
	return m.BackoffUntil != nil && now.Before(*m.BackoffUntil)
}

// RecordFailure stores the error text and extends the backoff window.
// The window never regresses: a later deadline is kept.
func (p Policy) RecordFailure(m *store.Metrics, now time.Time, err error) {
	msg := err.Error()
	m.LastError = &msg

	until := now.Add(p.Backoff)
	if m.BackoffUntil == nil || until.After(*m.BackoffUntil) {
		m.BackoffUntil = &until
	}
}

// RecordSuccess clears the error text. An already-running backoff
// window from an earlier failure is left in effect.
func (p Policy) RecordSuccess(m *store.Metrics) {
	m.LastError = nil
}
