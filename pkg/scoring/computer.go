package scoring

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	"topicrank/internal/store"
	"topicrank/pkg/provider"
)

// Weights are the fixed coefficients of the two composite scores.
type Weights struct {
	ImpactCited float64 `yaml:"impact_cited"`
	ImpactWorks float64 `yaml:"impact_works"`
	ImpactViews float64 `yaml:"impact_views"`

	ActivityRecent   float64 `yaml:"activity_recent"`
	ActivityEstimate float64 `yaml:"activity_estimate"`
	ActivityViews    float64 `yaml:"activity_views"`
}

// DefaultWeights returns the standard composite coefficients.
func DefaultWeights() Weights {
	return Weights{
		ImpactCited:      0.55,
		ImpactWorks:      0.25,
		ImpactViews:      0.20,
		ActivityRecent:   0.45,
		ActivityEstimate: 0.35,
		ActivityViews:    0.20,
	}
}

// Raw holds the composite scores for one topic before normalization.
type Raw struct {
	Impact   float64
	Activity float64
}

// Computer produces raw composite scores for one topic at a time. It
// mutates the topic's metrics snapshot in place and never returns an
// error: any provider failure is absorbed into the snapshot's
// lastError/backoffUntil state and the prior cached value (or zero)
// stands in for that signal.
type Computer struct {
	citations provider.CitationSource
	attention provider.AttentionSource
	policy    Policy
	weights   Weights

	now func() time.Time
}

// NewComputer creates a computer over the two providers.
func NewComputer(citations provider.CitationSource, attention provider.AttentionSource, policy Policy, weights Weights) *Computer {
	return &Computer{
		citations: citations,
		attention: attention,
		policy:    policy,
		weights:   weights,
		now:       time.Now,
	}
}

// Compute refreshes the topic's metrics through the run cache and
// returns its raw composites.
func (c *Computer) Compute(ctx context.Context, t *store.Topic, cache *RunCache) Raw {
	m := t.EnsureMetrics()
	now := c.now().UTC()
	from, to := yearWindow(now)

	c.refreshCitations(ctx, t, m, cache, now, from, to)
	c.refreshAttention(ctx, t, m, cache, now, from, to)

	est := estimateCitations12M(m.OpenAlex.CitedByCount, m.OpenAlex.WorksCount, m.OpenAlex.WorksLast12M)

	raw := Raw{
		Impact: c.weights.ImpactCited*log10p(float64(m.OpenAlex.CitedByCount)) +
			c.weights.ImpactWorks*log10p(float64(m.OpenAlex.WorksCount)) +
			c.weights.ImpactViews*log10p(float64(m.Wikipedia.Views12M)),
		Activity: c.weights.ActivityRecent*log10p(float64(m.OpenAlex.WorksLast12M)) +
			c.weights.ActivityEstimate*log10p(est) +
			c.weights.ActivityViews*log10p(float64(m.Wikipedia.Views12M)),
	}

	m.ScoredAt = &now
	return raw
}

// refreshCitations updates the cumulative totals and the trailing
// twelve-month works count. Topics without an external key keep their
// cached values untouched.
func (c *Computer) refreshCitations(ctx context.Context, t *store.Topic, m *store.Metrics, cache *RunCache, now, from, to time.Time) {
	if t.OpenAlexID == nil || *t.OpenAlexID == "" {
		return
	}
	key := *t.OpenAlexID

	if tot, ok := cache.Totals(key); ok {
		m.OpenAlex.CitedByCount = tot.CitedByCount
		m.OpenAlex.WorksCount = tot.WorksCount
		m.OpenAlex.TotalsFetchedAt = &now
	} else if !c.policy.InBackoff(m, now) && !c.policy.Fresh(m.OpenAlex.TotalsFetchedAt, c.policy.TotalsTTL, now) {
		tot, err := c.citations.FetchTotals(ctx, key)
		if err != nil {
			c.fail(t, m, now, err)
		} else {
			cache.PutTotals(key, tot)
			m.OpenAlex.CitedByCount = tot.CitedByCount
			m.OpenAlex.WorksCount = tot.WorksCount
			m.OpenAlex.TotalsFetchedAt = &now
			c.policy.RecordSuccess(m)
		}
	}

	if n, ok := cache.RecentWorks(key, from, to); ok {
		m.OpenAlex.WorksLast12M = n
		m.OpenAlex.RecentFetchedAt = &now
	} else if !c.policy.InBackoff(m, now) && !c.policy.Fresh(m.OpenAlex.RecentFetchedAt, c.policy.RecentTTL, now) {
		n, err := c.citations.FetchRecentWorksCount(ctx, key, from, to)
		if err != nil {
			c.fail(t, m, now, err)
		} else {
			cache.PutRecentWorks(key, from, to, n)
			m.OpenAlex.WorksLast12M = n
			m.OpenAlex.RecentFetchedAt = &now
			c.policy.RecordSuccess(m)
		}
	}
}

// refreshAttention resolves the article title once per topic lifetime
// and updates the trailing twelve-month page-view total. Resolution and
// the views fetch are separate stages so their failures stay
// distinguishable.
func (c *Computer) refreshAttention(ctx context.Context, t *store.Topic, m *store.Metrics, cache *RunCache, now, from, to time.Time) {
	if m.Wikipedia.Title == nil {
		title, found, ok := cache.Title(t.Name)
		if !ok {
			if c.policy.InBackoff(m, now) || c.policy.Fresh(m.Wikipedia.FetchedAt, c.policy.ViewsTTL, now) {
				return
			}
			var err error
			title, found, err = c.attention.ResolveTitle(ctx, t.Name)
			if err != nil {
				c.fail(t, m, now, err)
				return
			}
			cache.PutTitle(t.Name, title, found)
		}
		if !found {
			// No matching article. Record the attempt so the empty
			// lookup is not repeated every run.
			m.Wikipedia.Views12M = 0
			m.Wikipedia.FetchedAt = &now
			return
		}
		m.Wikipedia.Title = &title
	}
	title := *m.Wikipedia.Title

	if v, ok := cache.Views(title, from, to); ok {
		m.Wikipedia.Views12M = v
		m.Wikipedia.FetchedAt = &now
	} else if !c.policy.InBackoff(m, now) && !c.policy.Fresh(m.Wikipedia.FetchedAt, c.policy.ViewsTTL, now) {
		v, err := c.attention.FetchViews(ctx, title, from, to)
		if err != nil {
			c.fail(t, m, now, err)
		} else {
			cache.PutViews(title, from, to, v)
			m.Wikipedia.Views12M = v
			m.Wikipedia.FetchedAt = &now
			c.policy.RecordSuccess(m)
		}
	}
}

func (c *Computer) fail(t *store.Topic, m *store.Metrics, now time.Time, err error) {
	fmt.Fprintf(os.Stderr, "  %s: fetch failed, backing off: %v\n", t.Name, err)
	c.policy.RecordFailure(m, now, err)
}

// yearWindow returns the trailing-twelve-months window ending now.
func yearWindow(now time.Time) (from, to time.Time) {
	return now.AddDate(-1, 0, 0), now
}

// log10p is log10(x+1): zero stays zero and multi-order-of-magnitude
// counts are compressed onto comparable scales.
func log10p(x float64) float64 {
	if x < 0 {
		x = 0
	}
	return math.Log10(x + 1)
}

// estimateCitations12M extrapolates average citations per work onto
// the last twelve months' output volume. It is an approximation, not a
// measured quantity, and is zero whenever any factor is missing.
func estimateCitations12M(citedBy, works, worksLast12M int64) float64 {
	if citedBy <= 0 || works <= 0 || worksLast12M <= 0 {
		return 0
	}
	return float64(citedBy) / float64(works) * float64(worksLast12M)
}
