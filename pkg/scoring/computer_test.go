package scoring

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topicrank/internal/store"
	"topicrank/pkg/provider"
)

type fakeCitations struct {
	totals    provider.Totals
	totalsErr error
	recent    int64
	recentErr error

	totalsCalls int
	recentCalls int
}

func (f *fakeCitations) FetchTotals(ctx context.Context, key string) (provider.Totals, error) {
	f.totalsCalls++
	if f.totalsErr != nil {
		return provider.Totals{}, f.totalsErr
	}
	return f.totals, nil
}

func (f *fakeCitations) FetchRecentWorksCount(ctx context.Context, key string, from, to time.Time) (int64, error) {
	f.recentCalls++
	if f.recentErr != nil {
		return 0, f.recentErr
	}
	return f.recent, nil
}

type fakeAttention struct {
	title      string
	found      bool
	resolveErr error
	views      int64
	viewsErr   error

	resolveCalls int
	viewsCalls   int
}

func (f *fakeAttention) ResolveTitle(ctx context.Context, name string) (string, bool, error) {
	f.resolveCalls++
	if f.resolveErr != nil {
		return "", false, f.resolveErr
	}
	return f.title, f.found, nil
}

func (f *fakeAttention) FetchViews(ctx context.Context, title string, from, to time.Time) (int64, error) {
	f.viewsCalls++
	if f.viewsErr != nil {
		return 0, f.viewsErr
	}
	return f.views, nil
}

var testNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func newTestComputer(c *fakeCitations, a *fakeAttention) *Computer {
	comp := NewComputer(c, a, DefaultPolicy(), DefaultWeights())
	comp.now = func() time.Time { return testNow }
	return comp
}

func topicWithKey(name, key string) *store.Topic {
	return &store.Topic{ID: "t1", Name: name, OpenAlexID: &key}
}

func TestCompute_FullSignals(t *testing.T) {
	citations := &fakeCitations{totals: provider.Totals{CitedByCount: 1000, WorksCount: 100}, recent: 20}
	attention := &fakeAttention{title: "Machine learning", found: true, views: 1500}
	comp := newTestComputer(citations, attention)

	topic := topicWithKey("Machine Learning", "C119857082")
	raw := comp.Compute(context.Background(), topic, NewRunCache())

	wantImpact := 0.55*math.Log10(1001) + 0.25*math.Log10(101) + 0.20*math.Log10(1501)
	// estimated citations over 12 months: 1000/100 * 20 = 200
	wantActivity := 0.45*math.Log10(21) + 0.35*math.Log10(201) + 0.20*math.Log10(1501)

	assert.InDelta(t, wantImpact, raw.Impact, 1e-9)
	assert.InDelta(t, wantActivity, raw.Activity, 1e-9)

	m := topic.Metrics
	require.NotNil(t, m)
	assert.Equal(t, int64(1000), m.OpenAlex.CitedByCount)
	assert.Equal(t, int64(20), m.OpenAlex.WorksLast12M)
	assert.Equal(t, int64(1500), m.Wikipedia.Views12M)
	require.NotNil(t, m.Wikipedia.Title)
	assert.Equal(t, "Machine learning", *m.Wikipedia.Title)
	require.NotNil(t, m.ScoredAt)
	assert.Equal(t, testNow, *m.ScoredAt)
	assert.Nil(t, m.LastError)
}

func TestCompute_NoKeyNoTitleYieldsZero(t *testing.T) {
	citations := &fakeCitations{}
	attention := &fakeAttention{found: false}
	comp := newTestComputer(citations, attention)

	topic := &store.Topic{ID: "t1", Name: "Obscure Topic"}
	raw := comp.Compute(context.Background(), topic, NewRunCache())

	assert.Equal(t, 0.0, raw.Impact)
	assert.Equal(t, 0.0, raw.Activity)
	assert.Zero(t, citations.totalsCalls, "no external key, citation source untouched")
	assert.Zero(t, citations.recentCalls)

	// The empty title lookup is recorded so it is not repeated.
	m := topic.Metrics
	require.NotNil(t, m)
	assert.Nil(t, m.Wikipedia.Title)
	require.NotNil(t, m.Wikipedia.FetchedAt)
	assert.Equal(t, testNow, *m.Wikipedia.FetchedAt)
}

func TestCompute_FreshValuesIssueNoCalls(t *testing.T) {
	citations := &fakeCitations{totals: provider.Totals{CitedByCount: 1000, WorksCount: 100}, recent: 20}
	attention := &fakeAttention{title: "Machine learning", found: true, views: 1500}
	comp := newTestComputer(citations, attention)

	topic := topicWithKey("Machine Learning", "C119857082")
	first := comp.Compute(context.Background(), topic, NewRunCache())

	// Recompute with a fresh cache while everything is inside its TTL.
	second := comp.Compute(context.Background(), topic, NewRunCache())

	assert.Equal(t, first, second)
	assert.Equal(t, 1, citations.totalsCalls)
	assert.Equal(t, 1, citations.recentCalls)
	assert.Equal(t, 1, attention.resolveCalls)
	assert.Equal(t, 1, attention.viewsCalls)
}

func TestCompute_BackoffSuppressesAllSources(t *testing.T) {
	citations := &fakeCitations{totalsErr: errors.New("openalex down")}
	attention := &fakeAttention{title: "Machine learning", found: true, views: 1500}
	comp := newTestComputer(citations, attention)

	topic := topicWithKey("Machine Learning", "C119857082")
	comp.Compute(context.Background(), topic, NewRunCache())

	m := topic.Metrics
	require.NotNil(t, m.BackoffUntil)
	require.NotNil(t, m.LastError)
	assert.Equal(t, 1, citations.totalsCalls)
	// The failure backs off the whole topic: sources that did not fail
	// are suppressed too.
	assert.Zero(t, citations.recentCalls)
	assert.Zero(t, attention.resolveCalls)

	// A second attempt before the cooldown elapses issues zero calls.
	comp.Compute(context.Background(), topic, NewRunCache())
	assert.Equal(t, 1, citations.totalsCalls)
	assert.Zero(t, citations.recentCalls)
	assert.Zero(t, attention.resolveCalls)
	assert.Zero(t, attention.viewsCalls)
}

func TestCompute_FailureKeepsCachedValues(t *testing.T) {
	citations := &fakeCitations{totalsErr: errors.New("rate limited")}
	attention := &fakeAttention{}
	comp := newTestComputer(citations, attention)

	// Stale cached totals from a prior run.
	staleAt := testNow.Add(-30 * 24 * time.Hour)
	title := "Machine learning"
	topic := topicWithKey("Machine Learning", "C119857082")
	topic.Metrics = &store.Metrics{
		OpenAlex: store.OpenAlexMetrics{
			CitedByCount:    800,
			WorksCount:      90,
			WorksLast12M:    15,
			TotalsFetchedAt: &staleAt,
			RecentFetchedAt: &staleAt,
		},
		Wikipedia: store.WikipediaMetrics{Title: &title, Views12M: 900, FetchedAt: &staleAt},
	}

	raw := comp.Compute(context.Background(), topic, NewRunCache())

	m := topic.Metrics
	assert.Equal(t, int64(800), m.OpenAlex.CitedByCount, "failed fetch leaves cached value")
	assert.Equal(t, staleAt, *m.OpenAlex.TotalsFetchedAt, "failed fetch leaves timestamp")
	assert.Equal(t, int64(900), m.Wikipedia.Views12M)
	require.NotNil(t, m.LastError)

	// Stale values still contribute to the composites.
	wantImpact := 0.55*math.Log10(801) + 0.25*math.Log10(91) + 0.20*math.Log10(901)
	assert.InDelta(t, wantImpact, raw.Impact, 1e-9)
}

func TestCompute_RunCacheDeduplicatesSharedKey(t *testing.T) {
	citations := &fakeCitations{totals: provider.Totals{CitedByCount: 1000, WorksCount: 100}, recent: 20}
	attention := &fakeAttention{title: "Machine learning", found: true, views: 1500}
	comp := newTestComputer(citations, attention)

	cache := NewRunCache()
	a := topicWithKey("Machine Learning", "C119857082")
	b := topicWithKey("Machine Learning", "C119857082")
	b.ID = "t2"

	rawA := comp.Compute(context.Background(), a, cache)
	rawB := comp.Compute(context.Background(), b, cache)

	assert.Equal(t, rawA, rawB)
	assert.Equal(t, 1, citations.totalsCalls, "shared key fetched once per run")
	assert.Equal(t, 1, citations.recentCalls)
	assert.Equal(t, 1, attention.resolveCalls, "shared name resolved once per run")
	assert.Equal(t, 1, attention.viewsCalls)
}

func TestCompute_TitleResolvedOncePerLifetime(t *testing.T) {
	citations := &fakeCitations{}
	attention := &fakeAttention{views: 1500}
	comp := newTestComputer(citations, attention)

	title := "Machine learning"
	topic := &store.Topic{ID: "t1", Name: "Machine Learning"}
	topic.Metrics = &store.Metrics{
		Wikipedia: store.WikipediaMetrics{Title: &title},
	}

	comp.Compute(context.Background(), topic, NewRunCache())

	assert.Zero(t, attention.resolveCalls, "stored title is not re-resolved")
	assert.Equal(t, 1, attention.viewsCalls)
	assert.Equal(t, int64(1500), topic.Metrics.Wikipedia.Views12M)
}

func TestLog10p(t *testing.T) {
	assert.Equal(t, 0.0, log10p(0))
	assert.Equal(t, 0.0, log10p(-5), "negative inputs clamp to zero")
	assert.InDelta(t, 2.0, log10p(99), 1e-9)
	assert.GreaterOrEqual(t, log10p(123456), 0.0)
}

func TestEstimateCitations12M(t *testing.T) {
	assert.Equal(t, 0.0, estimateCitations12M(0, 100, 20))
	assert.Equal(t, 0.0, estimateCitations12M(1000, 0, 20))
	assert.Equal(t, 0.0, estimateCitations12M(1000, 100, 0))
	assert.InDelta(t, 200.0, estimateCitations12M(1000, 100, 20), 1e-9)
}
