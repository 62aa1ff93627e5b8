package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"topicrank/pkg/provider"
)

func TestRunCache_Totals(t *testing.T) {
	c := NewRunCache()

	_, ok := c.Totals("C123")
	assert.False(t, ok)

	c.PutTotals("C123", provider.Totals{CitedByCount: 10, WorksCount: 2})
	tot, ok := c.Totals("C123")
	assert.True(t, ok)
	assert.Equal(t, int64(10), tot.CitedByCount)
}

func TestRunCache_RecentWorksKeyedByWindow(t *testing.T) {
	c := NewRunCache()
	from := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	c.PutRecentWorks("C123", from, to, 42)

	n, ok := c.RecentWorks("C123", from, to)
	assert.True(t, ok)
	assert.Equal(t, int64(42), n)

	_, ok = c.RecentWorks("C123", from.AddDate(0, 0, 1), to)
	assert.False(t, ok, "different window is a different key")
}

func TestRunCache_TitleRecordsMisses(t *testing.T) {
	c := NewRunCache()

	_, _, ok := c.Title("Quantum Computing")
	assert.False(t, ok)

	// A failed resolution is cached too, so it is not retried within
	// the run.
	c.PutTitle("Nonexistent Topic", "", false)
	title, found, ok := c.Title("Nonexistent Topic")
	assert.True(t, ok)
	assert.False(t, found)
	assert.Empty(t, title)

	c.PutTitle("Quantum Computing", "Quantum computing", true)
	title, found, ok = c.Title("Quantum Computing")
	assert.True(t, ok)
	assert.True(t, found)
	assert.Equal(t, "Quantum computing", title)
}

func TestRunCache_Views(t *testing.T) {
	c := NewRunCache()
	from := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	c.PutViews("Quantum computing", from, to, 1500)
	v, ok := c.Views("Quantum computing", from, to)
	assert.True(t, ok)
	assert.Equal(t, int64(1500), v)
}
