package scoring

import (
	"context"
	"fmt"
	"os"

	"topicrank/internal/store"
)

// Engine drives scoring across the topic population.
type Engine struct {
	store    store.Store
	computer *Computer
}

// NewEngine creates a scoring engine.
func NewEngine(s store.Store, computer *Computer) *Engine {
	return &Engine{store: s, computer: computer}
}

// ScoreTopic computes and persists raw composites for one topic using
// a fresh run cache. The scores are not normalized against the rest of
// the population: callers of this path accept un-normalized values.
func (e *Engine) ScoreTopic(ctx context.Context, id string) (*store.Topic, error) {
	t, err := e.store.GetTopic(ctx, id)
	if err != nil {
		return nil, err
	}

	raw, err := e.computeSafe(ctx, t, NewRunCache())
	if err != nil {
		return nil, err
	}

	t.Impact = raw.Impact
	t.Activity = raw.Activity
	if err := e.store.SaveTopic(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// ScoreAll loads every topic, computes raw composites with one shared
// run cache, then percentile-normalizes and persists impact/activity
// for the whole population. A failure scoring one topic skips that
// topic and never aborts the batch; only a failure to load the
// population is fatal.
func (e *Engine) ScoreAll(ctx context.Context) error {
	topics, err := e.store.ListTopics(ctx, store.ListOpts{})
	if err != nil {
		return fmt.Errorf("load topic population: %w", err)
	}
	if len(topics) == 0 {
		fmt.Fprintln(os.Stderr, "scoring: no topics")
		return nil
	}

	cache := NewRunCache()

	var (
		scored     []int // indices into topics that computed successfully
		impacts    []float64
		activities []float64
	)
	for i := range topics {
		raw, err := e.computeSafe(ctx, &topics[i], cache)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %s: skipped: %v\n", topics[i].Name, err)
			continue
		}
		scored = append(scored, i)
		impacts = append(impacts, raw.Impact)
		activities = append(activities, raw.Activity)
	}

	impactRanks := PercentileRanks(impacts)
	activityRanks := PercentileRanks(activities)

	saved := 0
	for j, i := range scored {
		topics[i].Impact = impactRanks[j]
		topics[i].Activity = activityRanks[j]
		if err := e.store.SaveTopic(ctx, &topics[i]); err != nil {
			// Lost for this run; the next run retries.
			fmt.Fprintf(os.Stderr, "  %s: save failed: %v\n", topics[i].Name, err)
			continue
		}
		saved++
	}

	fmt.Fprintf(os.Stderr, "scoring: %d/%d topics scored, %d saved\n",
		len(scored), len(topics), saved)
	return nil
}

// computeSafe confines an unexpected per-topic failure to that topic.
func (e *Engine) computeSafe(ctx context.Context, t *store.Topic, cache *RunCache) (raw Raw, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("compute %q: %v", t.Name, r)
		}
	}()
	raw = e.computer.Compute(ctx, t, cache)
	return raw, nil
}
