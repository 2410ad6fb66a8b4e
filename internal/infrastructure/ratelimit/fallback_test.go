package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFallbackCounters_StaleRolloverKeepsReplacement(t *testing.T) {
	counters := NewFallbackCounters(nil)

	// A request holding the window when the counter is reset.
	stale := counters.window("k", time.Minute)
	counters.Reset("k")

	counters.Incr("k", time.Minute)
	count, _ := counters.Incr("k", time.Minute)
	assert.Equal(t, int64(2), count)

	// Its rollover must not put the old window back in place.
	count, _ = counters.count("k", stale, time.Minute)
	assert.Equal(t, int64(1), count)

	count, _ = counters.Incr("k", time.Minute)
	assert.Equal(t, int64(3), count)
	assert.Equal(t, 1, counters.Len())
}

func TestFallbackCounters_RolloverRestoresEvictedWindow(t *testing.T) {
	counters := NewFallbackCounters(nil)

	w := counters.window("k", time.Minute)
	counters.Reset("k")
	counters.count("k", w, time.Minute)

	count, _ := counters.Incr("k", time.Minute)
	assert.Equal(t, int64(2), count)
}
