package ratelimit

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Clock returns the current time. Tests inject a fake one.
type Clock func() time.Time

const fallbackCleanupInterval = time.Minute

// FallbackCounters holds process-local fixed windows used while the shared
// store is unavailable. Counters are lost on restart.
type FallbackCounters struct {
	windows *gocache.Cache
	mu      sync.Mutex // serializes window creation and replacement
	now     Clock
}

type fallbackWindow struct {
	mu    sync.Mutex
	start time.Time
	count int64
}

// NewFallbackCounters creates an empty counter set.
func NewFallbackCounters(now Clock) *FallbackCounters {
	if now == nil {
		now = time.Now
	}
	return &FallbackCounters{
		windows: gocache.New(gocache.NoExpiration, fallbackCleanupInterval),
		now:     now,
	}
}

// Incr counts one request against key and returns the post-increment count
// and the end of the current window. A window starts at the first request
// after the previous one ended.
func (f *FallbackCounters) Incr(key string, window time.Duration) (int64, time.Time) {
	return f.count(key, f.window(key, window), window)
}

func (f *FallbackCounters) count(key string, w *fallbackWindow, window time.Duration) (int64, time.Time) {
	now := f.now()

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.start.IsZero() || !now.Before(w.start.Add(window)) {
		w.start = now
		w.count = 0
		f.refresh(key, w, window)
	}
	w.count++
	return w.count, w.start.Add(window)
}

// refresh extends the eviction deadline of w, one window after it ends.
// A window that was reset and replaced meanwhile is left alone.
func (f *FallbackCounters) refresh(key string, w *fallbackWindow, window time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.windows.Get(key); ok && v.(*fallbackWindow) != w {
		return
	}
	f.windows.Set(key, w, 2*window)
}

func (f *FallbackCounters) window(key string, window time.Duration) *fallbackWindow {
	if v, ok := f.windows.Get(key); ok {
		return v.(*fallbackWindow)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.windows.Get(key); ok {
		return v.(*fallbackWindow)
	}
	w := &fallbackWindow{}
	f.windows.Set(key, w, 2*window)
	return w
}

// Reset drops the counter for key.
func (f *FallbackCounters) Reset(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows.Delete(key)
}

// Len returns the number of live windows.
func (f *FallbackCounters) Len() int {
	return f.windows.ItemCount()
}

// Flush drops every counter.
func (f *FallbackCounters) Flush() {
	f.windows.Flush()
}
