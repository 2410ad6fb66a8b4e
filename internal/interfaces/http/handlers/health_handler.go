package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/sixcities/internal/infrastructure/ratelimit"
)

const readinessTimeout = 2 * time.Second

// Pinger is a dependency that can be probed.
type Pinger interface {
	Ping(ctx context.Context) error
}

// AvailabilityReporter reports the shared store's liveness.
type AvailabilityReporter interface {
	IsAvailable() bool
}

// LimiterStateReporter reports the rate limiter's lifecycle state.
type LimiterStateReporter interface {
	State() ratelimit.State
}

// HealthHandler provides health check endpoints.
// The shared store is optional: its loss degrades the service but does not
// make it unready. Only the database is required.
type HealthHandler struct {
	db      Pinger
	store   AvailabilityReporter
	limiter LimiterStateReporter
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db Pinger, store AvailabilityReporter, limiter LimiterStateReporter) *HealthHandler {
	return &HealthHandler{db: db, store: store, limiter: limiter}
}

// Live reports that the process is serving.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive", "timestamp": time.Now().UTC()})
}

// Ready checks the dependencies.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	checks := h.performChecks(ctx)

	status := "ready"
	httpStatus := http.StatusOK
	if checks["database"] != "ok" {
		status = "unready"
		httpStatus = http.StatusServiceUnavailable
	} else if checks["store"] != "ok" {
		status = "degraded"
	}

	c.JSON(httpStatus, gin.H{
		"status":     status,
		"timestamp":  time.Now().UTC(),
		"checks":     checks,
		"rate_limit": h.limiterState(),
	})
}

func (h *HealthHandler) performChecks(ctx context.Context) map[string]string {
	var wg sync.WaitGroup
	checks := make(map[string]string)
	mu := &sync.Mutex{}

	checkers := map[string]func() string{
		"database": func() string {
			if h.db == nil {
				return "error: not configured"
			}
			if err := h.db.Ping(ctx); err != nil {
				return "error: " + err.Error()
			}
			return "ok"
		},
		"store": func() string {
			if h.store == nil || !h.store.IsAvailable() {
				return "unavailable"
			}
			return "ok"
		},
	}

	wg.Add(len(checkers))
	for name, check := range checkers {
		name, check := name, check
		go func() {
			defer wg.Done()
			result := check()
			mu.Lock()
			checks[name] = result
			mu.Unlock()
		}()
	}
	wg.Wait()
	return checks
}

func (h *HealthHandler) limiterState() string {
	if h.limiter == nil {
		return "disabled"
	}
	return h.limiter.State().String()
}
