// Package ratelimit implements the fixed-window limiter applied to API
// mutations.
//
// Counters are keyed by client address, method and path. The limiter is
// approximate and process-local.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/zulandar/cockpit/internal/telemetry"
)

const scope = "github.com/zulandar/cockpit/ratelimit"

// SweepSchedule is how often expired windows are dropped.
const SweepSchedule = "@every 1m"

var (
	rejectedCounter metric.Int64Counter
	metricsOnce     sync.Once
)

func initMetrics() {
	rejectedCounter, _ = telemetry.Meter(scope).Int64Counter("cockpit.ratelimit.rejected",
		metric.WithDescription("Mutations rejected by the rate limiter"),
	)
}

type window struct {
	count   int
	resetAt time.Time
}

// Limiter counts requests per key in fixed windows.
type Limiter struct {
	window time.Duration
	limit  int
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*window
}

// New returns a limiter allowing limit requests per key per window. A
// non-positive limit or window disables limiting.
func New(windowLen time.Duration, limit int) *Limiter {
	metricsOnce.Do(initMetrics)
	return &Limiter{
		window:  windowLen,
		limit:   limit,
		now:     time.Now,
		buckets: make(map[string]*window),
	}
}

// WithNow replaces the limiter's clock. It must be called before use.
func (l *Limiter) WithNow(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Key builds the bucket key for a request.
func Key(addr, method, path string) string {
	return addr + " " + strings.ToUpper(method) + " " + path
}

// Allow records a request for key. When the key is over its limit it reports
// false and how long until the window resets; the rejected request is not
// counted.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	if l.limit <= 0 || l.window <= 0 {
		return true, 0
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.buckets[key]
	if !ok || !now.Before(w.resetAt) {
		l.buckets[key] = &window{count: 1, resetAt: now.Add(l.window)}
		return true, 0
	}
	if w.count >= l.limit {
		return false, w.resetAt.Sub(now)
	}
	w.count++
	return true, 0
}

// Sweep drops expired windows and returns how many were removed.
func (l *Limiter) Sweep() int {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for k, w := range l.buckets {
		if !now.Before(w.resetAt) {
			delete(l.buckets, k)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// StartSweeper runs Sweep on SweepSchedule until ctx is done.
func (l *Limiter) StartSweeper(ctx context.Context, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := cron.New()
	if _, err := c.AddFunc(SweepSchedule, func() {
		if n := l.Sweep(); n > 0 {
			logger.Debug("ratelimit: swept windows", "removed", n)
		}
	}); err != nil {
		return fmt.Errorf("ratelimit: schedule sweep: %w", err)
	}
	c.Start()
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return nil
}

// Exempt reports whether a request bypasses the limiter: reads and anything
// outside /api.
func Exempt(method, path string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return path != "/api" && !strings.HasPrefix(path, "/api/")
}

// Middleware rejects over-limit mutations with 429.
func Middleware(l *Limiter, logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return func(c *gin.Context) {
		method, path := c.Request.Method, c.Request.URL.Path
		if Exempt(method, path) {
			c.Next()
			return
		}
		ok, retry := l.Allow(Key(c.ClientIP(), method, path))
		if ok {
			c.Next()
			return
		}
		rejectedCounter.Add(c.Request.Context(), 1, metric.WithAttributes(
			attribute.String("http.method", method),
		))
		logger.Info("rate limit exceeded", "client", c.ClientIP(), "method", method, "path", path)
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests. Try again shortly."})
	}
}
