// Package timeouts provides centralized timeout values for handler and CLI
// operations.
//
// Guidelines for choosing a timeout:
//   - Ping: health checks and connectivity verification
//   - Short: single-document reads, access decisions, backup writes
//   - Medium: list queries and multi-step reads
//   - Commit: the transactional assignment-set commit
//
// Values can be changed at startup with Configure; zero fields keep the
// current value.
package timeouts

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Defaults, in effect until Configure is called.
const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultCommit = 10 * time.Second
)

// Config holds timeout values. In Configure, zero fields keep the current
// value.
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Commit time.Duration
}

func defaults() Config {
	return Config{Ping: DefaultPing, Short: DefaultShort, Medium: DefaultMedium, Commit: DefaultCommit}
}

var (
	mu  sync.RWMutex
	cur = defaults()
)

// Current returns the timeouts in effect.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return cur
}

// Ping bounds health checks.
func Ping() time.Duration { return Current().Ping }

// Short bounds single-document operations.
func Short() time.Duration { return Current().Short }

// Medium bounds list queries and multi-step reads.
func Medium() time.Duration { return Current().Medium }

// Commit bounds a whole assignment-set commit, including driver retries of
// transient transaction errors.
func Commit() time.Duration { return Current().Commit }

// Configure overrides the non-zero fields of c. Call during startup.
func Configure(c Config) {
	mu.Lock()
	defer mu.Unlock()
	for _, f := range []struct {
		dst *time.Duration
		v   time.Duration
	}{
		{&cur.Ping, c.Ping},
		{&cur.Short, c.Short},
		{&cur.Medium, c.Medium},
		{&cur.Commit, c.Commit},
	} {
		if f.v > 0 {
			*f.dst = f.v
		}
	}
}

// Reset restores the defaults.
func Reset() {
	mu.Lock()
	cur = defaults()
	mu.Unlock()
}

// WithTimeout is context.WithTimeout whose cancel func logs a warning when
// the deadline was hit.
//
//	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Commit(), h.Log, "matching commit")
//	defer cancel()
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
