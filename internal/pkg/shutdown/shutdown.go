// Package shutdown implements ordered graceful shutdown: components
// register a named cleanup function with a priority order, and a single
// SIGINT/SIGTERM/SIGQUIT triggers them in order under one shared timeout.
package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/blocksentry/watchtower/internal/pkg/logger"
)

// Order constants for the handful of concerns cmd/watchtower registers.
// Lower runs first.
const (
	OrderStopIngest       = 10
	OrderStopDelivery     = 20
	OrderFlushAudit       = 30
	OrderCloseConnections = 40
	OrderSaveCheckpoint   = 50
)

// Func is a single named shutdown step.
type Func struct {
	Name  string
	Run   func(ctx context.Context) error
	Order int
}

// Manager coordinates ordered shutdown across the components a process
// registers with it, defaulting to a 30s overall timeout.
type Manager struct {
	timeout time.Duration

	mu       sync.Mutex
	funcs    []Func
	signals  chan os.Signal
	stopOnce sync.Once
	done     chan struct{}
}

const defaultTimeout = 30 * time.Second

// New builds a Manager. A non-positive timeout falls back to 30 seconds.
func New(timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Manager{
		timeout: timeout,
		signals: make(chan os.Signal, 1),
		done:    make(chan struct{}),
	}
}

// Register adds a named shutdown step, executed in ascending Order once
// shutdown begins. Safe to call concurrently.
func (m *Manager) Register(name string, order int, fn func(ctx context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.funcs = append(m.funcs, Func{Name: name, Run: fn, Order: order})
}

// Listen blocks until SIGINT, SIGTERM or SIGQUIT arrives, then runs every
// registered step in order and returns. Intended to run in its own
// goroutine; call Trigger from tests or other code paths that want to
// force the same shutdown sequence without a real signal.
func (m *Manager) Listen(ctx context.Context) {
	signal.Notify(m.signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(m.signals)

	select {
	case sig := <-m.signals:
		logger.Info(ctx, "shutdown signal received", "signal", sig.String())
		m.Trigger(ctx)
	case <-ctx.Done():
	case <-m.done:
	}
}

// Trigger runs every registered step once, in ascending Order, stopping
// early if the shared timeout elapses. Safe to call more than once; only
// the first call runs the steps.
func (m *Manager) Trigger(parent context.Context) {
	m.stopOnce.Do(func() {
		defer close(m.done)

		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		m.mu.Lock()
		steps := make([]Func, len(m.funcs))
		copy(steps, m.funcs)
		m.mu.Unlock()

		sort.SliceStable(steps, func(i, j int) bool { return steps[i].Order < steps[j].Order })

		var errs []error
		for _, step := range steps {
			start := time.Now()
			err := step.Run(ctx)
			elapsed := time.Since(start)

			if err != nil {
				logger.Error(parent, "shutdown step failed", "name", step.Name, "elapsed", elapsed.String(), "error", err)
				errs = append(errs, fmt.Errorf("%s: %w", step.Name, err))
			} else {
				logger.Info(parent, "shutdown step complete", "name", step.Name, "elapsed", elapsed.String())
			}

			select {
			case <-ctx.Done():
				logger.Warn(parent, "shutdown timed out, aborting remaining steps")
				return
			default:
			}
		}

		if len(errs) > 0 {
			logger.Error(parent, "shutdown completed with errors", "count", len(errs))
		}
	})
}
