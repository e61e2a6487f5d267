// Package blockproc coordinates the block-level processing pipeline,
// wiring the block ingestor's transaction stream into the transaction
// router into a single orchestration layer with one lifecycle.
package blockproc

import (
	"context"
	"errors"
	"sync"

	"github.com/blocksentry/watchtower/internal/blockingest"
	"github.com/blocksentry/watchtower/internal/txrouter"
)

// ErrServiceAlreadyStarted is returned if Start is called more than once.
//
// The service must be started only once per lifecycle.
var ErrServiceAlreadyStarted = errors.New("service already started")

// Service defines the blockproc lifecycle and coordination entrypoint.
//
// It orchestrates the block ingestor (source of new transactions) and the
// transaction router (matching, decoding, and delivery) as one unit.
type Service interface {
	// Start begins the block processing pipeline: it launches the
	// ingestor and drains its transaction channel into the router.
	//
	// Returns ErrServiceAlreadyStarted if Start is called more than once.
	// Call Close to shut down all background routines.
	Start(ctx context.Context) error

	// Close shuts down the blockproc service and cancels all active
	// routines. It is safe to call Close even if never started.
	Close()
}

// closeFunc defines a cleanup routine to stop background goroutines and dependencies.
type closeFunc func()

// service is the internal implementation of the blockproc Service interface.
//
// It wires together the block ingestor (for observing new transactions)
// and the router (for matching, decoding, and delivering them).
type service struct {
	mu        sync.Mutex // protects lifecycle state
	isStarted bool       // ensures Start is called only once
	closeFunc closeFunc  // cancels context and cleans up dependencies

	ingest *blockingest.Service // source of chain transactions
	router *txrouter.Service    // watchlist match, decode, and delivery
}

// Compile-time check to ensure *service implements the Service interface.
var _ Service = new(service)

// Start initializes the block processing service.
//
// It starts the ingestor's Run loop and the router's Run loop, wiring the
// ingestor's Transactions() channel as the router's input.
//
// Returns an error if the service was already started.
func (s *service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isStarted {
		return ErrServiceAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.router.Run(ctx, s.ingest.Transactions())
	}()
	go func() {
		defer wg.Done()
		s.runIngest(ctx)
	}()

	s.closeFunc = func() {
		cancel()
		wg.Wait()
	}
	s.isStarted = true
	return nil
}

// Close shuts down all processing routines and dependencies.
//
// It cancels the shared context and waits for both the ingestor and
// router goroutines to exit.
func (s *service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closeFunc != nil {
		s.closeFunc()
	}

	s.closeFunc = nil
	s.isStarted = false
}

// New creates a new instance of the blockproc service, wiring the block
// ingestor's output into the transaction router's input.
func New(ingest *blockingest.Service, router *txrouter.Service) *service {
	return &service{
		ingest: ingest,
		router: router,
	}
}
