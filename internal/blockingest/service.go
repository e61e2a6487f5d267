// Package blockingest tails a chain's head, fetches new blocks with
// bounded parallelism, and emits their transactions strictly in ascending
// (block-height, index) order over a channel, persisting a high-water
// mark as it goes and deduplicating both block heights and transaction
// hashes within sliding windows.
package blockingest

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/blocksentry/watchtower/internal/domain"
	"github.com/blocksentry/watchtower/internal/pkg/errkind"
	"github.com/blocksentry/watchtower/internal/pkg/logger"
	"github.com/blocksentry/watchtower/internal/pkg/orderedset"
	"github.com/blocksentry/watchtower/internal/pkg/x/chflow"
)

const (
	defaultParallelism     = 5
	defaultSaveInterval    = 10
	defaultRereadThreshold = 10
	defaultPollInterval    = time.Second
	defaultBlockWindow     = 200
	defaultTxWindow        = 10_000
)

// Service is the single-owner ingest task described by C5. It must be run
// from exactly one goroutine (Run); Transactions() may be read from any
// number of goroutines.
type Service struct {
	chain      Chain
	checkpoint Checkpoint
	out        chan domain.Transaction

	parallelism     int
	saveInterval    uint64
	rereadThreshold uint64
	pollInterval    time.Duration
	blockWindow     int
	txWindow        int

	expected     uint64
	sinceSave    uint64
	recentBlocks *orderedset.Set
	recentTxs    *orderedset.Set

	lastProcessed atomic.Uint64 // last height fully processed, for external status reporting
}

// New builds a Service. The output channel is unbuffered; Run blocks on
// emission until a consumer (C7) reads it, which is the intended
// synchronous back-pressure point.
func New(chain Chain, checkpoint Checkpoint, opts ...Option) *Service {
	s := &Service{
		chain:           chain,
		checkpoint:      checkpoint,
		out:             make(chan domain.Transaction),
		parallelism:     defaultParallelism,
		saveInterval:    defaultSaveInterval,
		rereadThreshold: defaultRereadThreshold,
		pollInterval:    defaultPollInterval,
		blockWindow:     defaultBlockWindow,
		txWindow:        defaultTxWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.recentBlocks = orderedset.New(s.blockWindow)
	s.recentTxs = orderedset.New(s.txWindow)
	return s
}

// Transactions returns the channel Run emits normalized transactions on.
func (s *Service) Transactions() <-chan domain.Transaction {
	return s.out
}

// LastProcessed returns the most recent block height fully processed, or
// 0 before the first tick completes. Safe to call from any goroutine.
func (s *Service) LastProcessed() uint64 {
	return s.lastProcessed.Load()
}

// Run loads the persisted high-water mark (rewinding to head minus the
// reread threshold if missing or too stale), then loops until ctx is
// canceled: fetch head, fetch up to `parallelism` blocks in parallel,
// process them in strict ascending order, persist progress every
// saveInterval blocks, sleep, repeat.
func (s *Service) Run(ctx context.Context) error {
	defer close(s.out)

	if err := s.recover(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := s.tick(ctx); err != nil {
			logger.Warn(ctx, "block ingest tick failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.pollInterval):
		}
	}
}

func (s *Service) recover(ctx context.Context) error {
	persisted, ok, err := s.checkpoint.Load(ctx)
	if err != nil {
		return &errkind.PersistenceError{Target: "high-water-mark", Err: err}
	}

	if !ok {
		head, err := s.chain.BlockNumber(ctx)
		if err != nil {
			return err
		}
		s.expected = rewind(head, s.rereadThreshold)
		return nil
	}

	head, err := s.chain.BlockNumber(ctx)
	if err == nil && head > persisted && head-persisted > s.rereadThreshold {
		s.expected = rewind(head, s.rereadThreshold)
		return nil
	}

	s.expected = persisted + 1
	return nil
}

func rewind(head, threshold uint64) uint64 {
	if head < threshold {
		return 0
	}
	return head - threshold
}

// tick performs one head-fetch-and-drain-to-head cycle, per §4.5 steps 1-5.
func (s *Service) tick(ctx context.Context) error {
	head, err := s.chain.BlockNumber(ctx)
	if err != nil {
		return err
	}
	if head < s.expected {
		s.expected = head
	}

	for s.expected <= head {
		batchSize := s.parallelism
		if remaining := head - s.expected + 1; remaining < uint64(batchSize) {
			batchSize = int(remaining)
		}

		blocks := s.fetchBatch(ctx, s.expected, batchSize)

		advanced := false
		for _, b := range blocks {
			if b == nil {
				break // first missing block in the batch: stop processing this tick
			}
			s.processBlock(ctx, b)
			s.expected++
			s.sinceSave++
			advanced = true
			s.lastProcessed.Store(b.Number)

			if s.sinceSave >= s.saveInterval {
				if err := s.checkpoint.Save(ctx, s.expected-1); err != nil {
					logger.Warn(ctx, "failed to persist high-water mark", "error", err)
				} else {
					s.sinceSave = 0
				}
			}
		}
		if !advanced {
			break
		}
	}
	return nil
}

// fetchBatch fetches heights [from, from+n) concurrently and returns them
// in ascending order; a nil entry marks a block the chain doesn't have
// yet.
func (s *Service) fetchBatch(ctx context.Context, from uint64, n int) []*domain.Block {
	results := make([]*domain.Block, n)

	type outcome struct {
		idx int
		blk *domain.Block
		err error
	}
	done := make(chan outcome, n)
	for i := 0; i < n; i++ {
		go func(i int, height uint64) {
			blk, err := fetchBlock(ctx, s.chain, height)
			done <- outcome{idx: i, blk: blk, err: err}
		}(i, from+uint64(i))
	}
	for i := 0; i < n; i++ {
		o := <-done
		if o.err != nil {
			logger.Warn(ctx, "failed to fetch block", "height", from+uint64(o.idx), "error", o.err)
			continue
		}
		results[o.idx] = o.blk
	}
	return results
}

// processBlock applies the block-height and tx-hash dedup rules and emits
// every fresh transaction in order.
func (s *Service) processBlock(ctx context.Context, b *domain.Block) {
	heightKey := strconv.FormatUint(b.Number, 10)
	if s.recentBlocks.Has(heightKey) {
		return
	}
	s.recentBlocks.Insert(heightKey)

	for _, tx := range b.Transactions {
		if s.recentTxs.Has(tx.Hash) {
			continue
		}
		s.recentTxs.InsertEvictHalf(tx.Hash)

		if !chflow.Send(ctx, s.out, tx) {
			return
		}
	}
}
