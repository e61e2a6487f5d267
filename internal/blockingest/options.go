package blockingest

import "time"

// Option configures a Service.
type Option func(*Service)

// WithParallelism overrides the default K=5 bounded-parallel block fetch.
func WithParallelism(k int) Option {
	return func(s *Service) { s.parallelism = k }
}

// WithSaveInterval overrides the default 10-block checkpoint save cadence.
func WithSaveInterval(blocks uint64) Option {
	return func(s *Service) { s.saveInterval = blocks }
}

// WithRereadThreshold overrides the default 10-block startup rewind
// threshold.
func WithRereadThreshold(blocks uint64) Option {
	return func(s *Service) { s.rereadThreshold = blocks }
}

// WithPollInterval overrides the default 1s idle-loop sleep.
func WithPollInterval(d time.Duration) Option {
	return func(s *Service) { s.pollInterval = d }
}

// WithBlockWindow overrides the default 200-entry recent-block-heights
// sliding window.
func WithBlockWindow(n int) Option {
	return func(s *Service) { s.blockWindow = n }
}

// WithTxWindow overrides the default 10 000-entry recent-tx-hashes
// sliding window.
func WithTxWindow(n int) Option {
	return func(s *Service) { s.txWindow = n }
}
