package blockproc

import (
	"context"

	"github.com/blocksentry/watchtower/internal/pkg/logger"
)

// runIngest drives the ingestor's Run loop and logs a terminal error, if
// any, once it returns. Run only exits on ctx cancellation or an
// unrecoverable startup failure (e.g. a bad persisted checkpoint).
func (s *service) runIngest(ctx context.Context) {
	if err := s.ingest.Run(ctx); err != nil {
		logger.Error(ctx, "block ingestor stopped with error", "error", err)
	}
}
