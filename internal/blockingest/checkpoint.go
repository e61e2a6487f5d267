package blockingest

import "context"

// Checkpoint persists the single-integer high-water mark C5 advances as it
// consumes blocks. Load's second return is false when nothing has ever
// been persisted (fresh start).
type Checkpoint interface {
	Load(ctx context.Context) (uint64, bool, error)
	Save(ctx context.Context, height uint64) error
}
