package hwmfile

import (
	"context"

	"github.com/blocksentry/watchtower/internal/pkg/logger"
)

// mirror is the bbolt-backed accessor a MirroredCheckpoint writes
// through to, satisfied by *bolt.ProgressStore.
type mirror interface {
	Save(ctx context.Context, height uint64) error
}

// MirroredCheckpoint wraps a *Store, additionally mirroring every Save
// into a bbolt bucket so other in-process readers get atomic
// read-modify-write access to the current height without touching the
// filesystem. The file remains authoritative: Load only ever reads it,
// and a mirror write failure is logged, never returned, since losing the
// mirror does not put the durable file copy at risk.
type MirroredCheckpoint struct {
	*Store
	mirror mirror
}

// NewMirrored builds a MirroredCheckpoint over file, mirroring saves
// into m.
func NewMirrored(file *Store, m mirror) *MirroredCheckpoint {
	return &MirroredCheckpoint{Store: file, mirror: m}
}

// Save writes height to the file, then best-effort mirrors it.
func (c *MirroredCheckpoint) Save(ctx context.Context, height uint64) error {
	if err := c.Store.Save(ctx, height); err != nil {
		return err
	}
	if err := c.mirror.Save(ctx, height); err != nil {
		logger.Warn(ctx, "failed to mirror high-water mark into embedded database", "height", height, "error", err)
	}
	return nil
}
