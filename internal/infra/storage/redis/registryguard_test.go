package redis

import (
	"context"
	"testing"

	"github.com/blocksentry/watchtower/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	_ = logger.Init(logger.WithLevel("error"))
}

type fakeRegistry struct {
	started, stopped []string
}

func (f *fakeRegistry) StartWatching(ctx context.Context, network, address string) error {
	f.started = append(f.started, network+":"+address)
	return nil
}

func (f *fakeRegistry) StopWatching(ctx context.Context, network, address string) error {
	f.stopped = append(f.stopped, network+":"+address)
	return nil
}

func TestRegistrationGuard_StartWatching_FallsThroughOnDedupError(t *testing.T) {
	next := &fakeRegistry{}
	guard := NewRegistrationGuard(next, NewDedupGuard(unreachableClient(), "watch", 0))

	require.NoError(t, guard.StartWatching(context.Background(), "1@bot1", "0xabc"))
	assert.Equal(t, []string{"1@bot1:0xabc"}, next.started)
}

func TestRegistrationGuard_StopWatching_AlwaysDelegates(t *testing.T) {
	next := &fakeRegistry{}
	guard := NewRegistrationGuard(next, NewDedupGuard(unreachableClient(), "watch", 0))

	require.NoError(t, guard.StopWatching(context.Background(), "1@bot1", "0xabc"))
	assert.Equal(t, []string{"1@bot1:0xabc"}, next.stopped)
}
