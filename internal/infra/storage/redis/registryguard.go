package redis

import (
	"context"

	"github.com/blocksentry/watchtower/internal/pkg/logger"
	"github.com/blocksentry/watchtower/internal/walletregistry"
)

// RegistrationGuard decorates a walletregistry.Service with a distributed
// first-claim check ahead of StartWatching, so two operator CLI processes
// racing to register the same (network, address) pair don't both hit the
// database. StartWatching is already idempotent at the storage layer; this
// guard only saves the redundant write, never changes the outcome.
type RegistrationGuard struct {
	next  walletregistry.Service
	dedup *DedupGuard
}

// NewRegistrationGuard wraps next with dedup.
func NewRegistrationGuard(next walletregistry.Service, dedup *DedupGuard) *RegistrationGuard {
	return &RegistrationGuard{next: next, dedup: dedup}
}

// StartWatching claims (network, address) in the distributed guard before
// delegating. A claim failure (redis unreachable) or a fresh claim both
// fall through to next; only an already-claimed key short-circuits.
func (g *RegistrationGuard) StartWatching(ctx context.Context, network, address string) error {
	claimed, err := g.dedup.Claim(ctx, network+":"+address)
	if err != nil {
		logger.Warn(ctx, "registration dedup claim failed, proceeding anyway", "network", network, "address", address, "error", err)
	}
	if err == nil && !claimed {
		return nil
	}
	return g.next.StartWatching(ctx, network, address)
}

// StopWatching always delegates: unregistration is rare enough, and
// important enough to never suppress, that it bypasses the guard entirely.
func (g *RegistrationGuard) StopWatching(ctx context.Context, network, address string) error {
	return g.next.StopWatching(ctx, network, address)
}
