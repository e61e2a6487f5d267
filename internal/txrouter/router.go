// Package txrouter implements C7: for each transaction emitted by the
// block ingestor, it finds every watched address the transaction touches,
// enforces per-(address, tx) dedup, decodes fast then full, and drives
// delivery with a send-then-edit protocol.
package txrouter

import (
	"context"
	"encoding/hex"
	"math/big"
	"strings"
	"sync"

	"github.com/blocksentry/watchtower/internal/addrextract"
	"github.com/blocksentry/watchtower/internal/domain"
	"github.com/blocksentry/watchtower/internal/pkg/logger"
	"github.com/blocksentry/watchtower/internal/pkg/orderedset"
	"github.com/blocksentry/watchtower/internal/pkg/x/chflow"
	"github.com/blocksentry/watchtower/internal/render"
)

const dedupWindow = 10_000

// Watchlist is a read-only snapshot lookup, satisfied by *domain.Watchlist.
type Watchlist interface {
	Lookup(address string) (domain.WatchlistEntry, bool)
}

// Decoder is C6's surface, satisfied by *tracedecoder.Decoder.
type Decoder interface {
	Fast(ctx context.Context, tx domain.Transaction, watched string) (domain.TraceResult, error)
	Full(ctx context.Context, tx domain.Transaction, watched string) (domain.TraceResult, error)
}

// Renderer is C9's surface, satisfied by *render.Renderer.
type Renderer interface {
	Render(watched string, tx domain.Transaction, trace domain.TraceResult, signature *string, names map[string]string) domain.RenderedMessage
}

// Delivery is C8's surface, satisfied by *delivery.Router. botID/chatID come
// from splitting a domain.SubscriberID.
type Delivery interface {
	Send(ctx context.Context, botID, chatID string, msg domain.RenderedMessage) (messageID string, err error)
	Edit(ctx context.Context, botID, chatID, messageID string, msg domain.RenderedMessage) error
}

// SignatureResolver resolves a function selector to a human-readable
// signature. Resolution is decorative: a miss never blocks processing.
type SignatureResolver interface {
	Resolve(ctx context.Context, selector string) (signature string, ok bool)
}

// NameTable is the ENS-like local address→name mapping, loaded entirely
// into memory at startup.
type NameTable interface {
	All() map[string]string
}

// DedupAccelerator is an optional distributed first-claim check consulted
// after the in-process dedup window's membership check and before the key
// is recorded there, so two watchtower instances
// processing the same chain don't both notify on the same (watched, tx)
// pair. It never replaces the local window: a claim error or a nil
// accelerator both fall through to it unchanged.
type DedupAccelerator interface {
	Claim(ctx context.Context, key string) (claimed bool, err error)
}

// Service is the C7 router/processor.
type Service struct {
	watchlist  Watchlist
	decoder    Decoder
	renderer   Renderer
	delivery   Delivery
	signatures SignatureResolver
	names      NameTable

	dedup         *orderedset.Set
	dustThreshold *big.Int // wei; native-value transfers below this with an empty selector are skipped
	accelerator   DedupAccelerator
}

// Option configures a Service.
type Option func(*Service)

// WithDedupWindow overrides the default 10,000-entry dedup window.
func WithDedupWindow(n int) Option {
	return func(s *Service) { s.dedup = orderedset.New(n) }
}

// WithDedupAccelerator installs a distributed first-claim check consulted
// after the in-process dedup window's membership check and before the key
// is recorded there. Nil (the default) skips the check
// entirely, matching a single-instance deployment.
func WithDedupAccelerator(a DedupAccelerator) Option {
	return func(s *Service) { s.accelerator = a }
}

// WithDustThreshold overrides the default 0.01 native-unit dust threshold
// (in wei, or the native asset's smallest unit).
func WithDustThreshold(wei *big.Int) Option {
	return func(s *Service) { s.dustThreshold = wei }
}

// defaultDustThresholdWei is 0.01 ether in wei.
func defaultDustThresholdWei() *big.Int {
	// 0.01 * 10^18 = 10^16
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(16), nil)
}

// New builds a Service.
func New(watchlist Watchlist, decoder Decoder, renderer Renderer, delivery Delivery, signatures SignatureResolver, names NameTable, opts ...Option) *Service {
	s := &Service{
		watchlist:     watchlist,
		decoder:       decoder,
		renderer:      renderer,
		delivery:      delivery,
		signatures:    signatures,
		names:         names,
		dedup:         orderedset.New(dedupWindow),
		dustThreshold: defaultDustThresholdWei(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run consumes tx from txs until it is closed or ctx is canceled,
// processing each one synchronously (C7's back-pressure point).
func (s *Service) Run(ctx context.Context, txs <-chan domain.Transaction) {
	for {
		tx, ok := chflow.Receive(ctx, txs)
		if !ok {
			return
		}
		s.Process(ctx, tx)
	}
}

// matchedAddresses returns every lower-cased watchlist address the
// transaction touches, in match-priority order (tx.from, tx.to, transfer
// recipient, calldata-scan hits), deduplicated.
func (s *Service) matchedAddresses(tx domain.Transaction) []string {
	seen := make(map[string]struct{})
	var out []string
	consider := func(addr string) {
		addr = strings.ToLower(addr)
		if addr == "" {
			return
		}
		if _, ok := seen[addr]; ok {
			return
		}
		seen[addr] = struct{}{}
		if _, watched := s.watchlist.Lookup(addr); watched {
			out = append(out, addr)
		}
	}

	consider(tx.From)
	if tx.To != nil {
		consider(*tx.To)
	}
	if recipient := addrextract.TransferRecipient(tx.Calldata); recipient != nil {
		consider(*recipient)
	}
	for _, addr := range addrextract.FromCalldata(tx.Calldata) {
		consider(addr)
	}

	return out
}

func selectorOf(calldata []byte) string {
	if len(calldata) < 4 {
		return "0x"
	}
	return "0x" + hex.EncodeToString(calldata[:4])
}

// Process handles one transaction against every watched address it
// touches. Decode failures are logged and do not abort other addresses or
// the caller's loop.
func (s *Service) Process(ctx context.Context, tx domain.Transaction) {
	selector := selectorOf(tx.Calldata)
	if selector == "0x" && tx.Value != nil && tx.Value.Cmp(s.dustThreshold) < 0 {
		return
	}

	watchedAddresses := s.matchedAddresses(tx)
	if len(watchedAddresses) == 0 {
		return
	}

	var signature *string
	if sig, ok := s.signatures.Resolve(ctx, selector); ok {
		signature = &sig
	}

	for _, watched := range watchedAddresses {
		key := watched + ":" + tx.Hash
		if s.dedup.Has(key) {
			continue
		}
		if s.accelerator != nil {
			claimed, err := s.accelerator.Claim(ctx, key)
			if err != nil {
				logger.Warn(ctx, "dedup accelerator claim failed, proceeding on the local window alone", "key", key, "error", err)
			} else if !claimed {
				continue
			}
		}
		s.dedup.Insert(key)

		s.processForWatched(ctx, tx, watched, signature)
	}
}

type pendingEdit struct {
	botID, chatID, messageID string
	displayName              string
}

// personalize substitutes render.NamePlaceholder with the watcher's
// display name, falling back to the literal "this wallet" when a
// subscriber never gave the wallet a name.
func personalize(msg domain.RenderedMessage, displayName string) domain.RenderedMessage {
	if displayName == "" {
		displayName = "this wallet"
	}
	msg.Text = strings.ReplaceAll(msg.Text, render.NamePlaceholder, displayName)
	return msg
}

func (s *Service) processForWatched(ctx context.Context, tx domain.Transaction, watched string, signature *string) {
	entry, ok := s.watchlist.Lookup(watched)
	if !ok {
		return
	}

	var (
		fullResult domain.TraceResult
		fullErr    error
		wg         sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		fullResult, fullErr = s.decoder.Full(ctx, tx, watched)
	}()

	fastResult, err := s.decoder.Fast(ctx, tx, watched)
	if err != nil {
		logger.Warn(ctx, "fast decode failed", "watched", watched, "tx", tx.Hash, "error", err)
		wg.Wait()
		return
	}

	outgoing := strings.ToLower(tx.From) == watched
	names := s.names.All()
	fastMsg := s.renderer.Render(watched, tx, fastResult, signature, names)

	pending := make(map[domain.SubscriberID]pendingEdit)
	for _, watcher := range entry.Watchers {
		want := watcher.WantIncoming
		if outgoing {
			want = watcher.WantOutgoing
		}
		if !want {
			continue
		}

		chatID, botID := watcher.SubscriberID.Split()
		messageID, err := s.delivery.Send(ctx, botID, chatID, personalize(fastMsg, watcher.DisplayName))
		if err != nil {
			logger.Warn(ctx, "send failed", "subscriber", watcher.SubscriberID, "tx", tx.Hash, "error", err)
			continue
		}
		pending[watcher.SubscriberID] = pendingEdit{botID: botID, chatID: chatID, messageID: messageID, displayName: watcher.DisplayName}
	}

	wg.Wait()
	if fullErr != nil {
		logger.Warn(ctx, "full decode failed", "watched", watched, "tx", tx.Hash, "error", fullErr)
		return
	}
	if len(pending) == 0 {
		return
	}

	fullMsg := s.renderer.Render(watched, tx, fullResult, signature, names)
	for subscriberID, p := range pending {
		if err := s.delivery.Edit(ctx, p.botID, p.chatID, p.messageID, personalize(fullMsg, p.displayName)); err != nil {
			logger.Warn(ctx, "edit failed", "subscriber", subscriberID, "tx", tx.Hash, "error", err)
		}
	}
}
