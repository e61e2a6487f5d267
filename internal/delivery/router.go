package delivery

import (
	"context"
	"fmt"

	"github.com/blocksentry/watchtower/internal/domain"
)

// Router dispatches a subscriber-scoped send/edit to the Queue belonging to
// that subscriber's bot. One Queue instance exists per configured bot.
type Router struct {
	queues map[string]*Queue
}

// NewRouter builds a Router over one Queue per bot id.
func NewRouter(queues map[string]*Queue) *Router {
	return &Router{queues: queues}
}

// Run starts every underlying Queue's workers and blocks until all of them
// stop (ctx canceled).
func (r *Router) Run(ctx context.Context) {
	done := make(chan struct{}, len(r.queues))
	for _, q := range r.queues {
		q := q
		go func() { q.Run(ctx); done <- struct{}{} }()
	}
	for range r.queues {
		<-done
	}
}

// Close stops accepting new work on every underlying Queue.
func (r *Router) Close() {
	for _, q := range r.queues {
		q.Close()
	}
}

// Depths reports each bot's current send/edit queue depth, keyed by bot
// id, for external status reporting.
func (r *Router) Depths() map[string][2]int {
	out := make(map[string][2]int, len(r.queues))
	for botID, q := range r.queues {
		send, edit := q.Depth()
		out[botID] = [2]int{send, edit}
	}
	return out
}

func (r *Router) Send(ctx context.Context, botID, chatID string, msg domain.RenderedMessage) (string, error) {
	q, ok := r.queues[botID]
	if !ok {
		return "", fmt.Errorf("delivery: no queue configured for bot %q", botID)
	}
	return q.Send(ctx, chatID, msg, false)
}

func (r *Router) Edit(ctx context.Context, botID, chatID, messageID string, msg domain.RenderedMessage) error {
	q, ok := r.queues[botID]
	if !ok {
		return fmt.Errorf("delivery: no queue configured for bot %q", botID)
	}
	return q.Edit(ctx, chatID, messageID, msg, false)
}
