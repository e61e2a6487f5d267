// Package delivery implements C8: a per-bot, two-queue (send, edit)
// delivery pipeline against a chat platform. Each queue is drained by a
// single worker in strict submission order, with rate-limit retry-in-place
// and a minimum inter-operation spacing.
package delivery

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/blocksentry/watchtower/internal/domain"
	"github.com/blocksentry/watchtower/internal/pkg/errkind"
	"github.com/blocksentry/watchtower/internal/pkg/logger"
	"github.com/blocksentry/watchtower/internal/pkg/x/chflow"
)

const (
	defaultInterval    = 200 * time.Millisecond
	maxTextLength      = 4096
	maxCaptionedLength = 2048
)

// Chat is the minimal chat-platform surface C8 drives. Implementations must
// apply HTML formatting and disabled link previews themselves (spec's
// transport-layer interceptor default).
type Chat interface {
	SendMessage(ctx context.Context, chatID string, msg domain.RenderedMessage) (messageID string, err error)
	EditMessage(ctx context.Context, chatID, messageID string, msg domain.RenderedMessage) error
}

// UnreachableFunc is invoked out-of-band when a send/edit discovers a
// subscriber is no longer reachable, so the caller can mark it for removal.
type UnreachableFunc func(chatID string)

// MessageTooLong is returned by Send/Edit's pre-flight length check.
type MessageTooLong struct {
	Length int
	Limit  int
}

func (e *MessageTooLong) Error() string {
	return "message exceeds the chat platform's length limit"
}

type sendJob struct {
	chatID string
	msg    domain.RenderedMessage
	result chan sendOutcome
}

type sendOutcome struct {
	messageID string
	err       error
}

type editJob struct {
	chatID    string
	messageID string
	msg       domain.RenderedMessage
	result    chan error
}

// Queue is one bot instance's send/edit pipeline.
type Queue struct {
	chat          Chat
	onUnreachable UnreachableFunc
	interval      time.Duration

	sendCh chan *sendJob
	editCh chan *editJob
}

// Option configures a Queue.
type Option func(*Queue)

// WithInterval overrides the default ~200ms inter-operation spacing.
func WithInterval(d time.Duration) Option {
	return func(q *Queue) { q.interval = d }
}

// WithUnreachableHook registers a callback invoked when a subscriber is
// found to be unreachable, so the caller can mark it for out-of-band
// removal from the watchlist store.
func WithUnreachableHook(fn UnreachableFunc) Option {
	return func(q *Queue) { q.onUnreachable = fn }
}

// New builds a Queue. Call Run to start its workers.
func New(chat Chat, opts ...Option) *Queue {
	q := &Queue{
		chat:     chat,
		interval: defaultInterval,
		sendCh:   make(chan *sendJob, 64),
		editCh:   make(chan *editJob, 64),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Run drives both workers until ctx is canceled.
func (q *Queue) Run(ctx context.Context) {
	done := make(chan struct{}, 2)
	go func() { q.runSendWorker(ctx); done <- struct{}{} }()
	go func() { q.runEditWorker(ctx); done <- struct{}{} }()
	<-done
	<-done
}

// Close stops accepting new work; in-flight items are drained best-effort
// by the running workers before they observe ctx cancellation.
func (q *Queue) Close() {
	close(q.sendCh)
	close(q.editCh)
}

// Depth reports the number of jobs currently buffered in the send and
// edit channels, for external status reporting.
func (q *Queue) Depth() (send, edit int) {
	return len(q.sendCh), len(q.editCh)
}

func preflightCheck(text string, captioned bool) error {
	limit := maxTextLength
	if captioned {
		limit = maxCaptionedLength
	}
	if n := utf8.RuneCountInString(text); n > limit {
		return &MessageTooLong{Length: n, Limit: limit}
	}
	return nil
}

// Send enqueues a send and blocks until it completes, ctx is canceled, or
// the pre-flight length check rejects it outright.
func (q *Queue) Send(ctx context.Context, chatID string, msg domain.RenderedMessage, captioned bool) (string, error) {
	if err := preflightCheck(msg.Text, captioned); err != nil {
		return "", err
	}

	job := &sendJob{chatID: chatID, msg: msg, result: make(chan sendOutcome, 1)}
	if !chflow.Send(ctx, q.sendCh, job) {
		return "", ctx.Err()
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case out := <-job.result:
		return out.messageID, out.err
	}
}

// Edit enqueues an edit and blocks until it completes or ctx is canceled.
func (q *Queue) Edit(ctx context.Context, chatID, messageID string, msg domain.RenderedMessage, captioned bool) error {
	if err := preflightCheck(msg.Text, captioned); err != nil {
		return err
	}

	job := &editJob{chatID: chatID, messageID: messageID, msg: msg, result: make(chan error, 1)}
	if !chflow.Send(ctx, q.editCh, job) {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-job.result:
		return err
	}
}

func (q *Queue) runSendWorker(ctx context.Context) {
	for {
		job, ok := chflow.Receive(ctx, q.sendCh)
		if !ok {
			return
		}
		q.processSend(ctx, job)

		select {
		case <-ctx.Done():
			return
		case <-time.After(q.interval):
		}
	}
}

func (q *Queue) processSend(ctx context.Context, job *sendJob) {
	for {
		id, err := q.chat.SendMessage(ctx, job.chatID, job.msg)
		if err == nil {
			job.result <- sendOutcome{messageID: id}
			return
		}

		var transient *errkind.DeliveryTransientError
		if errors.As(err, &transient) {
			logger.Warn(ctx, "delivery rate limited, retrying send in place", "chat", job.chatID, "retry_after", transient.RetryAfterSeconds)
			select {
			case <-ctx.Done():
				job.result <- sendOutcome{err: ctx.Err()}
				return
			case <-time.After(time.Duration(transient.RetryAfterSeconds) * time.Second):
			}
			continue
		}

		var terminal *errkind.DeliveryTerminalError
		if errors.As(err, &terminal) {
			if terminal.SubscriberUnreachable && q.onUnreachable != nil {
				q.onUnreachable(job.chatID)
			}
			job.result <- sendOutcome{err: err}
			return
		}

		logger.Warn(ctx, "send failed", "chat", job.chatID, "error", err)
		job.result <- sendOutcome{err: err}
		return
	}
}

func (q *Queue) runEditWorker(ctx context.Context) {
	for {
		job, ok := chflow.Receive(ctx, q.editCh)
		if !ok {
			return
		}
		q.processEdit(ctx, job)

		select {
		case <-ctx.Done():
			return
		case <-time.After(q.interval):
		}
	}
}

func (q *Queue) processEdit(ctx context.Context, job *editJob) {
	for {
		err := q.chat.EditMessage(ctx, job.chatID, job.messageID, job.msg)
		if err == nil {
			job.result <- nil
			return
		}

		var transient *errkind.DeliveryTransientError
		if errors.As(err, &transient) {
			logger.Warn(ctx, "delivery rate limited, retrying edit in place", "chat", job.chatID, "message", job.messageID, "retry_after", transient.RetryAfterSeconds)
			select {
			case <-ctx.Done():
				job.result <- ctx.Err()
				return
			case <-time.After(time.Duration(transient.RetryAfterSeconds) * time.Second):
			}
			continue
		}

		var terminal *errkind.DeliveryTerminalError
		if errors.As(err, &terminal) {
			if terminal.SubscriberUnreachable && q.onUnreachable != nil {
				q.onUnreachable(job.chatID)
			}
			job.result <- err
			return
		}

		logger.Warn(ctx, "edit failed", "chat", job.chatID, "message", job.messageID, "error", err)
		job.result <- err
		return
	}
}
