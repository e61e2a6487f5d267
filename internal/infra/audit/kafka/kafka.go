// Package kafka provides a best-effort audit trail: every notification
// C8 actually delivers is also published, fire-and-forget, to a Kafka
// topic so an operator can reconstruct delivery history outside the chat
// platform. Publish failures are logged and otherwise swallowed - this
// sink must never be the reason a notification fails to reach a
// subscriber.
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/blocksentry/watchtower/internal/domain"
	"github.com/blocksentry/watchtower/internal/pkg/logger"
	"github.com/blocksentry/watchtower/internal/txrouter"

	"github.com/IBM/sarama"
)

const defaultTopic = "watchtower_notifications"

// Config configures the underlying sarama producer.
type Config struct {
	Brokers []string
	Topic   string
}

// event is the JSON shape published for every send/edit.
type event struct {
	Kind      string `json:"kind"` // "send" or "edit"
	BotID     string `json:"bot_id"`
	ChatID    string `json:"chat_id"`
	MessageID string `json:"message_id,omitempty"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// asyncProducer is the slice of sarama.AsyncProducer this sink drives,
// narrowed so tests can supply a lightweight fake instead of a live
// broker connection.
type asyncProducer interface {
	Input() chan<- *sarama.ProducerMessage
	Errors() <-chan *sarama.ProducerError
	Close() error
}

// Sink wraps a txrouter.Delivery, publishing an audit event for every
// successful call before returning the wrapped delivery's result
// unchanged.
type Sink struct {
	next     txrouter.Delivery
	producer asyncProducer
	topic    string
}

// New builds a Sink around next, publishing to cfg.Brokers. The
// underlying producer is asynchronous and fire-and-forget: publish
// errors surface only in the background error channel this drains into
// logs, never back to the caller.
func New(cfg Config, next txrouter.Delivery) (*Sink, error) {
	topic := cfg.Topic
	if topic == "" {
		topic = defaultTopic
	}

	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.RequiredAcks = sarama.WaitForLocal
	saramaCfg.Producer.Retry.Max = 3
	saramaCfg.Producer.Return.Successes = false
	saramaCfg.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, err
	}

	s := &Sink{next: next, producer: producer, topic: topic}
	go s.drainErrors()
	return s, nil
}

func (s *Sink) drainErrors() {
	for err := range s.producer.Errors() {
		logger.Warn(context.Background(), "audit publish failed", "topic", s.topic, "error", err.Err)
	}
}

func (s *Sink) publish(kind, botID, chatID, messageID string, msg domain.RenderedMessage) {
	body, err := json.Marshal(event{
		Kind:      kind,
		BotID:     botID,
		ChatID:    chatID,
		MessageID: messageID,
		Text:      msg.Text,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		logger.Warn(context.Background(), "audit event marshal failed", "error", err)
		return
	}

	select {
	case s.producer.Input() <- &sarama.ProducerMessage{Topic: s.topic, Value: sarama.ByteEncoder(body)}:
	default:
		logger.Warn(context.Background(), "audit producer input full, dropping event", "kind", kind, "chat_id", chatID)
	}
}

// Send delegates to the wrapped delivery and publishes an audit event on
// success.
func (s *Sink) Send(ctx context.Context, botID, chatID string, msg domain.RenderedMessage) (string, error) {
	messageID, err := s.next.Send(ctx, botID, chatID, msg)
	if err == nil {
		s.publish("send", botID, chatID, messageID, msg)
	}
	return messageID, err
}

// Edit delegates to the wrapped delivery and publishes an audit event on
// success.
func (s *Sink) Edit(ctx context.Context, botID, chatID, messageID string, msg domain.RenderedMessage) error {
	err := s.next.Edit(ctx, botID, chatID, messageID, msg)
	if err == nil {
		s.publish("edit", botID, chatID, messageID, msg)
	}
	return err
}

// Close shuts the underlying producer down, flushing best-effort.
func (s *Sink) Close() error {
	return s.producer.Close()
}
