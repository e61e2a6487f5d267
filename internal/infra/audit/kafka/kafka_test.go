package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/blocksentry/watchtower/internal/domain"
	"github.com/blocksentry/watchtower/internal/pkg/logger"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	_ = logger.Init(logger.WithLevel("error"))
}

type fakeDelivery struct {
	sendErr error
	editErr error
}

func (f *fakeDelivery) Send(ctx context.Context, botID, chatID string, msg domain.RenderedMessage) (string, error) {
	if f.sendErr != nil {
		return "", f.sendErr
	}
	return "msg-1", nil
}

func (f *fakeDelivery) Edit(ctx context.Context, botID, chatID, messageID string, msg domain.RenderedMessage) error {
	return f.editErr
}

type fakeProducer struct {
	input  chan *sarama.ProducerMessage
	errors chan *sarama.ProducerError
}

func newFakeProducer() *fakeProducer {
	return &fakeProducer{
		input:  make(chan *sarama.ProducerMessage, 8),
		errors: make(chan *sarama.ProducerError, 8),
	}
}

func (f *fakeProducer) Input() chan<- *sarama.ProducerMessage { return f.input }
func (f *fakeProducer) Errors() <-chan *sarama.ProducerError  { return f.errors }
func (f *fakeProducer) Close() error                          { close(f.errors); return nil }

func TestSink_Send_PublishesOnSuccess(t *testing.T) {
	producer := newFakeProducer()
	sink := &Sink{next: &fakeDelivery{}, producer: producer, topic: "test-topic"}

	msgID, err := sink.Send(context.Background(), "bot", "chat", domain.RenderedMessage{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", msgID)

	select {
	case produced := <-producer.input:
		assert.Equal(t, "test-topic", produced.Topic)
		encoded, err := produced.Value.Encode()
		require.NoError(t, err)
		var ev event
		require.NoError(t, json.Unmarshal(encoded, &ev))
		assert.Equal(t, "send", ev.Kind)
		assert.Equal(t, "hello", ev.Text)
	case <-time.After(time.Second):
		t.Fatal("no message published")
	}
}

func TestSink_Send_DoesNotPublishOnDeliveryError(t *testing.T) {
	producer := newFakeProducer()
	sink := &Sink{next: &fakeDelivery{sendErr: errors.New("unreachable")}, producer: producer, topic: "test-topic"}

	_, err := sink.Send(context.Background(), "bot", "chat", domain.RenderedMessage{Text: "hello"})
	require.Error(t, err)

	select {
	case <-producer.input:
		t.Fatal("should not publish when delivery fails")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSink_Edit_PublishesOnSuccess(t *testing.T) {
	producer := newFakeProducer()
	sink := &Sink{next: &fakeDelivery{}, producer: producer, topic: "test-topic"}

	err := sink.Edit(context.Background(), "bot", "chat", "msg-1", domain.RenderedMessage{Text: "updated"})
	require.NoError(t, err)

	select {
	case produced := <-producer.input:
		encoded, err := produced.Value.Encode()
		require.NoError(t, err)
		var ev event
		require.NoError(t, json.Unmarshal(encoded, &ev))
		assert.Equal(t, "edit", ev.Kind)
		assert.Equal(t, "msg-1", ev.MessageID)
	case <-time.After(time.Second):
		t.Fatal("no message published")
	}
}

func TestSink_DrainErrors_LogsWithoutPanicking(t *testing.T) {
	producer := newFakeProducer()
	sink := &Sink{next: &fakeDelivery{}, producer: producer, topic: "test-topic"}

	done := make(chan struct{})
	go func() { sink.drainErrors(); close(done) }()

	producer.errors <- &sarama.ProducerError{Err: errors.New("broker unavailable")}
	require.NoError(t, sink.Close())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("drainErrors did not exit after producer closed")
	}
}
