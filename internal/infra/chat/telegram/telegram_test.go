package telegram

import (
	"errors"
	"testing"

	"github.com/blocksentry/watchtower/internal/pkg/errkind"

	"github.com/stretchr/testify/assert"
)

func TestClassify_RateLimitBecomesTransientWithRetryAfter(t *testing.T) {
	err := classify(errors.New("Too Many Requests: retry after 7"))

	var transient *errkind.DeliveryTransientError
	assert.ErrorAs(t, err, &transient)
	assert.Equal(t, 7, transient.RetryAfterSeconds)
}

func TestClassify_BlockedUserBecomesTerminalUnreachable(t *testing.T) {
	err := classify(errors.New("Forbidden: bot was blocked by the user"))

	var terminal *errkind.DeliveryTerminalError
	assert.ErrorAs(t, err, &terminal)
	assert.True(t, terminal.SubscriberUnreachable)
}

func TestClassify_ChatNotFoundBecomesTerminalUnreachable(t *testing.T) {
	err := classify(errors.New("Bad Request: chat not found"))

	var terminal *errkind.DeliveryTerminalError
	assert.ErrorAs(t, err, &terminal)
	assert.True(t, terminal.SubscriberUnreachable)
}

func TestClassify_UnknownErrorBecomesTerminalNotUnreachable(t *testing.T) {
	err := classify(errors.New("Bad Request: message text is empty"))

	var terminal *errkind.DeliveryTerminalError
	assert.ErrorAs(t, err, &terminal)
	assert.False(t, terminal.SubscriberUnreachable)
}
