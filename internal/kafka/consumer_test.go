package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

func TestHandleWithRetryRunsUntilSuccess(t *testing.T) {
	var calls int
	h := func(context.Context, kafka.Message) error {
		calls++
		if calls < 3 {
			return errors.New("render failed")
		}
		return nil
	}

	ok := handleWithRetry(context.Background(), h, kafka.Message{Offset: 7}, time.Millisecond, 2*time.Millisecond)
	assert.True(t, ok)
	assert.Equal(t, 3, calls)
}

func TestHandleWithRetryStopsOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	h := func(context.Context, kafka.Message) error {
		calls++
		cancel()
		return errors.New("store unavailable")
	}

	ok := handleWithRetry(ctx, h, kafka.Message{}, time.Hour, time.Hour)
	assert.False(t, ok, "a message that never succeeded must not be committed")
	assert.Equal(t, 1, calls)
}
