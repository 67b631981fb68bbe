//go:build integration

package kafka_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/platform/kafka"
	"storefront/internal/platform/logger"
	"storefront/pkg/testutil/containers"
)

// collectingHandler records every delivered message.
type collectingHandler struct {
	mu       sync.Mutex
	messages []*kafka.Message
}

func (h *collectingHandler) Handle(_ context.Context, msg *kafka.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msg)
	return nil
}

func (h *collectingHandler) snapshot() []*kafka.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*kafka.Message(nil), h.messages...)
}

func TestPublishConsumeRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	broker := containers.NewRedpandaContainer(t).Broker
	log := logger.New("test")
	const topic = "catalog.price-changes"

	publisher, err := kafka.NewPublisher(context.Background(), []string{broker}, topic, log)
	require.NoError(t, err)
	defer publisher.Close()

	handler := &collectingHandler{}
	consumer, err := kafka.NewConsumer([]string{broker}, "test-group", topic, handler, log)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = consumer.Run(ctx)
	}()

	require.NoError(t, publisher.Publish(context.Background(), "product-1", []byte(`{"newPrice":120}`)))
	require.NoError(t, publisher.Publish(context.Background(), "product-2", []byte(`{"newPrice":80}`)))

	require.Eventually(t, func() bool {
		return len(handler.snapshot()) == 2
	}, 30*time.Second, 100*time.Millisecond)

	messages := handler.snapshot()
	assert.Equal(t, "product-1", string(messages[0].Key))
	assert.Equal(t, topic, messages[0].Topic)
	assert.JSONEq(t, `{"newPrice":120}`, string(messages[0].Value))

	cancel()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("consumer did not stop after cancel")
	}
}
