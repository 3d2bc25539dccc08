package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/shipping-updates/storefront/internal/config"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	messages []kafkaGo.Message
	err      error
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkaGo.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

type placed struct {
	OrderID string `json:"order_id"`
}

func TestPublishEvent(t *testing.T) {
	logger, _ := test.NewNullLogger()
	w := &fakeWriter{}
	p := &Publisher{writer: w, logger: logger}

	require.NoError(t, p.PublishEvent(context.Background(), "order.placed", "ord-1", placed{OrderID: "ord-1"}))
	require.Len(t, w.messages, 1)
	assert.Equal(t, "order.placed", w.messages[0].Topic)
	assert.Equal(t, []byte("ord-1"), w.messages[0].Key)

	var got placed
	require.NoError(t, json.Unmarshal(w.messages[0].Value, &got))
	assert.Equal(t, "ord-1", got.OrderID)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublishEventWriteFailure(t *testing.T) {
	logger, _ := test.NewNullLogger()
	p := &Publisher{writer: &fakeWriter{err: errors.New("leader not available")}, logger: logger}

	err := p.PublishEvent(context.Background(), "order.placed", "ord-1", placed{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "order.placed")
}

func TestPublisherWithoutBrokersLogs(t *testing.T) {
	logger, hook := test.NewNullLogger()
	p := NewPublisher(&config.Config{}, logger)

	require.NoError(t, p.PublishEvent(context.Background(), "order.placed", "ord-1", placed{OrderID: "ord-1"}))
	assert.Equal(t, "order.placed", hook.LastEntry().Data["topic"])
	assert.JSONEq(t, `{"order_id":"ord-1"}`, hook.LastEntry().Data["payload"].(string))
	assert.NoError(t, p.Close())
}

func TestNewPublisherWithBrokers(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cfg := &config.Config{}
	cfg.External.Kafka.Brokers = []string{"localhost:9092"}

	p := NewPublisher(cfg, logger)
	w, ok := p.writer.(*kafkaGo.Writer)
	require.True(t, ok)
	assert.Equal(t, "localhost:9092", w.Addr.String())
	assert.NoError(t, p.Close())
}
