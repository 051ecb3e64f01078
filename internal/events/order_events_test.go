package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/storefront/internal/model"
)

type recordingWriter struct {
	messages []kafka.Message
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisherKeysByOrderNumber(t *testing.T) {
	writer := &recordingWriter{}
	publisher := &KafkaPublisher{writer: writer}

	order := &model.Order{
		OrderNumber: "ORD-0123456789",
		Status:      model.OrderStatusPending,
		TotalAmount: decimal.RequireFromString("25.00"),
		PaidAmount:  decimal.RequireFromString("5.00"),
		Items: []model.OrderItem{
			{ProductID: 1, Quantity: 2, PriceAtPurchase: decimal.RequireFromString("10.00")},
		},
	}

	require.NoError(t, publisher.Publish(context.Background(), NewOrderCreatedEvent(order, "req-1")))
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "ORD-0123456789", string(msg.Key))
	assert.Equal(t, EventOrderCreated, string(msg.Headers[0].Value))

	var decoded OrderEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "req-1", decoded.RequestID)
	assert.True(t, decoded.TotalAmount.Equal(decimal.RequireFromString("25")))
	require.Len(t, decoded.Items, 1)
	assert.Equal(t, uint(1), decoded.Items[0].ProductID)

	require.NoError(t, publisher.Close())
	assert.True(t, writer.closed)
}

func TestNewOrderStatusEvent(t *testing.T) {
	event := NewOrderStatusEvent("ORD-1", model.OrderStatusPending, model.OrderStatusShipped, "")

	assert.Equal(t, EventOrderStatusChanged, event.Type)
	assert.Equal(t, model.OrderStatusPending, event.PreviousStatus)
	assert.Equal(t, model.OrderStatusShipped, event.Status)
	assert.NotEmpty(t, event.EventID)
}
