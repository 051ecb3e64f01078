package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/suteetoe/storefront/internal/model"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

type OrderEventItem struct {
	ProductID       uint            `json:"product_id"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
}

// OrderEvent is the message body published for every order change.
type OrderEvent struct {
	EventID        string            `json:"event_id"`
	Type           string            `json:"type"`
	OrderNumber    string            `json:"order_number"`
	Status         model.OrderStatus `json:"status"`
	PreviousStatus model.OrderStatus `json:"previous_status,omitempty"`
	TotalAmount    decimal.Decimal   `json:"total_amount"`
	PaidAmount     decimal.Decimal   `json:"paid_amount"`
	Items          []OrderEventItem  `json:"items,omitempty"`
	RequestID      string            `json:"request_id,omitempty"`
	Timestamp      time.Time         `json:"timestamp"`
}

// NewOrderCreatedEvent builds the event for a freshly placed order.
func NewOrderCreatedEvent(order *model.Order, requestID string) OrderEvent {
	items := make([]OrderEventItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderEventItem{
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			PriceAtPurchase: item.PriceAtPurchase,
		})
	}
	return OrderEvent{
		EventID:     uuid.New().String(),
		Type:        EventOrderCreated,
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		PaidAmount:  order.PaidAmount,
		Items:       items,
		RequestID:   requestID,
		Timestamp:   time.Now().UTC(),
	}
}

// NewOrderStatusEvent builds the event for a staff status change.
func NewOrderStatusEvent(number string, previous, current model.OrderStatus, requestID string) OrderEvent {
	return OrderEvent{
		EventID:        uuid.New().String(),
		Type:           EventOrderStatusChanged,
		OrderNumber:    number,
		Status:         current,
		PreviousStatus: previous,
		RequestID:      requestID,
		Timestamp:      time.Now().UTC(),
	}
}

// Publisher delivers order events. Publishing happens after the database
// commit; callers log failures instead of failing the request.
type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, OrderEvent) error { return nil }
func (NopPublisher) Close() error                              { return nil }

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher writes to topic on brokers, keyed by order number so one
// order's events stay on one partition.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event OrderEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.OrderNumber),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
