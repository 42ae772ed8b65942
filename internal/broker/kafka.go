// Package broker публикует события витрины во внешний брокер сообщений.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/Sivlinh/CloverLeaf/internal/model"
)

// OrdersTopic топик событий об оформленных заказах.
const OrdersTopic = "orders.recorded"

// OrderRecorded событие об оформленном заказе.
type OrderRecorded struct {
	ClientID   string           `json:"client_id"`
	OrderID    string           `json:"order_id"`
	OrderCode  string           `json:"order_code"`
	UserID     int64            `json:"user_id"`
	Items      []model.LineItem `json:"items"`
	Total      decimal.Decimal  `json:"total"`
	RecordedAt time.Time        `json:"recorded_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkaGo.Message) error
	Close() error
}

// KafkaPublisher публикует события заказов в Kafka.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher создаёт издателя для указанных брокеров.
func NewKafkaPublisher(brokers []string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafkaGo.Writer{
			Addr:                   kafkaGo.TCP(brokers...),
			Topic:                  OrdersTopic,
			Balancer:               &kafkaGo.Hash{},
			AllowAutoTopicCreation: true,
		},
	}
}

// PublishOrderRecorded отправляет событие о заказе. Ключ сообщения - идентификатор заказа.
func (p *KafkaPublisher) PublishOrderRecorded(ctx context.Context, clientID string, order model.Order) error {
	payload, err := json.Marshal(OrderRecorded{
		ClientID:   clientID,
		OrderID:    order.ID,
		OrderCode:  order.Code,
		UserID:     order.UserID,
		Items:      order.Items,
		Total:      order.Total,
		RecordedAt: order.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, kafkaGo.Message{
		Key:   []byte(order.ID),
		Value: payload,
	}); err != nil {
		return fmt.Errorf("failed to publish order %s: %w", order.ID, err)
	}
	return nil
}

// Close закрывает соединения с брокером.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
