package pub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ledger-service/internal/domain"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

// TransactionEvent is the wire shape published on every committed or
// rejected transaction.
type TransactionEvent struct {
	EventType   string              `json:"event_type"`
	Transaction *domain.Transaction `json:"transaction"`
	EmittedAt   time.Time           `json:"emitted_at"`
}

// Publisher pushes ledger events to Kafka. A nil Publisher is valid and
// drops everything, so wiring stays unconditional in the usecases.
type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokers []string, topic string) *Publisher {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

// PublishTransaction emits one event keyed by account so per-account
// ordering survives partitioning.
func (p *Publisher) PublishTransaction(ctx context.Context, eventType string, tx *domain.Transaction) error {
	if p == nil || p.writer == nil {
		return nil
	}

	payload, err := json.Marshal(TransactionEvent{
		EventType:   eventType,
		Transaction: tx,
		EmittedAt:   time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal transaction event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(tx.AccountID.String()),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("failed to publish transaction event: %w", err)
	}
	log.WithFields(log.Fields{
		"event":          eventType,
		"transaction_id": tx.ID,
	}).Debug("transaction event published")
	return nil
}

func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
