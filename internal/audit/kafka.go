package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// kafkaPayload is the JSON structure published to the audit topic. Field
// names are stable; downstream consumers deserialize by name.
type kafkaPayload struct {
	Category     string `json:"category"`
	Timestamp    string `json:"timestamp"`
	RegistrantID string `json:"registrant_id,omitempty"`
	ApplicantID  string `json:"applicant_id,omitempty"`
	Action       string `json:"action"`
	Decision     string `json:"decision,omitempty"`
	Reason       string `json:"reason,omitempty"`
	Trigger      string `json:"trigger,omitempty"`
	RequestID    string `json:"request_id,omitempty"`
	ClientIP     string `json:"client_ip,omitempty"`
}

// KafkaStore publishes audit events to a Kafka topic. Writes are
// synchronous so a lost broker surfaces as an error instead of silently
// dropping compliance events.
type KafkaStore struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafkaStore connects to the comma-separated broker list and returns a
// sink for the given topic.
func NewKafkaStore(brokers, topic string, logger *slog.Logger) (*KafkaStore, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(strings.Split(brokers, ",")...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return &KafkaStore{client: client, topic: topic, logger: logger}, nil
}

func (s *KafkaStore) Append(ctx context.Context, event Event) error {
	payload := kafkaPayload{
		Category:    string(AuditEvent(event.Action).Category()),
		Timestamp:   event.Timestamp.Format(time.RFC3339Nano),
		ApplicantID: event.ApplicantID,
		Action:      event.Action,
		Decision:    event.Decision,
		Reason:      event.Reason,
		Trigger:     event.Trigger,
		RequestID:   event.RequestID,
		ClientIP:    event.ClientIP,
	}
	if event.RegistrantID != [16]byte{} {
		payload.RegistrantID = event.RegistrantID.String()
	}

	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	record := &kgo.Record{
		// Key by registrant so one registrant's events stay ordered
		// within a partition.
		Key:   []byte(payload.RegistrantID),
		Value: value,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		s.logger.ErrorContext(ctx, "audit publish failed",
			"action", event.Action,
			"error", err,
		)
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Close flushes buffered records and releases the client.
func (s *KafkaStore) Close() {
	s.client.Close()
}
