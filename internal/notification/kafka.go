package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bloodlink/pkg/requestcontext"
)

// Publisher is the subset of the Kafka producer the dispatcher needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

// EmailJob is the record consumed by the email service.
type EmailJob struct {
	ID        string    `json:"id"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// KafkaDispatcher publishes email jobs to a topic. Records are keyed by recipient so
// one donor's emails stay ordered within a partition.
type KafkaDispatcher struct {
	publisher Publisher
	topic     string
}

func NewKafkaDispatcher(publisher Publisher, topic string) *KafkaDispatcher {
	return &KafkaDispatcher{publisher: publisher, topic: topic}
}

func (d *KafkaDispatcher) Dispatch(ctx context.Context, email, subject, body string) error {
	job := EmailJob{
		ID:        uuid.NewString(),
		To:        email,
		Subject:   subject,
		Body:      body,
		CreatedAt: requestcontext.Now(ctx),
	}
	value, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal email job: %w", err)
	}
	headers := map[string]string{"content-type": "application/json"}
	if reqID := requestcontext.RequestID(ctx); reqID != "" {
		headers["x-request-id"] = reqID
	}
	return d.publisher.Publish(ctx, d.topic, []byte(email), value, headers)
}
