//go:build integration

package notification_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"bloodlink/internal/notification"
	"bloodlink/internal/platform/config"
	"bloodlink/internal/platform/kafka"
	"bloodlink/pkg/testutil/containers"
)

type KafkaDispatcherSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
	producer *kafka.Producer
	topic    string
}

func TestKafkaDispatcherSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaDispatcherSuite))
}

func (s *KafkaDispatcherSuite) SetupSuite() {
	s.redpanda = containers.GetManager().GetRedpanda(s.T())
	s.topic = "bloodlink.email.jobs." + uuid.NewString()[:8]

	client, err := kafka.NewClient(config.KafkaConfig{Brokers: s.redpanda.Brokers, ClientID: "bloodlink-test"})
	s.Require().NoError(err)
	s.Require().NotNil(client)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.Require().NoError(kafka.EnsureTopic(ctx, client, s.topic, 1, 1))
	// second call tolerates the existing topic
	s.Require().NoError(kafka.EnsureTopic(ctx, client, s.topic, 1, 1))

	s.producer = kafka.NewProducer(client)
}

func (s *KafkaDispatcherSuite) TearDownSuite() {
	if s.producer != nil {
		s.producer.Close(context.Background())
	}
}

func (s *KafkaDispatcherSuite) TestJobReachesTopic() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	d := notification.NewGuarded(notification.NewKafkaDispatcher(s.producer, s.topic))
	s.Require().NoError(d.Dispatch(ctx, "donor@example.com", "Blood needed", "Please help"))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Brokers...),
		kgo.ConsumeTopics(s.topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollRecords(ctx, 1)
	s.Require().NoError(fetches.Err())
	records := fetches.Records()
	s.Require().Len(records, 1)

	s.Equal("donor@example.com", string(records[0].Key))
	var job notification.EmailJob
	s.Require().NoError(json.Unmarshal(records[0].Value, &job))
	s.Equal("Blood needed", job.Subject)
	s.Equal("Please help", job.Body)
}
