//go:build integration

package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/kessotolo/ConversationalCommerce-sub002/internal/events"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/testutil/containers"
)

func TestKafkaSink_PublishRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	redpanda := containers.GetManager().GetRedpanda(t)
	topic := "convocommerce.domain-events." + uuid.NewString()[:8]

	sink, err := events.NewKafkaSink(ctx, redpanda.Brokers, topic)
	require.NoError(t, err)
	defer sink.Close()

	tenantID := domain.TenantID(uuid.New())
	event := events.New(events.TypeDomainVerified, tenantID, "shop.example.com").
		WithMetadata("checked", "true")
	event.OccurredAt = time.Now().UTC()

	require.NoError(t, sink.Publish(ctx, event))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(redpanda.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "shop.example.com", string(records[0].Key), "records must be keyed by domain")

	var decoded events.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &decoded))
	assert.Equal(t, events.TypeDomainVerified, decoded.Type)
	assert.Equal(t, tenantID, decoded.TenantID)
	assert.Equal(t, "true", decoded.Metadata["checked"])
}

func TestKafkaSink_TopicAlreadyExists(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	redpanda := containers.GetManager().GetRedpanda(t)
	topic := "convocommerce.domain-events.existing"

	first, err := events.NewKafkaSink(ctx, redpanda.Brokers, topic)
	require.NoError(t, err)
	first.Close()

	second, err := events.NewKafkaSink(ctx, redpanda.Brokers, topic)
	require.NoError(t, err, "re-creating the sink for an existing topic must succeed")
	second.Close()
}
