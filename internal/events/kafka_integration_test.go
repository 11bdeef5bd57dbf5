//go:build integration

package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"badgemint/internal/events"
	"badgemint/pkg/testutil/containers"
)

func TestKafkaPublisher(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	redpanda := containers.NewRedpandaContainer(t)
	defer func() { _ = redpanda.Container.Terminate(ctx) }()

	pub, err := events.NewKafkaPublisher(ctx, redpanda.Brokers)
	require.NoError(t, err)
	defer pub.Close()

	event := events.Event{
		Action:        events.ActionIdentityMinted,
		Caller:        "alice",
		TokenID:       1,
		Username:      "alice",
		Contributions: 250,
		Tier:          "Pro",
	}
	require.NoError(t, pub.Emit(ctx, event))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(redpanda.Brokers...),
		kgo.ConsumeTopics(events.DefaultTopic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetchCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	fetches := consumer.PollFetches(fetchCtx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	require.Equal(t, "1", string(records[0].Key), "events are keyed by token id")

	var got events.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	require.Equal(t, events.ActionIdentityMinted, got.Action)
	require.NotEmpty(t, got.ID, "emit stamps an event id")
	require.Equal(t, uint32(250), got.Contributions)
}
