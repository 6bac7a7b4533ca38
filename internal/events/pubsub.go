package events

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog/log"
	"github.com/vmihailenco/msgpack/v5"
)

// PubSubBroadcaster publishes events to Google Cloud Pub/Sub topics with
// msgpack-encoded payloads.
type PubSubBroadcaster struct {
	client      *pubsub.Client
	topicPrefix string
}

func NewPubSubBroadcaster(ctx context.Context, projectID, topicPrefix string) (*PubSubBroadcaster, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return &PubSubBroadcaster{
		client:      client,
		topicPrefix: topicPrefix,
	}, nil
}

func (b *PubSubBroadcaster) Close() error {
	return b.client.Close()
}

func (b *PubSubBroadcaster) publish(ctx context.Context, topic string, payload any) error {
	data, err := msgpack.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to encode event payload")
		return err
	}

	result := b.client.Topic(b.topicPrefix + topic).Publish(ctx, &pubsub.Message{Data: data})
	serverID, err := result.Get(ctx)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to publish event")
		return err
	}
	log.Debug().Str("topic", topic).Str("server_id", serverID).Msg("Event published")
	return nil
}

func (b *PubSubBroadcaster) SlotStateChanged(ctx context.Context, event SlotStateChanged) error {
	return b.publish(ctx, TopicSlotStateChanged, event)
}

func (b *PubSubBroadcaster) MatchFound(ctx context.Context, event MatchFound) error {
	return b.publish(ctx, TopicMatchFound, event)
}

func (b *PubSubBroadcaster) BookingCancelled(ctx context.Context, event BookingCancelled) error {
	return b.publish(ctx, TopicBookingCancelled, event)
}

// Decode unmarshals a msgpack event payload into dst. Consumers use it to
// read messages pulled off a subscription.
func Decode(data []byte, dst any) error {
	return msgpack.Unmarshal(data, dst)
}
