package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Topic carries every domain event; consumers switch on Kind.
const Topic = "carnivalhub.events"

const metadataKind = "kind"

// NewGoChannel builds the in-process pub/sub. Messages are not retained:
// subscribe before the first publish. With blockUntilAck, Publish returns
// only after every subscriber has handled the message, which short-lived
// commands need before they close the bus.
func NewGoChannel(logger watermill.LoggerAdapter, blockUntilAck bool) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            256,
		BlockPublishUntilSubscriberAck: blockUntilAck,
	}, logger)
}

type WatermillPublisher struct {
	publisher message.Publisher
	logger    watermill.LoggerAdapter
}

func NewWatermillPublisher(publisher message.Publisher, logger watermill.LoggerAdapter) *WatermillPublisher {
	return &WatermillPublisher{publisher: publisher, logger: logger}
}

func (p *WatermillPublisher) Publish(ctx context.Context, events ...Event) error {
	msgs := make([]*message.Message, 0, len(events))
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", e.Kind, err)
		}
		msg := message.NewMessage(e.ID, payload)
		msg.Metadata.Set(metadataKind, string(e.Kind))
		msg.SetContext(ctx)
		msgs = append(msgs, msg)
	}
	if len(msgs) == 0 {
		return nil
	}
	if err := p.publisher.Publish(Topic, msgs...); err != nil {
		return fmt.Errorf("publish to %s: %w", Topic, err)
	}
	return nil
}

// Consume subscribes to Topic and feeds each event to handler until ctx ends.
// Delivery is best-effort: handler errors are logged and the message acked.
func Consume(ctx context.Context, subscriber message.Subscriber, handler Handler, logger watermill.LoggerAdapter) error {
	msgs, err := subscriber.Subscribe(ctx, Topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", Topic, err)
	}
	logger.Info("Subscribed to domain events", watermill.LogFields{"topic": Topic})

	go func() {
		defer logger.Info("Exiting domain event processing", nil)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				process(ctx, msg, handler, logger)
			}
		}
	}()
	return nil
}

func process(ctx context.Context, msg *message.Message, handler Handler, logger watermill.LoggerAdapter) {
	defer msg.Ack()

	var e Event
	if err := json.Unmarshal(msg.Payload, &e); err != nil {
		logger.Error("Dropping undecodable event", err, watermill.LogFields{"message_id": msg.UUID})
		return
	}
	if err := handler(ctx, e); err != nil {
		logger.Error("Event handler failed", err, watermill.LogFields{
			"message_id": msg.UUID,
			"kind":       string(e.Kind),
		})
	}
}
