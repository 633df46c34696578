package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ai-interior-design-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const (
	localTopic       = "events"
	metadataSubject  = "subject"
	metadataOccurred = "occurred_at"
)

// GoChannelBus is the in-process bus used when NATS is not reachable. Delivery is
// at-most-once and limited to this instance.
type GoChannelBus struct {
	pubSub *gochannel.GoChannel
	logger logger.ILogger
}

func NewGoChannelBus(log logger.ILogger) *GoChannelBus {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermill.NewStdLogger(false, false),
	)
	return &GoChannelBus{pubSub: pubSub, logger: log}
}

func (b *GoChannelBus) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event.Payload())
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set(metadataSubject, Subject(event.EventType()))
	msg.Metadata.Set(metadataOccurred, event.Timestamp().Format(time.RFC3339Nano))
	msg.SetContext(ctx)

	return b.pubSub.Publish(localTopic, msg)
}

// Subscribe starts a goroutine that feeds matching messages to handler. durableName
// only labels log lines, nothing survives a restart.
func (b *GoChannelBus) Subscribe(subject string, durableName string, handler EventHandler) error {
	messages, err := b.pubSub.Subscribe(context.Background(), localTopic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	go func() {
		for msg := range messages {
			b.dispatch(subject, durableName, handler, msg)
		}
	}()
	return nil
}

func (b *GoChannelBus) dispatch(subject, durableName string, handler EventHandler, msg *message.Message) {
	// gochannel redelivers a nacked message immediately, so failures are logged and acked.
	defer msg.Ack()

	msgSubject := msg.Metadata.Get(metadataSubject)
	if !SubjectMatches(subject, msgSubject) {
		return
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		b.logger.Error("EVENTS", "Dropping undecodable event", map[string]interface{}{
			"subject": msgSubject,
			"error":   err.Error(),
		})
		return
	}

	occurredAt, err := time.Parse(time.RFC3339Nano, msg.Metadata.Get(metadataOccurred))
	if err != nil {
		occurredAt = time.Now()
	}

	event := BaseEvent{
		Type:       strings.TrimPrefix(msgSubject, SubjectPrefix),
		Data:       payload,
		OccurredAt: occurredAt,
	}
	if err := handler(context.Background(), event); err != nil {
		b.logger.Error("EVENTS", "Event handler failed", map[string]interface{}{
			"subject": msgSubject,
			"durable": durableName,
			"error":   err.Error(),
		})
	}
}

func (b *GoChannelBus) Close() error {
	return b.pubSub.Close()
}

// SubjectMatches implements the subset of NATS subject matching the application uses:
// exact subjects and a trailing ">" wildcard.
func SubjectMatches(pattern, subject string) bool {
	if strings.HasSuffix(pattern, ">") {
		return strings.HasPrefix(subject, strings.TrimSuffix(pattern, ">")) &&
			len(subject) > len(pattern)-1
	}
	return pattern == subject
}
