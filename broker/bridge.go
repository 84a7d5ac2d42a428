package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"frt-gateway/models"
)

// Broadcaster delivers a payload to every open connection in a room.
// Implemented by relay.Hub.
type Broadcaster interface {
	Broadcast(roomID string, payload []byte)
}

// Bridge connects the relay to Kafka: it publishes classified client
// events onto topics and rebroadcasts consumed topic messages to the
// rooms they belong to. Ordering is whatever Kafka provides per topic;
// the bridge imposes none across topics.
type Bridge struct {
	brokers []string
	groupID string

	writers map[string]*kafka.Writer

	broadcaster Broadcaster
	log         *zap.Logger

	shutdown chan struct{}
}

func NewBridge(brokers []string, groupID string, broadcaster Broadcaster, log *zap.Logger) *Bridge {
	writers := make(map[string]*kafka.Writer)
	for _, topic := range []string{models.ChatTopic, models.MapTopic, models.MissionTopic} {
		writers[topic] = &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		}
	}
	return &Bridge{
		brokers:     brokers,
		groupID:     groupID,
		writers:     writers,
		broadcaster: broadcaster,
		log:         log,
		shutdown:    make(chan struct{}),
	}
}

// Publish serializes v and writes it to the topic. Failures are the
// caller's to log; they never affect socket state.
func (b *Bridge) Publish(ctx context.Context, topic string, v any) error {
	w, ok := b.writers[topic]
	if !ok {
		return fmt.Errorf("publish: unknown topic %q", topic)
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("publish: marshal message for %s: %w", topic, err)
	}
	if err := w.WriteMessages(ctx, kafka.Message{Value: payload}); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Run starts one consumer goroutine per subscribed topic. The chat and
// map topics feed the fan-out path; the mission topic is publish-only
// from this gateway, its consumer lives in the missions service.
func (b *Bridge) Run(ctx context.Context) {
	for _, topic := range []string{models.ChatTopic, models.MapTopic} {
		go b.consume(ctx, topic)
	}
}

func (b *Bridge) consume(ctx context.Context, topic string) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: b.brokers,
		GroupID: b.groupID,
		Topic:   topic,
	})
	defer reader.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.shutdown:
			return
		default:
		}

		m, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.log.Error("broker read", zap.String("topic", topic), zap.Error(err))
			continue
		}
		b.dispatch(topic, m.Value)
	}
}

// dispatch maps a consumed topic message to the client wire shape and
// hands it to the broadcaster, keyed by the room id embedded in the
// message. Undecodable messages are logged and skipped.
func (b *Bridge) dispatch(topic string, value []byte) {
	switch topic {
	case models.ChatTopic:
		var msg models.ChatStreamMessage
		if err := json.Unmarshal(value, &msg); err != nil {
			b.log.Error("decode chat stream message", zap.Error(err))
			return
		}
		payload, err := json.Marshal(models.ChatFrameFromStream(msg))
		if err != nil {
			b.log.Error("marshal chat frame", zap.Error(err))
			return
		}
		b.broadcaster.Broadcast(msg.ChatID, payload)

	case models.MapTopic:
		var msg models.MapStreamMessage
		if err := json.Unmarshal(value, &msg); err != nil {
			b.log.Error("decode map stream message", zap.Error(err))
			return
		}
		payload, err := json.Marshal(models.NewMarkerFrame(msg))
		if err != nil {
			b.log.Error("marshal marker frame", zap.Error(err))
			return
		}
		b.broadcaster.Broadcast(msg.MapID, payload)

	default:
		b.log.Warn("unhandled topic", zap.String("topic", topic))
	}
}

// Close stops the consumers and flushes the writers.
func (b *Bridge) Close() error {
	close(b.shutdown)
	for topic, w := range b.writers {
		if err := w.Close(); err != nil {
			b.log.Error("close writer", zap.String("topic", topic), zap.Error(err))
		}
	}
	return nil
}
