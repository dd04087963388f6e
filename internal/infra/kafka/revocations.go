package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/foroescolar/escuela-api/internal/core/domain"
	"github.com/foroescolar/escuela-api/internal/core/port"
)

// RevocationPublisher emits token revocation events so peer instances can
// blacklist the token before their next store resync.
type RevocationPublisher struct {
	producer *Producer
	logger   *zap.Logger
}

// NewRevocationPublisher constructs a publisher on top of an initialized producer.
func NewRevocationPublisher(producer *Producer, logger *zap.Logger) *RevocationPublisher {
	return &RevocationPublisher{producer: producer, logger: logger}
}

// PublishTokenRevoked serializes the event and hands it to the async producer.
// Delivery is fire-and-forget; the durable store remains the source of truth.
func (p *RevocationPublisher) PublishTokenRevoked(ctx context.Context, event domain.TokenRevokedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode token revoked event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.producer.Topic(),
		Key:   sarama.StringEncoder(strconv.FormatInt(event.SubjectID, 10)),
		Value: sarama.ByteEncoder(payload),
	}

	select {
	case p.producer.Input() <- msg:
	case <-ctx.Done():
		return ctx.Err()
	}

	p.logger.Debug("published token revoked event",
		zap.String("event_id", event.EventID),
		zap.Int64("subject_id", event.SubjectID),
	)

	return nil
}

var _ port.RevocationPublisher = (*RevocationPublisher)(nil)

// RevocationSink is the local set the consumer merges incoming revocations into.
type RevocationSink interface {
	MergeRevoked(token string)
}

// RevocationConsumerOptions controls replay filtering.
type RevocationConsumerOptions struct {
	// ReplayTolerance discards events whose token already expired longer
	// than this ago. Expired tokens fail verification on their own.
	ReplayTolerance time.Duration
}

// RevocationConsumer merges revocation events from peers into the local blacklist set.
type RevocationConsumer struct {
	sink            RevocationSink
	logger          *zap.Logger
	replayTolerance time.Duration
	now             func() time.Time
}

// NewRevocationConsumer constructs a consumer that keeps the local set current.
func NewRevocationConsumer(sink RevocationSink, logger *zap.Logger, opts RevocationConsumerOptions) *RevocationConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RevocationConsumer{
		sink:            sink,
		logger:          logger,
		replayTolerance: opts.ReplayTolerance,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the consumer clock for deterministic testing.
func (c *RevocationConsumer) WithClock(clock func() time.Time) *RevocationConsumer {
	if clock != nil {
		c.now = clock
	}
	return c
}

// HandleMessage decodes a Kafka message prior to processing.
func (c *RevocationConsumer) HandleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	if msg == nil {
		return fmt.Errorf("message is nil")
	}

	var event domain.TokenRevokedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("decode token revoked event: %w", err)
	}

	return c.HandleEvent(ctx, event)
}

// HandleEvent applies the revocation to the local set.
func (c *RevocationConsumer) HandleEvent(_ context.Context, event domain.TokenRevokedEvent) error {
	if event.Token == "" {
		return fmt.Errorf("token revoked event missing token")
	}

	if !event.ExpiresAt.IsZero() && c.replayTolerance > 0 {
		cutoff := c.now().Add(-c.replayTolerance)
		if !event.ExpiresAt.After(cutoff) {
			c.logger.Debug("skip expired revocation", zap.String("event_id", event.EventID))
			return nil
		}
	}

	c.sink.MergeRevoked(event.Token)

	c.logger.Debug("merged token revocation",
		zap.String("event_id", event.EventID),
		zap.Int64("subject_id", event.SubjectID),
	)

	return nil
}
