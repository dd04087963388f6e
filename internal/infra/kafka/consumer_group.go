package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/foroescolar/escuela-api/internal/infra/config"
)

// MessageHandler processes a single consumed Kafka message.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error
}

// ConsumerGroup runs a message handler inside a Sarama consumer group session.
type ConsumerGroup struct {
	group   sarama.ConsumerGroup
	topic   string
	handler MessageHandler
	logger  *zap.Logger
}

// NewConsumerGroup joins the configured consumer group for the revocation topic.
func NewConsumerGroup(cfg config.KafkaSettings, handler MessageHandler, logger *zap.Logger) (*ConsumerGroup, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_5_0_0
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaConfig.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.ConsumerGroup, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer group: %w", err)
	}

	return &ConsumerGroup{
		group:   group,
		topic:   cfg.Topic,
		handler: handler,
		logger:  logger,
	}, nil
}

// Run consumes until the context is cancelled. Rebalances re-enter the loop.
func (g *ConsumerGroup) Run(ctx context.Context) error {
	go func() {
		for err := range g.group.Errors() {
			g.logger.Error("Kafka consumer group error", zap.Error(err))
		}
	}()

	handler := &groupHandler{ctx: ctx, inner: g.handler, logger: g.logger}
	for {
		if err := g.group.Consume(ctx, []string{g.topic}, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return fmt.Errorf("consume: %w", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// Close leaves the consumer group.
func (g *ConsumerGroup) Close() error {
	return g.group.Close()
}

type groupHandler struct {
	ctx    context.Context
	inner  MessageHandler
	logger *zap.Logger
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		if err := h.inner.HandleMessage(h.ctx, msg); err != nil {
			h.logger.Warn("handle consumed message",
				zap.Error(err),
				zap.String("topic", msg.Topic),
				zap.Int64("offset", msg.Offset),
			)
		}
		session.MarkMessage(msg, "")
	}
	return nil
}
