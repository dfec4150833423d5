package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"reserveScope/internal/model"
)

// BlockMessage wraps one block-state event with its delivery controls. Ack
// confirms consumption; Nak requests redelivery, which is safe because
// re-applying the same reserve values is idempotent.
type BlockMessage struct {
	Event *model.BlockStateEvent
	Ack   func()
	Nak   func()
}

// Consumer delivers block-state events from JetStream into a channel read by
// a single goroutine. MaxAckPending of one enforces the sequential model:
// a block is fully processed and acknowledged before the next is delivered.
type Consumer struct {
	js         jetstream.JetStream
	stream     string
	subject    string
	durable    string
	logger     *zap.Logger
	consumeCtx jetstream.ConsumeContext
}

// ConnectNATS establishes a NATS connection and returns a JetStream context.
func ConnectNATS(url string, logger *zap.Logger) (*nats.Conn, jetstream.JetStream, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream: %w", err)
	}
	return nc, js, nil
}

func NewConsumer(js jetstream.JetStream, stream, subject, durable string, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{
		js:      js,
		stream:  stream,
		subject: subject,
		durable: durable,
		logger:  logger,
	}
}

// Start creates the durable consumer and begins feeding out. Malformed
// payloads are acknowledged and dropped; redelivering them cannot help.
func (c *Consumer) Start(ctx context.Context, out chan<- BlockMessage) error {
	consumer, err := c.js.CreateOrUpdateConsumer(ctx, c.stream, jetstream.ConsumerConfig{
		Durable:       c.durable,
		FilterSubject: c.subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxAckPending: 1,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", c.durable, err)
	}

	consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
		var event model.BlockStateEvent
		if err := json.Unmarshal(msg.Data(), &event); err != nil {
			c.logger.Warn("malformed block state event", zap.Error(err))
			msg.Ack()
			return
		}

		block := BlockMessage{
			Event: &event,
			Ack:   func() { msg.Ack() },
			Nak:   func() { msg.Nak() },
		}
		select {
		case out <- block:
		case <-ctx.Done():
			msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.durable, err)
	}

	c.consumeCtx = consumeCtx
	c.logger.Info("subscribed to block state events",
		zap.String("stream", c.stream),
		zap.String("subject", c.subject),
		zap.String("durable", c.durable),
	)
	return nil
}

func (c *Consumer) Stop() {
	if c.consumeCtx != nil {
		c.consumeCtx.Stop()
	}
}
