package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const taskIndexLpToken = "indexLpToken"

// LpTokenTask defers resolving a pair's new pool-token identifier to an
// out-of-band indexer, since the token's metadata is not yet available when
// the field first changes on-chain.
type LpTokenTask struct {
	Task        string `json:"task"`
	PairAddress string `json:"pairAddress"`
}

// Publisher emits the two side channels: durable LP-token indexing tasks on
// JetStream, and best-effort price-update broadcasts on core NATS.
type Publisher struct {
	nc           *nats.Conn
	js           jetstream.JetStream
	taskSubject  string
	priceSubject string
}

func NewPublisher(nc *nats.Conn, js jetstream.JetStream, taskSubject, priceSubject string) *Publisher {
	return &Publisher{
		nc:           nc,
		js:           js,
		taskSubject:  taskSubject,
		priceSubject: priceSubject,
	}
}

// EnqueueLpTokenTask publishes one deferred indexing task for the pair.
func (p *Publisher) EnqueueLpTokenTask(ctx context.Context, pairAddress string) error {
	payload, err := MarshalLpTokenTask(pairAddress)
	if err != nil {
		return err
	}
	if _, err := p.js.Publish(ctx, p.taskSubject, payload); err != nil {
		return fmt.Errorf("publish lp token task: %w", err)
	}
	return nil
}

// PublishPriceUpdates broadcasts [identifier, newPriceUSD] pairs to live
// subscribers. Fire-and-forget; a dropped notification is corrected by the
// next one.
func (p *Publisher) PublishPriceUpdates(updates [][2]string) error {
	if len(updates) == 0 {
		return nil
	}
	payload, err := json.Marshal(updates)
	if err != nil {
		return fmt.Errorf("marshal price updates: %w", err)
	}
	if err := p.nc.Publish(p.priceSubject, payload); err != nil {
		return fmt.Errorf("publish price updates: %w", err)
	}
	return nil
}

// MarshalLpTokenTask builds the wire form of a deferred indexing task.
func MarshalLpTokenTask(pairAddress string) ([]byte, error) {
	payload, err := json.Marshal(LpTokenTask{Task: taskIndexLpToken, PairAddress: pairAddress})
	if err != nil {
		return nil, fmt.Errorf("marshal lp token task: %w", err)
	}
	return payload, nil
}
