package syncer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"reserveScope/internal/decoder"
	"reserveScope/internal/engine"
	"reserveScope/internal/model"
	"reserveScope/internal/pricefeed"
	"reserveScope/internal/queue"
)

// PersistentStore is the document-store surface the orchestrator needs.
type PersistentStore interface {
	LoadPairs(ctx context.Context) ([]model.Pair, error)
	LoadTokens(ctx context.Context) ([]model.Token, error)
	ApplyBulk(ctx context.Context, ops model.BulkOperations) error
	CommonTokens(ctx context.Context) ([]string, error)
}

// SidePublisher emits deferred LP-token tasks and price broadcasts.
type SidePublisher interface {
	EnqueueLpTokenTask(ctx context.Context, pairAddress string) error
	PublishPriceUpdates(updates [][2]string) error
}

// Config holds runtime settings for the orchestrator.
type Config struct {
	ShardID           uint32
	AnchorTokenID     string
	WrappedTokenID    string
	RecomputeInterval time.Duration
}

// Orchestrator drives per-block processing: extract field changes, run the
// engine, apply the resulting operations, and handle the side channels.
// Blocks are handled strictly one at a time because the snapshot is mutated
// in place.
type Orchestrator struct {
	cfg       Config
	store     PersistentStore
	rates     pricefeed.RateProvider
	publisher SidePublisher
	logger    *zap.Logger

	engine    *engine.Engine
	extractor *decoder.Extractor

	lastRate      decimal.Decimal
	lastWhitelist []string
}

func New(cfg Config, store PersistentStore, rates pricefeed.RateProvider, publisher SidePublisher, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		cfg:       cfg,
		store:     store,
		rates:     rates,
		publisher: publisher,
		logger:    logger,
	}
}

// LoadSnapshot populates the in-memory view from persistence. Called once
// before Run.
func (o *Orchestrator) LoadSnapshot(ctx context.Context) error {
	if o.store == nil {
		return fmt.Errorf("store is nil")
	}

	pairs, err := o.store.LoadPairs(ctx)
	if err != nil {
		return fmt.Errorf("load pairs: %w", err)
	}
	tokens, err := o.store.LoadTokens(ctx)
	if err != nil {
		return fmt.Errorf("load tokens: %w", err)
	}

	snap := engine.NewSnapshot(pairs, tokens)
	o.engine = engine.New(snap, o.cfg.AnchorTokenID, o.cfg.WrappedTokenID, o.logger)
	o.extractor = decoder.NewExtractor(o.cfg.ShardID, snap, o.logger)

	o.logger.Info("snapshot loaded", zap.Int("pairs", len(pairs)), zap.Int("tokens", len(tokens)))
	return nil
}

// Run consumes block messages sequentially until the context ends. A failed
// block is negatively acknowledged for redelivery; everything else is acked,
// including no-op blocks.
func (o *Orchestrator) Run(ctx context.Context, messages <-chan queue.BlockMessage) error {
	if o.engine == nil {
		return fmt.Errorf("snapshot not loaded")
	}

	var recomputeTick <-chan time.Time
	if o.cfg.RecomputeInterval > 0 {
		ticker := time.NewTicker(o.cfg.RecomputeInterval)
		defer ticker.Stop()
		recomputeTick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-recomputeTick:
			if err := o.RecomputeOnce(ctx); err != nil {
				o.logger.Error("periodic recompute", zap.Error(err))
			}
		case msg := <-messages:
			if err := o.processBlock(ctx, msg.Event); err != nil {
				o.logger.Error("process block",
					zap.String("hash", msg.Event.Hash),
					zap.Uint64("nonce", msg.Event.Nonce),
					zap.Error(err),
				)
				msg.Nak()
				continue
			}
			msg.Ack()
		}
	}
}

func (o *Orchestrator) processBlock(ctx context.Context, event *model.BlockStateEvent) error {
	if event == nil || event.ShardID != o.cfg.ShardID {
		return nil
	}
	if !event.HasTrieChanges() {
		return nil
	}

	changes := o.extractor.Extract(event)
	if len(changes) == 0 {
		return nil
	}

	// Pool-token identifier changes are handed to the out-of-band indexer
	// instead of being applied; one task per occurrence.
	for _, address := range sortedAddresses(changes) {
		if changes[address].PoolTokenID == nil {
			continue
		}
		if err := o.publisher.EnqueueLpTokenTask(ctx, address); err != nil {
			o.logger.Warn("enqueue lp token task", zap.String("pair", address), zap.Error(err))
		}
	}

	ops, err := o.engine.ApplyChanges(changes, o.passParams(ctx))
	if err != nil {
		return err
	}

	o.applyOps(ctx, ops)

	o.logger.Info("block processed",
		zap.String("hash", event.Hash),
		zap.Uint64("nonce", event.Nonce),
		zap.Int("pairs_changed", len(changes)),
		zap.Int("pair_ops", len(ops.Pairs)),
		zap.Int("token_ops", len(ops.Tokens)),
	)
	return nil
}

// RecomputeOnce runs one full recomputation pass over current reserves.
func (o *Orchestrator) RecomputeOnce(ctx context.Context) error {
	if o.engine == nil {
		return fmt.Errorf("snapshot not loaded")
	}

	ops, err := o.engine.RecomputeAll(o.passParams(ctx))
	if err != nil {
		return err
	}

	o.applyOps(ctx, ops)

	o.logger.Info("full recompute complete",
		zap.Int("pair_ops", len(ops.Pairs)),
		zap.Int("token_ops", len(ops.Tokens)),
	)
	return nil
}

// applyOps writes the pass's diff to persistence and broadcasts price
// changes. Write failures do not abort the block: the snapshot already holds
// the new values and the next pass or full recompute reconciles the store.
func (o *Orchestrator) applyOps(ctx context.Context, ops model.BulkOperations) {
	if ops.Empty() {
		return
	}

	if err := o.store.ApplyBulk(ctx, ops); err != nil {
		o.logger.Warn("apply bulk operations", zap.Error(err))
	}

	if updates := ops.PriceUpdates(); len(updates) > 0 {
		if err := o.publisher.PublishPriceUpdates(updates); err != nil {
			o.logger.Warn("publish price updates", zap.Error(err))
		}
	}
}

// passParams fetches the per-pass externals concurrently. Either fetch
// failing degrades to the previous pass's value rather than stalling the
// block.
func (o *Orchestrator) passParams(ctx context.Context) engine.Params {
	rate := o.lastRate
	whitelist := o.lastWhitelist

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		fetched, err := o.rates.UsdRate(groupCtx)
		if err != nil {
			o.logger.Warn("spot rate unavailable, using previous value", zap.Error(err))
			return nil
		}
		rate = fetched
		return nil
	})
	group.Go(func() error {
		fetched, err := o.store.CommonTokens(groupCtx)
		if err != nil {
			o.logger.Warn("common tokens unavailable, using previous list", zap.Error(err))
			return nil
		}
		whitelist = fetched
		return nil
	})
	_ = group.Wait()

	o.lastRate = rate
	o.lastWhitelist = whitelist
	return engine.Params{
		UsdRate:      rate,
		CommonTokens: engine.CommonTokenSet(whitelist),
	}
}

func sortedAddresses(changes map[string]*model.PairStateChange) []string {
	addresses := make([]string, 0, len(changes))
	for address := range changes {
		addresses = append(addresses, address)
	}
	sort.Strings(addresses)
	return addresses
}
