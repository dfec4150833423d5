package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"reserveScope/internal/model"
)

// Params are the externals pinned for one recomputation pass: the
// reference-currency spot rate in USD and the whitelist of common tokens
// trusted for partial liquidity accounting.
type Params struct {
	UsdRate      decimal.Decimal
	CommonTokens map[string]struct{}
}

// Engine owns the pair/token snapshot and re-derives every dependent value
// from pair-level field changes: instantaneous swap prices, reference-
// currency prices via graph traversal, USD prices, and locked-value
// aggregates. Each pass emits a minimal diff of persisted fields and mutates
// the snapshot in place so the next block observes up-to-date state.
type Engine struct {
	snap           *Snapshot
	anchorTokenID  string
	wrappedTokenID string
	logger         *zap.Logger
}

type passState struct {
	params Params
	memo   map[string]decimal.Decimal
}

func New(snap *Snapshot, anchorTokenID, wrappedTokenID string, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		snap:           snap,
		anchorTokenID:  anchorTokenID,
		wrappedTokenID: wrappedTokenID,
		logger:         logger,
	}
}

// Snapshot exposes the engine's view for resolver and orchestrator use.
func (e *Engine) Snapshot() *Snapshot {
	return e.snap
}

// ApplyChanges runs the incremental path over one block's change sets.
func (e *Engine) ApplyChanges(changes map[string]*model.PairStateChange, params Params) (model.BulkOperations, error) {
	return e.run(changes, params)
}

// RecomputeAll re-derives everything from current reserves, treating every
// pair as freshly changed. Used for periodic correction and cold start; a
// second consecutive run against unchanged reserves yields an empty diff.
func (e *Engine) RecomputeAll(params Params) (model.BulkOperations, error) {
	changes := make(map[string]*model.PairStateChange, len(e.snap.pairs))
	for address := range e.snap.pairs {
		changes[address] = &model.PairStateChange{}
	}
	return e.run(changes, params)
}

func (e *Engine) run(changes map[string]*model.PairStateChange, params Params) (model.BulkOperations, error) {
	var ops model.BulkOperations

	// Every referenced pair and its tokens must already exist; a miss means
	// the snapshot and the chain have diverged, and proceeding would derive
	// wrong prices. Checked before any mutation.
	for address := range changes {
		pair, ok := e.snap.Pair(address)
		if !ok {
			return ops, fmt.Errorf("pair %s missing from snapshot", address)
		}
		if _, ok := e.snap.Token(pair.FirstTokenID); !ok {
			return ops, fmt.Errorf("token %s missing from snapshot", pair.FirstTokenID)
		}
		if _, ok := e.snap.Token(pair.SecondTokenID); !ok {
			return ops, fmt.Errorf("token %s missing from snapshot", pair.SecondTokenID)
		}
	}

	// Step 1: merge incoming fields over the snapshot. Absent fields keep
	// their current value.
	for _, address := range sortedChangeKeys(changes) {
		change := changes[address]
		if !change.HasMergeableFields() {
			continue
		}
		pair, _ := e.snap.Pair(address)
		if change.Reserve0 != nil {
			pair.Info.Reserve0 = change.Reserve0.String()
		}
		if change.Reserve1 != nil {
			pair.Info.Reserve1 = change.Reserve1.String()
		}
		if change.PoolTokenSupply != nil {
			pair.Info.PoolTokenSupply = change.PoolTokenSupply.String()
		}
		if change.State != nil {
			pair.State = *change.State
		}
		if change.TotalFeePercent != nil {
			pair.TotalFeePercent = change.TotalFeePercent.String()
		}
		if change.SpecialFeePercent != nil {
			pair.SpecialFeePercent = change.SpecialFeePercent.String()
		}
	}

	// Step 2: reference-currency prices for every non-LP token. The memo
	// spans the pass; the visited set is fresh per derivation so no pair is
	// walked twice within one token's branch.
	ps := &passState{params: params, memo: make(map[string]decimal.Decimal)}
	derived := make(map[string]decimal.Decimal)
	for _, id := range e.snap.TokenIDs() {
		token, _ := e.snap.Token(id)
		if token.Type == model.TokenLp {
			continue
		}
		price, err := e.derivedPrice(id, ps, make(map[string]struct{}))
		if err != nil {
			return ops, err
		}
		derived[id] = price
	}

	// Step 3: USD prices.
	usd := make(map[string]decimal.Decimal, len(derived))
	for id, price := range derived {
		usd[id] = price.Mul(params.UsdRate)
	}

	// Step 4: locked-value aggregation and pool-token pricing.
	values, liquidity, lpPrices, err := e.aggregate(params, usd)
	if err != nil {
		return ops, err
	}

	// Step 5: minimal diff emission, mutating the snapshot as fields are
	// compared so this pass's outputs become the next pass's inputs.
	for _, address := range e.snap.Addresses() {
		pair, _ := e.snap.Pair(address)
		change, affected := changes[address]
		dirty := affected && change.HasMergeableFields()

		diff := model.PairDiff{Address: address}
		changed := false

		if dirty {
			echoMergedFields(&diff, pair, change)
			changed = true
		}

		if affected {
			first, _ := e.snap.Token(pair.FirstTokenID)
			second, _ := e.snap.Token(pair.SecondTokenID)
			reserve0 := parseDec(pair.Info.Reserve0)
			reserve1 := parseDec(pair.Info.Reserve1)
			price0 := quote(reserve0, reserve1, first.Decimals, second.Decimals)
			price1 := quote(reserve1, reserve0, second.Decimals, first.Decimals)
			if dirty {
				// Always written on real changes: cheap and always fresh.
				writeField(&diff.FirstTokenPrice, &pair.FirstTokenPrice, price0)
				writeField(&diff.SecondTokenPrice, &pair.SecondTokenPrice, price1)
			} else {
				changed = diffField(&diff.FirstTokenPrice, &pair.FirstTokenPrice, price0) || changed
				changed = diffField(&diff.SecondTokenPrice, &pair.SecondTokenPrice, price1) || changed
			}
		}

		pv := values[address]
		changed = diffField(&diff.FirstTokenPriceUSD, &pair.FirstTokenPriceUSD, pv.firstUSD) || changed
		changed = diffField(&diff.SecondTokenPriceUSD, &pair.SecondTokenPriceUSD, pv.secondUSD) || changed
		changed = diffField(&diff.FirstTokenLockedValueUSD, &pair.FirstTokenLockedValueUSD, pv.locked0) || changed
		changed = diffField(&diff.SecondTokenLockedValueUSD, &pair.SecondTokenLockedValueUSD, pv.locked1) || changed
		changed = diffField(&diff.LockedValueUSD, &pair.LockedValueUSD, pv.lockedTotal) || changed
		if pv.hasLpPrice {
			changed = diffField(&diff.LiquidityPoolTokenPriceUSD, &pair.LiquidityPoolTokenPriceUSD, pv.lpPrice) || changed
		}

		if changed {
			ops.Pairs = append(ops.Pairs, diff)
		}
	}

	for _, id := range e.snap.TokenIDs() {
		token, _ := e.snap.Token(id)
		diff := model.TokenDiff{Identifier: id}
		changed := false

		if token.Type == model.TokenLp {
			if price, ok := lpPrices[id]; ok {
				changed = diffField(&diff.Price, &token.Price, price)
			}
		} else {
			changed = diffField(&diff.DerivedPrice, &token.DerivedPrice, derived[id]) || changed
			changed = diffField(&diff.Price, &token.Price, usd[id]) || changed
			changed = diffField(&diff.LiquidityUSD, &token.LiquidityUSD, liquidity[id]) || changed
		}

		if changed {
			ops.Tokens = append(ops.Tokens, diff)
		}
	}

	return ops, nil
}

// echoMergedFields copies the fields a change actually carried into the
// emitted diff, in their canonical persisted form.
func echoMergedFields(diff *model.PairDiff, pair *model.Pair, change *model.PairStateChange) {
	if change.Reserve0 != nil {
		v := pair.Info.Reserve0
		diff.Reserve0 = &v
	}
	if change.Reserve1 != nil {
		v := pair.Info.Reserve1
		diff.Reserve1 = &v
	}
	if change.PoolTokenSupply != nil {
		v := pair.Info.PoolTokenSupply
		diff.PoolTokenSupply = &v
	}
	if change.State != nil {
		state := pair.State
		diff.State = &state
	}
	if change.TotalFeePercent != nil {
		v := pair.TotalFeePercent
		diff.TotalFeePercent = &v
	}
	if change.SpecialFeePercent != nil {
		v := pair.SpecialFeePercent
		diff.SpecialFeePercent = &v
	}
}

// writeField unconditionally records the value in both snapshot and diff.
func writeField(slot **string, current *string, next decimal.Decimal) {
	text := next.String()
	*slot = &text
	*current = text
}
