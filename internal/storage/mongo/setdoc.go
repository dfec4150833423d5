package mongo

import (
	"go.mongodb.org/mongo-driver/bson"

	"reserveScope/internal/model"
)

// PairSetDoc builds the $set document for a pair diff, mapping only the
// fields the pass changed.
func PairSetDoc(diff model.PairDiff) bson.M {
	doc := bson.M{}
	setString(doc, "info.reserves0", diff.Reserve0)
	setString(doc, "info.reserves1", diff.Reserve1)
	setString(doc, "info.totalSupply", diff.PoolTokenSupply)
	if diff.State != nil {
		doc["state"] = int32(*diff.State)
	}
	setString(doc, "totalFeePercent", diff.TotalFeePercent)
	setString(doc, "specialFeePercent", diff.SpecialFeePercent)
	setString(doc, "firstTokenPrice", diff.FirstTokenPrice)
	setString(doc, "secondTokenPrice", diff.SecondTokenPrice)
	setString(doc, "firstTokenPriceUSD", diff.FirstTokenPriceUSD)
	setString(doc, "secondTokenPriceUSD", diff.SecondTokenPriceUSD)
	setString(doc, "firstTokenLockedValueUSD", diff.FirstTokenLockedValueUSD)
	setString(doc, "secondTokenLockedValueUSD", diff.SecondTokenLockedValueUSD)
	setString(doc, "lockedValueUSD", diff.LockedValueUSD)
	setString(doc, "liquidityPoolTokenPriceUSD", diff.LiquidityPoolTokenPriceUSD)
	return doc
}

// TokenSetDoc builds the $set document for a token diff.
func TokenSetDoc(diff model.TokenDiff) bson.M {
	doc := bson.M{}
	setString(doc, "price", diff.Price)
	setString(doc, "derivedPrice", diff.DerivedPrice)
	setString(doc, "liquidityUSD", diff.LiquidityUSD)
	return doc
}

func setString(doc bson.M, key string, value *string) {
	if value != nil {
		doc[key] = *value
	}
}
