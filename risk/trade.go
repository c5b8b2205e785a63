package risk

import "github.com/shopspring/decimal"

// TradeAction is the direction of a proposed order.
type TradeAction string

const (
	Buy  TradeAction = "BUY"
	Sell TradeAction = "SELL"
)

// ProposedTrade describes an order the strategy layer wants to place.
// It is ephemeral; one is built per pre-trade check.
type ProposedTrade struct {
	Symbol     string
	Action     TradeAction
	Premium    decimal.Decimal // per-contract premium
	Multiplier int             // contract multiplier, 100 for standard options
	Quantity   int
	StopPct    decimal.Decimal // stop-loss as a fraction of entry, e.g. 0.25
	IsClosing  bool
}

// Cost is the total dollar outlay of the proposed trade.
func (t ProposedTrade) Cost() decimal.Decimal {
	return t.Premium.Mul(decimal.NewFromInt(int64(t.Multiplier))).
		Mul(decimal.NewFromInt(int64(t.Quantity)))
}

// OpenPosition is the slice of broker/portfolio state the engine reads.
// The engine never owns position lifecycle; callers supply these.
type OpenPosition struct {
	Symbol        string
	CostBasis     decimal.Decimal
	DaysToExpiry  int
	UnrealizedPct decimal.Decimal
}
