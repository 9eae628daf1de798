package model

import (
	"github.com/shopspring/decimal"
)

// PortfolioSummary is a computed view over all holdings of one user, never
// persisted. TotalValue is the sum of already-rounded per-holding market
// values so that it always matches what the holdings list displays.
type PortfolioSummary struct {
	TotalValue       decimal.Decimal
	TotalCostBasis   decimal.Decimal
	TotalGain        decimal.Decimal
	ReturnPercentage decimal.Decimal
	HoldingsCount    int
}

type PortfolioReturn struct {
	Amount     decimal.Decimal
	Percentage decimal.Decimal
}
