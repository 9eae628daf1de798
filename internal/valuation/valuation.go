// Package valuation holds the pure arithmetic behind holding and portfolio
// figures. Everything is shopspring decimal end to end: prices and quantities
// never pass through float64, so repeated recomputation cannot drift.
package valuation

import (
	"github.com/mintlite/invest_tracker/internal/model"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// MarketValue returns quantity * currentPrice rounded to 2 decimal places
// with banker's rounding. Zero quantity yields exactly 0 whatever the price.
func MarketValue(quantity, currentPrice decimal.Decimal) (decimal.Decimal, error) {
	if quantity.IsNegative() || currentPrice.IsNegative() {
		return decimal.Decimal{}, ErrInvalidInput
	}

	if quantity.IsZero() {
		return decimal.Zero, nil
	}

	return quantity.Mul(currentPrice).RoundBank(2), nil
}

// UnrealizedGain returns marketValue - costBasis. With a zero cost basis the
// whole market value is gain, since nothing was paid for the position.
func UnrealizedGain(marketValue, costBasis decimal.Decimal) (decimal.Decimal, error) {
	if marketValue.IsNegative() || costBasis.IsNegative() {
		return decimal.Decimal{}, ErrInvalidInput
	}

	return marketValue.Sub(costBasis), nil
}

// ReturnPercentage returns (unrealizedGain / costBasis) * 100 rounded to
// 2 decimal places. A zero cost basis yields exactly 0 rather than a division
// error; note the asymmetry with UnrealizedGain, which reports the full
// market value as gain in that case.
func ReturnPercentage(unrealizedGain, costBasis decimal.Decimal) (decimal.Decimal, error) {
	if costBasis.IsNegative() {
		return decimal.Decimal{}, ErrInvalidInput
	}

	if costBasis.IsZero() {
		return decimal.Zero, nil
	}

	return unrealizedGain.Div(costBasis).Mul(hundred).RoundBank(2), nil
}

// Revalue recomputes the derived fields of a holding from its quantity, cost
// basis and current price.
func Revalue(h *model.Holding) error {
	marketValue, err := MarketValue(h.Quantity, h.CurrentPrice)
	if err != nil {
		return err
	}

	gain, err := UnrealizedGain(marketValue, h.CostBasis)
	if err != nil {
		return err
	}

	returnPct, err := ReturnPercentage(gain, h.CostBasis)
	if err != nil {
		return err
	}

	h.MarketValue = marketValue
	h.UnrealizedGain = gain
	h.ReturnPercentage = returnPct

	return nil
}

// PortfolioValue sums the per-holding market values. It accumulates the
// already-rounded values, so the total always equals the sum of the figures
// shown for the individual holdings.
func PortfolioValue(holdings []model.Holding) (decimal.Decimal, error) {
	total := decimal.Zero

	for _, h := range holdings {
		marketValue, err := MarketValue(h.Quantity, h.CurrentPrice)
		if err != nil {
			return decimal.Decimal{}, err
		}
		total = total.Add(marketValue)
	}

	return total, nil
}

// PortfolioReturn returns the aggregate gain over all holdings and that gain
// as a percentage of the total cost basis. Aggregating before dividing keeps
// large positions weighted correctly; averaging per-holding percentages would
// not.
func PortfolioReturn(holdings []model.Holding) (model.PortfolioReturn, error) {
	totalGain := decimal.Zero
	totalCostBasis := decimal.Zero

	for _, h := range holdings {
		marketValue, err := MarketValue(h.Quantity, h.CurrentPrice)
		if err != nil {
			return model.PortfolioReturn{}, err
		}

		gain, err := UnrealizedGain(marketValue, h.CostBasis)
		if err != nil {
			return model.PortfolioReturn{}, err
		}

		totalGain = totalGain.Add(gain)
		totalCostBasis = totalCostBasis.Add(h.CostBasis)
	}

	percentage, err := ReturnPercentage(totalGain, totalCostBasis)
	if err != nil {
		return model.PortfolioReturn{}, err
	}

	return model.PortfolioReturn{Amount: totalGain, Percentage: percentage}, nil
}

// Progress returns current/target as a percentage rounded to 2 decimal
// places, used for goal tracking. A zero target yields 0.
func Progress(current, target decimal.Decimal) (decimal.Decimal, error) {
	if current.IsNegative() || target.IsNegative() {
		return decimal.Decimal{}, ErrInvalidInput
	}

	if target.IsZero() {
		return decimal.Zero, nil
	}

	return current.Div(target).Mul(hundred).RoundBank(2), nil
}
