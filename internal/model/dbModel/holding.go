package dbModel

import (
	"time"

	"github.com/shopspring/decimal"
)

type Holding struct {
	ID               string          `db:"holding_id"`
	UserID           int64           `db:"user_id"`
	AccountID        int64           `db:"account_id"`
	Symbol           string          `db:"symbol"`
	Name             string          `db:"name"`
	AssetClass       string          `db:"asset_class"`
	Quantity         decimal.Decimal `db:"quantity"`
	CostBasis        decimal.Decimal `db:"cost_basis"`
	CurrentPrice     decimal.Decimal `db:"current_price"`
	MarketValue      decimal.Decimal `db:"market_value"`
	UnrealizedGain   decimal.Decimal `db:"unrealized_gain"`
	ReturnPercentage decimal.Decimal `db:"return_percentage"`
	PriceUpdatedAt   time.Time       `db:"price_updated_at"`
	Version          int64           `db:"version"`
}
