package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type AssetClass string

const (
	AssetClassStock  AssetClass = "stock"
	AssetClassETF    AssetClass = "etf"
	AssetClassCrypto AssetClass = "crypto"
	AssetClassBond   AssetClass = "bond"
)

func (a AssetClass) Valid() bool {
	switch a {
	case AssetClassStock, AssetClassETF, AssetClassCrypto, AssetClassBond:
		return true
	}
	return false
}

// Holding is one recorded investment position. MarketValue, UnrealizedGain and
// ReturnPercentage are derived from the other fields and recomputed on every
// write, never accepted from a client.
type Holding struct {
	ID               string
	UserID           int64
	AccountID        int64
	Symbol           string
	Name             string
	AssetClass       AssetClass
	Quantity         decimal.Decimal
	CostBasis        decimal.Decimal
	CurrentPrice     decimal.Decimal
	MarketValue      decimal.Decimal
	UnrealizedGain   decimal.Decimal
	ReturnPercentage decimal.Decimal
	PriceUpdatedAt   time.Time
	Version          int64
}
