package model

import (
	"github.com/shopspring/decimal"
)

type RefreshStatus string

const (
	RefreshStatusUpdated RefreshStatus = "updated"
	RefreshStatusFailed  RefreshStatus = "failed"
)

// RefreshResult is the outcome of one holding's price refresh. A failed
// holding keeps its previously stored price.
type RefreshResult struct {
	HoldingID string
	Symbol    string
	Status    RefreshStatus
	NewPrice  decimal.Decimal
	Reason    string
}

// RefreshReport aggregates per-holding outcomes of a bulk refresh. Partial
// success is expected: Updated + Failed == Total.
type RefreshReport struct {
	Total   int
	Updated int
	Failed  int
	Results []RefreshResult
}
