package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Goal is a savings target. Progress is current/target as a percentage,
// computed with the same decimal primitives as holding returns.
type Goal struct {
	ID            int64
	UserID        int64
	Name          string
	TargetAmount  decimal.Decimal
	CurrentAmount decimal.Decimal
	Progress      decimal.Decimal
	CompletedAt   *time.Time
	CreatedAt     time.Time
}
