package dbModel

import (
	"time"

	"github.com/shopspring/decimal"
)

type Goal struct {
	ID            int64           `db:"goal_id"`
	UserID        int64           `db:"user_id"`
	Name          string          `db:"name"`
	TargetAmount  decimal.Decimal `db:"target_amount"`
	CurrentAmount decimal.Decimal `db:"current_amount"`
	CompletedAt   *time.Time      `db:"dt_completed"`
	CreatedAt     time.Time       `db:"dt_create"`
}
