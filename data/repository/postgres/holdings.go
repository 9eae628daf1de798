package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/mintlite/invest_tracker/data/repository"
	"github.com/mintlite/invest_tracker/internal/converter/dbConverter"
	"github.com/mintlite/invest_tracker/internal/model"
	"github.com/mintlite/invest_tracker/internal/model/dbModel"
	"github.com/mintlite/invest_tracker/utils"
)

// Every user-scoped query joins through accounts so that a holding id from
// another user's account behaves exactly like a missing row.

func (r *Postgres) InsertHolding(ctx context.Context, h model.Holding) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertHolding"
	query := `
		INSERT INTO holdings(
			holding_id, account_id, symbol, name, asset_class,
			quantity, cost_basis, current_price,
			market_value, unrealized_gain, return_percentage, price_updated_at
		)
		SELECT $1, a.account_id, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		FROM accounts a
		WHERE a.account_id = $12 AND a.user_id = $13
		`

	slog.Debug("InsertHolding start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("InsertHolding failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertHolding completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(
		ctx,
		query,
		h.ID,
		h.Symbol,
		h.Name,
		string(h.AssetClass),
		h.Quantity,
		h.CostBasis,
		h.CurrentPrice,
		h.MarketValue,
		h.UnrealizedGain,
		h.ReturnPercentage,
		h.PriceUpdatedAt,
		h.AccountID,
		h.UserID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation
				return repository.ErrAlreadyExists
			}
		}
		return err
	}

	// zero rows means the account does not exist or belongs to another user
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *Postgres) GetHolding(ctx context.Context, holdingID string, userID int64) (holding model.Holding, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetHolding"
	query := `
		SELECT h.holding_id, a.user_id, h.account_id, h.symbol, h.name, h.asset_class,
			h.quantity, h.cost_basis, h.current_price,
			h.market_value, h.unrealized_gain, h.return_percentage,
			h.price_updated_at, h.version
		FROM holdings h
		JOIN accounts a USING(account_id)
		WHERE h.holding_id = $1
		AND a.user_id = $2
		`

	slog.Debug("GetHolding start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetHolding failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetHolding completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	dbHolding := dbModel.Holding{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, holdingID, userID).StructScan(&dbHolding)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Holding{}, repository.ErrNotFound
		}
		return model.Holding{}, err
	}

	return dbConverter.ConvertHolding(dbHolding), nil
}

func (r *Postgres) GetHoldingsByUser(ctx context.Context, userID int64) (holdings []model.Holding, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetHoldingsByUser"
	query := `
		SELECT h.holding_id, a.user_id, h.account_id, h.symbol, h.name, h.asset_class,
			h.quantity, h.cost_basis, h.current_price,
			h.market_value, h.unrealized_gain, h.return_percentage,
			h.price_updated_at, h.version
		FROM holdings h
		JOIN accounts a USING(account_id)
		WHERE a.user_id = $1
		ORDER BY h.symbol
		`

	slog.Debug("GetHoldingsByUser start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetHoldingsByUser failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetHoldingsByUser completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	holdings = make([]model.Holding, 0)
	for rows.Next() {
		var dbHolding dbModel.Holding
		err = rows.StructScan(&dbHolding)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, dbConverter.ConvertHolding(dbHolding))
	}

	return holdings, nil
}

// UpdateHoldingValuation writes the holding's numeric fields and derived
// columns in one statement guarded by an optimistic version check. Zero rows
// affected means a concurrent writer got there first.
func (r *Postgres) UpdateHoldingValuation(ctx context.Context, h model.Holding) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpdateHoldingValuation"
	params := map[string]any{
		"holdingID": h.ID,
		"version":   h.Version,
	}
	query := `
		UPDATE holdings
		SET
			name = $1,
			quantity = $2,
			cost_basis = $3,
			current_price = $4,
			market_value = $5,
			unrealized_gain = $6,
			return_percentage = $7,
			price_updated_at = $8,
			version = version + 1
		WHERE
			holding_id = $9
			AND version = $10
		`

	slog.Debug("UpdateHoldingValuation start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Any("params", params))
	defer func() {
		if err != nil {
			slog.Error("UpdateHoldingValuation failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateHoldingValuation completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(
		ctx,
		query,
		h.Name,
		h.Quantity,
		h.CostBasis,
		h.CurrentPrice,
		h.MarketValue,
		h.UnrealizedGain,
		h.ReturnPercentage,
		h.PriceUpdatedAt,
		h.ID,
		h.Version,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrConflict
	}

	return nil
}

func (r *Postgres) DeleteHolding(ctx context.Context, holdingID string, userID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.DeleteHolding"
	params := map[string]any{
		"holdingID": holdingID,
		"userID":    userID,
	}
	query := `
		DELETE FROM holdings h
		USING accounts a
		WHERE h.account_id = a.account_id
		AND h.holding_id = $1
		AND a.user_id = $2
		`

	slog.Debug("DeleteHolding start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Any("params", params))
	defer func() {
		if err != nil {
			slog.Error("DeleteHolding failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteHolding completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, holdingID, userID)
	if err != nil {
		return err
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// GetActiveSymbols returns every symbol currently held by anyone, for the
// quote cache warmer.
func (r *Postgres) GetActiveSymbols(ctx context.Context) (symbols []string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetActiveSymbols"
	query := `
		SELECT DISTINCT symbol FROM holdings
		ORDER BY symbol
		`

	slog.Debug("GetActiveSymbols start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetActiveSymbols failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetActiveSymbols completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).SelectContext(ctx, &symbols, query)
	if err != nil {
		return nil, err
	}

	return symbols, nil
}

// GetActiveUserIDs returns every user owning at least one holding, for the
// scheduled bulk price refresh.
func (r *Postgres) GetActiveUserIDs(ctx context.Context) (userIDs []int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetActiveUserIDs"
	query := `
		SELECT DISTINCT a.user_id
		FROM holdings h
		JOIN accounts a USING(account_id)
		ORDER BY a.user_id
		`

	slog.Debug("GetActiveUserIDs start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetActiveUserIDs failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetActiveUserIDs completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).SelectContext(ctx, &userIDs, query)
	if err != nil {
		return nil, err
	}

	return userIDs, nil
}
