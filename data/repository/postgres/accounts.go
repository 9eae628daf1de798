package postgres

import (
	"context"
	"log/slog"

	"github.com/mintlite/invest_tracker/utils"
)

func (r *Postgres) RegUser(ctx context.Context, userID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.RegUser"
	query := `INSERT INTO users(user_id) VALUES($1) ON CONFLICT (user_id) DO NOTHING`

	slog.Debug("RegUser start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("RegUser failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("RegUser completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, userID)
	if err != nil {
		return err
	}

	return nil
}

func (r *Postgres) CreateAccount(ctx context.Context, userID int64, name string) (accountID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.CreateAccount"
	query := `INSERT INTO accounts(user_id, name) VALUES($1, $2) RETURNING account_id`

	slog.Debug("CreateAccount start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("CreateAccount failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("CreateAccount completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, userID, name).Scan(&accountID)
	if err != nil {
		return 0, err
	}

	return accountID, nil
}
