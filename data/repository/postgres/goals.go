package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/mintlite/invest_tracker/data/repository"
	"github.com/mintlite/invest_tracker/internal/converter/dbConverter"
	"github.com/mintlite/invest_tracker/internal/model"
	"github.com/mintlite/invest_tracker/internal/model/dbModel"
	"github.com/mintlite/invest_tracker/utils"
	"github.com/shopspring/decimal"
)

func (r *Postgres) InsertGoal(ctx context.Context, g model.Goal) (goalID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertGoal"
	query := `
		INSERT INTO goals(user_id, name, target_amount, current_amount)
		VALUES($1, $2, $3, $4)
		RETURNING goal_id
		`

	slog.Debug("InsertGoal start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("InsertGoal failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertGoal completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, g.UserID, g.Name, g.TargetAmount, g.CurrentAmount).Scan(&goalID)
	if err != nil {
		return 0, err
	}

	return goalID, nil
}

func (r *Postgres) GetGoal(ctx context.Context, goalID, userID int64) (goal model.Goal, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetGoal"
	query := `
		SELECT goal_id, user_id, name, target_amount, current_amount, dt_completed, dt_create
		FROM goals
		WHERE goal_id = $1
		AND user_id = $2
		`

	slog.Debug("GetGoal start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetGoal failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetGoal completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	dbGoal := dbModel.Goal{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, goalID, userID).StructScan(&dbGoal)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Goal{}, repository.ErrNotFound
		}
		return model.Goal{}, err
	}

	return dbConverter.ConvertGoal(dbGoal), nil
}

func (r *Postgres) GetGoalsByUser(ctx context.Context, userID int64) (goals []model.Goal, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetGoalsByUser"
	query := `
		SELECT goal_id, user_id, name, target_amount, current_amount, dt_completed, dt_create
		FROM goals
		WHERE user_id = $1
		ORDER BY goal_id
		`

	slog.Debug("GetGoalsByUser start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetGoalsByUser failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetGoalsByUser completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	goals = make([]model.Goal, 0)
	for rows.Next() {
		var dbGoal dbModel.Goal
		err = rows.StructScan(&dbGoal)
		if err != nil {
			return nil, err
		}
		goals = append(goals, dbConverter.ConvertGoal(dbGoal))
	}

	return goals, nil
}

func (r *Postgres) UpdateGoalProgress(ctx context.Context, goalID, userID int64, currentAmount decimal.Decimal, completedAt *time.Time) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpdateGoalProgress"
	params := map[string]any{
		"goalID": goalID,
		"userID": userID,
	}
	query := `
		UPDATE goals
		SET
			current_amount = $1,
			dt_completed = COALESCE(dt_completed, $2)
		WHERE
			goal_id = $3
			AND user_id = $4
		`

	slog.Debug("UpdateGoalProgress start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Any("params", params))
	defer func() {
		if err != nil {
			slog.Error("UpdateGoalProgress failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateGoalProgress completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, currentAmount, completedAt, goalID, userID)
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
