package portfolioService

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mintlite/invest_tracker/data/repository"
	"github.com/mintlite/invest_tracker/internal/events"
	"github.com/mintlite/invest_tracker/internal/model"
	"github.com/mintlite/invest_tracker/internal/service"
	"github.com/mintlite/invest_tracker/internal/valuation"
	"github.com/mintlite/invest_tracker/utils"
	"github.com/shopspring/decimal"
)

func (s *PortfolioService) CreateGoal(ctx context.Context, userID int64, name string, targetAmount decimal.Decimal) (model.Goal, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.CreateGoal"

	slog.Debug("CreateGoal start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	defer func() {
		slog.Debug("CreateGoal finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	}()

	if name == "" || targetAmount.IsNegative() {
		return model.Goal{}, service.ErrInvalidInput
	}

	goal := model.Goal{
		UserID:        userID,
		Name:          name,
		TargetAmount:  targetAmount,
		CurrentAmount: decimal.Zero,
		CreatedAt:     time.Now().UTC(),
	}

	var goalID int64
	err := s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.RegUser(ctx, userID); err != nil {
			return err
		}

		var err error
		goalID, err = s.repo.InsertGoal(ctx, goal)
		return err
	})
	if err != nil {
		slog.Error("got error from repo while creating goal", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Goal{}, err
	}

	goal.ID = goalID

	return goal, nil
}

func (s *PortfolioService) ListGoals(ctx context.Context, userID int64) ([]model.Goal, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.ListGoals"

	goals, err := s.repo.GetGoalsByUser(ctx, userID)
	if err != nil {
		slog.Error("got error from repo.GetGoalsByUser", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	for i := range goals {
		progress, err := valuation.Progress(goals[i].CurrentAmount, goals[i].TargetAmount)
		if err != nil {
			return nil, err
		}
		goals[i].Progress = progress
	}

	return goals, nil
}

// UpdateGoalProgress sets the goal's current amount. Crossing the target
// marks the goal completed once and emits a completion event; later updates
// never re-emit it.
func (s *PortfolioService) UpdateGoalProgress(ctx context.Context, goalID, userID int64, currentAmount decimal.Decimal) (model.Goal, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.UpdateGoalProgress"

	slog.Debug("UpdateGoalProgress start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("goalID", goalID))
	defer func() {
		slog.Debug("UpdateGoalProgress finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("goalID", goalID))
	}()

	if currentAmount.IsNegative() {
		return model.Goal{}, service.ErrInvalidInput
	}

	var goal model.Goal
	var justCompleted bool

	err := s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		goal, err = s.repo.GetGoal(ctx, goalID, userID)
		if err != nil {
			return err
		}

		goal.CurrentAmount = currentAmount

		progress, err := valuation.Progress(goal.CurrentAmount, goal.TargetAmount)
		if err != nil {
			return err
		}
		goal.Progress = progress

		var completedAt *time.Time
		if goal.CompletedAt == nil && !goal.TargetAmount.IsZero() && goal.CurrentAmount.GreaterThanOrEqual(goal.TargetAmount) {
			now := time.Now().UTC()
			completedAt = &now
			goal.CompletedAt = &now
			justCompleted = true
		}

		return s.repo.UpdateGoalProgress(ctx, goalID, userID, currentAmount, completedAt)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Goal{}, service.ErrNotFound
		}
		slog.Error("got error while updating goal progress", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Goal{}, err
	}

	s.publisher.Publish(events.Event{
		Type:    events.TypeGoalProgressUpdated,
		UserID:  userID,
		Payload: goal,
	})

	if justCompleted {
		s.publisher.Publish(events.Event{
			Type:    events.TypeGoalCompleted,
			UserID:  userID,
			Payload: goal,
		})
	}

	return goal, nil
}
