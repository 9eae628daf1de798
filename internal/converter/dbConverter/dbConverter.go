package dbConverter

import (
	"github.com/mintlite/invest_tracker/internal/model"
	"github.com/mintlite/invest_tracker/internal/model/dbModel"
)

func ConvertHolding(dbHolding dbModel.Holding) model.Holding {
	return model.Holding{
		ID:               dbHolding.ID,
		UserID:           dbHolding.UserID,
		AccountID:        dbHolding.AccountID,
		Symbol:           dbHolding.Symbol,
		Name:             dbHolding.Name,
		AssetClass:       model.AssetClass(dbHolding.AssetClass),
		Quantity:         dbHolding.Quantity,
		CostBasis:        dbHolding.CostBasis,
		CurrentPrice:     dbHolding.CurrentPrice,
		MarketValue:      dbHolding.MarketValue,
		UnrealizedGain:   dbHolding.UnrealizedGain,
		ReturnPercentage: dbHolding.ReturnPercentage,
		PriceUpdatedAt:   dbHolding.PriceUpdatedAt,
		Version:          dbHolding.Version,
	}
}

func ConvertGoal(dbGoal dbModel.Goal) model.Goal {
	return model.Goal{
		ID:            dbGoal.ID,
		UserID:        dbGoal.UserID,
		Name:          dbGoal.Name,
		TargetAmount:  dbGoal.TargetAmount,
		CurrentAmount: dbGoal.CurrentAmount,
		CompletedAt:   dbGoal.CompletedAt,
		CreatedAt:     dbGoal.CreatedAt,
	}
}
