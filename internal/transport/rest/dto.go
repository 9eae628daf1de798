package rest

import (
	"time"

	"github.com/mintlite/invest_tracker/internal/model"
)

type createAccountRequest struct {
	Name string `json:"name" binding:"required"`
}

type createHoldingRequest struct {
	AccountID    int64   `json:"account_id" binding:"required"`
	Symbol       string  `json:"symbol" binding:"required"`
	Name         string  `json:"name"`
	AssetClass   string  `json:"asset_class" binding:"required"`
	Quantity     string  `json:"quantity" binding:"required"`
	CostBasis    string  `json:"cost_basis" binding:"required"`
	CurrentPrice *string `json:"current_price"`
}

type updateHoldingRequest struct {
	Name         *string `json:"name"`
	Quantity     *string `json:"quantity"`
	CostBasis    *string `json:"cost_basis"`
	CurrentPrice *string `json:"current_price"`
}

type createGoalRequest struct {
	Name         string `json:"name" binding:"required"`
	TargetAmount string `json:"target_amount" binding:"required"`
}

type updateGoalProgressRequest struct {
	CurrentAmount string `json:"current_amount" binding:"required"`
}

type holdingResponse struct {
	ID               string    `json:"id"`
	AccountID        int64     `json:"account_id"`
	Symbol           string    `json:"symbol"`
	Name             string    `json:"name"`
	AssetClass       string    `json:"asset_class"`
	Quantity         string    `json:"quantity"`
	CostBasis        string    `json:"cost_basis"`
	CurrentPrice     string    `json:"current_price"`
	MarketValue      string    `json:"market_value"`
	UnrealizedGain   string    `json:"unrealized_gain"`
	ReturnPercentage string    `json:"return_percentage"`
	PriceUpdatedAt   time.Time `json:"price_updated_at"`
}

func toHoldingResponse(h model.Holding) holdingResponse {
	return holdingResponse{
		ID:               h.ID,
		AccountID:        h.AccountID,
		Symbol:           h.Symbol,
		Name:             h.Name,
		AssetClass:       string(h.AssetClass),
		Quantity:         h.Quantity.String(),
		CostBasis:        h.CostBasis.StringFixed(2),
		CurrentPrice:     h.CurrentPrice.StringFixed(2),
		MarketValue:      h.MarketValue.StringFixed(2),
		UnrealizedGain:   h.UnrealizedGain.StringFixed(2),
		ReturnPercentage: h.ReturnPercentage.StringFixed(2),
		PriceUpdatedAt:   h.PriceUpdatedAt,
	}
}

type refreshResultResponse struct {
	HoldingID string `json:"holding_id"`
	Symbol    string `json:"symbol"`
	Status    string `json:"status"`
	NewPrice  string `json:"new_price,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

type refreshReportResponse struct {
	Total   int                     `json:"total"`
	Updated int                     `json:"updated"`
	Failed  int                     `json:"failed"`
	Results []refreshResultResponse `json:"results"`
}

func toRefreshReportResponse(report model.RefreshReport) refreshReportResponse {
	resp := refreshReportResponse{
		Total:   report.Total,
		Updated: report.Updated,
		Failed:  report.Failed,
		Results: make([]refreshResultResponse, 0, len(report.Results)),
	}

	for _, r := range report.Results {
		result := refreshResultResponse{
			HoldingID: r.HoldingID,
			Symbol:    r.Symbol,
			Status:    string(r.Status),
			Reason:    r.Reason,
		}
		if r.Status == model.RefreshStatusUpdated {
			result.NewPrice = r.NewPrice.StringFixed(2)
		}
		resp.Results = append(resp.Results, result)
	}

	return resp
}

type portfolioReturnResponse struct {
	Amount     string `json:"amount"`
	Percentage string `json:"percentage"`
}

type goalResponse struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	TargetAmount  string     `json:"target_amount"`
	CurrentAmount string     `json:"current_amount"`
	Progress      string     `json:"progress"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

func toGoalResponse(g model.Goal) goalResponse {
	return goalResponse{
		ID:            g.ID,
		Name:          g.Name,
		TargetAmount:  g.TargetAmount.StringFixed(2),
		CurrentAmount: g.CurrentAmount.StringFixed(2),
		Progress:      g.Progress.StringFixed(2),
		CompletedAt:   g.CompletedAt,
	}
}
