package rest

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mintlite/invest_tracker/internal/model"
	"github.com/shopspring/decimal"

	"github.com/mintlite/invest_tracker/internal/service/portfolioService"
)

// PortfolioService is what the REST layer needs from the application core.
type PortfolioService interface {
	RegisterAccount(ctx context.Context, userID int64, name string) (int64, error)
	CreateHolding(ctx context.Context, userID int64, params portfolioService.CreateHoldingParams) (model.Holding, error)
	GetHolding(ctx context.Context, holdingID string, userID int64) (model.Holding, error)
	ListHoldings(ctx context.Context, userID int64) ([]model.Holding, error)
	UpdateHolding(ctx context.Context, holdingID string, userID int64, params portfolioService.UpdateHoldingParams) (model.Holding, error)
	DeleteHolding(ctx context.Context, holdingID string, userID int64) error
	GetPortfolioValue(ctx context.Context, userID int64) (decimal.Decimal, error)
	GetPortfolioReturn(ctx context.Context, userID int64) (model.PortfolioReturn, error)
	RefreshPrices(ctx context.Context, userID int64) (model.RefreshReport, error)
	GenerateReport(ctx context.Context, userID int64) ([]byte, string, error)
	CreateGoal(ctx context.Context, userID int64, name string, targetAmount decimal.Decimal) (model.Goal, error)
	ListGoals(ctx context.Context, userID int64) ([]model.Goal, error)
	UpdateGoalProgress(ctx context.Context, goalID, userID int64, currentAmount decimal.Decimal) (model.Goal, error)
}

type Controller struct {
	portfolioService PortfolioService
}

func NewController(portfolioService PortfolioService) *Controller {
	return &Controller{portfolioService: portfolioService}
}

// userID comes from the X-User-ID header: authentication is handled by an
// upstream gateway, this service only trusts its result.
func userIDFromHeader(c *gin.Context) (int64, bool) {
	raw := c.GetHeader("X-User-ID")
	if raw == "" {
		respondError(c, http.StatusUnauthorized, "missing X-User-ID header")
		return 0, false
	}

	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		respondError(c, http.StatusUnauthorized, "invalid X-User-ID header")
		return 0, false
	}

	return userID, true
}

func parseDecimal(c *gin.Context, field, raw string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid decimal in field "+field)
		return decimal.Decimal{}, false
	}
	return d, true
}

func parseOptionalDecimal(c *gin.Context, field string, raw *string) (*decimal.Decimal, bool) {
	if raw == nil {
		return nil, true
	}
	d, ok := parseDecimal(c, field, *raw)
	if !ok {
		return nil, false
	}
	return &d, true
}

func (ctrl *Controller) CreateAccount(c *gin.Context) {
	userID, ok := userIDFromHeader(c)
	if !ok {
		return
	}

	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	accountID, err := ctrl.portfolioService.RegisterAccount(c.Request.Context(), userID, req.Name)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOk(c, http.StatusCreated, gin.H{"account_id": accountID})
}

func (ctrl *Controller) CreateHolding(c *gin.Context) {
	userID, ok := userIDFromHeader(c)
	if !ok {
		return
	}

	var req createHoldingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	quantity, ok := parseDecimal(c, "quantity", req.Quantity)
	if !ok {
		return
	}
	costBasis, ok := parseDecimal(c, "cost_basis", req.CostBasis)
	if !ok {
		return
	}
	currentPrice, ok := parseOptionalDecimal(c, "current_price", req.CurrentPrice)
	if !ok {
		return
	}

	holding, err := ctrl.portfolioService.CreateHolding(c.Request.Context(), userID, portfolioService.CreateHoldingParams{
		AccountID:    req.AccountID,
		Symbol:       req.Symbol,
		Name:         req.Name,
		AssetClass:   model.AssetClass(req.AssetClass),
		Quantity:     quantity,
		CostBasis:    costBasis,
		CurrentPrice: currentPrice,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOk(c, http.StatusCreated, toHoldingResponse(holding))
}

func (ctrl *Controller) ListHoldings(c *gin.Context) {
	userID, ok := userIDFromHeader(c)
	if !ok {
		return
	}

	holdings, err := ctrl.portfolioService.ListHoldings(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	resp := make([]holdingResponse, 0, len(holdings))
	for _, h := range holdings {
		resp = append(resp, toHoldingResponse(h))
	}

	respondOk(c, http.StatusOK, resp)
}

func (ctrl *Controller) GetHolding(c *gin.Context) {
	userID, ok := userIDFromHeader(c)
	if !ok {
		return
	}

	holding, err := ctrl.portfolioService.GetHolding(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOk(c, http.StatusOK, toHoldingResponse(holding))
}

func (ctrl *Controller) UpdateHolding(c *gin.Context) {
	userID, ok := userIDFromHeader(c)
	if !ok {
		return
	}

	var req updateHoldingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	quantity, ok := parseOptionalDecimal(c, "quantity", req.Quantity)
	if !ok {
		return
	}
	costBasis, ok := parseOptionalDecimal(c, "cost_basis", req.CostBasis)
	if !ok {
		return
	}
	currentPrice, ok := parseOptionalDecimal(c, "current_price", req.CurrentPrice)
	if !ok {
		return
	}

	holding, err := ctrl.portfolioService.UpdateHolding(c.Request.Context(), c.Param("id"), userID, portfolioService.UpdateHoldingParams{
		Name:         req.Name,
		Quantity:     quantity,
		CostBasis:    costBasis,
		CurrentPrice: currentPrice,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOk(c, http.StatusOK, toHoldingResponse(holding))
}

func (ctrl *Controller) DeleteHolding(c *gin.Context) {
	userID, ok := userIDFromHeader(c)
	if !ok {
		return
	}

	if err := ctrl.portfolioService.DeleteHolding(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondServiceError(c, err)
		return
	}

	respondOk(c, http.StatusOK, nil)
}

func (ctrl *Controller) RefreshPrices(c *gin.Context) {
	userID, ok := userIDFromHeader(c)
	if !ok {
		return
	}

	report, err := ctrl.portfolioService.RefreshPrices(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOk(c, http.StatusOK, toRefreshReportResponse(report))
}

func (ctrl *Controller) GetPortfolioValue(c *gin.Context) {
	userID, ok := userIDFromHeader(c)
	if !ok {
		return
	}

	value, err := ctrl.portfolioService.GetPortfolioValue(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOk(c, http.StatusOK, gin.H{"total_value": value.StringFixed(2)})
}

func (ctrl *Controller) GetPortfolioReturn(c *gin.Context) {
	userID, ok := userIDFromHeader(c)
	if !ok {
		return
	}

	ret, err := ctrl.portfolioService.GetPortfolioReturn(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOk(c, http.StatusOK, portfolioReturnResponse{
		Amount:     ret.Amount.StringFixed(2),
		Percentage: ret.Percentage.StringFixed(2),
	})
}

func (ctrl *Controller) DownloadReport(c *gin.Context) {
	userID, ok := userIDFromHeader(c)
	if !ok {
		return
	}

	fileBytes, fileExtension, err := ctrl.portfolioService.GenerateReport(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="portfolio`+fileExtension+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", fileBytes)
}

func (ctrl *Controller) CreateGoal(c *gin.Context) {
	userID, ok := userIDFromHeader(c)
	if !ok {
		return
	}

	var req createGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	targetAmount, ok := parseDecimal(c, "target_amount", req.TargetAmount)
	if !ok {
		return
	}

	goal, err := ctrl.portfolioService.CreateGoal(c.Request.Context(), userID, req.Name, targetAmount)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOk(c, http.StatusCreated, toGoalResponse(goal))
}

func (ctrl *Controller) ListGoals(c *gin.Context) {
	userID, ok := userIDFromHeader(c)
	if !ok {
		return
	}

	goals, err := ctrl.portfolioService.ListGoals(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	resp := make([]goalResponse, 0, len(goals))
	for _, g := range goals {
		resp = append(resp, toGoalResponse(g))
	}

	respondOk(c, http.StatusOK, resp)
}

func (ctrl *Controller) UpdateGoalProgress(c *gin.Context) {
	userID, ok := userIDFromHeader(c)
	if !ok {
		return
	}

	goalID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid goal id")
		return
	}

	var req updateGoalProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	currentAmount, ok := parseDecimal(c, "current_amount", req.CurrentAmount)
	if !ok {
		return
	}

	goal, err := ctrl.portfolioService.UpdateGoalProgress(c.Request.Context(), goalID, userID, currentAmount)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOk(c, http.StatusOK, toGoalResponse(goal))
}
