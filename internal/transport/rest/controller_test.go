package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mintlite/invest_tracker/config"
	"github.com/mintlite/invest_tracker/internal/model"
	"github.com/mintlite/invest_tracker/internal/service"
	"github.com/mintlite/invest_tracker/internal/service/portfolioService"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// stubService returns its fixed values and error for every operation, the
// handlers only care about the status-code mapping.
type stubService struct {
	holding model.Holding
	goal    model.Goal
	report  model.RefreshReport
	err     error
}

func (s *stubService) RegisterAccount(ctx context.Context, userID int64, name string) (int64, error) {
	return 1, s.err
}

func (s *stubService) CreateHolding(ctx context.Context, userID int64, params portfolioService.CreateHoldingParams) (model.Holding, error) {
	return s.holding, s.err
}

func (s *stubService) GetHolding(ctx context.Context, holdingID string, userID int64) (model.Holding, error) {
	return s.holding, s.err
}

func (s *stubService) ListHoldings(ctx context.Context, userID int64) ([]model.Holding, error) {
	return []model.Holding{s.holding}, s.err
}

func (s *stubService) UpdateHolding(ctx context.Context, holdingID string, userID int64, params portfolioService.UpdateHoldingParams) (model.Holding, error) {
	return s.holding, s.err
}

func (s *stubService) DeleteHolding(ctx context.Context, holdingID string, userID int64) error {
	return s.err
}

func (s *stubService) GetPortfolioValue(ctx context.Context, userID int64) (decimal.Decimal, error) {
	return decimal.Zero, s.err
}

func (s *stubService) GetPortfolioReturn(ctx context.Context, userID int64) (model.PortfolioReturn, error) {
	return model.PortfolioReturn{}, s.err
}

func (s *stubService) RefreshPrices(ctx context.Context, userID int64) (model.RefreshReport, error) {
	return s.report, s.err
}

func (s *stubService) GenerateReport(ctx context.Context, userID int64) ([]byte, string, error) {
	return []byte("xlsx"), ".xlsx", s.err
}

func (s *stubService) CreateGoal(ctx context.Context, userID int64, name string, targetAmount decimal.Decimal) (model.Goal, error) {
	return s.goal, s.err
}

func (s *stubService) ListGoals(ctx context.Context, userID int64) ([]model.Goal, error) {
	return []model.Goal{s.goal}, s.err
}

func (s *stubService) UpdateGoalProgress(ctx context.Context, goalID, userID int64, currentAmount decimal.Decimal) (model.Goal, error) {
	return s.goal, s.err
}

func newTestRouter(svc *stubService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{}
	cfg.API.Debug = true
	return NewRouter(cfg, NewController(svc))
}

func doRequest(router *gin.Engine, method, path, body string, withUser bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if withUser {
		req.Header.Set("X-User-ID", "42")
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestMissingUserHeader(t *testing.T) {
	router := newTestRouter(&stubService{})

	rec := doRequest(router, http.MethodGet, "/investments", "", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestInvalidUserHeader(t *testing.T) {
	router := newTestRouter(&stubService{})

	req := httptest.NewRequest(http.MethodGet, "/investments", nil)
	req.Header.Set("X-User-ID", "not-a-number")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateHoldingStatusCodes(t *testing.T) {
	validBody := `{"account_id":1,"symbol":"AAPL","asset_class":"stock","quantity":"10","cost_basis":"1000.00"}`

	t.Run("created", func(t *testing.T) {
		router := newTestRouter(&stubService{})

		rec := doRequest(router, http.MethodPost, "/investments", validBody, true)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("bad decimal", func(t *testing.T) {
		router := newTestRouter(&stubService{})

		body := `{"account_id":1,"symbol":"AAPL","asset_class":"stock","quantity":"ten","cost_basis":"1000.00"}`
		rec := doRequest(router, http.MethodPost, "/investments", body, true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid input", func(t *testing.T) {
		router := newTestRouter(&stubService{err: service.ErrInvalidInput})

		rec := doRequest(router, http.MethodPost, "/investments", validBody, true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("provider unavailable", func(t *testing.T) {
		router := newTestRouter(&stubService{err: service.ErrProviderUnavailable})

		rec := doRequest(router, http.MethodPost, "/investments", validBody, true)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestGetHoldingNotFound(t *testing.T) {
	router := newTestRouter(&stubService{err: service.ErrNotFound})

	rec := doRequest(router, http.MethodGet, "/investments/some-id", "", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateHoldingStatusCodes(t *testing.T) {
	t.Run("conflict", func(t *testing.T) {
		router := newTestRouter(&stubService{err: service.ErrConflict})

		rec := doRequest(router, http.MethodPatch, "/investments/some-id", `{"quantity":"20"}`, true)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("invalid price", func(t *testing.T) {
		router := newTestRouter(&stubService{err: service.ErrInvalidPrice})

		rec := doRequest(router, http.MethodPatch, "/investments/some-id", `{"current_price":"-1"}`, true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUnknownServiceError(t *testing.T) {
	router := newTestRouter(&stubService{err: context.DeadlineExceeded})

	rec := doRequest(router, http.MethodGet, "/investments/some-id", "", true)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
