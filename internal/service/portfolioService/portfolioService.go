package portfolioService

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mintlite/invest_tracker/config"
	"github.com/mintlite/invest_tracker/data/repository"
	"github.com/mintlite/invest_tracker/internal/events"
	"github.com/mintlite/invest_tracker/internal/externalApi"
	"github.com/mintlite/invest_tracker/internal/model"
	"github.com/mintlite/invest_tracker/internal/model/quoteModel"
	"github.com/mintlite/invest_tracker/internal/service"
	"github.com/mintlite/invest_tracker/internal/valuation"
	"github.com/mintlite/invest_tracker/utils"
	"github.com/shopspring/decimal"
)

type Repository interface {
	WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error
	RegUser(ctx context.Context, userID int64) error
	CreateAccount(ctx context.Context, userID int64, name string) (accountID int64, err error)
	InsertHolding(ctx context.Context, h model.Holding) error
	GetHolding(ctx context.Context, holdingID string, userID int64) (model.Holding, error)
	GetHoldingsByUser(ctx context.Context, userID int64) ([]model.Holding, error)
	UpdateHoldingValuation(ctx context.Context, h model.Holding) error
	DeleteHolding(ctx context.Context, holdingID string, userID int64) error
	GetActiveSymbols(ctx context.Context) ([]string, error)
	GetActiveUserIDs(ctx context.Context) ([]int64, error)
	InsertGoal(ctx context.Context, g model.Goal) (goalID int64, err error)
	GetGoal(ctx context.Context, goalID, userID int64) (model.Goal, error)
	GetGoalsByUser(ctx context.Context, userID int64) ([]model.Goal, error)
	UpdateGoalProgress(ctx context.Context, goalID, userID int64, currentAmount decimal.Decimal, completedAt *time.Time) error
}

type Cache interface {
	GetQuote(ctx context.Context, symbol string) (quoteModel.Quote, error)
	GetQuotes(ctx context.Context, symbols []string) (map[string]quoteModel.Quote, error)
	SetQuotes(ctx context.Context, quotes []quoteModel.Quote) error
	GetPortfolioSummary(ctx context.Context, userID int64) (model.PortfolioSummary, error)
	SetPortfolioSummary(ctx context.Context, userID int64, summary model.PortfolioSummary) error
	FlushPortfolioSummary(ctx context.Context, userID int64) error
}

type MarketDataApi interface {
	GetQuote(ctx context.Context, symbol string) (quoteModel.Quote, error)
	GetQuotes(ctx context.Context, symbols []string) (map[string]quoteModel.Quote, error)
}

type ReportGenerator interface {
	Generate(ctx context.Context, summary model.PortfolioSummary, holdings []model.Holding) (fileBytes []byte, fileExtension string, err error)
}

type Publisher interface {
	Publish(e events.Event)
}

type PortfolioService struct {
	cfg           *config.Config
	repo          Repository
	cache         Cache
	marketDataApi MarketDataApi
	reports       ReportGenerator
	publisher     Publisher
}

func New(cfg *config.Config, repo Repository, cache Cache, marketDataApi MarketDataApi, reports ReportGenerator, publisher Publisher) *PortfolioService {
	return &PortfolioService{
		cfg:           cfg,
		repo:          repo,
		cache:         cache,
		marketDataApi: marketDataApi,
		reports:       reports,
		publisher:     publisher,
	}
}

type CreateHoldingParams struct {
	AccountID    int64
	Symbol       string
	Name         string
	AssetClass   model.AssetClass
	Quantity     decimal.Decimal
	CostBasis    decimal.Decimal
	CurrentPrice *decimal.Decimal // nil means look the price up from the provider
}

type UpdateHoldingParams struct {
	Name         *string
	Quantity     *decimal.Decimal
	CostBasis    *decimal.Decimal
	CurrentPrice *decimal.Decimal // manual price edit
}

func (s *PortfolioService) RegisterAccount(ctx context.Context, userID int64, name string) (accountID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.RegisterAccount"

	slog.Debug("RegisterAccount start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	defer func() {
		slog.Debug("RegisterAccount finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	}()

	if name == "" {
		return 0, service.ErrInvalidInput
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.RegUser(ctx, userID); err != nil {
			return err
		}

		accountID, err = s.repo.CreateAccount(ctx, userID, name)
		return err
	})
	if err != nil {
		slog.Error("got error from repo while registering account", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return 0, err
	}

	return accountID, nil
}

func (s *PortfolioService) CreateHolding(ctx context.Context, userID int64, params CreateHoldingParams) (model.Holding, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.CreateHolding"

	slog.Debug("CreateHolding start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", params.Symbol))
	defer func() {
		slog.Debug("CreateHolding finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", params.Symbol))
	}()

	if params.Symbol == "" || !params.AssetClass.Valid() {
		return model.Holding{}, service.ErrInvalidInput
	}
	if params.Quantity.IsNegative() || params.CostBasis.IsNegative() {
		return model.Holding{}, service.ErrInvalidInput
	}
	if params.CurrentPrice != nil && params.CurrentPrice.IsNegative() {
		return model.Holding{}, service.ErrInvalidInput
	}

	price := decimal.Zero
	if params.CurrentPrice != nil {
		price = *params.CurrentPrice
	} else {
		quote, err := s.getQuote(ctx, params.Symbol)
		if err != nil {
			if errors.Is(err, externalApi.ErrNotFound) {
				slog.Warn("symbol not found in market data provider", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", params.Symbol))
				return model.Holding{}, service.ErrNotFound
			}
			slog.Error("can't get quote for new holding", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			if errors.Is(err, externalApi.ErrUnavailable) {
				return model.Holding{}, service.ErrProviderUnavailable
			}
			return model.Holding{}, err
		}
		price = quote.Price
	}

	name := params.Name
	if name == "" {
		name = params.Symbol
	}

	holding := model.Holding{
		ID:             uuid.NewString(),
		UserID:         userID,
		AccountID:      params.AccountID,
		Symbol:         params.Symbol,
		Name:           name,
		AssetClass:     params.AssetClass,
		Quantity:       params.Quantity,
		CostBasis:      params.CostBasis,
		CurrentPrice:   price,
		PriceUpdatedAt: time.Now().UTC(),
		Version:        1,
	}

	if err := valuation.Revalue(&holding); err != nil {
		return model.Holding{}, service.ErrInvalidInput
	}

	if err := s.repo.InsertHolding(ctx, holding); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Holding{}, service.ErrNotFound
		}
		slog.Error("got error from repo.InsertHolding", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Holding{}, err
	}

	s.flushSummary(ctx, userID)

	return holding, nil
}

func (s *PortfolioService) GetHolding(ctx context.Context, holdingID string, userID int64) (model.Holding, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetHolding"

	holding, err := s.repo.GetHolding(ctx, holdingID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Holding{}, service.ErrNotFound
		}
		slog.Error("got error from repo.GetHolding", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Holding{}, err
	}

	return holding, nil
}

func (s *PortfolioService) ListHoldings(ctx context.Context, userID int64) ([]model.Holding, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.ListHoldings"

	holdings, err := s.repo.GetHoldingsByUser(ctx, userID)
	if err != nil {
		slog.Error("got error from repo.GetHoldingsByUser", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return holdings, nil
}

func (s *PortfolioService) UpdateHolding(ctx context.Context, holdingID string, userID int64, params UpdateHoldingParams) (model.Holding, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.UpdateHolding"

	slog.Debug("UpdateHolding start", slog.String("rqID", rqID), slog.String("op", op), slog.String("holdingID", holdingID))
	defer func() {
		slog.Debug("UpdateHolding finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("holdingID", holdingID))
	}()

	if params.Quantity != nil && params.Quantity.IsNegative() {
		return model.Holding{}, service.ErrInvalidInput
	}
	if params.CostBasis != nil && params.CostBasis.IsNegative() {
		return model.Holding{}, service.ErrInvalidInput
	}
	if params.CurrentPrice != nil && params.CurrentPrice.IsNegative() {
		return model.Holding{}, service.ErrInvalidPrice
	}

	var holding model.Holding

	err := s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		holding, err = s.repo.GetHolding(ctx, holdingID, userID)
		if err != nil {
			return err
		}

		if params.Name != nil {
			holding.Name = *params.Name
		}
		if params.Quantity != nil {
			holding.Quantity = *params.Quantity
		}
		if params.CostBasis != nil {
			holding.CostBasis = *params.CostBasis
		}
		if params.CurrentPrice != nil {
			holding.CurrentPrice = *params.CurrentPrice
			holding.PriceUpdatedAt = time.Now().UTC()
		}

		if err := valuation.Revalue(&holding); err != nil {
			return service.ErrInvalidInput
		}

		return s.repo.UpdateHoldingValuation(ctx, holding)
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return model.Holding{}, service.ErrNotFound
		case errors.Is(err, repository.ErrConflict):
			return model.Holding{}, service.ErrConflict
		case errors.Is(err, service.ErrInvalidInput):
			return model.Holding{}, err
		}
		slog.Error("got error while updating holding", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Holding{}, err
	}

	holding.Version++

	s.flushSummary(ctx, userID)

	return holding, nil
}

func (s *PortfolioService) DeleteHolding(ctx context.Context, holdingID string, userID int64) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.DeleteHolding"

	err := s.repo.DeleteHolding(ctx, holdingID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return service.ErrNotFound
		}
		slog.Error("got error from repo.DeleteHolding", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	s.flushSummary(ctx, userID)

	return nil
}

// GetPortfolioSummary derives portfolio totals from current holding state.
// The summary is a read recomputation, cached briefly, never stored.
func (s *PortfolioService) GetPortfolioSummary(ctx context.Context, userID int64) (model.PortfolioSummary, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetPortfolioSummary"

	summary, err := s.cache.GetPortfolioSummary(ctx, userID)
	if err == nil {
		return summary, nil
	}

	holdings, err := s.repo.GetHoldingsByUser(ctx, userID)
	if err != nil {
		slog.Error("got error from repo.GetHoldingsByUser", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.PortfolioSummary{}, err
	}

	summary, err = s.summarize(holdings)
	if err != nil {
		slog.Error("can't summarize holdings", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.PortfolioSummary{}, err
	}

	go func(ctx context.Context) {
		if err := s.cache.SetPortfolioSummary(ctx, userID, summary); err != nil {
			slog.Error("can't set portfolio summary in cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}(context.WithoutCancel(ctx))

	return summary, nil
}

func (s *PortfolioService) GetPortfolioValue(ctx context.Context, userID int64) (decimal.Decimal, error) {
	summary, err := s.GetPortfolioSummary(ctx, userID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return summary.TotalValue, nil
}

func (s *PortfolioService) GetPortfolioReturn(ctx context.Context, userID int64) (model.PortfolioReturn, error) {
	summary, err := s.GetPortfolioSummary(ctx, userID)
	if err != nil {
		return model.PortfolioReturn{}, err
	}
	return model.PortfolioReturn{Amount: summary.TotalGain, Percentage: summary.ReturnPercentage}, nil
}

// RefreshPrices pulls fresh quotes for every holding of the user and
// recomputes the derived fields. Holdings fail individually: one unknown
// symbol or one version conflict never aborts the rest of the batch, and a
// failed holding keeps its stored price.
func (s *PortfolioService) RefreshPrices(ctx context.Context, userID int64) (model.RefreshReport, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.RefreshPrices"

	slog.Debug("RefreshPrices start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	defer func() {
		slog.Debug("RefreshPrices finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	}()

	holdings, err := s.repo.GetHoldingsByUser(ctx, userID)
	if err != nil {
		slog.Error("got error from repo.GetHoldingsByUser", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.RefreshReport{}, err
	}

	report := model.RefreshReport{Total: len(holdings)}
	if len(holdings) == 0 {
		return report, nil
	}

	quotes := s.collectQuotes(ctx, holdings)

	for _, holding := range holdings {
		result := s.refreshHolding(ctx, holding, quotes)
		if result.Status == model.RefreshStatusUpdated {
			report.Updated++
		} else {
			report.Failed++
		}
		report.Results = append(report.Results, result)
	}

	// portfolio totals are always re-derived from current holding state
	if err := s.cache.FlushPortfolioSummary(ctx, userID); err != nil {
		slog.Error("got error from cache.FlushPortfolioSummary", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	s.publisher.Publish(events.Event{
		Type:    events.TypePriceRefreshCompleted,
		UserID:  userID,
		Payload: report,
	})

	return report, nil
}

func (s *PortfolioService) refreshHolding(ctx context.Context, holding model.Holding, quotes map[string]quoteModel.Quote) model.RefreshResult {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.refreshHolding"

	result := model.RefreshResult{HoldingID: holding.ID, Symbol: holding.Symbol}

	quote, ok := quotes[holding.Symbol]
	if !ok {
		result.Status = model.RefreshStatusFailed
		result.Reason = "symbol not found in market data response"
		return result
	}

	if quote.Price.IsNegative() {
		slog.Warn("provider returned negative price", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", holding.Symbol))
		result.Status = model.RefreshStatusFailed
		result.Reason = service.ErrInvalidPrice.Error()
		return result
	}

	// price, timestamp and derived fields land in one transaction so no
	// reader ever sees a new price with stale derived figures
	err := s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		fresh, err := s.repo.GetHolding(ctx, holding.ID, holding.UserID)
		if err != nil {
			return err
		}

		fresh.CurrentPrice = quote.Price
		fresh.PriceUpdatedAt = time.Now().UTC()

		if err := valuation.Revalue(&fresh); err != nil {
			return err
		}

		return s.repo.UpdateHoldingValuation(ctx, fresh)
	})
	if err != nil {
		slog.Error("refresh failed for holding", slog.String("rqID", rqID), slog.String("op", op), slog.String("holdingID", holding.ID), slog.String("err", err.Error()))
		result.Status = model.RefreshStatusFailed
		result.Reason = err.Error()
		return result
	}

	result.Status = model.RefreshStatusUpdated
	result.NewPrice = quote.Price
	return result
}

// RefreshAllPrices is the nightly scheduler job: it refreshes every user
// owning at least one holding. Users fail independently, a broken refresh
// for one user never stops the rest.
func (s *PortfolioService) RefreshAllPrices(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.RefreshAllPrices"

	userIDs, err := s.repo.GetActiveUserIDs(ctx)
	if err != nil {
		slog.Error("got error from repo.GetActiveUserIDs", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	for _, userID := range userIDs {
		report, err := s.RefreshPrices(ctx, userID)
		if err != nil {
			slog.Error("bulk refresh failed for user", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID), slog.String("err", err.Error()))
			continue
		}
		if report.Failed > 0 {
			slog.Warn("bulk refresh finished with failed holdings", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID), slog.Int("failed", report.Failed))
		}
	}

	return nil
}

// collectQuotes serves the refresh from cache first and goes to the provider
// only for the symbols the cache misses. Provider failure leaves those
// symbols absent from the map, which the per-holding loop reports.
func (s *PortfolioService) collectQuotes(ctx context.Context, holdings []model.Holding) map[string]quoteModel.Quote {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.collectQuotes"

	symbols := make([]string, 0, len(holdings))
	seen := make(map[string]struct{}, len(holdings))
	for _, h := range holdings {
		if _, ok := seen[h.Symbol]; ok {
			continue
		}
		seen[h.Symbol] = struct{}{}
		symbols = append(symbols, h.Symbol)
	}

	quotes, err := s.cache.GetQuotes(ctx, symbols)
	if err != nil {
		slog.Warn("can't get quotes from cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		quotes = map[string]quoteModel.Quote{}
	}

	missing := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		if _, ok := quotes[symbol]; !ok {
			missing = append(missing, symbol)
		}
	}

	if len(missing) == 0 {
		return quotes
	}

	fetched, err := s.marketDataApi.GetQuotes(ctx, missing)
	if err != nil {
		slog.Error("can't get quotes from market data provider", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return quotes
	}

	fetchedSlice := make([]quoteModel.Quote, 0, len(fetched))
	for symbol, quote := range fetched {
		quotes[symbol] = quote
		fetchedSlice = append(fetchedSlice, quote)
	}

	go func(ctx context.Context) {
		if err := s.cache.SetQuotes(ctx, fetchedSlice); err != nil {
			slog.Error("can't set quotes in cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}(context.WithoutCancel(ctx))

	return quotes
}

func (s *PortfolioService) getQuote(ctx context.Context, symbol string) (quoteModel.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.getQuote"

	quote, err := s.cache.GetQuote(ctx, symbol)
	if err == nil {
		return quote, nil
	}

	slog.Warn("can't get quote from cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))

	quote, err = s.marketDataApi.GetQuote(ctx, symbol)
	if err != nil {
		return quoteModel.Quote{}, err
	}

	go func(ctx context.Context) {
		if err := s.cache.SetQuotes(ctx, []quoteModel.Quote{quote}); err != nil {
			slog.Error("can't set quote in cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}(context.WithoutCancel(ctx))

	return quote, nil
}

func (s *PortfolioService) summarize(holdings []model.Holding) (model.PortfolioSummary, error) {
	totalValue, err := valuation.PortfolioValue(holdings)
	if err != nil {
		return model.PortfolioSummary{}, err
	}

	ret, err := valuation.PortfolioReturn(holdings)
	if err != nil {
		return model.PortfolioSummary{}, err
	}

	totalCostBasis := decimal.Zero
	for _, h := range holdings {
		totalCostBasis = totalCostBasis.Add(h.CostBasis)
	}

	return model.PortfolioSummary{
		TotalValue:       totalValue,
		TotalCostBasis:   totalCostBasis,
		TotalGain:        ret.Amount,
		ReturnPercentage: ret.Percentage,
		HoldingsCount:    len(holdings),
	}, nil
}

// flushSummary runs synchronously: flushing concurrently could lose the race
// with a reader and serve a stale total right after a write.
func (s *PortfolioService) flushSummary(ctx context.Context, userID int64) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	if err := s.cache.FlushPortfolioSummary(ctx, userID); err != nil {
		slog.Error("got error from cache.FlushPortfolioSummary", slog.String("rqID", rqID), slog.String("err", err.Error()))
	}
}

// WarmQuoteCache is the scheduler job keeping quotes for every held symbol
// warm so interactive reads rarely hit the provider.
func (s *PortfolioService) WarmQuoteCache(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.WarmQuoteCache"

	symbols, err := s.repo.GetActiveSymbols(ctx)
	if err != nil {
		slog.Error("got error from repo.GetActiveSymbols", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	if len(symbols) == 0 {
		return nil
	}

	quotes, err := s.marketDataApi.GetQuotes(ctx, symbols)
	if err != nil {
		slog.Error("got error from marketDataApi.GetQuotes", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	quotesSlice := make([]quoteModel.Quote, 0, len(quotes))
	for _, quote := range quotes {
		quotesSlice = append(quotesSlice, quote)
	}

	return s.cache.SetQuotes(ctx, quotesSlice)
}

func (s *PortfolioService) GenerateReport(ctx context.Context, userID int64) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GenerateReport"

	slog.Debug("GenerateReport start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	defer func() {
		slog.Debug("GenerateReport finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	}()

	holdings, err := s.repo.GetHoldingsByUser(ctx, userID)
	if err != nil {
		slog.Error("got error from repo.GetHoldingsByUser", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	summary, err := s.summarize(holdings)
	if err != nil {
		return nil, "", err
	}

	return s.reports.Generate(ctx, summary, holdings)
}
