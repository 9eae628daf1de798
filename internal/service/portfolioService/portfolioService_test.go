package portfolioService

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mintlite/invest_tracker/config"
	"github.com/mintlite/invest_tracker/data/cache"
	"github.com/mintlite/invest_tracker/data/repository"
	"github.com/mintlite/invest_tracker/internal/events"
	"github.com/mintlite/invest_tracker/internal/externalApi"
	"github.com/mintlite/invest_tracker/internal/model"
	"github.com/mintlite/invest_tracker/internal/model/quoteModel"
	"github.com/mintlite/invest_tracker/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// stubRepo is a test-only in-memory implementation of Repository. updateErr,
// when set, is returned by every UpdateHoldingValuation call to simulate a
// lost optimistic-locking race.
type stubRepo struct {
	mu        sync.Mutex
	holdings  map[string]model.Holding
	goals     map[int64]model.Goal
	nextGoal  int64
	updateErr error
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		holdings: map[string]model.Holding{},
		goals:    map[int64]model.Goal{},
		nextGoal: 1,
	}
}

func (s *stubRepo) WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error {
	return tFunc(ctx)
}

func (s *stubRepo) RegUser(ctx context.Context, userID int64) error { return nil }

func (s *stubRepo) CreateAccount(ctx context.Context, userID int64, name string) (int64, error) {
	return 1, nil
}

func (s *stubRepo) InsertHolding(ctx context.Context, h model.Holding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holdings[h.ID] = h
	return nil
}

func (s *stubRepo) GetHolding(ctx context.Context, holdingID string, userID int64) (model.Holding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.holdings[holdingID]
	if !ok || h.UserID != userID {
		return model.Holding{}, repository.ErrNotFound
	}
	return h, nil
}

func (s *stubRepo) GetHoldingsByUser(ctx context.Context, userID int64) ([]model.Holding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	holdings := make([]model.Holding, 0)
	for _, h := range s.holdings {
		if h.UserID == userID {
			holdings = append(holdings, h)
		}
	}
	return holdings, nil
}

func (s *stubRepo) UpdateHoldingValuation(ctx context.Context, h model.Holding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	stored, ok := s.holdings[h.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Version != h.Version {
		return repository.ErrConflict
	}
	h.Version++
	s.holdings[h.ID] = h
	return nil
}

func (s *stubRepo) DeleteHolding(ctx context.Context, holdingID string, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.holdings[holdingID]
	if !ok || h.UserID != userID {
		return repository.ErrNotFound
	}
	delete(s.holdings, holdingID)
	return nil
}

func (s *stubRepo) GetActiveSymbols(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]struct{}{}
	symbols := make([]string, 0)
	for _, h := range s.holdings {
		if _, ok := seen[h.Symbol]; !ok {
			seen[h.Symbol] = struct{}{}
			symbols = append(symbols, h.Symbol)
		}
	}
	return symbols, nil
}

func (s *stubRepo) GetActiveUserIDs(ctx context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[int64]struct{}{}
	userIDs := make([]int64, 0)
	for _, h := range s.holdings {
		if _, ok := seen[h.UserID]; !ok {
			seen[h.UserID] = struct{}{}
			userIDs = append(userIDs, h.UserID)
		}
	}
	return userIDs, nil
}

func (s *stubRepo) InsertGoal(ctx context.Context, g model.Goal) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g.ID = s.nextGoal
	s.nextGoal++
	s.goals[g.ID] = g
	return g.ID, nil
}

func (s *stubRepo) GetGoal(ctx context.Context, goalID, userID int64) (model.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[goalID]
	if !ok || g.UserID != userID {
		return model.Goal{}, repository.ErrNotFound
	}
	return g, nil
}

func (s *stubRepo) GetGoalsByUser(ctx context.Context, userID int64) ([]model.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	goals := make([]model.Goal, 0)
	for _, g := range s.goals {
		if g.UserID == userID {
			goals = append(goals, g)
		}
	}
	return goals, nil
}

func (s *stubRepo) UpdateGoalProgress(ctx context.Context, goalID, userID int64, currentAmount decimal.Decimal, completedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[goalID]
	if !ok || g.UserID != userID {
		return repository.ErrNotFound
	}
	g.CurrentAmount = currentAmount
	if g.CompletedAt == nil {
		g.CompletedAt = completedAt
	}
	s.goals[goalID] = g
	return nil
}

// stubCache misses everything and swallows writes.
type stubCache struct{}

func (stubCache) GetQuote(ctx context.Context, symbol string) (quoteModel.Quote, error) {
	return quoteModel.Quote{}, cache.ErrCacheMiss
}

func (stubCache) GetQuotes(ctx context.Context, symbols []string) (map[string]quoteModel.Quote, error) {
	return map[string]quoteModel.Quote{}, nil
}

func (stubCache) SetQuotes(ctx context.Context, quotes []quoteModel.Quote) error { return nil }

func (stubCache) GetPortfolioSummary(ctx context.Context, userID int64) (model.PortfolioSummary, error) {
	return model.PortfolioSummary{}, cache.ErrCacheMiss
}

func (stubCache) SetPortfolioSummary(ctx context.Context, userID int64, summary model.PortfolioSummary) error {
	return nil
}

func (stubCache) FlushPortfolioSummary(ctx context.Context, userID int64) error { return nil }

// stubMarketData serves quotes from a fixed map; absent symbols behave like a
// provider miss.
type stubMarketData struct {
	quotes map[string]quoteModel.Quote
	err    error
}

func (s *stubMarketData) GetQuote(ctx context.Context, symbol string) (quoteModel.Quote, error) {
	if s.err != nil {
		return quoteModel.Quote{}, s.err
	}
	q, ok := s.quotes[symbol]
	if !ok {
		return quoteModel.Quote{}, externalApi.ErrNotFound
	}
	return q, nil
}

func (s *stubMarketData) GetQuotes(ctx context.Context, symbols []string) (map[string]quoteModel.Quote, error) {
	if s.err != nil {
		return nil, s.err
	}
	res := map[string]quoteModel.Quote{}
	for _, symbol := range symbols {
		if q, ok := s.quotes[symbol]; ok {
			res[symbol] = q
		}
	}
	return res, nil
}

type stubReports struct{}

func (stubReports) Generate(ctx context.Context, summary model.PortfolioSummary, holdings []model.Holding) ([]byte, string, error) {
	return []byte("xlsx"), ".xlsx", nil
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturingPublisher) Publish(e events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *capturingPublisher) byType(eventType string) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	res := make([]events.Event, 0)
	for _, e := range p.events {
		if e.Type == eventType {
			res = append(res, e)
		}
	}
	return res
}

func newService(repo *stubRepo, md *stubMarketData, pub *capturingPublisher) *PortfolioService {
	return New(&config.Config{}, repo, stubCache{}, md, stubReports{}, pub)
}

func seedHolding(repo *stubRepo, id, symbol, quantity, costBasis, price string) model.Holding {
	h := model.Holding{
		ID:           id,
		UserID:       42,
		AccountID:    1,
		Symbol:       symbol,
		Name:         symbol,
		AssetClass:   model.AssetClassStock,
		Quantity:     dec(quantity),
		CostBasis:    dec(costBasis),
		CurrentPrice: dec(price),
		Version:      1,
	}
	repo.holdings[h.ID] = h
	return h
}

func TestRefreshPrices_PartialFailure(t *testing.T) {
	repo := newStubRepo()
	seedHolding(repo, "a", "AAPL", "10", "1000.00", "100.00")
	seedHolding(repo, "b", "MSFT", "5", "1500.00", "300.00")

	md := &stubMarketData{quotes: map[string]quoteModel.Quote{
		"AAPL": {Symbol: "AAPL", Price: dec("110.00")},
		// MSFT deliberately absent from the provider response
	}}
	pub := &capturingPublisher{}
	srv := newService(repo, md, pub)

	report, err := srv.RefreshPrices(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Results, 2)

	byID := map[string]model.RefreshResult{}
	for _, r := range report.Results {
		byID[r.HoldingID] = r
	}

	assert.Equal(t, model.RefreshStatusUpdated, byID["a"].Status)
	assert.Equal(t, model.RefreshStatusFailed, byID["b"].Status)
	assert.NotEmpty(t, byID["b"].Reason)

	// A got the new price and recomputed derived fields
	updated, err := repo.GetHolding(context.Background(), "a", 42)
	require.NoError(t, err)
	assert.True(t, updated.CurrentPrice.Equal(dec("110.00")), "got %s", updated.CurrentPrice)
	assert.True(t, updated.MarketValue.Equal(dec("1100.00")), "got %s", updated.MarketValue)
	assert.True(t, updated.UnrealizedGain.Equal(dec("100.00")), "got %s", updated.UnrealizedGain)
	assert.True(t, updated.ReturnPercentage.Equal(dec("10.00")), "got %s", updated.ReturnPercentage)

	// B keeps its stored price untouched
	untouched, err := repo.GetHolding(context.Background(), "b", 42)
	require.NoError(t, err)
	assert.True(t, untouched.CurrentPrice.Equal(dec("300.00")), "got %s", untouched.CurrentPrice)
	assert.Equal(t, int64(1), untouched.Version)

	assert.Len(t, pub.byType(events.TypePriceRefreshCompleted), 1)
}

func TestRefreshPrices_NegativeProviderPrice(t *testing.T) {
	repo := newStubRepo()
	seedHolding(repo, "a", "AAPL", "10", "1000.00", "100.00")

	md := &stubMarketData{quotes: map[string]quoteModel.Quote{
		"AAPL": {Symbol: "AAPL", Price: dec("-1.00")},
	}}
	srv := newService(repo, md, &capturingPublisher{})

	report, err := srv.RefreshPrices(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 0, report.Updated)

	stored, err := repo.GetHolding(context.Background(), "a", 42)
	require.NoError(t, err)
	assert.True(t, stored.CurrentPrice.Equal(dec("100.00")), "got %s", stored.CurrentPrice)
}

func TestRefreshPrices_ProviderDown(t *testing.T) {
	repo := newStubRepo()
	seedHolding(repo, "a", "AAPL", "10", "1000.00", "100.00")

	md := &stubMarketData{err: externalApi.ErrUnavailable}
	srv := newService(repo, md, &capturingPublisher{})

	report, err := srv.RefreshPrices(context.Background(), 42)
	require.NoError(t, err)

	// the batch still completes, every holding reported individually
	assert.Equal(t, 1, report.Total)
	assert.Equal(t, 1, report.Failed)
}

func TestRefreshPrices_EmptyPortfolio(t *testing.T) {
	srv := newService(newStubRepo(), &stubMarketData{}, &capturingPublisher{})

	report, err := srv.RefreshPrices(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Total)
	assert.Empty(t, report.Results)
}

func TestRefreshPrices_VersionConflict(t *testing.T) {
	repo := newStubRepo()
	seedHolding(repo, "a", "AAPL", "10", "1000.00", "100.00")
	repo.updateErr = repository.ErrConflict

	md := &stubMarketData{quotes: map[string]quoteModel.Quote{
		"AAPL": {Symbol: "AAPL", Price: dec("110.00")},
	}}
	srv := newService(repo, md, &capturingPublisher{})

	report, err := srv.RefreshPrices(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 0, report.Updated)
	require.Len(t, report.Results, 1)
	assert.Equal(t, model.RefreshStatusFailed, report.Results[0].Status)

	stored, err := repo.GetHolding(context.Background(), "a", 42)
	require.NoError(t, err)
	assert.True(t, stored.CurrentPrice.Equal(dec("100.00")), "got %s", stored.CurrentPrice)
}

func TestRefreshAllPrices(t *testing.T) {
	repo := newStubRepo()
	first := seedHolding(repo, "a", "AAPL", "10", "1000.00", "100.00")
	second := seedHolding(repo, "b", "MSFT", "5", "1500.00", "300.00")
	second.UserID = 7
	repo.holdings[second.ID] = second

	md := &stubMarketData{quotes: map[string]quoteModel.Quote{
		"AAPL": {Symbol: "AAPL", Price: dec("110.00")},
		"MSFT": {Symbol: "MSFT", Price: dec("310.00")},
	}}
	pub := &capturingPublisher{}
	srv := newService(repo, md, pub)

	err := srv.RefreshAllPrices(context.Background())
	require.NoError(t, err)

	updatedFirst, err := repo.GetHolding(context.Background(), first.ID, first.UserID)
	require.NoError(t, err)
	assert.True(t, updatedFirst.CurrentPrice.Equal(dec("110.00")), "got %s", updatedFirst.CurrentPrice)

	updatedSecond, err := repo.GetHolding(context.Background(), second.ID, second.UserID)
	require.NoError(t, err)
	assert.True(t, updatedSecond.CurrentPrice.Equal(dec("310.00")), "got %s", updatedSecond.CurrentPrice)

	// one refresh-completed event per user
	assert.Len(t, pub.byType(events.TypePriceRefreshCompleted), 2)
}

func TestCreateHolding(t *testing.T) {
	t.Run("price looked up from provider", func(t *testing.T) {
		repo := newStubRepo()
		md := &stubMarketData{quotes: map[string]quoteModel.Quote{
			"VTI": {Symbol: "VTI", Price: dec("220.50")},
		}}
		srv := newService(repo, md, &capturingPublisher{})

		h, err := srv.CreateHolding(context.Background(), 42, CreateHoldingParams{
			AccountID:  1,
			Symbol:     "VTI",
			AssetClass: model.AssetClassETF,
			Quantity:   dec("4"),
			CostBasis:  dec("800.00"),
		})
		require.NoError(t, err)

		assert.True(t, h.CurrentPrice.Equal(dec("220.50")), "got %s", h.CurrentPrice)
		assert.True(t, h.MarketValue.Equal(dec("882.00")), "got %s", h.MarketValue)
		assert.True(t, h.UnrealizedGain.Equal(dec("82.00")), "got %s", h.UnrealizedGain)
		assert.True(t, h.ReturnPercentage.Equal(dec("10.25")), "got %s", h.ReturnPercentage)
		assert.NotEmpty(t, h.ID)
	})

	t.Run("unknown symbol", func(t *testing.T) {
		srv := newService(newStubRepo(), &stubMarketData{}, &capturingPublisher{})

		_, err := srv.CreateHolding(context.Background(), 42, CreateHoldingParams{
			AccountID:  1,
			Symbol:     "NOPE",
			AssetClass: model.AssetClassStock,
			Quantity:   dec("1"),
			CostBasis:  dec("1.00"),
		})
		assert.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("provider unavailable", func(t *testing.T) {
		srv := newService(newStubRepo(), &stubMarketData{err: externalApi.ErrUnavailable}, &capturingPublisher{})

		_, err := srv.CreateHolding(context.Background(), 42, CreateHoldingParams{
			AccountID:  1,
			Symbol:     "AAPL",
			AssetClass: model.AssetClassStock,
			Quantity:   dec("1"),
			CostBasis:  dec("1.00"),
		})
		assert.ErrorIs(t, err, service.ErrProviderUnavailable)
	})

	t.Run("rejects negative quantity", func(t *testing.T) {
		srv := newService(newStubRepo(), &stubMarketData{}, &capturingPublisher{})

		_, err := srv.CreateHolding(context.Background(), 42, CreateHoldingParams{
			AccountID:  1,
			Symbol:     "AAPL",
			AssetClass: model.AssetClassStock,
			Quantity:   dec("-1"),
			CostBasis:  dec("1.00"),
		})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("rejects bad asset class", func(t *testing.T) {
		srv := newService(newStubRepo(), &stubMarketData{}, &capturingPublisher{})

		_, err := srv.CreateHolding(context.Background(), 42, CreateHoldingParams{
			AccountID:  1,
			Symbol:     "AAPL",
			AssetClass: "painting",
			Quantity:   dec("1"),
			CostBasis:  dec("1.00"),
		})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})
}

func TestUpdateHolding(t *testing.T) {
	t.Run("manual price edit recomputes derived fields", func(t *testing.T) {
		repo := newStubRepo()
		seedHolding(repo, "a", "AAPL", "100", "4500.00", "45.00")
		srv := newService(repo, &stubMarketData{}, &capturingPublisher{})

		price := dec("50.25")
		h, err := srv.UpdateHolding(context.Background(), "a", 42, UpdateHoldingParams{CurrentPrice: &price})
		require.NoError(t, err)

		assert.True(t, h.MarketValue.Equal(dec("5025.00")), "got %s", h.MarketValue)
		assert.True(t, h.UnrealizedGain.Equal(dec("525.00")), "got %s", h.UnrealizedGain)
		assert.True(t, h.ReturnPercentage.Equal(dec("11.67")), "got %s", h.ReturnPercentage)
	})

	t.Run("negative manual price", func(t *testing.T) {
		repo := newStubRepo()
		seedHolding(repo, "a", "AAPL", "100", "4500.00", "45.00")
		srv := newService(repo, &stubMarketData{}, &capturingPublisher{})

		price := dec("-1")
		_, err := srv.UpdateHolding(context.Background(), "a", 42, UpdateHoldingParams{CurrentPrice: &price})
		assert.ErrorIs(t, err, service.ErrInvalidPrice)
	})

	t.Run("concurrent update conflict", func(t *testing.T) {
		repo := newStubRepo()
		seedHolding(repo, "a", "AAPL", "100", "4500.00", "45.00")
		repo.updateErr = repository.ErrConflict
		srv := newService(repo, &stubMarketData{}, &capturingPublisher{})

		quantity := dec("200")
		_, err := srv.UpdateHolding(context.Background(), "a", 42, UpdateHoldingParams{Quantity: &quantity})
		assert.ErrorIs(t, err, service.ErrConflict)
	})

	t.Run("unknown holding", func(t *testing.T) {
		srv := newService(newStubRepo(), &stubMarketData{}, &capturingPublisher{})

		name := "x"
		_, err := srv.UpdateHolding(context.Background(), "missing", 42, UpdateHoldingParams{Name: &name})
		assert.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("foreign holding looks like missing", func(t *testing.T) {
		repo := newStubRepo()
		seedHolding(repo, "a", "AAPL", "100", "4500.00", "45.00")
		srv := newService(repo, &stubMarketData{}, &capturingPublisher{})

		name := "x"
		_, err := srv.UpdateHolding(context.Background(), "a", 99, UpdateHoldingParams{Name: &name})
		assert.ErrorIs(t, err, service.ErrNotFound)
	})
}

func TestGetPortfolioSummary(t *testing.T) {
	repo := newStubRepo()
	seedHolding(repo, "msft", "MSFT", "50", "15000.00", "310.00")
	seedHolding(repo, "googl", "GOOGL", "25", "70000.00", "2850.00")
	srv := newService(repo, &stubMarketData{}, &capturingPublisher{})

	summary, err := srv.GetPortfolioSummary(context.Background(), 42)
	require.NoError(t, err)

	assert.True(t, summary.TotalValue.Equal(dec("86750.00")), "got %s", summary.TotalValue)
	assert.True(t, summary.TotalCostBasis.Equal(dec("85000.00")), "got %s", summary.TotalCostBasis)
	assert.True(t, summary.TotalGain.Equal(dec("1750.00")), "got %s", summary.TotalGain)
	// 1750 / 85000 * 100 = 2.0588... -> 2.06
	assert.True(t, summary.ReturnPercentage.Equal(dec("2.06")), "got %s", summary.ReturnPercentage)
	assert.Equal(t, 2, summary.HoldingsCount)
}

func TestGoalCompletion(t *testing.T) {
	repo := newStubRepo()
	pub := &capturingPublisher{}
	srv := newService(repo, &stubMarketData{}, pub)

	goal, err := srv.CreateGoal(context.Background(), 42, "emergency fund", dec("1000.00"))
	require.NoError(t, err)

	goal, err = srv.UpdateGoalProgress(context.Background(), goal.ID, 42, dec("250.00"))
	require.NoError(t, err)
	assert.True(t, goal.Progress.Equal(dec("25.00")), "got %s", goal.Progress)
	assert.Nil(t, goal.CompletedAt)
	assert.Empty(t, pub.byType(events.TypeGoalCompleted))

	goal, err = srv.UpdateGoalProgress(context.Background(), goal.ID, 42, dec("1000.00"))
	require.NoError(t, err)
	assert.NotNil(t, goal.CompletedAt)
	assert.Len(t, pub.byType(events.TypeGoalCompleted), 1)

	// crossing the target again must not re-emit completion
	_, err = srv.UpdateGoalProgress(context.Background(), goal.ID, 42, dec("1100.00"))
	require.NoError(t, err)
	assert.Len(t, pub.byType(events.TypeGoalCompleted), 1)
}
