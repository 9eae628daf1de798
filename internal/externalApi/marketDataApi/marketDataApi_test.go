package marketDataApi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mintlite/invest_tracker/config"
	"github.com/mintlite/invest_tracker/internal/externalApi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApi(url string) *MarketDataApi {
	cfg := &config.Config{}
	cfg.API.Timeout = 5 * time.Second
	cfg.API.MarketDataApi.Url = url
	return New(cfg)
}

func TestGetQuotes_SkipsMalformedQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"quotes":[
			{"symbol":"AAPL","price":"110.00","currency":"USD","timestamp":1700000000},
			{"symbol":"MSFT","price":"N/A","currency":"USD","timestamp":1700000000},
			{"symbol":"","price":"1.00","currency":"USD","timestamp":1700000000}
		]}`))
	}))
	defer server.Close()

	api := newTestApi(server.URL)

	quotes, err := api.GetQuotes(context.Background(), []string{"AAPL", "MSFT"})
	require.NoError(t, err)

	// the malformed entries are dropped, the valid one survives
	require.Len(t, quotes, 1)
	quote, ok := quotes["AAPL"]
	require.True(t, ok)
	assert.Equal(t, "110", quote.Price.String())
	assert.Equal(t, "USD", quote.Currency)

	_, ok = quotes["MSFT"]
	assert.False(t, ok)
}

func TestGetQuotes_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	api := newTestApi(server.URL)

	_, err := api.GetQuotes(context.Background(), []string{"AAPL"})
	assert.ErrorIs(t, err, externalApi.ErrUnavailable)
}

func TestGetQuote_MissingSymbol(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"quotes":[]}`))
	}))
	defer server.Close()

	api := newTestApi(server.URL)

	_, err := api.GetQuote(context.Background(), "NOPE")
	assert.ErrorIs(t, err, externalApi.ErrNotFound)
}
