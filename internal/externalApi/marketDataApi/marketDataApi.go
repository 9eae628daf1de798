package marketDataApi

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mintlite/invest_tracker/config"
	"github.com/mintlite/invest_tracker/internal/externalApi"
	"github.com/mintlite/invest_tracker/internal/model/quoteModel"
	"github.com/mintlite/invest_tracker/utils"
	"github.com/shopspring/decimal"
)

// MarketDataApi talks to the external quote provider. Failures are
// per-symbol: a symbol the provider does not know is ErrNotFound, a dead or
// erroring provider is ErrUnavailable. Retries are the caller's business.
type MarketDataApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *MarketDataApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.MarketDataApi.Url)
	return &MarketDataApi{client: client}
}

func (a *MarketDataApi) GetQuote(ctx context.Context, symbol string) (quoteModel.Quote, error) {
	quotes, err := a.GetQuotes(ctx, []string{symbol})
	if err != nil {
		return quoteModel.Quote{}, err
	}

	quote, ok := quotes[symbol]
	if !ok {
		return quoteModel.Quote{}, externalApi.ErrNotFound
	}

	return quote, nil
}

func (a *MarketDataApi) GetQuotes(ctx context.Context, symbols []string) (map[string]quoteModel.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	url := "/v1/quotes"
	params := map[string]string{
		"symbols": strings.Join(symbols, ","),
	}

	slog.Debug("start MarketDataApi.GetQuotes request", slog.String("rqID", rqID))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(params).
		Get(url)

	if err != nil {
		slog.Error("error while dialing market data provider", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, externalApi.ErrUnavailable
	}

	if resp.IsError() {
		slog.Error("market data provider returned error status", slog.Int("status", resp.StatusCode()), slog.String("rqID", rqID))
		return nil, externalApi.ErrUnavailable
	}

	rawQuotes := quoteModel.RawQuotesResponse{}
	err = json.Unmarshal(resp.Body(), &rawQuotes)
	if err != nil {
		slog.Error("can't unmarshall response into quoteModel.RawQuotesResponse", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	res := a.parseRawQuotes(rqID, rawQuotes)

	slog.Debug("MarketDataApi.GetQuotes request complete", slog.String("rqID", rqID))

	return res, nil
}

// parseRawQuotes drops malformed entries instead of failing the response:
// one unparseable price must not cost the caller every other symbol in the
// batch. A dropped symbol is simply absent from the result map.
func (a *MarketDataApi) parseRawQuotes(rqID string, rawQuotes quoteModel.RawQuotesResponse) map[string]quoteModel.Quote {
	res := make(map[string]quoteModel.Quote, len(rawQuotes.Quotes))

	for _, raw := range rawQuotes.Quotes {
		if raw.Symbol == "" {
			slog.Warn("skipping quote without symbol", slog.String("rqID", rqID))
			continue
		}

		price, err := decimal.NewFromString(raw.Price)
		if err != nil {
			slog.Warn("skipping quote with unparseable price", slog.String("symbol", raw.Symbol), slog.String("price", raw.Price), slog.String("rqID", rqID))
			continue
		}

		res[raw.Symbol] = quoteModel.Quote{
			Symbol:     raw.Symbol,
			Price:      price,
			Currency:   raw.Currency,
			ReceivedAt: time.Unix(raw.Timestamp, 0).UTC(),
		}
	}

	return res
}
