package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mintlite/invest_tracker/config"
	"github.com/mintlite/invest_tracker/internal/model"
	"github.com/mintlite/invest_tracker/internal/model/quoteModel"
	"github.com/mintlite/invest_tracker/utils"
	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("error cache miss")

type RedisCache struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisCache(redisClient *redis.Client, cfg *config.Config) *RedisCache {
	return &RedisCache{redis: redisClient, cfg: cfg}
}

func quoteKey(symbol string) string {
	return "quote:" + symbol
}

func summaryKey(userID int64) string {
	return fmt.Sprintf("portfolio_summary:%d", userID)
}

func (r *RedisCache) SetQuotes(ctx context.Context, quotes []quoteModel.Quote) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("SetQuotes start", slog.String("rqID", rqID))

	pipe := r.redis.Pipeline()
	for _, quote := range quotes {
		quoteJson, err := json.Marshal(quote)
		if err != nil {
			slog.Error(
				"can't marshall quote in SetQuotes",
				slog.String("rqID", rqID),
				slog.String("err", err.Error()),
				slog.Any("quote", quote),
			)
			return errors.New("can't marshall quote")
		}

		pipe.Set(ctx, quoteKey(quote.Symbol), quoteJson, r.cfg.Cache.QuotesExpiration)
	}

	_, err := pipe.Exec(ctx)
	if err != nil {
		slog.Error("failed on pipe.Exec", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SetQuotes completed", slog.String("rqID", rqID))

	return nil
}

func (r *RedisCache) GetQuote(ctx context.Context, symbol string) (quoteModel.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetQuote start", slog.String("rqID", rqID))

	res, err := r.redis.Get(ctx, quoteKey(symbol)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return quoteModel.Quote{}, ErrCacheMiss
		}
		slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", quoteKey(symbol)))
		return quoteModel.Quote{}, err
	}

	quote := quoteModel.Quote{}
	err = json.Unmarshal([]byte(res), &quote)
	if err != nil {
		slog.Error(
			"can't unmarshall quote in GetQuote",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("resultFromRedis", res),
		)
		return quoteModel.Quote{}, errors.New("can't unmarshall quote")
	}

	slog.Debug("GetQuote finished", slog.String("rqID", rqID))

	return quote, nil
}

// GetQuotes returns the cached quotes found for the given symbols. Missing
// symbols are simply absent from the map, the caller decides whether to go to
// the provider for them.
func (r *RedisCache) GetQuotes(ctx context.Context, symbols []string) (map[string]quoteModel.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetQuotes start", slog.String("rqID", rqID))

	if len(symbols) == 0 {
		return map[string]quoteModel.Quote{}, nil
	}

	keys := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		keys = append(keys, quoteKey(symbol))
	}

	values, err := r.redis.MGet(ctx, keys...).Result()
	if err != nil {
		slog.Error("failed on redis.MGet", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return nil, err
	}

	quotes := make(map[string]quoteModel.Quote, len(symbols))
	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}

		quote := quoteModel.Quote{}
		if err := json.Unmarshal([]byte(raw), &quote); err != nil {
			slog.Error("can't unmarshall quote in GetQuotes", slog.String("rqID", rqID), slog.String("err", err.Error()))
			continue
		}
		quotes[quote.Symbol] = quote
	}

	slog.Debug("GetQuotes finished", slog.String("rqID", rqID))

	return quotes, nil
}

func (r *RedisCache) SetPortfolioSummary(ctx context.Context, userID int64, summary model.PortfolioSummary) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("SetPortfolioSummary start", slog.String("rqID", rqID))

	summaryJson, err := json.Marshal(summary)
	if err != nil {
		slog.Error("can't marshall summary", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return errors.New("can't marshall summary")
	}

	err = r.redis.Set(ctx, summaryKey(userID), summaryJson, r.cfg.Cache.SummaryExpiration).Err()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SetPortfolioSummary completed", slog.String("rqID", rqID))

	return nil
}

func (r *RedisCache) GetPortfolioSummary(ctx context.Context, userID int64) (model.PortfolioSummary, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetPortfolioSummary start", slog.String("rqID", rqID))

	res, err := r.redis.Get(ctx, summaryKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.PortfolioSummary{}, ErrCacheMiss
		}
		slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return model.PortfolioSummary{}, err
	}

	summary := model.PortfolioSummary{}
	err = json.Unmarshal([]byte(res), &summary)
	if err != nil {
		slog.Error("can't unmarshall summary", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return model.PortfolioSummary{}, errors.New("can't unmarshall summary")
	}

	slog.Debug("GetPortfolioSummary finished", slog.String("rqID", rqID))

	return summary, nil
}

// FlushPortfolioSummary runs synchronously on holding writes: a concurrent
// read racing an async delete could serve a stale total.
func (r *RedisCache) FlushPortfolioSummary(ctx context.Context, userID int64) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	err := r.redis.Del(ctx, summaryKey(userID)).Err()
	if err != nil {
		slog.Error("failed on redis.Del", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	return nil
}
