package quoteModel

import (
	"time"

	"github.com/shopspring/decimal"
)

type RawQuotesResponse struct {
	Quotes []RawQuote `json:"quotes"`
}

type RawQuote struct {
	Symbol    string `json:"symbol"`
	Price     string `json:"price"`
	Currency  string `json:"currency"`
	Timestamp int64  `json:"timestamp"`
}

type Quote struct {
	Symbol     string
	Price      decimal.Decimal
	Currency   string
	ReceivedAt time.Time
}
