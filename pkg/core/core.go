package core

import (
	"context"
)

// CandleSource produces an oldest-first candle sequence for a symbol
type CandleSource interface {
	CandlesByLimit(ctx context.Context, symbol, timeframe string, limit int) ([]Candle, error)
}

// PriceSource fetches normalized spot prices from one upstream
type PriceSource interface {
	Name() string
	Prices(ctx context.Context, ids []string) ([]Price, error)
}

// Storage keeps the selected strategy hand-off and the simulated trade journal
type Storage interface {
	SaveSelectedStrategy(strategy Strategy) error
	SelectedStrategy() (Strategy, error)
	SaveTrade(trade TradeEvent) error
	Trades(filters ...TradeFilter) ([]TradeEvent, error)
	Close() error
}

type Notifier interface {
	Notify(string)
	OnTrade(trade TradeEvent)
	OnError(err error)
}

type NotifierWithStart interface {
	Notifier
	Start()
}
