package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/raykavin/tradesim/pkg/core"
	"github.com/tidwall/buntdb"
)

const (
	selectedStrategyKey = "selectedStrategy"
	tradeIndex          = "trade_time"
	tradePattern        = "trade:*"
)

// BuntStorage implements core.Storage on top of BuntDB
type BuntStorage struct {
	db *buntdb.DB
}

// FromMemory creates an in-memory storage
func FromMemory() (*BuntStorage, error) {
	return NewBuntStorage(":memory:")
}

// FromFile creates a file-based storage
func FromFile(file string) (*BuntStorage, error) {
	return NewBuntStorage(file)
}

// NewBuntStorage opens sourceFile and indexes trades by timestamp
func NewBuntStorage(sourceFile string) (*BuntStorage, error) {
	db, err := buntdb.Open(sourceFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open buntdb: %w", err)
	}

	err = db.CreateIndex(tradeIndex, tradePattern, buntdb.IndexJSON("timestamp"))
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &BuntStorage{db: db}, nil
}

func tradeKey(trade core.TradeEvent) string {
	return "trade:" + trade.SessionID + ":" + trade.ID
}

// SaveSelectedStrategy stores the strategy handed over to the deployment page
func (b *BuntStorage) SaveSelectedStrategy(strategy core.Strategy) error {
	content, err := strategy.Encode()
	if err != nil {
		return fmt.Errorf("failed to marshal strategy: %w", err)
	}

	return b.db.Update(func(tx *buntdb.Tx) error {
		if _, _, err := tx.Set(selectedStrategyKey, content, nil); err != nil {
			return fmt.Errorf("failed to store strategy: %w", err)
		}
		return nil
	})
}

// SelectedStrategy returns core.ErrNotFound when nothing was saved
func (b *BuntStorage) SelectedStrategy() (core.Strategy, error) {
	var strategy core.Strategy

	err := b.db.View(func(tx *buntdb.Tx) error {
		content, err := tx.Get(selectedStrategyKey)
		if errors.Is(err, buntdb.ErrNotFound) {
			return core.ErrNotFound
		}
		if err != nil {
			return err
		}
		return json.Unmarshal([]byte(content), &strategy)
	})
	if err != nil {
		return core.Strategy{}, err
	}

	return strategy, nil
}

// SaveTrade journals a trade
func (b *BuntStorage) SaveTrade(trade core.TradeEvent) error {
	content, err := json.Marshal(trade)
	if err != nil {
		return fmt.Errorf("failed to marshal trade: %w", err)
	}

	return b.db.Update(func(tx *buntdb.Tx) error {
		if _, _, err := tx.Set(tradeKey(trade), string(content), nil); err != nil {
			return fmt.Errorf("failed to store trade: %w", err)
		}
		return nil
	})
}

// Trades returns the journaled trades matching every filter, oldest first
func (b *BuntStorage) Trades(filters ...core.TradeFilter) ([]core.TradeEvent, error) {
	trades := make([]core.TradeEvent, 0)

	err := b.db.View(func(tx *buntdb.Tx) error {
		var decodeErr error
		err := tx.Ascend(tradeIndex, func(_, value string) bool {
			var trade core.TradeEvent
			if decodeErr = json.Unmarshal([]byte(value), &trade); decodeErr != nil {
				return false
			}

			for _, filter := range filters {
				if !filter(trade) {
					return true
				}
			}

			trades = append(trades, trade)
			return true
		})
		if err != nil {
			return fmt.Errorf("failed to iterate over trades: %w", err)
		}
		return decodeErr
	})
	if err != nil {
		return nil, err
	}

	return trades, nil
}

// Close closes the database
func (b *BuntStorage) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}
