package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/raykavin/tradesim/pkg/core"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

// keyValue is the SQL counterpart of the browser key-value store
type keyValue struct {
	Key   string `gorm:"primaryKey;size:64"`
	Value string
}

func (keyValue) TableName() string { return "key_values" }

// SQLStorage implements core.Storage using a SQL database via GORM
type SQLStorage struct {
	db *gorm.DB
}

// FromSQL opens dialect and migrates the trade and key-value tables
func FromSQL(dialect gorm.Dialector, opts ...gorm.Option) (*SQLStorage, error) {
	db, err := gorm.Open(dialect, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&core.TradeEvent{}, &keyValue{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLStorage{db: db}, nil
}

func (s *SQLStorage) SaveSelectedStrategy(strategy core.Strategy) error {
	content, err := strategy.Encode()
	if err != nil {
		return fmt.Errorf("failed to marshal strategy: %w", err)
	}

	if err := s.db.Save(&keyValue{Key: selectedStrategyKey, Value: content}).Error; err != nil {
		return fmt.Errorf("failed to store strategy: %w", err)
	}
	return nil
}

func (s *SQLStorage) SelectedStrategy() (core.Strategy, error) {
	var row keyValue
	err := s.db.Where(&keyValue{Key: selectedStrategyKey}).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.Strategy{}, core.ErrNotFound
	}
	if err != nil {
		return core.Strategy{}, fmt.Errorf("failed to load strategy: %w", err)
	}

	var strategy core.Strategy
	if err := json.Unmarshal([]byte(row.Value), &strategy); err != nil {
		return core.Strategy{}, fmt.Errorf("failed to decode strategy: %w", err)
	}
	return strategy, nil
}

func (s *SQLStorage) SaveTrade(trade core.TradeEvent) error {
	if err := s.db.Create(&trade).Error; err != nil {
		return fmt.Errorf("failed to create trade: %w", err)
	}
	return nil
}

// Trades returns the trades matching every filter, oldest first
func (s *SQLStorage) Trades(filters ...core.TradeFilter) ([]core.TradeEvent, error) {
	var trades []core.TradeEvent

	result := s.db.Order("timestamp asc").Find(&trades)
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to fetch trades: %w", result.Error)
	}

	return lo.Filter(trades, func(trade core.TradeEvent, _ int) bool {
		for _, filter := range filters {
			if !filter(trade) {
				return false
			}
		}
		return true
	}), nil
}

// TradesWithQuery runs a custom GORM query against the trade table
func (s *SQLStorage) TradesWithQuery(query func(*gorm.DB) *gorm.DB) ([]core.TradeEvent, error) {
	var trades []core.TradeEvent
	if err := query(s.db.Model(&core.TradeEvent{})).Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch trades: %w", err)
	}
	return trades, nil
}

func (s *SQLStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}
