package storage

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/raykavin/tradesim/pkg/core"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newBunt(t *testing.T) core.Storage {
	t.Helper()
	storage, err := FromMemory()
	require.NoError(t, err)
	return storage
}

func newSQL(t *testing.T) core.Storage {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	storage, err := FromSQL(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	return storage
}

func TestStorage(t *testing.T) {
	backends := map[string]func(*testing.T) core.Storage{
		"buntdb": newBunt,
		"sqlite": newSQL,
	}

	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			t.Run("selected strategy", func(t *testing.T) {
				storage := open(t)
				defer storage.Close()

				_, err := storage.SelectedStrategy()
				require.ErrorIs(t, err, core.ErrNotFound)

				strategy := core.Strategy{ID: 2, Name: "Momentum Scalper", Risk: core.RiskMedium, WinRate: 72, BestFor: []string{"Ethereum"}}
				require.NoError(t, storage.SaveSelectedStrategy(strategy))

				strategy.Name = "Momentum Scalper v2"
				require.NoError(t, storage.SaveSelectedStrategy(strategy))

				got, err := storage.SelectedStrategy()
				require.NoError(t, err)
				require.Equal(t, strategy, got)
			})

			t.Run("trades", func(t *testing.T) {
				storage := open(t)
				defer storage.Close()

				start := time.UnixMilli(1700000000000)
				trades := []core.TradeEvent{
					{ID: "c", SessionID: "s1", Timestamp: start.Add(2 * time.Second), PnL: -50, Percent: -2, Size: 2500, Type: core.TradeTypeLoss},
					{ID: "a", SessionID: "s1", Timestamp: start, PnL: 125, Percent: 5, Size: 2500, Type: core.TradeTypeWin},
					{ID: "b", SessionID: "s2", Timestamp: start.Add(time.Second), PnL: 10, Percent: 1, Size: 1000, Type: core.TradeTypeWin},
				}
				for _, trade := range trades {
					require.NoError(t, storage.SaveTrade(trade))
				}

				all, err := storage.Trades()
				require.NoError(t, err)
				require.Len(t, all, 3)
				require.Equal(t, []string{"a", "b", "c"}, []string{all[0].ID, all[1].ID, all[2].ID})
				require.True(t, all[0].Timestamp.Equal(start))

				s1, err := storage.Trades(core.WithSession("s1"))
				require.NoError(t, err)
				require.Len(t, s1, 2)

				wins, err := storage.Trades(core.WithSession("s1"), core.WithType(core.TradeTypeWin))
				require.NoError(t, err)
				require.Len(t, wins, 1)
				require.Equal(t, 125.0, wins[0].PnL)

				recent, err := storage.Trades(core.WithSince(start.Add(time.Second)))
				require.NoError(t, err)
				require.Len(t, recent, 2)
			})
		})
	}
}
