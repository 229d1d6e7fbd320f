package simulation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	t.Run("valid values", func(t *testing.T) {
		p := ParseParams("5000", "3", "10", "1.5", "4", 60)
		require.Equal(t, Params{Budget: 5000, Leverage: 3, PositionSize: 10, StopLoss: 1.5, TakeProfit: 4, WinRate: 60}, p)
		require.Equal(t, 1500.0, p.TradeSize())
	})

	t.Run("invalid values fall back", func(t *testing.T) {
		p := ParseParams("", "abc", "NaN", "Inf", " ", 70)
		require.Equal(t, DefaultParams(), p)
	})

	t.Run("win rate clamped", func(t *testing.T) {
		require.Equal(t, 100.0, ParseParams("", "", "", "", "", 150).WinRate)
		require.Equal(t, 0.0, ParseParams("", "", "", "", "", -3).WinRate)
	})
}
