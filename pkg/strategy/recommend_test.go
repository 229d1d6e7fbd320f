package strategy

import (
	"testing"

	"github.com/raykavin/tradesim/pkg/core"
	"github.com/stretchr/testify/require"
)

func TestCatalog_Recommend(t *testing.T) {
	catalog := MustLoad()

	tests := []struct {
		name  string
		prefs core.Preferences
		ids   []int
	}{
		{"defaults", DefaultPreferences(), []int{1, 2, 5}},
		{"aggressive scalper on okx", core.Preferences{
			RiskTolerance: "aggressive", TradingTimeframe: "scalping",
			ExpectedReturn: 30, WinRate: 60, CryptoPreference: "okx",
		}, []int{10, 3, 8}},
		{"conservative swing on binance", core.Preferences{
			RiskTolerance: "conservative", TradingTimeframe: "swing",
			ExpectedReturn: 10, WinRate: 85, CryptoPreference: "binance",
		}, []int{4, 1, 6}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.ids, catalog.Recommend(tc.prefs))
		})
	}
}

func TestScore(t *testing.T) {
	profile := Profile{Styles: []string{"Day Trading"}, Cryptos: []string{"OKX"}}

	t.Run("okx is matched", func(t *testing.T) {
		prefs := core.Preferences{CryptoPreference: "okx", ExpectedReturn: 20, WinRate: 50}
		require.Equal(t, 3, Score(prefs, core.RiskLow, profile))
	})

	t.Run("high is not adjacent to low", func(t *testing.T) {
		prefs := core.Preferences{RiskTolerance: "conservative", ExpectedReturn: 20, WinRate: 85}
		require.Equal(t, 0, Score(prefs, core.RiskHigh, profile))
		require.Equal(t, 5, Score(prefs, core.RiskMedium, profile))
	})

	t.Run("unknown inputs add nothing", func(t *testing.T) {
		prefs := core.Preferences{RiskTolerance: "reckless", TradingTimeframe: "hodl", ExpectedReturn: 30, WinRate: 50}
		require.Equal(t, 0, Score(prefs, core.RiskMedium, Profile{}))
	})
}

func TestNormalize(t *testing.T) {
	prefs := Normalize(core.Preferences{ExpectedReturn: 100, WinRate: 10})
	require.Equal(t, 40.0, prefs.ExpectedReturn)
	require.Equal(t, 50.0, prefs.WinRate)
}
