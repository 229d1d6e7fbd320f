package strategy

import (
	"sort"
	"strings"

	"github.com/raykavin/tradesim/pkg/core"
	"github.com/samber/lo"
)

const recommendationCount = 3

var (
	riskByTolerance = map[string]core.Risk{
		"conservative": core.RiskLow,
		"moderate":     core.RiskMedium,
		"aggressive":   core.RiskHigh,
	}

	styleByTimeframe = map[string]string{
		"scalping": "Scalping",
		"day":      "Day Trading",
		"swing":    "Swing Trading",
	}

	cryptoNames = map[string]string{
		"okx":     "OKX",
		"binance": "Binance",
	}
)

// DefaultPreferences are the initial values of the preference form
func DefaultPreferences() core.Preferences {
	return core.Preferences{
		RiskTolerance:    "moderate",
		TradingTimeframe: "day",
		ExpectedReturn:   15,
		WinRate:          70,
		CryptoPreference: "bitcoin",
	}
}

// Normalize clamps the slider values into their ranges
func Normalize(prefs core.Preferences) core.Preferences {
	prefs.ExpectedReturn = lo.Clamp(prefs.ExpectedReturn, 5, 40)
	prefs.WinRate = lo.Clamp(prefs.WinRate, 50, 90)
	return prefs
}

// Score rates how well a strategy profile fits the preferences
func Score(prefs core.Preferences, risk core.Risk, profile Profile) int {
	wanted, knownRisk := riskByTolerance[prefs.RiskTolerance]
	style := styleByTimeframe[prefs.TradingTimeframe]
	crypto := cryptoName(prefs.CryptoPreference)

	score := 0
	switch {
	case knownRisk && risk == wanted:
		score += 5
	case wanted == core.RiskLow && risk == core.RiskMedium,
		wanted == core.RiskMedium && (risk == core.RiskLow || risk == core.RiskHigh):
		score += 2
	}

	if style != "" && lo.Contains(profile.Styles, style) {
		score += 4
	}
	if lo.Contains(profile.Cryptos, crypto) {
		score += 3
	}

	switch {
	case prefs.ExpectedReturn > 25 && risk == core.RiskHigh,
		prefs.ExpectedReturn > 15 && prefs.ExpectedReturn <= 25 && risk == core.RiskMedium,
		prefs.ExpectedReturn <= 15 && risk == core.RiskLow:
		score += 2
	}

	switch {
	case prefs.WinRate > 80 && (risk == core.RiskLow || risk == core.RiskMedium),
		prefs.WinRate > 65 && prefs.WinRate <= 80,
		prefs.WinRate <= 65 && risk == core.RiskHigh:
		score += 1
	}

	return score
}

// Recommend returns the ids of the three best scoring strategies. Ties go
// to the lower id.
func (c *Catalog) Recommend(prefs core.Preferences) []int {
	if len(c.entries) == 0 {
		return append([]int(nil), DefaultIDs...)
	}

	type scored struct {
		id    int
		score int
	}

	scores := lo.Map(c.entries, func(e entry, _ int) scored {
		return scored{id: e.ID, score: Score(prefs, e.Risk, e.Profile)}
	})
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	ids := lo.Map(scores, func(s scored, _ int) int { return s.id })
	if len(ids) > recommendationCount {
		ids = ids[:recommendationCount]
	}
	return ids
}

func cryptoName(preference string) string {
	if name, ok := cryptoNames[strings.ToLower(preference)]; ok {
		return name
	}
	if preference == "" {
		return ""
	}
	return strings.ToUpper(preference[:1]) + preference[1:]
}
