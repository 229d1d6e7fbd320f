package core

import "encoding/json"

// Risk is the risk bucket a strategy is filed under
type Risk string

const (
	RiskLow    Risk = "Low"
	RiskMedium Risk = "Medium"
	RiskHigh   Risk = "High"
)

// Strategy describes one entry of the strategy catalog
type Strategy struct {
	ID             int      `json:"id" yaml:"id"`
	Name           string   `json:"name" yaml:"name"`
	Summary        string   `json:"summary" yaml:"summary"`
	Risk           Risk     `json:"risk" yaml:"risk"`
	Frequency      string   `json:"frequency" yaml:"frequency"`
	ExpectedReturn string   `json:"expectedReturn" yaml:"expected_return"`
	WinRate        float64  `json:"winRate" yaml:"win_rate"`
	Description    string   `json:"description" yaml:"description"`
	Tags           []string `json:"tags" yaml:"tags"`
	BestFor        []string `json:"bestFor" yaml:"best_for"`
}

// Encode serializes the strategy for key-value storage
func (s Strategy) Encode() (string, error) {
	content, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// Preferences are the answers of the preference form
type Preferences struct {
	RiskTolerance    string  `json:"riskTolerance"`    // conservative, moderate, aggressive
	TradingTimeframe string  `json:"tradingTimeframe"` // scalping, day, swing
	ExpectedReturn   float64 `json:"expectedReturn"`   // monthly percent, 5..40
	WinRate          float64 `json:"winRate"`          // percent, 50..90
	CryptoPreference string  `json:"cryptoPreference"` // bitcoin, ethereum, solana, okx, binance
}
