// Package notification delivers session and deployment events to people and
// downstream systems.
package notification

import (
	"fmt"

	"github.com/raykavin/tradesim/pkg/core"
)

// Multi fans every notification out to several notifiers
type Multi []core.Notifier

func (m Multi) Notify(text string) {
	for _, n := range m {
		n.Notify(text)
	}
}

func (m Multi) OnTrade(trade core.TradeEvent) {
	for _, n := range m {
		n.OnTrade(trade)
	}
}

func (m Multi) OnError(err error) {
	for _, n := range m {
		n.OnError(err)
	}
}

// FormatTrade renders a trade as a short human readable line
func FormatTrade(trade core.TradeEvent) string {
	title := "WIN"
	if !trade.IsWin() {
		title = "LOSS"
	}
	return fmt.Sprintf("%s %+.2f%% | PnL %+.2f | size %.2f | %s",
		title, trade.Percent, trade.PnL, trade.Size, trade.Timestamp.Format("15:04:05"))
}
