package notification

import (
	"github.com/raykavin/tradesim/pkg/core"
	log "github.com/sirupsen/logrus"
)

// LogNotifier writes notifications to a logrus logger. It is the default sink.
type LogNotifier struct {
	entry *log.Entry
}

// NewLogNotifier logs through logger, or the logrus standard logger when nil
func NewLogNotifier(logger *log.Logger) *LogNotifier {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &LogNotifier{entry: log.NewEntry(logger).WithField("component", "notification")}
}

func (l *LogNotifier) Notify(text string) {
	l.entry.Info(text)
}

func (l *LogNotifier) OnTrade(trade core.TradeEvent) {
	l.entry.WithFields(log.Fields{
		"session": trade.SessionID,
		"type":    trade.Type,
		"pnl":     trade.PnL,
		"percent": trade.Percent,
	}).Debug("trade")
}

func (l *LogNotifier) OnError(err error) {
	l.entry.WithError(err).Error("simulation error")
}
