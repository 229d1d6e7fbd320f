package tradesim

import (
	"sync"

	"github.com/raykavin/tradesim/pkg/core"
	"github.com/raykavin/tradesim/pkg/notification"
	"github.com/sirupsen/logrus"
)

// dispatcher is the notifier handed to every session. Notifiers may be added
// after sessions exist, e.g. Telegram once its bound session is created.
type dispatcher struct {
	mu        sync.RWMutex
	notifiers notification.Multi
}

func (d *dispatcher) add(notifier core.Notifier) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifiers = append(d.notifiers, notifier)
}

func (d *dispatcher) current() notification.Multi {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.notifiers
}

func (d *dispatcher) Notify(text string) { d.current().Notify(text) }

func (d *dispatcher) OnTrade(trade core.TradeEvent) { d.current().OnTrade(trade) }

func (d *dispatcher) OnError(err error) { d.current().OnError(err) }

// initializeNotifications sets up the trade log, the Kafka publisher and the
// mail alerts
func initializeNotifications(app *TradeSim) error {
	app.notifiers.add(notification.NewLogNotifier(logrus.StandardLogger()))

	settings := app.config.Settings()
	if settings.Kafka.Enabled {
		app.kafka = notification.NewKafkaPublisher(settings.Kafka)
		app.notifiers.add(app.kafka)
	}

	if mail := app.config.Mail; mail.Enabled {
		app.notifiers.add(notification.NewMail(notification.MailParams{
			SMTPServerAddress: mail.Host,
			SMTPServerPort:    mail.Port,
			From:              mail.From,
			To:                mail.To,
			Password:          mail.Password,
		}))
	}
	return nil
}

// BindTelegram starts the Telegram bot controlling session and registers it
// as a notifier of every session
func (app *TradeSim) BindTelegram(session notification.SessionController, options ...notification.TelegramOption) error {
	telegram, err := notification.NewTelegram(session, app.config.Settings(), options...)
	if err != nil {
		return err
	}

	app.telegram = telegram
	app.notifiers.add(telegram)
	telegram.Start()
	return nil
}
