package notification

import (
	"fmt"
	"net/smtp"

	"github.com/raykavin/tradesim/pkg/core"
	log "github.com/sirupsen/logrus"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mail sends notifications by email. Only losing trades are mailed.
type Mail struct {
	auth              smtp.Auth
	smtpServerPort    int
	smtpServerAddress string
	to                string
	from              string
	send              sendMailFunc
}

// MailParams contains all parameters needed to initialize a Mail instance
type MailParams struct {
	SMTPServerPort    int
	SMTPServerAddress string
	To                string
	From              string
	Password          string
}

func NewMail(params MailParams) *Mail {
	return &Mail{
		from:              params.From,
		to:                params.To,
		smtpServerPort:    params.SMTPServerPort,
		smtpServerAddress: params.SMTPServerAddress,
		auth:              smtp.PlainAuth("", params.From, params.Password, params.SMTPServerAddress),
		send:              smtp.SendMail,
	}
}

func (m *Mail) Notify(text string) {
	serverAddress := fmt.Sprintf("%s:%d", m.smtpServerAddress, m.smtpServerPort)
	message := fmt.Sprintf("To: \"User\" <%s>\nFrom: \"tradesim\" <%s>\n%s", m.to, m.from, text)

	if err := m.send(serverAddress, m.auth, m.from, []string{m.to}, []byte(message)); err != nil {
		log.WithError(err).Error("notification/mail: failed to send email")
	}
}

func (m *Mail) OnTrade(trade core.TradeEvent) {
	if trade.IsWin() {
		return
	}
	m.Notify(fmt.Sprintf("Subject: LOSING TRADE - %s\n%s", trade.SessionID, FormatTrade(trade)))
}

func (m *Mail) OnError(err error) {
	m.Notify(fmt.Sprintf("Subject: ERROR\nError %s", err))
}
