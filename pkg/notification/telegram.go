package notification

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/raykavin/tradesim/pkg/core"
	"github.com/raykavin/tradesim/pkg/simulation"
	log "github.com/sirupsen/logrus"
	tb "gopkg.in/tucnak/telebot.v2"
)

// SessionController is the part of a simulation session the bot drives
type SessionController interface {
	Start()
	Pause()
	Reset()
	Status() simulation.Status
	Snapshot() simulation.Snapshot
}

// Telegram implements core.NotifierWithStart and controls one bound session
type Telegram struct {
	settings    *core.Settings
	session     SessionController
	defaultMenu *tb.ReplyMarkup
	client      *tb.Bot
	// onlyLosses mutes winning trade pushes
	onlyLosses bool
}

// TelegramOption configures a Telegram instance
type TelegramOption func(telegram *Telegram)

// WithOnlyLosses pushes losing trades only
func WithOnlyLosses() TelegramOption {
	return func(telegram *Telegram) {
		telegram.onlyLosses = true
	}
}

// NewTelegram creates and initializes a new Telegram service
func NewTelegram(session SessionController, settings *core.Settings, options ...TelegramOption) (*Telegram, error) {
	menu := &tb.ReplyMarkup{ResizeReplyKeyboard: true}
	poller := &tb.LongPoller{Timeout: 10 * time.Second}

	client, err := tb.NewBot(tb.Settings{
		ParseMode: tb.ModeMarkdown,
		Token:     settings.Telegram.Token,
		Poller:    createAuthMiddleware(poller, settings),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	setupKeyboard(menu)
	if err := setupCommands(client); err != nil {
		return nil, fmt.Errorf("failed to set commands: %w", err)
	}

	bot := &Telegram{
		session:     session,
		client:      client,
		settings:    settings,
		defaultMenu: menu,
	}

	for _, option := range options {
		option(bot)
	}

	registerHandlers(client, bot)

	return bot, nil
}

// createAuthMiddleware drops updates from users outside the allow list
func createAuthMiddleware(poller *tb.LongPoller, settings *core.Settings) *tb.MiddlewarePoller {
	return tb.NewMiddlewarePoller(poller, func(u *tb.Update) bool {
		return authorized(settings, u)
	})
}

func authorized(settings *core.Settings, u *tb.Update) bool {
	if u.Message == nil || u.Message.Sender == nil {
		log.Error("message or sender is nil ", u)
		return false
	}

	if slices.Contains(settings.Telegram.Users, int(u.Message.Sender.ID)) {
		return true
	}

	log.Error("unauthorized user ", u.Message.Sender.ID)
	return false
}

func setupKeyboard(menu *tb.ReplyMarkup) {
	var (
		statusBtn = menu.Text("/status")
		profitBtn = menu.Text("/profit")
		startBtn  = menu.Text("/start")
		pauseBtn  = menu.Text("/pause")
		resetBtn  = menu.Text("/reset")
	)

	menu.Reply(
		menu.Row(statusBtn, profitBtn),
		menu.Row(startBtn, pauseBtn, resetBtn),
	)
}

func setupCommands(client *tb.Bot) error {
	return client.SetCommands([]tb.Command{
		{Text: "/help", Description: "Display help instructions"},
		{Text: "/status", Description: "Session status and running totals"},
		{Text: "/profit", Description: "Summary of simulated trades"},
		{Text: "/start", Description: "Start the simulation"},
		{Text: "/pause", Description: "Pause the simulation"},
		{Text: "/reset", Description: "Pause and clear trades and totals"},
	})
}

func registerHandlers(client *tb.Bot, bot *Telegram) {
	client.Handle("/help", bot.HelpHandle)
	client.Handle("/status", bot.StatusHandle)
	client.Handle("/profit", bot.ProfitHandle)
	client.Handle("/start", bot.StartHandle)
	client.Handle("/pause", bot.PauseHandle)
	client.Handle("/reset", bot.ResetHandle)
}

// Start begins polling and greets all authorized users
func (t *Telegram) Start() {
	go t.client.Start()
	t.sendMessageWithOptions("Simulator connected.", t.defaultMenu)
}

// Stop ends polling
func (t *Telegram) Stop() {
	t.client.Stop()
}

// Notify sends a message to all authorized users
func (t *Telegram) Notify(text string) {
	t.sendMessageWithOptions(text)
}

func (t *Telegram) sendMessageWithOptions(text string, options ...interface{}) {
	for _, user := range t.settings.Telegram.Users {
		_, err := t.client.Send(&tb.User{ID: int64(user)}, text, options...)
		if err != nil {
			log.WithError(err).Error("failed to send notification")
		}
	}
}

func (t *Telegram) sendMessage(to *tb.User, text string, options ...interface{}) {
	_, err := t.client.Send(to, text, options...)
	if err != nil {
		log.WithError(err).Error("failed to send message")
	}
}

// HelpHandle displays available commands
func (t *Telegram) HelpHandle(m *tb.Message) {
	commands, err := t.client.GetCommands()
	if err != nil {
		log.WithError(err).Error("failed to get commands")
		t.OnError(err)
		return
	}

	lines := make([]string, 0, len(commands))
	for _, command := range commands {
		lines = append(lines, fmt.Sprintf("/%s - %s", command.Text, command.Description))
	}

	t.sendMessage(m.Sender, strings.Join(lines, "\n"))
}

// StatusHandle displays the session state and running totals
func (t *Telegram) StatusHandle(m *tb.Message) {
	t.sendMessage(m.Sender, statusMessage(t.session.Snapshot()))
}

func statusMessage(snapshot simulation.Snapshot) string {
	a := snapshot.Aggregates
	return fmt.Sprintf("Status: `%s`\nStrategy: `%s`\nPrice: `%.2f`\nTrades: `%d`\nPnL: `%s`\nWin rate: `%.1f%%`\nReturn: `%.2f%%`",
		snapshot.Status, snapshot.Strategy.Name, snapshot.Price, a.TotalTrades,
		formatSigned(a.TotalPnL), a.WinRate, a.EstimatedReturn)
}

// ProfitHandle shows the statistics of the simulated trades
func (t *Telegram) ProfitHandle(m *tb.Message) {
	snapshot := t.session.Snapshot()
	if len(snapshot.Trades) == 0 {
		t.sendMessage(m.Sender, "No trades registered.")
		return
	}

	summary := simulation.NewSummary(snapshot)
	t.sendMessage(m.Sender, fmt.Sprintf("*SESSION*: `%s`\n```\n%s```", snapshot.ID, summary.String()))
}

// StartHandle starts the bound session
func (t *Telegram) StartHandle(m *tb.Message) {
	if t.session.Status() == simulation.StatusRunning {
		t.sendMessage(m.Sender, "Simulation is already running.", t.defaultMenu)
		return
	}

	t.session.Start()
	t.sendMessage(m.Sender, "Simulation started.", t.defaultMenu)
}

// PauseHandle pauses the bound session
func (t *Telegram) PauseHandle(m *tb.Message) {
	if t.session.Status() != simulation.StatusRunning {
		t.sendMessage(m.Sender, "Simulation is already paused.", t.defaultMenu)
		return
	}

	t.session.Pause()
	t.sendMessage(m.Sender, "Simulation paused.", t.defaultMenu)
}

// ResetHandle clears trades and totals of the bound session
func (t *Telegram) ResetHandle(m *tb.Message) {
	t.session.Reset()
	t.sendMessage(m.Sender, "Simulation reset.", t.defaultMenu)
}

// OnTrade pushes a trade to all authorized users
func (t *Telegram) OnTrade(trade core.TradeEvent) {
	if t.onlyLosses && trade.IsWin() {
		return
	}
	t.Notify(tradeMessage(trade))
}

func tradeMessage(trade core.TradeEvent) string {
	title := "✅ WINNING TRADE"
	if !trade.IsWin() {
		title = "❌ LOSING TRADE"
	}
	return fmt.Sprintf("%s\n-----\n%s", title, FormatTrade(trade))
}

// OnError notifies users about errors
func (t *Telegram) OnError(err error) {
	t.Notify(fmt.Sprintf("🛑 ERROR\n-----\n%s", err))
}

func formatSigned(v float64) string {
	if v >= 0 {
		return fmt.Sprintf("+%.2f", v)
	}
	return fmt.Sprintf("%.2f", v)
}
