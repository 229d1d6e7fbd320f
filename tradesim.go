// Package tradesim wires the simulation engine, the market data clients, the
// trade journal and the notifiers into one runnable application.
package tradesim

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/raykavin/tradesim/internal/config"
	"github.com/raykavin/tradesim/pkg/core"
	"github.com/raykavin/tradesim/pkg/exchange/binance"
	"github.com/raykavin/tradesim/pkg/exchange/coingecko"
	"github.com/raykavin/tradesim/pkg/exchange/jupiter"
	"github.com/raykavin/tradesim/pkg/exchange/okx"
	"github.com/raykavin/tradesim/pkg/logger"
	"github.com/raykavin/tradesim/pkg/market"
	"github.com/raykavin/tradesim/pkg/metric"
	"github.com/raykavin/tradesim/pkg/notification"
	"github.com/raykavin/tradesim/pkg/plot"
	"github.com/raykavin/tradesim/pkg/simulation"
	"github.com/raykavin/tradesim/pkg/storage"
	"github.com/raykavin/tradesim/pkg/strategy"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"gorm.io/driver/sqlite"
)

// DefaultLog is the process logger, configured from TRADESIM_LOG_* variables
var DefaultLog logger.Logger

const shutdownTimeout = 5 * time.Second

// TradeSim owns every long-lived component of the application
type TradeSim struct {
	config  *config.Config
	log     logger.Logger
	metrics *metric.Collector
	storage core.Storage
	catalog *strategy.Catalog

	okx        *okx.Client
	aggregator *market.Aggregator
	market     *market.Handler
	candles    core.CandleSource
	newRand    func() core.Rand

	manager  *simulation.Manager
	launcher *simulation.Launcher

	notifiers *dispatcher
	kafka     *notification.KafkaPublisher
	telegram  *notification.Telegram
}

// New builds the application from cfg. Nothing runs until Serve or Simulate.
func New(cfg *config.Config, options ...Option) (*TradeSim, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}

	app := &TradeSim{
		config:    cfg,
		log:       DefaultLog,
		notifiers: &dispatcher{},
	}

	for _, option := range options {
		option(app)
	}

	if app.metrics == nil {
		app.metrics = metric.NewCollector()
	}
	if app.newRand == nil {
		app.newRand = randSource(cfg.Simulation.Seed)
	}

	if err := initializeStorage(app); err != nil {
		return nil, err
	}

	catalog, err := strategy.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load strategy catalog: %w", err)
	}
	app.catalog = catalog

	initializeMarket(app)
	initializeCandles(app)

	if err := initializeNotifications(app); err != nil {
		return nil, err
	}

	app.manager = simulation.NewManager(app.log, app.metrics)
	app.launcher = simulation.NewLauncher(app.log, app.manager, app.catalog,
		simulation.WithCandles(app.candles, cfg.Simulation.Timeframe, cfg.Simulation.Window),
		simulation.WithRandSource(app.newRand),
		simulation.WithSelectionStore(app.storage),
		simulation.WithSessionOptions(app.sessionOptions()...),
	)

	return app, nil
}

// randSource returns a factory of independent sources. A non-zero seed makes
// the nth session reproducible.
func randSource(seed int64) func() core.Rand {
	if seed == 0 {
		return func() core.Rand { return core.NewRand(0) }
	}

	var n atomic.Int64
	return func() core.Rand {
		return core.NewRand(seed + n.Add(1) - 1)
	}
}

// initializeStorage opens the configured trade journal unless one was injected
func initializeStorage(app *TradeSim) error {
	if app.storage != nil {
		return nil
	}

	var err error
	switch app.config.Storage.Driver {
	case config.DriverSQLite:
		app.storage, err = storage.FromSQL(sqlite.Open(app.config.Storage.Path))
	default:
		app.storage, err = storage.FromFile(app.config.Storage.Path)
	}
	if err != nil {
		return fmt.Errorf("failed to open %s storage: %w", app.config.Storage.Driver, err)
	}
	return nil
}

// initializeMarket creates the upstream clients and the price aggregator
func initializeMarket(app *TradeSim) {
	cfg := app.config.Market

	app.okx = okx.New(app.log,
		okx.WithBaseURL(cfg.OKXBaseURL),
		okx.WithRateLimit(rate.Limit(cfg.RateLimit), cfg.Burst),
		okx.WithMetrics(app.metrics),
	)
	gecko := coingecko.New(coingecko.WithBaseURL(cfg.CoinGeckoBaseURL), coingecko.WithMetrics(app.metrics))
	jup := jupiter.New(jupiter.WithBaseURL(cfg.JupiterBaseURL), jupiter.WithMetrics(app.metrics))

	queries := []market.Query{
		{Source: okx.NewPriceSource(app.okx), IDs: cfg.Symbols},
		{Source: gecko, IDs: cfg.CoinGeckoIDs},
		{Source: jup, IDs: cfg.JupiterIDs},
	}
	if cfg.Binance {
		queries = append(queries, market.Query{
			Source: binance.NewPriceSource(binance.WithMetrics(app.metrics)),
			IDs:    cfg.Symbols,
		})
	}

	app.aggregator = market.NewAggregator(app.log, queries...)
	app.market = market.NewHandler(app.log, app.okx, gecko, jup, app.aggregator)
}

func (app *TradeSim) sessionOptions() []simulation.Option {
	cfg := app.config.Simulation
	return []simulation.Option{
		simulation.WithTickInterval(cfg.TickIntervalDuration()),
		simulation.WithRollover(cfg.RolloverDuration(), cfg.Window),
		simulation.WithTradeLogCap(cfg.TradeLogCap),
		simulation.WithMetrics(app.metrics),
		simulation.WithStorage(app.storage),
		simulation.WithNotifier(app.notifiers),
	}
}

func (app *TradeSim) Log() logger.Logger { return app.log }

func (app *TradeSim) Metrics() *metric.Collector { return app.metrics }

func (app *TradeSim) Storage() core.Storage { return app.storage }

func (app *TradeSim) Catalog() *strategy.Catalog { return app.catalog }

func (app *TradeSim) Manager() *simulation.Manager { return app.manager }

func (app *TradeSim) Candles() core.CandleSource { return app.candles }

func (app *TradeSim) OKX() *okx.Client { return app.okx }

func (app *TradeSim) Aggregator() *market.Aggregator { return app.aggregator }

// Rand returns a fresh randomness source following the configured seed
func (app *TradeSim) Rand() core.Rand { return app.newRand() }

// Notifier fans out to every registered notifier
func (app *TradeSim) Notifier() core.Notifier { return app.notifiers }

// Strategy resolves id, the stored selection or the first default
func (app *TradeSim) Strategy(id int) (core.Strategy, error) {
	return app.launcher.Strategy(id)
}

// Launch creates a session through the shared launcher
func (app *TradeSim) Launch(ctx context.Context, req simulation.Request) (*simulation.Session, error) {
	return app.launcher.Launch(ctx, req)
}

// Server builds the dashboard server over the application's components
func (app *TradeSim) Server(options ...plot.Option) (*plot.Server, error) {
	cfg := app.config

	defaults := []plot.Option{
		plot.WithPort(cfg.Server.Port),
		plot.WithStorage(app.storage),
		plot.WithMetrics(app.metrics),
		plot.WithCatalog(app.catalog),
		plot.WithMarketHandler(app.market),
		plot.WithLauncher(app.launcher),
		plot.WithRenderer(plot.NewRenderer(), cfg.Simulation.FrameIntervalDuration()),
	}
	if cfg.Server.Debug {
		defaults = append(defaults, plot.WithDebug())
	}

	return plot.NewServer(app.log, app.manager, append(defaults, options...)...)
}

// Serve runs the dashboard, the price poller and, when enabled, the Telegram
// bot until ctx is cancelled.
func (app *TradeSim) Serve(ctx context.Context) error {
	server, err := app.Server()
	if err != nil {
		return err
	}

	if app.config.Telegram.Enabled {
		session, err := app.Launch(ctx, simulation.Request{})
		if err != nil {
			return fmt.Errorf("failed to create telegram session: %w", err)
		}
		if err := app.BindTelegram(session); err != nil {
			return err
		}
	}

	group, ctx := errgroup.WithContext(ctx)

	group.Go(server.Start)

	group.Go(func() error {
		poller := market.NewPoller(app.log, market.FromAggregator(app.aggregator), app.config.Market.PollIntervalDuration())
		err := poller.Run(ctx, func(prices []core.AggregatedPrice) {
			for _, price := range prices {
				app.log.WithFields(logger.Fields{
					"symbol":    price.Symbol,
					"price":     price.Price,
					"exchanges": len(price.Exchanges),
				}).Debug("price update")
			}
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	app.notifiers.Notify("tradesim started")
	return group.Wait()
}

// Simulate runs a headless session for steps ticks on a virtual clock spaced
// by the configured tick interval and returns its summary.
func (app *TradeSim) Simulate(ctx context.Context, req simulation.Request, steps int) (simulation.Summary, error) {
	req.Start = false
	session, err := app.Launch(ctx, req)
	if err != nil {
		return simulation.Summary{}, err
	}
	defer func() {
		_ = app.manager.Delete(session.ID())
	}()

	interval := app.config.Simulation.TickIntervalDuration()
	now := time.Now()
	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return simulation.Summary{}, err
		}

		now = now.Add(interval)
		if _, err := session.Step(now); err != nil {
			return simulation.Summary{}, err
		}
	}

	return simulation.NewSummary(session.Snapshot()), nil
}

// Close disposes every session and releases the notifiers and the journal
func (app *TradeSim) Close() error {
	app.manager.Close()

	if app.telegram != nil {
		app.telegram.Stop()
	}

	var errs []error
	if app.kafka != nil {
		errs = append(errs, app.kafka.Close())
	}
	errs = append(errs, app.storage.Close())
	return errors.Join(errs...)
}
