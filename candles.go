package tradesim

import (
	"github.com/raykavin/tradesim/pkg/exchange"
)

// initializeCandles chains the live OKX candles with the random-walk
// generator, which never fails
func initializeCandles(app *TradeSim) {
	if app.candles != nil {
		return
	}

	seed := exchange.NewSeedGenerator(app.newRand(),
		exchange.WithCount(app.config.Simulation.Window+1),
	)
	app.candles = exchange.NewFallbackSource(app.log, app.okx, seed)
}
