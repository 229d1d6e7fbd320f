package market

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/raykavin/tradesim/pkg/core"
	"github.com/raykavin/tradesim/pkg/logger"
)

// TickerSource returns quotes for instrument ids, as the OKX client does
type TickerSource interface {
	Tickers(ctx context.Context, symbols []string) ([]core.Price, error)
}

// Handler serves the price proxy functions
type Handler struct {
	tickers    TickerSource
	coingecko  core.PriceSource
	jupiter    core.PriceSource
	aggregator *Aggregator
	log        logger.Logger
}

func NewHandler(log logger.Logger, tickers TickerSource, coingecko, jupiter core.PriceSource, aggregator *Aggregator) *Handler {
	return &Handler{
		tickers:    tickers,
		coingecko:  coingecko,
		jupiter:    jupiter,
		aggregator: aggregator,
		log:        log,
	}
}

// Register mounts the functions on router, usually under /functions
func (h *Handler) Register(router *mux.Router) {
	router.Use(cors)
	router.HandleFunc("/okx-market-data", h.handleOKX).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/coingecko-prices", h.handleCoinGecko).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/jupiter-prices", h.handleJupiter).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/price-aggregator", h.handleAggregator).Methods(http.MethodPost, http.MethodOptions)
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// readList decodes {field: [...]} and reports whether field is an array
func readList(r *http.Request, field string) ([]string, bool) {
	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, false
	}

	raw, ok := body[field]
	if !ok {
		return nil, false
	}

	var values []string
	if err := json.Unmarshal(raw, &values); err != nil || values == nil {
		return nil, false
	}
	return values, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.WithError(err).Error("failed to encode response")
	}
}

func (h *Handler) fail(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) handleOKX(w http.ResponseWriter, r *http.Request) {
	symbols, ok := readList(r, "symbols")
	if !ok {
		h.fail(w, http.StatusBadRequest, "Symbols array is required")
		return
	}

	prices, err := h.tickers.Tickers(r.Context(), symbols)
	if err != nil {
		h.log.WithError(err).Error("OKX API error")
		h.fail(w, http.StatusInternalServerError, "Failed to fetch OKX market data")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"data": prices})
}

func (h *Handler) handleCoinGecko(w http.ResponseWriter, r *http.Request) {
	coins, ok := readList(r, "coins")
	if !ok {
		h.fail(w, http.StatusBadRequest, "Coins array is required")
		return
	}

	prices, err := h.coingecko.Prices(r.Context(), coins)
	if err != nil {
		h.log.WithError(err).Error("CoinGecko API error")
		h.fail(w, http.StatusInternalServerError, "Failed to fetch CoinGecko price data")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"data": prices})
}

func (h *Handler) handleJupiter(w http.ResponseWriter, r *http.Request) {
	tokens, ok := readList(r, "tokens")
	if !ok {
		h.fail(w, http.StatusBadRequest, "Tokens array is required")
		return
	}

	prices, err := h.jupiter.Prices(r.Context(), tokens)
	if err != nil {
		h.log.WithError(err).Error("Jupiter API error")
		h.fail(w, http.StatusInternalServerError, "Failed to fetch Jupiter price data")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"data": prices})
}

// handleAggregator requires an assets array but always aggregates the
// configured queries whatever it lists.
func (h *Handler) handleAggregator(w http.ResponseWriter, r *http.Request) {
	if _, ok := readList(r, "assets"); !ok {
		h.fail(w, http.StatusBadRequest, "Assets array is required")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"data": h.aggregator.Aggregate(r.Context())})
}
