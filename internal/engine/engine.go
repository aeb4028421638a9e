// Package engine is the matching core: per-symbol order books, price-time
// priority matching, conditional order triggers, and trade notification
// fan-out. See spec sections 4.2-4.4.
package engine

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"vellum/internal/book"
	"vellum/internal/common"
)

// CreditHook is the optional pre-trade credit predicate installed with
// SetBalanceHook. It is invoked for BUY orders of type MARKET/LIMIT/IOC/FOK
// before matching; returning false fails the order with ErrInsufficientFunds.
type CreditHook func(owner, currency string, required decimal.Decimal) bool

// Listener receives every Trade, synchronously, in registration order, after
// last-trade-price has been updated. Listeners must not mutate engine state
// or block indefinitely; a panic or error is recovered and logged, never
// propagated to the matching path.
type Listener func(common.Trade)

// symbolState pairs a book with the mutex that serializes matching for it.
// Each symbol is its own single-writer lane: Submit for "BTC-USDT" never
// blocks on Submit for "ETH-USDT" (spec section 5).
type symbolState struct {
	mu   sync.Mutex
	book *book.Book
}

// Engine owns one Book per symbol (via symbolState) and the process-wide
// fee configuration. Submitting an order for an unseen symbol creates its
// book implicitly.
type Engine struct {
	fees common.FeeConfig

	symbolsMu sync.Mutex // guards the symbols map itself, not book contents
	symbols   map[string]*symbolState

	priceMu         sync.Mutex // guards lastTradePrices, written by any symbol lane
	lastTradePrices map[string]decimal.Decimal

	listenersMu sync.Mutex
	listeners   []Listener

	creditHook CreditHook

	seqMu sync.Mutex
	seq   uint64 // monotonic order-arrival counter, stamped on each admitted order

	now func() time.Time // overridable for deterministic tests
}

// New constructs an Engine with the given fee configuration.
func New(fees common.FeeConfig) *Engine {
	return &Engine{
		fees:            fees,
		symbols:         make(map[string]*symbolState),
		lastTradePrices: make(map[string]decimal.Decimal),
		now:             time.Now,
	}
}

// stateFor returns the symbol lane for symbol, creating it on first use.
func (e *Engine) stateFor(symbol string) *symbolState {
	e.symbolsMu.Lock()
	defer e.symbolsMu.Unlock()
	s, ok := e.symbols[symbol]
	if !ok {
		s = &symbolState{book: book.New(symbol)}
		e.symbols[symbol] = s
		log.Debug().Str("symbol", symbol).Msg("auto-created book")
	}
	return s
}

// Symbols returns every symbol the engine has created a book for, in no
// particular order. Used by the periodic snapshot writer to discover what
// to persist without tracking a separate symbol registry.
func (e *Engine) Symbols() []string {
	e.symbolsMu.Lock()
	defer e.symbolsMu.Unlock()
	out := make([]string, 0, len(e.symbols))
	for symbol := range e.symbols {
		out = append(out, symbol)
	}
	return out
}

// SetBalanceHook installs the pre-trade credit predicate.
func (e *Engine) SetBalanceHook(hook CreditHook) {
	e.creditHook = hook
}

// SubscribeTrades registers a listener; listeners live for the lifetime of
// the Engine. There is no unsubscribe path — the spec's fan-out contract is
// registration-order delivery, not dynamic membership.
func (e *Engine) SubscribeTrades(l Listener) {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()
	e.listeners = append(e.listeners, l)
}

// Depth returns up to `levels` best bids and asks for symbol.
func (e *Engine) Depth(symbol string, levels int) (bids, asks []book.LevelSummary) {
	s := e.stateFor(symbol)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.Depth(levels)
}

// LastTradePrice returns the most recent trade price for symbol, or
// decimal.Zero, false if none has traded yet.
func (e *Engine) LastTradePrice(symbol string) (decimal.Decimal, bool) {
	e.priceMu.Lock()
	defer e.priceMu.Unlock()
	p, ok := e.lastTradePrices[symbol]
	return p, ok
}

func (e *Engine) setLastTradePrice(symbol string, price decimal.Decimal) {
	e.priceMu.Lock()
	e.lastTradePrices[symbol] = price
	e.priceMu.Unlock()
}

// nextSeq hands out a strictly increasing arrival counter across all
// symbols; only relative order within a symbol's price level matters.
func (e *Engine) nextSeq() uint64 {
	e.seqMu.Lock()
	defer e.seqMu.Unlock()
	e.seq++
	return e.seq
}
