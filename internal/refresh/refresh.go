// Package refresh runs quote fetches off the interactive goroutine. At most
// one batch is in flight; results are delivered through a buffered channel
// and drained without blocking by Poll.
package refresh

import (
	"context"
	"log/slog"
	"time"

	"stocktui/internal/cache"
	"stocktui/internal/domain"
	"stocktui/internal/util"
)

// Fetcher is the network side of a refresh.
type Fetcher interface {
	Fetch(ctx context.Context, symbol string) (domain.Quote, bool)
}

// Message is one result published by a running batch.
type Message interface {
	isMessage()
}

// RateResult carries a freshly fetched exchange rate.
type RateResult struct {
	Symbol    string
	Quote     domain.Quote
	FetchedAt time.Time
}

// PriceResult carries the outcome for one symbol. OK is false when every
// source failed; Quote is then the zero value.
type PriceResult struct {
	Symbol    string
	Quote     domain.Quote
	OK        bool
	FetchedAt time.Time
}

// BatchComplete is the last message of a batch.
type BatchComplete struct {
	At time.Time
}

func (RateResult) isMessage()    {}
func (PriceResult) isMessage()   {}
func (BatchComplete) isMessage() {}

// State of the orchestrator.
type State int

const (
	Idle State = iota
	Fetching
)

func (s State) String() string {
	if s == Fetching {
		return "fetching"
	}
	return "idle"
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRateSymbol sets the exchange-rate pseudo-symbol fetched at the start of
// every batch. An empty symbol disables the rate fetch.
func WithRateSymbol(symbol string) Option {
	return func(o *Orchestrator) { o.rateSymbol = symbol }
}

// WithLimiter throttles requests within a batch.
func WithLimiter(rl *util.RateLimiter) Option {
	return func(o *Orchestrator) { o.limiter = rl }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithClock overrides the time source used to stamp results.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// Orchestrator owns the Idle/Fetching state and the result channel. Start,
// Poll and Fetching must be called from the same goroutine.
type Orchestrator struct {
	fetcher    Fetcher
	disk       *cache.Disk[domain.Quote]
	rateSymbol string
	limiter    *util.RateLimiter
	log        *slog.Logger
	now        func() time.Time

	state State
	ch    chan Message
}

// New creates an idle orchestrator. disk may be nil, in which case results
// are only published, not persisted.
func New(f Fetcher, disk *cache.Disk[domain.Quote], opts ...Option) *Orchestrator {
	o := &Orchestrator{
		fetcher:    f,
		disk:       disk,
		rateSymbol: "USDTWD=X",
		log:        slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current state.
func (o *Orchestrator) State() State { return o.state }

// Fetching reports whether a batch is in flight.
func (o *Orchestrator) Fetching() bool { return o.state == Fetching }

// Start launches a batch over a snapshot of symbols. It returns false and
// does nothing while a batch is already running.
func (o *Orchestrator) Start(ctx context.Context, symbols []string) bool {
	if o.state == Fetching {
		return false
	}
	batch := append([]string(nil), symbols...)

	// Room for every message of the batch so the worker never blocks.
	ch := make(chan Message, len(batch)+2)
	o.ch = ch
	o.state = Fetching

	o.log.Debug("refresh batch started", "symbols", len(batch))
	go o.run(ctx, batch, ch)
	return true
}

func (o *Orchestrator) run(ctx context.Context, symbols []string, ch chan<- Message) {
	if o.rateSymbol != "" {
		if q, ok := o.fetch(ctx, o.rateSymbol); ok && q.Price > 0 {
			at := o.now()
			o.persist(o.rateSymbol, q, at)
			ch <- RateResult{Symbol: o.rateSymbol, Quote: q, FetchedAt: at}
		}
	}

	var failed int
	for _, sym := range symbols {
		q, ok := o.fetch(ctx, sym)
		at := o.now()
		if ok {
			o.persist(sym, q, at)
		} else {
			failed++
		}
		ch <- PriceResult{Symbol: sym, Quote: q, OK: ok, FetchedAt: at}
	}

	done := o.now()
	o.log.Debug("refresh batch complete", "symbols", len(symbols), "failed", failed)
	ch <- BatchComplete{At: done}
}

func (o *Orchestrator) fetch(ctx context.Context, symbol string) (domain.Quote, bool) {
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return domain.Quote{}, false
		}
	}
	return o.fetcher.Fetch(ctx, symbol)
}

func (o *Orchestrator) persist(symbol string, q domain.Quote, at time.Time) {
	if o.disk == nil {
		return
	}
	if err := o.disk.Store(symbol, cache.Entry[domain.Quote]{Value: q, FetchedAt: at}); err != nil {
		o.log.Debug("disk cache write failed", "symbol", symbol, "error", err)
	}
}

// Poll returns every message currently queued without blocking. Seeing
// BatchComplete returns the orchestrator to Idle.
func (o *Orchestrator) Poll() []Message {
	if o.ch == nil {
		return nil
	}
	var msgs []Message
	for {
		select {
		case m := <-o.ch:
			msgs = append(msgs, m)
			if _, ok := m.(BatchComplete); ok {
				o.state = Idle
				o.ch = nil
				return msgs
			}
		default:
			return msgs
		}
	}
}
