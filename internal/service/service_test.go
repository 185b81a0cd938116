package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	cachemem "github.com/alanyoungcy/portfoliod/internal/cache/memory"
	"github.com/alanyoungcy/portfoliod/internal/domain"
	"github.com/alanyoungcy/portfoliod/internal/ledger"
	storemem "github.com/alanyoungcy/portfoliod/internal/store/memory"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type stubQuotes struct {
	mu      sync.Mutex
	prices  map[string]string
	err     error
	calls   map[string]int
	matches []domain.SymbolMatch
	bars    []domain.PriceBar
}

func newStubQuotes(prices map[string]string) *stubQuotes {
	return &stubQuotes{prices: prices, calls: make(map[string]int)}
}

func (q *stubQuotes) setErr(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.err = err
}

func (q *stubQuotes) Quote(_ context.Context, symbol string) (domain.Quote, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls["quote:"+symbol]++
	if q.err != nil {
		return domain.Quote{}, q.err
	}
	p, ok := q.prices[symbol]
	if !ok {
		return domain.Quote{}, fmt.Errorf("stub: %s: %w", symbol, domain.ErrNotFound)
	}
	return domain.Quote{Symbol: symbol, Price: dec(p), ChangePercent: 1.5}, nil
}

func (q *stubQuotes) Search(_ context.Context, query string) ([]domain.SymbolMatch, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls["search:"+query]++
	if q.err != nil {
		return nil, q.err
	}
	return q.matches, nil
}

func (q *stubQuotes) History(_ context.Context, symbol string, interval domain.Interval) ([]domain.PriceBar, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls[fmt.Sprintf("history:%s:%s", symbol, interval)]++
	if q.err != nil {
		return nil, q.err
	}
	return q.bars, nil
}

func (q *stubQuotes) count(key string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.calls[key]
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
	trades []domain.TradeEvent
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, event, _, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func (n *recordingNotifier) NotifyTrade(_ context.Context, evt domain.TradeEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.trades = append(n.trades, evt)
	return n.err
}

type memBlob struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (b *memBlob) Put(_ context.Context, path string, data io.Reader, _ string) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, data); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.objects == nil {
		b.objects = make(map[string][]byte)
	}
	b.objects[path] = buf.Bytes()
	return nil
}

// env wires every service over one in-memory database.
type env struct {
	db          *storemem.DB
	quotes      *stubQuotes
	notifier    *recordingNotifier
	bus         *cachemem.EventBus
	audit       *storemem.AuditStore
	stocks      *StockService
	portfolios  *PortfolioService
	simulations *SimulationService
	trades      *TradeService
}

func newEnv(t *testing.T, prices map[string]string) *env {
	t.Helper()
	db := storemem.New()
	logger := discardLogger()

	e := &env{
		db:       db,
		quotes:   newStubQuotes(prices),
		notifier: &recordingNotifier{},
		bus:      cachemem.NewEventBus(),
		audit:    storemem.NewAuditStore(db),
	}
	txs := storemem.NewTransactionStore(db)
	l := storemem.NewLedger(db)

	e.stocks = NewStockService(storemem.NewStockStore(db), e.quotes, cachemem.NewTTLCache(time.Minute), logger)
	e.portfolios = NewPortfolioService(storemem.NewPortfolioStore(db), txs, e.stocks, e.audit, e.notifier, logger)
	e.simulations = NewSimulationService(storemem.NewSimulationStore(db), txs, l, e.stocks, dec("100000"), e.audit, e.notifier, logger)
	e.trades = NewTradeService(ledger.NewValidator(l, e.stocks), e.bus, e.audit, e.notifier, logger)
	return e
}

func (e *env) auditEvents(t *testing.T) []string {
	t.Helper()
	entries, err := e.audit.List(context.Background(), domain.ListOpts{})
	require.NoError(t, err)
	out := make([]string, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		out = append(out, entries[i].Event)
	}
	return out
}

func order(symbol string, side domain.Side, qty int64, price string) ledger.Order {
	return ledger.Order{Symbol: symbol, Side: side, Quantity: qty, Price: dec(price)}
}
