// Package notify delivers operator notifications for ledger activity to chat
// channels (Discord, Telegram). Messages can be filtered by event type.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/portfoliod/internal/domain"
)

// Event types understood by Notify.
const (
	EventTrade            = "trade"
	EventContainerCreated = "container_created"
	EventContainerDeleted = "container_deleted"
)

// Sender is a single notification channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// Notifier fans a notification out to every Sender. Only event types in the
// allowed set are forwarded; an empty set allows everything.
type Notifier struct {
	senders  []Sender
	events   map[string]bool
	currency string
	logger   *slog.Logger
}

// NewNotifier creates a Notifier. currency is the ISO code amounts are
// rendered in and defaults to USD.
func NewNotifier(senders []Sender, events []string, currency string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	if currency == "" {
		currency = money.USD
	}
	return &Notifier{
		senders:  senders,
		events:   allowed,
		currency: strings.ToUpper(currency),
		logger:   logger.With(slog.String("component", "notifier")),
	}
}

// Enabled reports whether at least one sender is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && len(n.senders) > 0
}

// Notify sends title and message if event passes the filter.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "notify: event filtered out", slog.String("event", event))
		return nil
	}
	return n.dispatch(ctx, title, message)
}

// NotifyTrade renders an executed trade and sends it as an EventTrade.
func (n *Notifier) NotifyTrade(ctx context.Context, evt domain.TradeEvent) error {
	title, message := n.FormatTrade(evt)
	return n.Notify(ctx, EventTrade, title, message)
}

// FormatTrade renders evt as a title and a message body.
func (n *Notifier) FormatTrade(evt domain.TradeEvent) (string, string) {
	t := evt.Transaction
	title := fmt.Sprintf("%s %d %s", t.Side, t.Quantity, t.Symbol)

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d x %s = %s", t.Container, t.Quantity, n.Amount(t.Price), n.Amount(t.TotalAmount))
	if evt.Balance != nil {
		fmt.Fprintf(&b, "\nCash balance: %s", n.Amount(*evt.Balance))
	}
	fmt.Fprintf(&b, "\nUser %d at %s", evt.UserID, t.ExecutedAt.UTC().Format("2006-01-02 15:04:05 MST"))
	return title, b.String()
}

// Amount formats d in the notifier's currency, e.g. "$1,234.50".
func (n *Notifier) Amount(d decimal.Decimal) string {
	cur := money.GetCurrency(n.currency)
	if cur == nil {
		return d.StringFixed(2) + " " + n.currency
	}
	minor := d.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}

// dispatch sends to every sender; one failure does not stop the rest.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "notify: sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notify: sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}
