package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// UserStore persists registered users. Create returns ErrAlreadyExists when
// the email or username is taken.
type UserStore interface {
	Create(ctx context.Context, u User) (User, error)
	GetByID(ctx context.Context, id int64) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
}

// StockStore persists known symbols and their last price.
type StockStore interface {
	GetBySymbol(ctx context.Context, symbol string) (Stock, error)
	Upsert(ctx context.Context, s Stock) (Stock, error)
	List(ctx context.Context, opts ListOpts) ([]Stock, error)
}

// PortfolioStore persists portfolios. Names are unique per user. Delete
// removes the portfolio's transactions in the same database transaction.
type PortfolioStore interface {
	Create(ctx context.Context, p Portfolio) (Portfolio, error)
	Get(ctx context.Context, id int64) (Portfolio, error)
	GetByName(ctx context.Context, userID int64, name string) (Portfolio, error)
	ListByUser(ctx context.Context, userID int64, opts ListOpts) ([]Portfolio, error)
	ListAll(ctx context.Context, opts ListOpts) ([]Portfolio, error)
	Update(ctx context.Context, p Portfolio) (Portfolio, error)
	Delete(ctx context.Context, id int64) error
}

// SimulationStore persists simulation accounts. Names are unique per user.
// Delete cascades to the account's transactions atomically.
type SimulationStore interface {
	Create(ctx context.Context, a SimulationAccount) (SimulationAccount, error)
	Get(ctx context.Context, id int64) (SimulationAccount, error)
	GetByName(ctx context.Context, userID int64, name string) (SimulationAccount, error)
	ListByUser(ctx context.Context, userID int64, opts ListOpts) ([]SimulationAccount, error)
	ListAll(ctx context.Context, opts ListOpts) ([]SimulationAccount, error)
	Delete(ctx context.Context, id int64) error
}

// TransactionStore reads the append-only ledger. Query returns entries in
// commit order, which is ascending id; an empty symbol selects all symbols.
// ListRecent returns newest first.
type TransactionStore interface {
	Query(ctx context.Context, ref ContainerRef, symbol string) ([]Transaction, error)
	ListRecent(ctx context.Context, ref ContainerRef, opts ListOpts) ([]Transaction, error)
}

// Ledger runs atomic units scoped to a single container. While fn runs, no
// other unit on the same container can observe or change its balance or
// transactions; units on different containers proceed independently. If fn
// returns an error nothing it wrote is kept.
type Ledger interface {
	GetContainer(ctx context.Context, ref ContainerRef) (Container, error)
	WithinContainer(ctx context.Context, ref ContainerRef, fn func(ctx context.Context, tx LedgerTx) error) error
}

// LedgerTx is the view of a container inside an atomic unit.
type LedgerTx interface {
	Container() Container
	Transactions(ctx context.Context, symbol string) ([]Transaction, error)
	Append(ctx context.Context, t Transaction) (Transaction, error)
	UpdateBalance(ctx context.Context, delta decimal.Decimal) (decimal.Decimal, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
