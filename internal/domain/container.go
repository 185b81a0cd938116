package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ContainerKind distinguishes real portfolios from paper-trading accounts.
type ContainerKind string

const (
	ContainerPortfolio  ContainerKind = "portfolio"
	ContainerSimulation ContainerKind = "simulation"
)

// ContainerRef addresses a single container.
type ContainerRef struct {
	Kind ContainerKind `json:"kind"`
	ID   int64         `json:"id"`
}

func (r ContainerRef) String() string {
	return fmt.Sprintf("%s:%d", r.Kind, r.ID)
}

// Container is the ledger-facing view of a Portfolio or SimulationAccount.
// Balance is only meaningful for simulation accounts.
type Container struct {
	Ref     ContainerRef
	UserID  int64
	Balance decimal.Decimal
}

// HasCash reports whether trades in this container move a cash balance.
func (c Container) HasCash() bool {
	return c.Ref.Kind == ContainerSimulation
}

// Portfolio is a user's record of real holdings.
type Portfolio struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Ref returns the container reference of the portfolio.
func (p Portfolio) Ref() ContainerRef {
	return ContainerRef{Kind: ContainerPortfolio, ID: p.ID}
}

// SimulationAccount is a paper-trading account with a cash balance.
type SimulationAccount struct {
	ID             int64           `json:"id"`
	UserID         int64           `json:"user_id"`
	Name           string          `json:"name"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Ref returns the container reference of the account.
func (a SimulationAccount) Ref() ContainerRef {
	return ContainerRef{Kind: ContainerSimulation, ID: a.ID}
}
