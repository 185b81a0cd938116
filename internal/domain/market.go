package domain

import "context"

// QuoteProvider fetches market data from an external source. Every method
// returns an error wrapping ErrProviderUnavailable when the upstream call
// fails, and ErrNotFound when the upstream has no data for the symbol.
type QuoteProvider interface {
	Quote(ctx context.Context, symbol string) (Quote, error)
	Search(ctx context.Context, query string) ([]SymbolMatch, error)
	History(ctx context.Context, symbol string, interval Interval) ([]PriceBar, error)
}

// NewsQuery selects a page of articles.
type NewsQuery struct {
	Q        string
	Page     int
	PageSize int
}

// NewsProvider fetches articles from an external source.
type NewsProvider interface {
	Everything(ctx context.Context, q NewsQuery) ([]Article, int, error)
}
