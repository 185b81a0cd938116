package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/portfoliod/internal/domain"
)

const (
	marketNewsQuery     = "stock market OR finance OR economy"
	defaultNewsPageSize = 10
	maxNewsPageSize     = 100
)

// NewsService serves market-wide and per-symbol news through a cache.
type NewsService struct {
	provider domain.NewsProvider
	cache    domain.Cache
	logger   *slog.Logger
}

// NewNewsService creates a NewsService.
func NewNewsService(provider domain.NewsProvider, cache domain.Cache, logger *slog.Logger) *NewsService {
	return &NewsService{
		provider: provider,
		cache:    cache,
		logger:   logger,
	}
}

// MarketNews returns a page of general market news.
func (s *NewsService) MarketNews(ctx context.Context, page, pageSize int) (domain.NewsPage, error) {
	page, pageSize, err := newsPaging(page, pageSize)
	if err != nil {
		return domain.NewsPage{}, fmt.Errorf("news_service: market news: %w", err)
	}

	key := fmt.Sprintf("market:%d:%d", page, pageSize)
	out, err := cached(ctx, s.cache, s.logger, key, func() (domain.NewsPage, error) {
		return s.fetch(ctx, marketNewsQuery, page, pageSize)
	})
	if err != nil {
		return domain.NewsPage{}, fmt.Errorf("news_service: market news: %w", err)
	}
	return out, nil
}

// StockNews returns a page of news about symbol, matching the company name
// as well when it is known.
func (s *NewsService) StockNews(ctx context.Context, symbol string, page, pageSize int) (domain.NewsPage, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return domain.NewsPage{}, fmt.Errorf("news_service: stock news: %w: symbol is required", domain.ErrValidation)
	}
	page, pageSize, err := newsPaging(page, pageSize)
	if err != nil {
		return domain.NewsPage{}, fmt.Errorf("news_service: stock news %s: %w", symbol, err)
	}

	company := domain.CompanyName(symbol)
	if company == "" {
		company = symbol
	}
	query := fmt.Sprintf("%s OR %s stock", symbol, company)

	key := fmt.Sprintf("stock:%s:%d:%d", symbol, page, pageSize)
	out, err := cached(ctx, s.cache, s.logger, key, func() (domain.NewsPage, error) {
		p, err := s.fetch(ctx, query, page, pageSize)
		p.Symbol = symbol
		p.CompanyName = company
		return p, err
	})
	if err != nil {
		return domain.NewsPage{}, fmt.Errorf("news_service: stock news %s: %w", symbol, err)
	}
	return out, nil
}

func (s *NewsService) fetch(ctx context.Context, q string, page, pageSize int) (domain.NewsPage, error) {
	articles, total, err := s.provider.Everything(ctx, domain.NewsQuery{Q: q, Page: page, PageSize: pageSize})
	if err != nil {
		return domain.NewsPage{}, err
	}
	if articles == nil {
		articles = []domain.Article{}
	}
	return domain.NewsPage{
		Page:         page,
		PageSize:     pageSize,
		TotalResults: total,
		Articles:     articles,
	}, nil
}

// newsPaging applies defaults to zero values and rejects out-of-range ones.
func newsPaging(page, pageSize int) (int, int, error) {
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = defaultNewsPageSize
	}
	if page < 1 {
		return 0, 0, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if pageSize < 1 || pageSize > maxNewsPageSize {
		return 0, 0, fmt.Errorf("%w: page_size must be between 1 and %d", domain.ErrValidation, maxNewsPageSize)
	}
	return page, pageSize, nil
}
