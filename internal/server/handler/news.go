package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/portfoliod/internal/domain"
)

// NewsService defines the methods that the news handler requires from the
// service layer.
type NewsService interface {
	MarketNews(ctx context.Context, page, pageSize int) (domain.NewsPage, error)
	StockNews(ctx context.Context, symbol string, page, pageSize int) (domain.NewsPage, error)
}

// NewsHandler serves news endpoints.
type NewsHandler struct {
	news   NewsService
	logger *slog.Logger
}

// NewNewsHandler creates a NewsHandler with the given service and logger.
func NewNewsHandler(news NewsService, logger *slog.Logger) *NewsHandler {
	return &NewsHandler{news: news, logger: logHandler(logger, "news")}
}

// Market returns general market news.
// GET /api/news/market?page=1&page_size=10
func (h *NewsHandler) Market(w http.ResponseWriter, r *http.Request) {
	page, size, err := newsPaging(r)
	if err != nil {
		writeServiceError(w, r, h.logger, "market news", err)
		return
	}

	res, err := h.news.MarketNews(r.Context(), page, size)
	if err != nil {
		writeServiceError(w, r, h.logger, "market news", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Stock returns news for one symbol.
// GET /api/news/stock/{symbol}?page=1&page_size=10
func (h *NewsHandler) Stock(w http.ResponseWriter, r *http.Request) {
	page, size, err := newsPaging(r)
	if err != nil {
		writeServiceError(w, r, h.logger, "stock news", err)
		return
	}

	res, err := h.news.StockNews(r.Context(), r.PathValue("symbol"), page, size)
	if err != nil {
		writeServiceError(w, r, h.logger, "stock news", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func newsPaging(r *http.Request) (int, int, error) {
	page, err := queryInt(r, "page")
	if err != nil {
		return 0, 0, err
	}
	size, err := queryInt(r, "page_size")
	if err != nil {
		return 0, 0, err
	}
	return page, size, nil
}
