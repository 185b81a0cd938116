package newsapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/portfoliod/internal/domain"
)

func TestEverything(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/everything", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		q := r.URL.Query()
		assert.Equal(t, "AAPL OR Apple stock", q.Get("q"))
		assert.Equal(t, "en", q.Get("language"))
		assert.Equal(t, "publishedAt", q.Get("sortBy"))
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "5", q.Get("pageSize"))
		_, _ = w.Write([]byte(`{
			"status": "ok",
			"totalResults": 42,
			"articles": [{
				"source": {"id": null, "name": "Reuters"},
				"author": "Jane",
				"title": "Apple ships",
				"description": "desc",
				"url": "https://example.com/a",
				"urlToImage": "https://example.com/a.jpg",
				"publishedAt": "2026-03-01T12:30:00Z",
				"content": "body"
			}]
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "secret", time.Second)
	articles, total, err := c.Everything(context.Background(), domain.NewsQuery{
		Q: "AAPL OR Apple stock", Page: 2, PageSize: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, 42, total)
	require.Len(t, articles, 1)

	a := articles[0]
	assert.Equal(t, "Apple ships", a.Title)
	assert.Equal(t, "Reuters", a.Source)
	assert.Equal(t, "https://example.com/a.jpg", a.ImageURL)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC), a.PublishedAt)
}

func TestEverything_Errors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		rateLimited bool
	}{
		{"rate limited", http.StatusTooManyRequests, `{"status":"error","code":"rateLimited","message":"too many"}`, true},
		{"bad key", http.StatusUnauthorized, `{"status":"error","code":"apiKeyInvalid","message":"bad key"}`, false},
		{"error status with 200", http.StatusOK, `{"status":"error","code":"unexpectedError","message":"x"}`, false},
		{"not json", http.StatusBadGateway, `<html>`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "k", time.Second)
			_, _, err := c.Everything(context.Background(), domain.NewsQuery{Q: "x", Page: 1, PageSize: 10})
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
			if tt.rateLimited {
				assert.ErrorIs(t, err, domain.ErrRateLimited)
			} else {
				assert.NotErrorIs(t, err, domain.ErrRateLimited)
			}
		})
	}
}

func TestWithLanguage(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query().Get("language")
		_, _ = w.Write([]byte(`{"status":"ok","totalResults":0,"articles":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", time.Second).WithLanguage(" de ").WithLanguage("")
	_, _, err := c.Everything(context.Background(), domain.NewsQuery{Q: "x", Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, "de", got)
}
