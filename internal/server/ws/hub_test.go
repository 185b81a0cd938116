package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/portfoliod/internal/cache/memory"
	"github.com/alanyoungcy/portfoliod/internal/domain"
	"github.com/alanyoungcy/portfoliod/internal/server/middleware"
)

// asUser authenticates every request as the user named in the ?user query.
func asUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.URL.Query().Get("user"), 10, 64)
		if id == 0 {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(middleware.WithUserID(r.Context(), id)))
	})
}

func dial(t *testing.T, srv *httptest.Server, user string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?user=" + user
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var hello envelope
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, "connected", hello.Type)
	return conn
}

func TestHub_DeliversTradesToOwner(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := memory.NewEventBus()
	hub := NewHub(bus, slog.New(slog.NewTextHandler(io.Discard, nil)))
	go hub.Run(ctx)

	srv := httptest.NewServer(asUser(http.HandlerFunc(hub.HandleWS)))
	defer srv.Close()

	owner := dial(t, srv, "7")
	other := dial(t, srv, "8")

	for _, uid := range []int64{8, 7} {
		payload, err := json.Marshal(domain.TradeEvent{
			UserID: uid,
			Transaction: domain.Transaction{
				ID:     uid,
				Symbol: "AAPL",
				Side:   domain.SideBuy,
			},
		})
		require.NoError(t, err)
		require.NoError(t, bus.Publish(ctx, domain.TradesChannel, payload))
	}

	var got struct {
		Type    string            `json:"type"`
		Payload domain.TradeEvent `json:"payload"`
	}
	require.NoError(t, owner.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, owner.ReadJSON(&got))
	assert.Equal(t, "trade", got.Type)
	assert.Equal(t, int64(7), got.Payload.UserID)
	assert.Equal(t, "AAPL", got.Payload.Transaction.Symbol)

	require.NoError(t, other.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, other.ReadJSON(&got))
	assert.Equal(t, int64(8), got.Payload.UserID, "each user only sees their own trades")
}

func TestHub_RejectsAnonymous(t *testing.T) {
	hub := NewHub(memory.NewEventBus(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	rec := httptest.NewRecorder()
	hub.HandleWS(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
