package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atmx/payments-engine/internal/api"
	"github.com/atmx/payments-engine/internal/engine"
	"github.com/atmx/payments-engine/internal/model"
	"github.com/atmx/payments-engine/internal/store"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// newTestEnv runs a small ledger through the processor and returns a router
// serving it.
func newTestEnv(t *testing.T, hub *api.Hub) (*api.Handler, http.Handler) {
	t.Helper()
	ms := store.NewMemoryStore()
	var n engine.Notifier
	if hub != nil {
		n = hub
	}
	proc := engine.NewProcessor(ms, n)
	_, err := proc.Run(context.Background(), engine.FromSlice(
		model.Deposit{Client: 1, Tx: 1, Amount: d("1.5")},
		model.Deposit{Client: 2, Tx: 2, Amount: d("2")},
		model.Dispute{Client: 2, Tx: 2},
		model.Chargeback{Client: 2, Tx: 2},
		model.Deposit{Client: 3, Tx: 3, Amount: d("0.25")},
		model.Dispute{Client: 3, Tx: 3},
	))
	require.NoError(t, err)

	h := api.NewHandler(ms, hub)
	return h, api.NewRouter(h, hub)
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	_, router := newTestEnv(t, nil)
	w := get(t, router, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestMetricsEndpoint(t *testing.T) {
	_, router := newTestEnv(t, nil)
	w := get(t, router, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "payments_records_total")
}

func TestListAccounts(t *testing.T) {
	_, router := newTestEnv(t, nil)
	w := get(t, router, "/api/v1/accounts")
	require.Equal(t, http.StatusOK, w.Code)

	views := decode[[]api.AccountView](t, w)
	require.Len(t, views, 3)
	assert.Equal(t, api.AccountView{Client: 1, Available: "1.5000", Held: "0.0000", Total: "1.5000"}, views[0])
	assert.Equal(t, api.AccountView{Client: 2, Available: "0.0000", Held: "0.0000", Total: "0.0000", Locked: true}, views[1])
	assert.Equal(t, api.AccountView{Client: 3, Available: "0.0000", Held: "0.2500", Total: "0.2500"}, views[2])
}

func TestListAccounts_Empty(t *testing.T) {
	router := api.NewRouter(api.NewHandler(store.NewMemoryStore(), nil), nil)
	w := get(t, router, "/api/v1/accounts")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestGetAccount(t *testing.T) {
	_, router := newTestEnv(t, nil)

	w := get(t, router, "/api/v1/accounts/2")
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[api.AccountView](t, w)
	assert.True(t, view.Locked)

	assert.Equal(t, http.StatusNotFound, get(t, router, "/api/v1/accounts/99").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, router, "/api/v1/accounts/abc").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, router, "/api/v1/accounts/70000").Code)
}

func TestGetTransaction(t *testing.T) {
	_, router := newTestEnv(t, nil)

	w := get(t, router, "/api/v1/transactions/3")
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[api.TransactionView](t, w)
	assert.Equal(t, model.TxID(3), view.Tx)
	assert.Equal(t, model.ClientID(3), view.Client)
	assert.Equal(t, model.KindDeposit, view.Kind)
	assert.Equal(t, "0.2500", view.Amount)
	assert.Equal(t, model.StateDisputed, view.State)

	w = get(t, router, "/api/v1/transactions/2")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.StateChargedBack, decode[api.TransactionView](t, w).State)

	assert.Equal(t, http.StatusNotFound, get(t, router, "/api/v1/transactions/42").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, router, "/api/v1/transactions/-1").Code)
}

func TestGetStats(t *testing.T) {
	h, router := newTestEnv(t, nil)

	stats := decode[api.StatsResponse](t, get(t, router, "/api/v1/stats"))
	assert.Equal(t, 3, stats.Accounts)
	assert.Equal(t, 1, stats.LockedAccounts)
	assert.Equal(t, 3, stats.HistoryEntries)
	assert.Nil(t, stats.Run)

	h.RunCompleted("run-1", engine.Summary{Records: 6, Applied: 6, ByReason: map[string]int{}})
	stats = decode[api.StatsResponse](t, get(t, router, "/api/v1/stats"))
	require.NotNil(t, stats.Run)
	assert.Equal(t, "run-1", stats.Run.RunID)
	assert.Equal(t, 6, stats.Run.Summary.Applied)
}

func TestErrorBody(t *testing.T) {
	_, router := newTestEnv(t, nil)
	w := get(t, router, "/api/v1/accounts/99")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"account not found"}`, w.Body.String())
}

func TestWebSocketNotMountedWithoutHub(t *testing.T) {
	_, router := newTestEnv(t, nil)
	assert.Equal(t, http.StatusNotFound, get(t, router, "/api/v1/ws").Code)
}

func dialHub(t *testing.T, hub *api.Hub, router http.Handler) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) api.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev api.Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestHub_BroadcastsAccountLocked(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := api.NewHub("run-ws")
	go hub.Run(ctx)

	h := api.NewHandler(store.NewMemoryStore(), hub)
	conn := dialHub(t, hub, api.NewRouter(h, hub))

	hub.AccountLocked(model.Account{Client: 9, Available: d("-5"), Held: decimal.Zero, Total: d("-5"), Locked: true}, 4)

	ev := readEvent(t, conn)
	assert.Equal(t, api.EventAccountLocked, ev.Type)
	assert.Equal(t, "run-ws", ev.RunID)
	assert.Equal(t, model.TxID(4), ev.Tx)
	require.NotNil(t, ev.Account)
	assert.Equal(t, "-5.0000", ev.Account.Total)
	assert.True(t, ev.Account.Locked)
}

func TestHub_RunCompletedViaHandler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := api.NewHub("run-ws")
	go hub.Run(ctx)

	h := api.NewHandler(store.NewMemoryStore(), hub)
	conn := dialHub(t, hub, api.NewRouter(h, hub))

	h.RunCompleted("run-ws", engine.Summary{Records: 2, Applied: 1, Rejected: 1, ByReason: map[string]int{"unknown_tx": 1}})

	ev := readEvent(t, conn)
	assert.Equal(t, api.EventRunCompleted, ev.Type)
	require.NotNil(t, ev.Summary)
	assert.Equal(t, 1, ev.Summary.ByReason["unknown_tx"])
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := api.NewHub("run-ws")
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	conn := dialHub(t, hub, api.NewRouter(api.NewHandler(store.NewMemoryStore(), hub), hub))
	cancel()
	<-done

	assert.Zero(t, hub.ClientCount())
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
