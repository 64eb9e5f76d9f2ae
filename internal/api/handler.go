// Package api serves a read-only HTTP view of the ledger: account snapshots,
// transaction history lookups, run statistics and a WebSocket event feed.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/atmx/payments-engine/internal/engine"
	"github.com/atmx/payments-engine/internal/model"
	"github.com/atmx/payments-engine/internal/store"
)

// amountPlaces matches the CSV output precision.
const amountPlaces = 4

// AccountView is the JSON form of an account, amounts as fixed-point strings.
type AccountView struct {
	Client    model.ClientID `json:"client"`
	Available string         `json:"available"`
	Held      string         `json:"held"`
	Total     string         `json:"total"`
	Locked    bool           `json:"locked"`
}

func NewAccountView(a model.Account) AccountView {
	return AccountView{
		Client:    a.Client,
		Available: a.Available.StringFixed(amountPlaces),
		Held:      a.Held.StringFixed(amountPlaces),
		Total:     a.Total.StringFixed(amountPlaces),
		Locked:    a.Locked,
	}
}

// TransactionView is the JSON form of a history entry.
type TransactionView struct {
	Tx     model.TxID         `json:"tx"`
	Client model.ClientID     `json:"client"`
	Kind   model.Kind         `json:"type"`
	Amount string             `json:"amount"`
	State  model.DisputeState `json:"state"`
}

// RunInfo describes the most recent completed run.
type RunInfo struct {
	RunID       string         `json:"run_id"`
	Summary     engine.Summary `json:"summary"`
	CompletedAt time.Time      `json:"completed_at"`
}

// StatsResponse is the body of GET /api/v1/stats.
type StatsResponse struct {
	store.Stats
	Run *RunInfo `json:"run,omitempty"`
}

// Handler serves ledger queries over a store.
type Handler struct {
	store store.Store
	hub   *Hub // optional

	mu   sync.RWMutex
	last *RunInfo
}

// NewHandler creates a handler over st.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewHandler(st store.Store, hub *Hub) *Handler {
	return &Handler{store: st, hub: hub}
}

// RunCompleted records the outcome of a run and notifies WebSocket clients.
func (h *Handler) RunCompleted(runID string, sum engine.Summary) {
	h.mu.Lock()
	h.last = &RunInfo{RunID: runID, Summary: sum, CompletedAt: time.Now().UTC()}
	h.mu.Unlock()
	if h.hub != nil {
		h.hub.RunCompleted(sum)
	}
}

// ListAccounts handles GET /api/v1/accounts
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.store.SnapshotAll(r.Context())
	if err != nil {
		slog.Error("snapshot failed", "err", err)
		writeError(w, "failed to list accounts", http.StatusInternalServerError)
		return
	}
	views := make([]AccountView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, NewAccountView(a))
	}
	writeJSON(w, http.StatusOK, views)
}

// GetAccount handles GET /api/v1/accounts/{clientID}
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "clientID"), 10, 16)
	if err != nil {
		writeError(w, "invalid client id", http.StatusBadRequest)
		return
	}

	acct, err := h.store.GetAccount(r.Context(), model.ClientID(id))
	if errors.Is(err, store.ErrAccountNotFound) {
		writeError(w, "account not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, "failed to load account", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, NewAccountView(*acct))
}

// GetTransaction handles GET /api/v1/transactions/{txID}
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "txID"), 10, 32)
	if err != nil {
		writeError(w, "invalid transaction id", http.StatusBadRequest)
		return
	}

	entry, err := h.store.FindHistory(r.Context(), model.TxID(id))
	if errors.Is(err, store.ErrTxNotFound) {
		writeError(w, "transaction not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, "failed to load transaction", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, TransactionView{
		Tx:     entry.Tx,
		Client: entry.Client,
		Kind:   entry.Kind,
		Amount: entry.Amount.StringFixed(amountPlaces),
		State:  entry.State,
	})
}

// GetStats handles GET /api/v1/stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		writeError(w, "failed to load stats", http.StatusInternalServerError)
		return
	}
	h.mu.RLock()
	resp := StatsResponse{Stats: stats, Run: h.last}
	h.mu.RUnlock()
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "err", err)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
