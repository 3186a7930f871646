package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"questboard/internal/model"
	"questboard/internal/store"
	"questboard/internal/task"
	"questboard/internal/websocket"
)

type LedgerHandler struct {
	ledgerStore *store.LedgerStore
	rentStore   *store.RentStore
	kidStore    *store.KidStore
	hub         *websocket.Hub
	logger      *slog.Logger
	now         func() time.Time
}

func NewLedgerHandler(ls *store.LedgerStore, rs *store.RentStore, ks *store.KidStore, hub *websocket.Hub, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{
		ledgerStore: ls,
		rentStore:   rs,
		kidStore:    ks,
		hub:         hub,
		logger:      logger,
		now:         time.Now,
	}
}

func (h *LedgerHandler) notify(entity, action string, id int64, extra map[string]any) {
	if h.hub != nil {
		h.hub.Notify(entity, action, id, extra)
	}
}

type ledgerResponse struct {
	Summary model.LedgerSummary `json:"summary"`
	Policy  *model.RentPolicy   `json:"rent_policy"`
	Entries []model.LedgerEntry `json:"entries"`
}

// Summary returns a kid's balance, rent policy, coverage projection and full
// entry history. Accessing it creates the rent policy with defaults if the
// kid has none yet.
func (h *LedgerHandler) Summary(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	kid, err := h.kidStore.GetByID(id)
	if err != nil {
		h.logger.Error("get kid", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get kid"})
		return
	}
	if kid == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "kid not found"})
		return
	}

	policy, err := h.rentStore.Ensure(id)
	if err != nil {
		h.logger.Error("ensure rent policy", "kid_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load rent policy"})
		return
	}

	balance, err := h.ledgerStore.Balance(id)
	if err != nil {
		h.logger.Error("kid balance", "kid_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to compute balance"})
		return
	}

	entries, err := h.ledgerStore.ListByKid(id)
	if err != nil {
		h.logger.Error("list ledger", "kid_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list ledger"})
		return
	}
	if entries == nil {
		entries = []model.LedgerEntry{}
	}

	writeJSON(w, http.StatusOK, ledgerResponse{
		Summary: model.LedgerSummary{
			KidID:         kid.ID,
			KidName:       kid.Name,
			Balance:       balance,
			RentAmount:    policy.RentAmount,
			RentDay:       policy.RentDayOfMonth,
			MonthsCovered: task.MonthsCovered(balance, policy.RentAmount),
		},
		Policy:  policy,
		Entries: entries,
	})
}

type adjustRequest struct {
	Amount int    `json:"amount"`
	Note   string `json:"note"`
}

// Adjust appends a manual correction to a kid's ledger.
func (h *LedgerHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	kid, err := h.kidStore.GetByID(id)
	if err != nil {
		h.logger.Error("get kid", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get kid"})
		return
	}
	if kid == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "kid not found"})
		return
	}

	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	entry, err := h.ledgerStore.Adjust(id, req.Amount, req.Note)
	if err != nil {
		h.logger.Error("adjust ledger", "kid_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to adjust ledger"})
		return
	}

	h.notify("ledger", "adjusted", id, nil)
	writeJSON(w, http.StatusCreated, entry)
}

type rentRequest struct {
	RentAmount     int `json:"rent_amount"`
	RentDayOfMonth int `json:"rent_day_of_month"`
}

// UpdateRent sets a kid's rent amount and due day.
func (h *LedgerHandler) UpdateRent(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	kid, err := h.kidStore.GetByID(id)
	if err != nil {
		h.logger.Error("get kid", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get kid"})
		return
	}
	if kid == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "kid not found"})
		return
	}

	var req rentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	policy, err := h.rentStore.Update(id, req.RentAmount, req.RentDayOfMonth)
	if err != nil {
		h.logger.Error("update rent policy", "kid_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update rent policy"})
		return
	}

	writeJSON(w, http.StatusOK, policy)
}

// ChargeRent sweeps every kid and applies the rent charge to those whose due
// day is today and who have not been charged yet.
func (h *LedgerHandler) ChargeRent(w http.ResponseWriter, r *http.Request) {
	kids, err := h.kidStore.List()
	if err != nil {
		h.logger.Error("list kids", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list kids"})
		return
	}

	today := h.now()
	charged := 0
	for _, k := range kids {
		ok, err := h.rentStore.ChargeIfDue(k.ID, today)
		if err != nil {
			h.logger.Error("charge rent", "kid_id", k.ID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to charge rent"})
			return
		}
		if ok {
			charged++
			h.notify("rent", "charged", k.ID, nil)
		}
	}

	writeJSON(w, http.StatusOK, map[string]int{"charged_kids": charged})
}
