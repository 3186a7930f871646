package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"questboard/internal/model"
	"questboard/internal/store"
	"questboard/internal/websocket"
)

type KidHandler struct {
	kidStore    *store.KidStore
	ledgerStore *store.LedgerStore
	hub         *websocket.Hub
	logger      *slog.Logger
}

func NewKidHandler(ks *store.KidStore, ls *store.LedgerStore, hub *websocket.Hub, logger *slog.Logger) *KidHandler {
	return &KidHandler{kidStore: ks, ledgerStore: ls, hub: hub, logger: logger}
}

func (h *KidHandler) notify(entity, action string, id int64, extra map[string]any) {
	if h.hub != nil {
		h.hub.Notify(entity, action, id, extra)
	}
}

type kidRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type kidWithBalance struct {
	model.Kid
	Balance int `json:"balance"`
}

func (h *KidHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req kidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	kid, err := h.kidStore.Create(req.Name, req.Color)
	if err != nil {
		h.logger.Error("create kid", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create kid"})
		return
	}

	h.notify("kid", "created", kid.ID, nil)
	writeJSON(w, http.StatusCreated, kid)
}

// List returns every kid together with their current point balance.
func (h *KidHandler) List(w http.ResponseWriter, r *http.Request) {
	kids, err := h.kidStore.List()
	if err != nil {
		h.logger.Error("list kids", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list kids"})
		return
	}

	out := make([]kidWithBalance, 0, len(kids))
	for _, k := range kids {
		balance, err := h.ledgerStore.Balance(k.ID)
		if err != nil {
			h.logger.Error("kid balance", "kid_id", k.ID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to compute balance"})
			return
		}
		out = append(out, kidWithBalance{Kid: k, Balance: balance})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *KidHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.kidStore.GetByID(id)
	if err != nil {
		h.logger.Error("get kid", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get kid"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "kid not found"})
		return
	}

	var req kidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		req.Name = existing.Name
	}
	if req.Color == "" {
		req.Color = existing.Color
	}

	kid, err := h.kidStore.Update(id, req.Name, req.Color)
	if err != nil {
		h.logger.Error("update kid", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update kid"})
		return
	}

	h.notify("kid", "updated", id, nil)
	writeJSON(w, http.StatusOK, kid)
}
