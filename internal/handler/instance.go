package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"questboard/internal/model"
	"questboard/internal/store"
	"questboard/internal/task"
	"questboard/internal/websocket"
)

type InstanceHandler struct {
	instanceStore *store.InstanceStore
	templateStore *store.TemplateStore
	kidStore      *store.KidStore
	ledgerStore   *store.LedgerStore
	hub           *websocket.Hub
	logger        *slog.Logger
}

func NewInstanceHandler(is *store.InstanceStore, ts *store.TemplateStore, ks *store.KidStore, ls *store.LedgerStore, hub *websocket.Hub, logger *slog.Logger) *InstanceHandler {
	return &InstanceHandler{
		instanceStore: is,
		templateStore: ts,
		kidStore:      ks,
		ledgerStore:   ls,
		hub:           hub,
		logger:        logger,
	}
}

func (h *InstanceHandler) notify(entity, action string, id int64, extra map[string]any) {
	if h.hub != nil {
		h.hub.Notify(entity, action, id, extra)
	}
}

// Instantiate spawns an instance from an available template into a kid's
// doing lane.
func (h *InstanceHandler) Instantiate(w http.ResponseWriter, r *http.Request) {
	templateID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req struct {
		KidID int64 `json:"kid_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.KidID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "kid_id is required"})
		return
	}

	inst, err := h.instanceStore.CreateFromTemplate(templateID, req.KidID)
	if err != nil {
		if writeLifecycleError(w, err) {
			return
		}
		h.logger.Error("instantiate template", "template_id", templateID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create instance"})
		return
	}

	h.notify("instance", "created", inst.ID, map[string]any{"kid_id": req.KidID})
	writeJSON(w, http.StatusCreated, inst)
}

// Move shifts an instance between the doing and review lanes.
func (h *InstanceHandler) Move(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	target, ok := task.ParseStatus(req.Status)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	if err := h.instanceStore.Move(id, target); err != nil {
		if writeLifecycleError(w, err) {
			return
		}
		h.logger.Error("move instance", "instance_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to move instance"})
		return
	}

	h.notify("instance", "moved", id, map[string]any{"status": string(target)})
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// UpdateDetails edits the free text on an instance that is not yet done.
func (h *InstanceHandler) UpdateDetails(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req struct {
		Details string `json:"details"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if err := h.instanceStore.UpdateDetails(id, req.Details); err != nil {
		if writeLifecycleError(w, err) {
			return
		}
		h.logger.Error("update details", "instance_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update details"})
		return
	}

	h.notify("instance", "updated", id, nil)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Approve finalizes reviewed work. Points are not awarded here; the kid still
// has to collect.
func (h *InstanceHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if err := h.instanceStore.Approve(id); err != nil {
		if writeLifecycleError(w, err) {
			return
		}
		h.logger.Error("approve instance", "instance_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to approve instance"})
		return
	}

	h.notify("instance", "approved", id, nil)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Reject sends reviewed work back for rework.
func (h *InstanceHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if err := h.instanceStore.Reject(id); err != nil {
		if writeLifecycleError(w, err) {
			return
		}
		h.logger.Error("reject instance", "instance_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to reject instance"})
		return
	}

	h.notify("instance", "rejected", id, nil)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Collect archives done work and credits the ledger. Safe to call twice; the
// second call changes nothing.
func (h *InstanceHandler) Collect(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if err := h.instanceStore.Collect(id); err != nil {
		if writeLifecycleError(w, err) {
			return
		}
		h.logger.Error("collect instance", "instance_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to collect instance"})
		return
	}

	h.notify("instance", "collected", id, nil)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Delete is the administrative override; it also purges the instance's ledger
// entries.
func (h *InstanceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if err := h.instanceStore.Delete(id); err != nil {
		if writeLifecycleError(w, err) {
			return
		}
		h.logger.Error("delete instance", "instance_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete instance"})
		return
	}

	h.notify("instance", "deleted", id, nil)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type reorderRequest struct {
	Status     string  `json:"status"`
	OrderedIDs []int64 `json:"ordered_ids"`
	KidID      *int64  `json:"kid_id"`
}

// Reorder persists a drag-and-drop ordering within one lane.
func (h *InstanceHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	status, ok := task.ParseStatus(req.Status)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	if err := h.instanceStore.SetColumnOrder(status, req.OrderedIDs, req.KidID); err != nil {
		h.logger.Error("reorder instances", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to reorder"})
		return
	}

	h.notify("lane", "reordered", 0, map[string]any{"status": string(status)})
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type boardResponse struct {
	Kid     *model.Kid           `json:"kid"`
	Balance int                  `json:"balance"`
	Pool    []model.TaskTemplate `json:"pool"`
	Doing   []model.TaskInstance `json:"doing"`
	Review  []model.TaskInstance `json:"review"`
	Done    []model.TaskInstance `json:"done"`
}

// Board returns one kid's view: the template pool plus their three lanes.
func (h *InstanceHandler) Board(w http.ResponseWriter, r *http.Request) {
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

	resp := boardResponse{Kid: kid}
	resp.Balance, err = h.ledgerStore.Balance(id)
	if err == nil {
		resp.Pool, err = h.templateStore.ListAvailable()
	}
	if err == nil {
		resp.Doing, err = h.instanceStore.ListLane(task.StatusDoing, id)
	}
	if err == nil {
		resp.Review, err = h.instanceStore.ListLane(task.StatusReview, id)
	}
	if err == nil {
		resp.Done, err = h.instanceStore.ListDone(id)
	}
	if err != nil {
		h.logger.Error("build board", "kid_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to build board"})
		return
	}

	if resp.Pool == nil {
		resp.Pool = []model.TaskTemplate{}
	}
	if resp.Doing == nil {
		resp.Doing = []model.TaskInstance{}
	}
	if resp.Review == nil {
		resp.Review = []model.TaskInstance{}
	}
	if resp.Done == nil {
		resp.Done = []model.TaskInstance{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Archive lists collected instances, optionally filtered to one kid via ?kid=.
func (h *InstanceHandler) Archive(w http.ResponseWriter, r *http.Request) {
	var kidFilter *int64
	if raw := r.URL.Query().Get("kid"); raw != "" {
		id, err := parsePositiveInt(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid kid filter"})
			return
		}
		kidFilter = &id
	}

	items, err := h.instanceStore.ListArchived(kidFilter)
	if err != nil {
		h.logger.Error("list archive", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list archive"})
		return
	}
	if items == nil {
		items = []model.TaskInstance{}
	}
	writeJSON(w, http.StatusOK, items)
}
