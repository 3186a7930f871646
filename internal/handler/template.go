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

type TemplateHandler struct {
	templateStore *store.TemplateStore
	hub           *websocket.Hub
	logger        *slog.Logger
}

func NewTemplateHandler(ts *store.TemplateStore, hub *websocket.Hub, logger *slog.Logger) *TemplateHandler {
	return &TemplateHandler{templateStore: ts, hub: hub, logger: logger}
}

func (h *TemplateHandler) notify(entity, action string, id int64, extra map[string]any) {
	if h.hub != nil {
		h.hub.Notify(entity, action, id, extra)
	}
}

type templateRequest struct {
	Title         string `json:"title"`
	DefaultPoints int    `json:"default_points"`
	HelpText      string `json:"help_text"`
	SortOrder     int    `json:"sort_order"`
}

func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}
	if req.DefaultPoints < 1 {
		req.DefaultPoints = 1
	}

	tmpl, err := h.templateStore.Create(req.Title, req.DefaultPoints, req.HelpText, req.SortOrder)
	if err != nil {
		h.logger.Error("create template", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create template"})
		return
	}

	h.notify("template", "created", tmpl.ID, nil)
	writeJSON(w, http.StatusCreated, tmpl)
}

// List returns the whole catalog; pass ?available=1 for just the pool.
func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	var templates []model.TaskTemplate
	var err error
	if r.URL.Query().Get("available") == "1" {
		templates, err = h.templateStore.ListAvailable()
	} else {
		templates, err = h.templateStore.List()
	}
	if err != nil {
		h.logger.Error("list templates", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list templates"})
		return
	}
	if templates == nil {
		templates = []model.TaskTemplate{}
	}
	writeJSON(w, http.StatusOK, templates)
}

func (h *TemplateHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.templateStore.GetByID(id)
	if err != nil {
		h.logger.Error("get template", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get template"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "template not found"})
		return
	}

	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}

	tmpl, err := h.templateStore.Update(id, req.Title, req.DefaultPoints, req.HelpText, req.SortOrder)
	if err != nil {
		h.logger.Error("update template", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update template"})
		return
	}

	h.notify("template", "updated", id, nil)
	writeJSON(w, http.StatusOK, tmpl)
}

func (h *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if err := h.templateStore.Delete(id); err != nil {
		if writeLifecycleError(w, err) {
			return
		}
		h.logger.Error("delete template", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete template"})
		return
	}

	h.notify("template", "deleted", id, nil)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// RefreshPool re-offers every template, including those hidden by in-flight
// instances.
func (h *TemplateHandler) RefreshPool(w http.ResponseWriter, r *http.Request) {
	if err := h.templateStore.RefreshPool(); err != nil {
		h.logger.Error("refresh pool", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to refresh pool"})
		return
	}

	h.notify("pool", "refreshed", 0, nil)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

