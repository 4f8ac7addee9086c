package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/nibzard/sheetplan/internal/decode"
	"github.com/nibzard/sheetplan/internal/grid"
	"github.com/nibzard/sheetplan/internal/plan"
	"github.com/nibzard/sheetplan/internal/store"
)

// dateLayout is the accepted form of startDate in import requests.
const dateLayout = "2006-01-02"

type PlanHandler struct {
	plans  PlanStore
	decode decode.Options
	limits grid.Limits
	logger *log.Logger
}

type importRequest struct {
	Name      string  `json:"name"`
	StartDate string  `json:"startDate"`
	Rows      [][]any `json:"rows"`
}

type updateTaskRequest struct {
	Status string `json:"status"`
}

// Import handles POST /plans/import
func (h *PlanHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decodeJSON(r, &req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	opts := h.decode
	if name := strings.TrimSpace(req.Name); name != "" {
		opts.PlanName = name
	}
	if req.StartDate != "" {
		start, err := time.Parse(dateLayout, req.StartDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "startDate must be YYYY-MM-DD")
			return
		}
		opts.StartDate = start
	}

	g := grid.FromValues(req.Rows)
	if err := h.limits.Check(g); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}

	p, err := decode.Decode(g, opts)
	if err != nil {
		writeDecodeError(w, err)
		return
	}

	if err := h.plans.Insert(r.Context(), &p); err != nil {
		h.logger.Error("store plan", "error", err, "id", GetRequestID(r))
		writeError(w, http.StatusInternalServerError, "failed to store plan")
		return
	}

	h.logger.Info("plan imported", "plan", p.ID, "tasks", p.TotalTasks, "id", GetRequestID(r))
	writeJSON(w, http.StatusCreated, p)
}

// List handles GET /plans
func (h *PlanHandler) List(w http.ResponseWriter, r *http.Request) {
	plans, err := h.plans.List(r.Context())
	if err != nil {
		h.logger.Error("list plans", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list plans")
		return
	}
	if plans == nil {
		plans = []store.Summary{}
	}
	writeJSON(w, http.StatusOK, plans)
}

// Get handles GET /plans/{id}. ?format=yaml returns YAML.
func (h *PlanHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := h.plans.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("get plan", "error", err, "plan", id)
		writeError(w, http.StatusInternalServerError, "failed to get plan")
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "plan not found")
		return
	}

	format, err := plan.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if format == plan.FormatYAML {
		data, err := plan.Marshal(p, format)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to encode plan")
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Delete handles DELETE /plans/{id}
func (h *PlanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.plans.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "plan not found")
			return
		}
		h.logger.Error("delete plan", "error", err, "plan", id)
		writeError(w, http.StatusInternalServerError, "failed to delete plan")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateTask handles PATCH /plans/{id}/tasks/{index}
func (h *PlanHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "task index must be an integer")
		return
	}

	var req updateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Status) == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	p, err := h.plans.UpdateTaskStatus(r.Context(), id, index, req.Status)
	if err != nil {
		h.writeStoreError(w, err, id)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ToggleSubtask handles POST /plans/{id}/tasks/{index}/subtasks/{sub}/toggle
func (h *PlanHandler) ToggleSubtask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "task index must be an integer")
		return
	}
	sub, err := strconv.Atoi(chi.URLParam(r, "sub"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "subtask index must be an integer")
		return
	}

	p, err := h.plans.ToggleSubtask(r.Context(), id, index, sub)
	if err != nil {
		h.writeStoreError(w, err, id)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PlanHandler) writeStoreError(w http.ResponseWriter, err error, id string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "plan not found")
	case errors.Is(err, store.ErrTaskNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error("update plan", "error", err, "plan", id)
		writeError(w, http.StatusInternalServerError, "failed to update plan")
	}
}

// writeDecodeError maps decoder failures to 422 with the grid position
// when one is known.
func writeDecodeError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: err.Error()}

	var decErr *decode.DecodeError
	switch {
	case errors.As(err, &decErr):
		if decErr.Row >= 0 {
			row := decErr.Row
			resp.Row = &row
		}
		if decErr.Col >= 0 {
			col := decErr.Col
			resp.Col = &col
		}
	case errors.Is(err, decode.ErrNoHeaderColumns):
		row := 0
		resp.Row = &row
	}
	writeJSON(w, http.StatusUnprocessableEntity, resp)
}
