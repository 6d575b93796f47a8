package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/notes/internal/service"
)

// CategoryHandler serves /api/categories.
type CategoryHandler struct {
	svc    *service.CategoryService
	logger *slog.Logger
}

func NewCategoryHandler(svc *service.CategoryService, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{svc: svc, logger: logger}
}

// categoryRequest is the body of create and update.
type categoryRequest struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// HandleList returns the caller's categories.
//
// HTTP: GET /api/categories
func (h *CategoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	categories, err := h.svc.List(r.Context(), caller)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// HandleCreate adds a category.
//
// HTTP: POST /api/categories
// REQUEST BODY: {"name": "Work", "icon": "💼"}
func (h *CategoryHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	category, err := h.svc.Create(r.Context(), caller, req.Name, req.Icon)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

// HandleUpdate renames a category.
//
// HTTP: PUT /api/categories/{id}
func (h *CategoryHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	category, err := h.svc.Update(r.Context(), caller, id, req.Name, req.Icon)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

// HandleDelete removes one category and uncategorizes its notes.
//
// HTTP: DELETE /api/categories/{id}
func (h *CategoryHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.svc.Delete(r.Context(), caller, id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Category deleted"})
}

// HandleDeleteAll removes every category the caller owns.
//
// HTTP: DELETE /api/categories/all
//
// chi matches the static "all" segment ahead of /{id}.
func (h *CategoryHandler) HandleDeleteAll(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	n, err := h.svc.DeleteAll(r.Context(), caller)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "All categories deleted successfully", Count: &n})
}
