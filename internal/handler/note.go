package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/notes/internal/apperror"
	"github.com/sakif/notes/internal/service"
)

// NoteHandler serves /api/notes.
type NoteHandler struct {
	svc    *service.NoteService
	logger *slog.Logger
}

func NewNoteHandler(svc *service.NoteService, logger *slog.Logger) *NoteHandler {
	return &NoteHandler{svc: svc, logger: logger}
}

// categoryRef is a note's category_id as clients send it. The web client
// sends numbers, numeric strings, null, "" or the filter names "all" and
// "uncategorized"; everything except a positive id means no category.
type categoryRef struct {
	ID *int64
}

func (c *categoryRef) UnmarshalJSON(data []byte) error {
	c.ID = nil
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var raw string
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return apperror.ValidationFailed("category_id", "Invalid category_id")
		}
		switch raw {
		case "", "all", "uncategorized", "null":
			return nil
		}
	} else {
		raw = string(data)
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return apperror.ValidationFailed("category_id", "Invalid category_id")
	}
	c.ID = &id
	return nil
}

// noteRequest is the body of create and update.
type noteRequest struct {
	Content    string      `json:"content"`
	CategoryID categoryRef `json:"category_id"`
}

// HandleList returns every note of the caller, newest first unless
// ?sort=asc is given.
//
// HTTP: GET /api/notes
func (h *NoteHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "all")
}

// HandleListByCategory returns the caller's notes in one category.
//
// HTTP: GET /api/notes/category/{category}   category ∈ {all, uncategorized, <id>}
func (h *NoteHandler) HandleListByCategory(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, chi.URLParam(r, "category"))
}

func (h *NoteHandler) list(w http.ResponseWriter, r *http.Request, rawFilter string) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	filter, err := service.ParseCategoryFilter(rawFilter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	order := service.ParseSortOrder(r.URL.Query().Get("sort"))
	notes, err := h.svc.List(r.Context(), caller, filter, order)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

// HandleGet returns one note.
//
// HTTP: GET /api/notes/{id}
func (h *NoteHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
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

	note, err := h.svc.Get(r.Context(), caller, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// HandleCreate stores a new note.
//
// HTTP: POST /api/notes
// REQUEST BODY: {"content": "<p>...</p>", "category_id": 3}
func (h *NoteHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req noteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	note, err := h.svc.Create(r.Context(), caller, req.Content, req.CategoryID.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// HandleUpdate replaces a note's content and category.
//
// HTTP: PUT /api/notes/{id}
func (h *NoteHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
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

	var req noteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	note, err := h.svc.Update(r.Context(), caller, id, req.Content, req.CategoryID.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// HandleDelete removes one note.
//
// HTTP: DELETE /api/notes/{id}
func (h *NoteHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Note deleted"})
}

// HandleDeleteByCategory bulk-deletes the caller's notes matching the filter.
//
// HTTP: DELETE /api/notes/category/{category}
func (h *NoteHandler) HandleDeleteByCategory(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	filter, err := service.ParseCategoryFilter(chi.URLParam(r, "category"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	n, err := h.svc.DeleteByFilter(r.Context(), caller, filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Notes deleted successfully", Count: &n})
}
