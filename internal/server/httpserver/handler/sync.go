package handler

import (
	"net/http"
	"strconv"

	"github.com/yndnr/sheetsync-go/internal/core/domain"
	"github.com/yndnr/sheetsync-go/internal/core/service"
)

// handleData handles GET /api/data?workbook=&sheet=&last_sync=.
func (h *Handler) handleData(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var since int64
	if raw := q.Get("last_sync"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.handleServiceError(w, r, domain.ErrInvalidArgument.WithDetailsf("last_sync %q is not an integer", raw))
			return
		}
		since = v
	}

	res, err := h.sync.GetChanges(r.Context(), service.ChangesRequest{
		Workbook: q.Get("workbook"),
		Sheet:    q.Get("sheet"),
		Since:    since,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, res)
}

// handleUpdate handles POST /api/update?workbook=&sheet=.
// Conflicts are part of a 200 response, not an error.
func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var body UpdateRequest
	if err := decodeBody(r, &body); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	q := r.URL.Query()
	res, err := h.sync.ApplyUpdates(r.Context(), service.UpdateRequest{
		Workbook: q.Get("workbook"),
		Sheet:    q.Get("sheet"),
		Updates:  body.Updates,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	conflicts := make([]ConflictView, len(res.Conflicts))
	for i, c := range res.Conflicts {
		conflicts[i] = conflictView(c)
	}
	h.writeJSON(w, r, http.StatusOK, UpdateResponse{
		Success:   true,
		Accepted:  res.Accepted,
		Conflicts: conflicts,
		TokenUsed: res.TokenUsed,
	})
}

// handlePush handles POST /api/push?workbook=&sheet=.
func (h *Handler) handlePush(w http.ResponseWriter, r *http.Request) {
	var body PushRequest
	if err := decodeBody(r, &body); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	q := r.URL.Query()
	res, err := h.sync.AppendRows(r.Context(), service.AppendRequest{
		Workbook: q.Get("workbook"),
		Sheet:    q.Get("sheet"),
		Records:  body.Entries,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, res)
}

// handleColumns handles POST /api/columns?workbook=&sheet=.
func (h *Handler) handleColumns(w http.ResponseWriter, r *http.Request) {
	var body ColumnRequest
	if err := decodeBody(r, &body); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	q := r.URL.Query()
	res, err := h.sync.InsertColumn(r.Context(), service.ColumnRequest{
		Workbook:     q.Get("workbook"),
		Sheet:        q.Get("sheet"),
		Name:         body.Name,
		Metadata:     body.Metadata,
		LastModified: body.LastModified,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, res)
}

// handleCacheClear handles POST /api/cache/clear.
func (h *Handler) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	h.sync.InvalidateAll()
	h.writeJSON(w, r, http.StatusOK, map[string]bool{"cleared": true})
}
