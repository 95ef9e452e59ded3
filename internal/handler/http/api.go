package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/savedcarts/internal/domain"
	"github.com/utafrali/savedcarts/internal/view"
	"github.com/utafrali/savedcarts/pkg/httputil"
	"github.com/utafrali/savedcarts/pkg/middleware"
	"github.com/utafrali/savedcarts/pkg/pagination"
)

// APIHandler serves the JSON saved-carts API for authenticated clients.
type APIHandler struct {
	service  SnapshotService
	renderer *view.Renderer
	logger   *slog.Logger
}

// NewAPIHandler creates a new JSON API handler.
func NewAPIHandler(svc SnapshotService, renderer *view.Renderer, logger *slog.Logger) *APIHandler {
	return &APIHandler{
		service:  svc,
		renderer: renderer,
		logger:   logger,
	}
}

// --- Response DTOs ---

// SnapshotResponse is one saved cart in API responses.
type SnapshotResponse struct {
	SavedAt   int64         `json:"saved_at"`
	SavedOn   string        `json:"saved_on"`
	ItemCount int           `json:"item_count"`
	Lines     []domain.Line `json:"lines"`
}

type savedResponse struct {
	Saved bool `json:"saved"`
}

type restoredResponse struct {
	Restored bool `json:"restored"`
}

type deletedResponse struct {
	Deleted bool `json:"deleted"`
}

// --- Handlers ---

// List handles GET /api/v1/saved-carts
func (h *APIHandler) List(w http.ResponseWriter, r *http.Request) {
	snapshots, err := h.service.ListSnapshots(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	items := make([]SnapshotResponse, len(snapshots))
	for i, s := range snapshots {
		items[i] = SnapshotResponse{
			SavedAt:   s.SavedAt,
			SavedOn:   h.renderer.FormatDate(s.SavedAt),
			ItemCount: s.ItemCount(),
			Lines:     s.Lines,
		}
	}

	httputil.WriteData(w, http.StatusOK, pagination.Paginate(items, pagination.FromRequest(r)))
}

// Save handles POST /api/v1/saved-carts
func (h *APIHandler) Save(w http.ResponseWriter, r *http.Request) {
	ok, err := h.service.SaveCurrentCart(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	status := http.StatusOK
	if ok {
		status = http.StatusCreated
	}
	httputil.WriteData(w, status, savedResponse{Saved: ok})
}

// Restore handles POST /api/v1/saved-carts/{savedAt}/restore
func (h *APIHandler) Restore(w http.ResponseWriter, r *http.Request) {
	savedAt, valid := httputil.ParseInt64(w, "savedAt", chi.URLParam(r, "savedAt"))
	if !valid {
		return
	}
	ok, err := h.service.RestoreCart(r.Context(), middleware.UserIDFromContext(r.Context()), savedAt)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, restoredResponse{Restored: ok})
}

// Delete handles DELETE /api/v1/saved-carts/{savedAt}
func (h *APIHandler) Delete(w http.ResponseWriter, r *http.Request) {
	savedAt, valid := httputil.ParseInt64(w, "savedAt", chi.URLParam(r, "savedAt"))
	if !valid {
		return
	}
	ok, err := h.service.DeleteSnapshot(r.Context(), middleware.UserIDFromContext(r.Context()), savedAt)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, deletedResponse{Deleted: ok})
}
