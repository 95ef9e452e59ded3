package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/savedcarts/internal/repository"
	"github.com/utafrali/savedcarts/internal/view"
	apperrors "github.com/utafrali/savedcarts/pkg/errors"
	"github.com/utafrali/savedcarts/pkg/httputil"
	"github.com/utafrali/savedcarts/pkg/middleware"
)

// FragmentHandler serves the HTML fragments the storefront embeds on its cart page.
type FragmentHandler struct {
	service  SnapshotService
	notices  repository.NoticeStore
	renderer *view.Renderer
	logger   *slog.Logger
}

// NewFragmentHandler creates a new fragment handler.
func NewFragmentHandler(svc SnapshotService, notices repository.NoticeStore, renderer *view.Renderer, logger *slog.Logger) *FragmentHandler {
	return &FragmentHandler{
		service:  svc,
		notices:  notices,
		renderer: renderer,
		logger:   logger,
	}
}

// SaveButton handles GET /fragments/save-cart-button
func (h *FragmentHandler) SaveButton(w http.ResponseWriter, r *http.Request) {
	body, err := h.renderer.SaveButton()
	h.write(w, r, body, err)
}

// SavedCarts handles GET /fragments/saved-carts
func (h *FragmentHandler) SavedCarts(w http.ResponseWriter, r *http.Request) {
	snapshots, err := h.service.ListSnapshots(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	body, err := h.renderer.SavedCartsTable(snapshots)
	h.write(w, r, body, err)
}

// Notices handles GET /fragments/notices. Rendered notices are removed.
func (h *FragmentHandler) Notices(w http.ResponseWriter, r *http.Request) {
	var notices []string
	if userID := middleware.UserIDFromContext(r.Context()); userID != "" {
		var err error
		notices, err = h.notices.Drain(r.Context(), userID)
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
	}
	body, err := h.renderer.Notices(notices)
	h.write(w, r, body, err)
}

func (h *FragmentHandler) write(w http.ResponseWriter, r *http.Request, body []byte, err error) {
	if err != nil {
		httputil.WriteError(w, r, apperrors.Internal(err), h.logger)
		return
	}
	httputil.WriteHTML(w, http.StatusOK, body)
}
