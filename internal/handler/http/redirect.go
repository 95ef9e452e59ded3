package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/utafrali/savedcarts/internal/domain"
	"github.com/utafrali/savedcarts/internal/repository"
	"github.com/utafrali/savedcarts/pkg/logger"
	"github.com/utafrali/savedcarts/pkg/middleware"
)

// CartQueryParam carries the snapshot key on restore and delete links.
const CartQueryParam = "scd-cart"

// Notices shown after a successful action.
const (
	NoticeSaved    = "Cart saved successfully."
	NoticeRestored = "Cart restored successfully."
	NoticeDeleted  = "Cart deleted successfully."
)

// SnapshotService is the business logic the handlers drive.
type SnapshotService interface {
	SaveCurrentCart(ctx context.Context, userID string) (bool, error)
	RestoreCart(ctx context.Context, userID string, savedAt int64) (bool, error)
	DeleteSnapshot(ctx context.Context, userID string, savedAt int64) (bool, error)
	ListSnapshots(ctx context.Context, userID string) ([]domain.Snapshot, error)
}

// RedirectHandler serves the storefront action links. Every request ends in a
// 302 to the cart page; the outcome is only visible as a notice.
type RedirectHandler struct {
	service SnapshotService
	notices repository.NoticeStore
	cartURL string
	logger  *slog.Logger
}

// NewRedirectHandler creates a new redirect handler.
func NewRedirectHandler(svc SnapshotService, notices repository.NoticeStore, cartURL string, logger *slog.Logger) *RedirectHandler {
	return &RedirectHandler{
		service: svc,
		notices: notices,
		cartURL: cartURL,
		logger:  logger,
	}
}

// SaveCart handles GET /scd-save-cart
func (h *RedirectHandler) SaveCart(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	ok, err := h.service.SaveCurrentCart(r.Context(), userID)
	h.finish(w, r, "save", userID, ok, err, NoticeSaved)
}

// RestoreCart handles GET /scd-restore-cart?scd-cart=<savedAt>
func (h *RedirectHandler) RestoreCart(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	savedAt, valid := cartKey(r)
	if !valid {
		h.redirect(w, r)
		return
	}
	ok, err := h.service.RestoreCart(r.Context(), userID, savedAt)
	h.finish(w, r, "restore", userID, ok, err, NoticeRestored)
}

// DeleteCart handles GET /scd-delete-cart?scd-cart=<savedAt>
func (h *RedirectHandler) DeleteCart(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	savedAt, valid := cartKey(r)
	if !valid {
		h.redirect(w, r)
		return
	}
	ok, err := h.service.DeleteSnapshot(r.Context(), userID, savedAt)
	h.finish(w, r, "delete", userID, ok, err, NoticeDeleted)
}

func (h *RedirectHandler) finish(w http.ResponseWriter, r *http.Request, action, userID string, ok bool, err error, notice string) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() {
		l = h.logger
	}

	if err != nil {
		l.ErrorContext(r.Context(), "saved cart action failed",
			slog.String("action", action),
			slog.String("error", err.Error()),
		)
	}
	if ok {
		if err := h.notices.Add(r.Context(), userID, notice); err != nil {
			l.WarnContext(r.Context(), "failed to record notice",
				slog.String("action", action),
				slog.String("error", err.Error()),
			)
		}
	}
	h.redirect(w, r)
}

func (h *RedirectHandler) redirect(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, h.cartURL, http.StatusFound)
}

// cartKey parses the snapshot key. Missing, empty and non-numeric values are
// rejected.
func cartKey(r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get(CartQueryParam)
	if raw == "" {
		return 0, false
	}
	savedAt, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return savedAt, true
}
