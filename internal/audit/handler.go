package audit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"docvault/internal/transport/http/shared"
	"docvault/pkg/apierrors"
	"docvault/pkg/requestcontext"
)

// Handler exposes the read side of the audit log. Writes only ever happen
// through the Recorder.
type Handler struct {
	store  Store
	logger *slog.Logger
}

func NewHandler(store Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// RegisterAdmin mounts the admin-only log routes.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/api/logs", h.handleList)
	r.Get("/api/logs/stats", h.handleStats)
}

// RegisterProtected mounts the per-user trail route, authorized per request.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Get("/api/logs/user/{id}", h.handleListByUser)
}

// parseTime accepts RFC 3339 or a bare date.
func parseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

func (h *Handler) parseListFilter(r *http.Request) (Filter, error) {
	q := r.URL.Query()

	filter := Filter{Action: Action(q.Get("action"))}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))

	if raw := q.Get("userId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return Filter{}, apierrors.Validation(map[string]string{"userId": "invalid user id"})
		}
		filter.UserID = id
	}
	if raw := q.Get("startDate"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			return Filter{}, apierrors.Validation(map[string]string{"startDate": "invalid date"})
		}
		filter.From = t
	}
	if raw := q.Get("endDate"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			return Filter{}, apierrors.Validation(map[string]string{"endDate": "invalid date"})
		}
		filter.To = t
	}
	return filter, nil
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter, err := h.parseListFilter(r)
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}

	entries, total, err := h.store.List(r.Context(), filter)
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}

	limit := filter.Limit
	if limit < 1 {
		limit = 50
	}
	shared.WriteJSON(w, http.StatusOK, shared.NewListEnvelope(entries, len(entries), total, filter.Page, limit))
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleListByUser(w http.ResponseWriter, r *http.Request) {
	targetID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, r, h.logger, apierrors.New(apierrors.CodeValidation, "invalid user id"))
		return
	}

	// Self or admin, mirroring access.CanViewLogs. The access package sits
	// above audit in the import graph, so the check lives here.
	ctx := r.Context()
	if targetID != requestcontext.UserID(ctx) && requestcontext.Role(ctx) != "admin" {
		shared.WriteError(w, r, h.logger, apierrors.New(apierrors.CodeForbidden, "not authorized to view these logs"))
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.store.ListByUser(ctx, targetID, limit)
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, shared.NewListEnvelope(entries, len(entries), len(entries), 1, max(len(entries), 1)))
}
