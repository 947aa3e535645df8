package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/alohawaii-travel/api/pkg/audit"
	"github.com/alohawaii-travel/api/pkg/httputil"
	"github.com/alohawaii-travel/api/pkg/observability"
)

// AuditHandlers exposes the persisted audit trail to administrators.
type AuditHandlers struct {
	recorder *audit.DBRecorder
	logger   *observability.Logger
}

// NewAuditHandlers creates the audit read handlers.
func NewAuditHandlers(recorder *audit.DBRecorder, logger *observability.Logger) *AuditHandlers {
	return &AuditHandlers{recorder: recorder, logger: logger}
}

// RegisterRoutes mounts the audit routes.
func (h *AuditHandlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/audit", h.list).Methods(http.MethodGet)
}

// list handles GET /api/internal/audit, newest first.
func (h *AuditHandlers) list(w http.ResponseWriter, r *http.Request) {
	limit := httputil.ParseQueryInt(r, "limit", 100)
	events, err := h.recorder.List(r.Context(), limit)
	if err != nil {
		if h.logger != nil {
			h.logger.WithError(err).
				WithField("request_id", observability.GetRequestID(r.Context())).
				Error("list audit events")
		}
		httputil.WriteServiceUnavailable(w, "Audit log is temporarily unavailable")
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	httputil.WriteSuccess(w, events)
}
