package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/alohawaii-travel/api/pkg/audit"
	"github.com/alohawaii-travel/api/pkg/auth"
	"github.com/alohawaii-travel/api/pkg/httputil"
	"github.com/alohawaii-travel/api/pkg/observability"
	"github.com/alohawaii-travel/api/pkg/whitelist"
)

// WhitelistHandlers serves domain whitelist administration. The static
// environment allow-list is read-only; these routes manage the table half.
type WhitelistHandlers struct {
	store    whitelist.Store
	checker  *whitelist.Checker
	recorder audit.Recorder
	logger   *observability.Logger
}

// NewWhitelistHandlers creates the whitelist admin handlers.
func NewWhitelistHandlers(store whitelist.Store, checker *whitelist.Checker, recorder audit.Recorder, logger *observability.Logger) *WhitelistHandlers {
	return &WhitelistHandlers{store: store, checker: checker, recorder: recorder, logger: logger}
}

// RegisterRoutes mounts the whitelist admin routes.
func (h *WhitelistHandlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/whitelist", h.list).Methods(http.MethodGet)
	r.HandleFunc("/whitelist", h.add).Methods(http.MethodPost)
	r.HandleFunc("/whitelist/{domain}/active", h.setActive).Methods(http.MethodPatch)
}

// list handles GET /api/internal/whitelist. Both sources are returned so
// operators see the full effective allow-list.
func (h *WhitelistHandlers) list(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.List(r.Context())
	if err != nil {
		h.storeError(w, r, err, "list whitelist")
		return
	}
	if entries == nil {
		entries = []whitelist.Entry{}
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"static_domains": h.checker.StaticDomains(),
		"entries":        entries,
	})
}

// add handles POST /api/internal/whitelist. Re-adding a disabled domain
// reactivates it.
func (h *WhitelistHandlers) add(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Domain string `json:"domain"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	domain := whitelist.NormalizeDomain(req.Domain)
	if domain == "" {
		httputil.WriteBadRequest(w, "Domain is required")
		return
	}
	entry, err := h.store.Upsert(r.Context(), domain)
	if err != nil {
		h.storeError(w, r, err, "add whitelist domain")
		return
	}
	h.record(r, audit.EventWhitelistAdded, domain)
	httputil.WriteCreated(w, entry)
}

// setActive handles PATCH /api/internal/whitelist/{domain}/active.
func (h *WhitelistHandlers) setActive(w http.ResponseWriter, r *http.Request) {
	domain, ok := httputil.ParsePathStringOrError(w, r, "domain")
	if !ok {
		return
	}
	var req struct {
		Active bool `json:"active"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	entry, err := h.store.SetActive(r.Context(), whitelist.NormalizeDomain(domain), req.Active)
	if errors.Is(err, whitelist.ErrNotFound) {
		httputil.WriteNotFound(w, "Domain not found")
		return
	}
	if err != nil {
		h.storeError(w, r, err, "set whitelist domain active")
		return
	}
	eventType := audit.EventWhitelistDisabled
	if req.Active {
		eventType = audit.EventWhitelistAdded
	}
	h.record(r, eventType, entry.Domain)
	httputil.WriteSuccess(w, entry)
}

func (h *WhitelistHandlers) record(r *http.Request, eventType audit.EventType, domain string) {
	if h.recorder == nil {
		return
	}
	event := &audit.Event{
		Type:      eventType,
		Status:    audit.StatusSuccess,
		RequestID: observability.GetRequestID(r.Context()),
		IPAddress: httputil.ClientIP(r),
		Message:   "whitelist administration",
		Metadata:  map[string]interface{}{"domain": domain},
	}
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		event.ActorID = claims.SubjectID
		event.ActorEmail = claims.Email
	}
	if err := h.recorder.Record(r.Context(), event); err != nil && h.logger != nil {
		h.logger.WithError(err).Warn("audit record failed")
	}
}

func (h *WhitelistHandlers) storeError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	if h.logger != nil {
		h.logger.WithError(err).
			WithField("request_id", observability.GetRequestID(r.Context())).
			Error(msg)
	}
	httputil.WriteServiceUnavailable(w, "Whitelist service is temporarily unavailable")
}
