package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/alohawaii-travel/api/pkg/accounts"
	"github.com/alohawaii-travel/api/pkg/audit"
	"github.com/alohawaii-travel/api/pkg/auth"
	"github.com/alohawaii-travel/api/pkg/httputil"
	"github.com/alohawaii-travel/api/pkg/observability"
)

// AccountHandlers serves the signed-in user's profile and the admin-side
// account management routes.
type AccountHandlers struct {
	store    accounts.Store
	recorder audit.Recorder
	logger   *observability.Logger
}

// NewAccountHandlers creates the account handlers.
func NewAccountHandlers(store accounts.Store, recorder audit.Recorder, logger *observability.Logger) *AccountHandlers {
	return &AccountHandlers{store: store, recorder: recorder, logger: logger}
}

// RegisterMeRoutes mounts the self-service routes.
func (h *AccountHandlers) RegisterMeRoutes(r *mux.Router) {
	r.HandleFunc("/me", h.me).Methods(http.MethodGet)
}

// RegisterAdminRoutes mounts the account administration routes.
func (h *AccountHandlers) RegisterAdminRoutes(r *mux.Router) {
	r.HandleFunc("/users", h.list).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}", h.get).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/role", h.setRole).Methods(http.MethodPatch)
	r.HandleFunc("/users/{id}/active", h.setActive).Methods(http.MethodPatch)
}

// me handles GET /api/internal/me. The account is re-read from the store so
// the caller sees role or activation changes made after their session was
// minted.
func (h *AccountHandlers) me(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	account, err := h.store.FindByID(r.Context(), claims.SubjectID)
	if errors.Is(err, accounts.ErrNotFound) {
		httputil.WriteNotFound(w, "Account not found")
		return
	}
	if err != nil {
		h.storeError(w, r, err, "load own account")
		return
	}
	httputil.WriteSuccess(w, account)
}

// list handles GET /api/internal/users.
func (h *AccountHandlers) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.List(r.Context())
	if err != nil {
		h.storeError(w, r, err, "list accounts")
		return
	}
	if list == nil {
		list = []accounts.Account{}
	}
	httputil.WriteSuccess(w, list)
}

// get handles GET /api/internal/users/{id}.
func (h *AccountHandlers) get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	account, err := h.store.FindByID(r.Context(), id)
	if errors.Is(err, accounts.ErrNotFound) {
		httputil.WriteNotFound(w, "Account not found")
		return
	}
	if err != nil {
		h.storeError(w, r, err, "find account")
		return
	}
	httputil.WriteSuccess(w, account)
}

// setRole handles PATCH /api/internal/users/{id}/role. This is the only
// path that changes a role; sign-in never does.
func (h *AccountHandlers) setRole(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Role string `json:"role"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	role, err := auth.ParseRole(req.Role)
	if err != nil {
		httputil.WriteBadRequest(w, "Unknown role")
		return
	}
	account, err := h.store.SetRole(r.Context(), id, role)
	if errors.Is(err, accounts.ErrNotFound) {
		httputil.WriteNotFound(w, "Account not found")
		return
	}
	if err != nil {
		h.storeError(w, r, err, "set account role")
		return
	}
	h.recordAdminAction(r, audit.EventRoleChanged, account, map[string]interface{}{
		"new_role": role.String(),
	})
	httputil.WriteSuccess(w, account)
}

// setActive handles PATCH /api/internal/users/{id}/active. Deactivation is
// the terminal normal state; rows are never deleted.
func (h *AccountHandlers) setActive(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Active bool `json:"active"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	account, err := h.store.SetActive(r.Context(), id, req.Active)
	if errors.Is(err, accounts.ErrNotFound) {
		httputil.WriteNotFound(w, "Account not found")
		return
	}
	if err != nil {
		h.storeError(w, r, err, "set account active")
		return
	}
	eventType := audit.EventAccountDeactivated
	if req.Active {
		eventType = audit.EventAccountActivated
	}
	h.recordAdminAction(r, eventType, account, nil)
	httputil.WriteSuccess(w, account)
}

func (h *AccountHandlers) recordAdminAction(r *http.Request, eventType audit.EventType, subject *accounts.Account, metadata map[string]interface{}) {
	if h.recorder == nil {
		return
	}
	event := &audit.Event{
		Type:      eventType,
		Status:    audit.StatusSuccess,
		SubjectID: subject.ID,
		RequestID: observability.GetRequestID(r.Context()),
		IPAddress: httputil.ClientIP(r),
		Message:   "account administration",
		Metadata:  metadata,
	}
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		event.ActorID = claims.SubjectID
		event.ActorEmail = claims.Email
	}
	if err := h.recorder.Record(r.Context(), event); err != nil && h.logger != nil {
		h.logger.WithError(err).Warn("audit record failed")
	}
}

func (h *AccountHandlers) storeError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	if h.logger != nil {
		h.logger.WithError(err).
			WithField("request_id", observability.GetRequestID(r.Context())).
			Error(msg)
	}
	httputil.WriteServiceUnavailable(w, "Account service is temporarily unavailable")
}
