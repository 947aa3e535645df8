package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/alohawaii-travel/api/pkg/httputil"
	"github.com/alohawaii-travel/api/pkg/observability"
	"github.com/alohawaii-travel/api/pkg/tours"
)

// ToursHandlers serves the tour catalog, both the public read side and the
// staff management side.
type ToursHandlers struct {
	store  tours.Store
	logger *observability.Logger
}

// NewToursHandlers creates the tour catalog handlers.
func NewToursHandlers(store tours.Store, logger *observability.Logger) *ToursHandlers {
	return &ToursHandlers{store: store, logger: logger}
}

// RegisterExternalRoutes mounts the public catalog routes.
func (h *ToursHandlers) RegisterExternalRoutes(r *mux.Router) {
	r.HandleFunc("/tours", h.listActive).Methods(http.MethodGet)
	r.HandleFunc("/tours/{slug}", h.getBySlug).Methods(http.MethodGet)
}

// RegisterReadRoutes mounts the staff read routes.
func (h *ToursHandlers) RegisterReadRoutes(r *mux.Router) {
	r.HandleFunc("/tours", h.listAll).Methods(http.MethodGet)
	r.HandleFunc("/tours/{id}", h.getByID).Methods(http.MethodGet)
}

// RegisterWriteRoutes mounts the staff write routes.
func (h *ToursHandlers) RegisterWriteRoutes(r *mux.Router) {
	r.HandleFunc("/tours", h.create).Methods(http.MethodPost)
	r.HandleFunc("/tours/{id}", h.update).Methods(http.MethodPut)
	r.HandleFunc("/tours/{id}/active", h.setActive).Methods(http.MethodPatch)
}

// listActive handles GET /api/external/tours. Inactive tours never appear
// on the public listing.
func (h *ToursHandlers) listActive(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.List(r.Context(), true)
	if err != nil {
		h.storeError(w, r, err, "list active tours")
		return
	}
	if list == nil {
		list = []tours.Tour{}
	}
	httputil.WriteSuccess(w, list)
}

// getBySlug handles GET /api/external/tours/{slug}.
func (h *ToursHandlers) getBySlug(w http.ResponseWriter, r *http.Request) {
	slug, ok := httputil.ParsePathStringOrError(w, r, "slug")
	if !ok {
		return
	}
	tour, err := h.store.FindBySlug(r.Context(), slug)
	if errors.Is(err, tours.ErrNotFound) {
		httputil.WriteNotFound(w, "Tour not found")
		return
	}
	if err != nil {
		h.storeError(w, r, err, "find tour by slug")
		return
	}
	if !tour.Active {
		httputil.WriteNotFound(w, "Tour not found")
		return
	}
	httputil.WriteSuccess(w, tour)
}

// listAll handles GET /api/internal/tours, including inactive entries.
func (h *ToursHandlers) listAll(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.List(r.Context(), false)
	if err != nil {
		h.storeError(w, r, err, "list tours")
		return
	}
	if list == nil {
		list = []tours.Tour{}
	}
	httputil.WriteSuccess(w, list)
}

// getByID handles GET /api/internal/tours/{id}.
func (h *ToursHandlers) getByID(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	tour, err := h.store.FindByID(r.Context(), id)
	if errors.Is(err, tours.ErrNotFound) {
		httputil.WriteNotFound(w, "Tour not found")
		return
	}
	if err != nil {
		h.storeError(w, r, err, "find tour by id")
		return
	}
	httputil.WriteSuccess(w, tour)
}

type tourRequest struct {
	Slug            string `json:"slug"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	DurationMinutes int    `json:"duration_minutes"`
	PriceCents      int64  `json:"price_cents"`
	Currency        string `json:"currency"`
}

// create handles POST /api/internal/tours.
func (h *ToursHandlers) create(w http.ResponseWriter, r *http.Request) {
	var req tourRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	tour := &tours.Tour{
		ID:              uuid.NewString(),
		Slug:            req.Slug,
		Title:           req.Title,
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
		PriceCents:      req.PriceCents,
		Currency:        req.Currency,
		Active:          true,
	}
	if err := tour.Validate(); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if err := h.store.Create(r.Context(), tour); err != nil {
		if errors.Is(err, tours.ErrDuplicateSlug) {
			httputil.WriteConflict(w, "A tour with this slug already exists")
			return
		}
		h.storeError(w, r, err, "create tour")
		return
	}
	httputil.WriteCreated(w, tour)
}

// update handles PUT /api/internal/tours/{id}.
func (h *ToursHandlers) update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	var req tourRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	tour := &tours.Tour{
		ID:              id,
		Slug:            req.Slug,
		Title:           req.Title,
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
		PriceCents:      req.PriceCents,
		Currency:        req.Currency,
	}
	if err := tour.Validate(); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	updated, err := h.store.Update(r.Context(), tour)
	if errors.Is(err, tours.ErrNotFound) {
		httputil.WriteNotFound(w, "Tour not found")
		return
	}
	if errors.Is(err, tours.ErrDuplicateSlug) {
		httputil.WriteConflict(w, "A tour with this slug already exists")
		return
	}
	if err != nil {
		h.storeError(w, r, err, "update tour")
		return
	}
	httputil.WriteSuccess(w, updated)
}

// setActive handles PATCH /api/internal/tours/{id}/active.
func (h *ToursHandlers) setActive(w http.ResponseWriter, r *http.Request) {
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
	tour, err := h.store.SetActive(r.Context(), id, req.Active)
	if errors.Is(err, tours.ErrNotFound) {
		httputil.WriteNotFound(w, "Tour not found")
		return
	}
	if err != nil {
		h.storeError(w, r, err, "set tour active")
		return
	}
	httputil.WriteSuccess(w, tour)
}

func (h *ToursHandlers) storeError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	if h.logger != nil {
		h.logger.WithError(err).
			WithField("request_id", observability.GetRequestID(r.Context())).
			Error(msg)
	}
	httputil.WriteServiceUnavailable(w, "Catalog is temporarily unavailable")
}
