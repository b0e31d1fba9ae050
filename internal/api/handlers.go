package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/laguz/internal/apperr"
)

// Handler holds API route handlers.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(svc *Service) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Get("/countries", h.ListCountries)
	r.Get("/countries/{name}", h.GetCountry)
	r.Get("/boundaries", h.ListBoundaries)
	return r
}

// ListCountries handles GET /api/countries.
func (h *Handler) ListCountries(w http.ResponseWriter, _ *http.Request) {
	countries, err := h.svc.Countries()
	if err != nil {
		slog.Error("list countries failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, countries)
}

// GetCountry handles GET /api/countries/{name}.
func (h *Handler) GetCountry(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	country, err := h.svc.Country(name)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get country failed", slog.String("name", name), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, country)
}

// ListBoundaries handles GET /api/boundaries.
func (h *Handler) ListBoundaries(w http.ResponseWriter, _ *http.Request) {
	boundaries, err := h.svc.Boundaries()
	if err != nil {
		slog.Error("list boundaries failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, boundaries)
}
