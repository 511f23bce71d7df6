package catalog

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/printnow-backend/internal/pkg/apperr"
)

// Handler exposes catalog HTTP endpoints.
type Handler struct {
	service Service
	staff   []func(http.Handler) http.Handler
}

// NewHandler takes the middleware chain that guards rule creation.
func NewHandler(service Service, staff ...func(http.Handler) http.Handler) *Handler {
	return &Handler{service: service, staff: staff}
}

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/catalog", func(r chi.Router) {
		r.Get("/price-rules", h.listRules)
		r.With(h.staff...).Post("/price-rules", h.createRule)
		r.Post("/quote", h.quote)
	})
}

func (h *Handler) listRules(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") != "false"
	rules, err := h.service.ListRules(r.Context(), activeOnly)
	if err != nil {
		respond(w, apperr.HTTPStatus(err), apperr.Body(err))
		return
	}
	if rules == nil {
		rules = []*PriceRule{}
	}
	respond(w, http.StatusOK, rules)
}

func (h *Handler) createRule(w http.ResponseWriter, r *http.Request) {
	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, apperr.Body(apperr.Validationf("invalid body: %v", err)))
		return
	}
	rule, err := h.service.CreateRule(r.Context(), req)
	if err != nil {
		respond(w, apperr.HTTPStatus(err), apperr.Body(err))
		return
	}
	respond(w, http.StatusCreated, rule)
}

type quoteRequest struct {
	PricingMode PricingMode `json:"pricing_mode"`
	Selection
}

func (h *Handler) quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, apperr.Body(apperr.Validationf("invalid body: %v", err)))
		return
	}
	q, err := h.service.Quote(r.Context(), req.PricingMode, req.Selection)
	if err != nil {
		respond(w, apperr.HTTPStatus(err), apperr.Body(err))
		return
	}
	respond(w, http.StatusOK, q)
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
