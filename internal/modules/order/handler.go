package order

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/printnow-backend/internal/pkg/apperr"
	"github.com/georgemunganga/printnow-backend/internal/pkg/principal"
)

// Handler exposes order HTTP endpoints. Every route requires an authenticated customer.
type Handler struct {
	service Service
	authn   func(http.Handler) http.Handler
}

func NewHandler(service Service, authn func(http.Handler) http.Handler) *Handler {
	return &Handler{service: service, authn: authn}
}

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(h.authn)
		r.Post("/", h.placeOrder)                       // POST /api/v1/orders
		r.Get("/", h.listOrders)                        // GET  /api/v1/orders?status=&page=&pageSize=
		r.Get("/{id}", h.getOrder)                      // GET  /api/v1/orders/{id}
		r.Get("/by-code/{code}", h.getOrderByCode)      // GET  /api/v1/orders/by-code/{code}
		r.Post("/by-code/{code}/cancel", h.cancelOrder) // POST /api/v1/orders/by-code/{code}/cancel
	})
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	p, _ := principal.FromContext(r.Context())
	var req PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validationf("invalid body: %v", err))
		return
	}
	key := r.Header.Get("X-Idempotency-Key")
	if key == "" {
		key = r.Header.Get("Idempotency-Key")
	}
	o, replayed, err := h.service.PlaceOrder(r.Context(), p.UserID, key, req)
	if err != nil {
		writeError(w, err)
		return
	}
	if replayed {
		w.Header().Set("Idempotent-Replayed", "true")
		respond(w, http.StatusOK, o)
		return
	}
	respond(w, http.StatusCreated, o)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	p, _ := principal.FromContext(r.Context())
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("pageSize"))
	res, err := h.service.ListCustomerOrders(r.Context(), p.UserID, ListFilter{
		Status:   q.Get("status"),
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, res)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	p, _ := principal.FromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, apperr.Validationf("invalid order id"))
		return
	}
	o, err := h.service.GetOrder(r.Context(), p.UserID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, o)
}

func (h *Handler) getOrderByCode(w http.ResponseWriter, r *http.Request) {
	p, _ := principal.FromContext(r.Context())
	o, err := h.service.GetOrderByCode(r.Context(), p.UserID, chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, o)
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	p, _ := principal.FromContext(r.Context())
	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, apperr.Validationf("invalid body: %v", err))
		return
	}
	o, err := h.service.CancelOrder(r.Context(), p.UserID, chi.URLParam(r, "code"), req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, o)
}

func writeError(w http.ResponseWriter, err error) {
	respond(w, apperr.HTTPStatus(err), apperr.Body(err))
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
