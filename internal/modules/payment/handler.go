package payment

import (
	"crypto/subtle"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/georgemunganga/printnow-backend/internal/pkg/apperr"
	"github.com/georgemunganga/printnow-backend/internal/pkg/principal"
)

// Handler exposes payment HTTP endpoints.
type Handler struct {
	service      Service
	webhookToken string
	authn        func(http.Handler) http.Handler
	staff        []func(http.Handler) http.Handler
}

// NewHandler wires the payment routes. An empty webhookToken accepts
// unsigned webhooks; staff is the full middleware chain for operator routes.
func NewHandler(service Service, webhookToken string, authn func(http.Handler) http.Handler, staff ...func(http.Handler) http.Handler) *Handler {
	return &Handler{service: service, webhookToken: webhookToken, authn: authn, staff: staff}
}

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/payments", func(r chi.Router) {
		// provider callbacks, no auth middleware
		r.Post("/webhooks/casso", h.webhookCasso)
		r.Get("/vnpay/ipn", h.simulateIPN)

		r.Get("/{paymentID}/status", h.sessionStatus)
		r.Post("/{paymentID}/cancel", h.cancelSession)

		r.With(h.authn).Post("/orders/{orderID}/confirm-store", h.confirmStore)
		r.With(h.authn).Post("/online", h.createSession)

		r.With(h.staff...).Post("/mark-paid/{code}", h.markPaid)
		r.With(h.staff...).Post("/orders/{orderID}/cash-received", h.cashReceived)
	})
}

func (h *Handler) confirmStore(w http.ResponseWriter, r *http.Request) {
	p, _ := principal.FromContext(r.Context())
	orderID, err := pathID(r, "orderID")
	if err != nil {
		writeError(w, err)
		return
	}
	pay, err := h.service.ConfirmStorePayment(r.Context(), p.UserID, orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{"ok": true, "payment": pay})
}

func (h *Handler) cashReceived(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "orderID")
	if err != nil {
		writeError(w, err)
		return
	}
	pay, err := h.service.ConfirmCashReceived(r.Context(), orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{"ok": true, "payment": pay})
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	p, _ := principal.FromContext(r.Context())
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validationf("invalid body: %v", err))
		return
	}
	req.PayType = PayType(strings.ToUpper(string(req.PayType)))
	pay, err := h.service.CreateSession(r.Context(), p.UserID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusCreated, pay)
}

func (h *Handler) sessionStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "paymentID"))
	if err != nil {
		writeError(w, apperr.Validationf("invalid payment id"))
		return
	}
	pay, err := h.service.SessionStatus(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, pay)
}

func (h *Handler) cancelSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "paymentID"))
	if err != nil {
		writeError(w, apperr.Validationf("invalid payment id"))
		return
	}
	pay, err := h.service.CancelSession(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, pay)
}

func (h *Handler) simulateIPN(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.URL.Query().Get("paymentId"))
	if err != nil {
		writeError(w, apperr.Validationf("invalid payment id"))
		return
	}
	pay, err := h.service.SimulateIPN(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{"ok": true, "payment": pay})
}

func (h *Handler) markPaid(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PaidAmount json.Number `json:"paidAmount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validationf("invalid body: %v", err))
		return
	}
	amount, ok := parseAmount(string(req.PaidAmount))
	if !ok {
		writeError(w, apperr.Validationf("paidAmount must be a number"))
		return
	}
	res, err := h.service.MarkPaid(r.Context(), chi.URLParam(r, "code"), amount)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{"ok": true, "settlement": res})
}

// webhookCasso accepts Casso-style bank notifications. The transaction sits
// either under "data" or at the top level. Anything that cannot be applied is
// acknowledged with 200 so the sender does not retry; only storage failures
// answer 500.
func (h *Handler) webhookCasso(w http.ResponseWriter, r *http.Request) {
	if h.webhookToken != "" &&
		subtle.ConstantTimeCompare([]byte(r.Header.Get("Secure-Token")), []byte(h.webhookToken)) != 1 {
		respond(w, http.StatusUnauthorized, map[string]interface{}{"ok": false})
		return
	}

	var raw map[string]interface{}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		respond(w, http.StatusOK, map[string]interface{}{"ok": true, "ignored": true})
		return
	}
	data, _ := raw["data"].(map[string]interface{})
	if data == nil {
		data = raw
	}

	amount, _ := parseAmount(firstValue(data, raw, "amount", "paidAmount"))
	n := Notification{
		Description:  firstValue(data, raw, "description", "content"),
		Reference:    firstValue(data, raw, "reference"),
		Amount:       amount,
		OverrideCode: r.URL.Query().Get("orderCode"),
	}

	out, err := h.service.HandleWebhook(r.Context(), n)
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]interface{}{"ok": false})
		return
	}
	body := map[string]interface{}{"ok": true}
	if out.Ignored {
		body["ignored"] = true
	} else {
		body["code"] = out.Code
	}
	respond(w, http.StatusOK, body)
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validationf("invalid %s", name)
	}
	return id, nil
}

// firstValue looks keys up in data, then in the envelope, and returns the
// first non-empty value as a string.
func firstValue(data, envelope map[string]interface{}, keys ...string) string {
	if s := stringFromMap(data, keys...); s != "" {
		return s
	}
	return stringFromMap(envelope, keys...)
}

// stringFromMap tries multiple keys and returns the first non-empty string value.
func stringFromMap(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case json.Number:
			return v.String()
		}
	}
	return ""
}

// parseAmount reads a whole amount, rounding fractional input.
func parseAmount(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int64(math.Round(f)), true
}

func writeError(w http.ResponseWriter, err error) {
	respond(w, apperr.HTTPStatus(err), apperr.Body(err))
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
