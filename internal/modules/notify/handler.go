package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/printnow-backend/internal/pkg/apperr"
)

// CodeResolver turns any accepted spelling of an order code into the canonical
// code the payment engine publishes on.
type CodeResolver interface {
	CanonicalCode(ctx context.Context, code string) (string, error)
}

// Handler exposes the server-sent event stream for an order's payment page.
type Handler struct {
	hub       *Hub
	resolver  CodeResolver
	keepAlive time.Duration
	log       *slog.Logger
}

func NewHandler(hub *Hub, resolver CodeResolver, keepAlive time.Duration, log *slog.Logger) *Handler {
	return &Handler{hub: hub, resolver: resolver, keepAlive: keepAlive, log: log}
}

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/stream", func(r chi.Router) {
		r.Get("/orders/{code}", h.stream) // GET /api/v1/stream/orders/{code}
	})
}

func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	code, err := h.resolver.CanonicalCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		respond(w, apperr.HTTPStatus(err), apperr.Body(err))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		respond(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	sub := h.hub.Subscribe(code)
	defer h.hub.Unsubscribe(code, sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, "event: ping\ndata: \"ok\"\n\n"); err != nil {
		return
	}
	flusher.Flush()

	h.log.DebugContext(r.Context(), "stream opened", "code", code)
	defer h.log.DebugContext(r.Context(), "stream closed", "code", code)

	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-sub.Done():
			return
		case ev := <-sub.Events():
			data, err := json.Marshal(ev)
			if err != nil {
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
			if ev.Type == EventPaid {
				return
			}
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
