package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xenking/warishayday/internal/domain/apperr"
	"github.com/xenking/warishayday/internal/domain/order"
	"github.com/xenking/warishayday/internal/wire"
)

func (h *Handler) decodeRequest(w http.ResponseWriter, r *http.Request) (order.Request, error) {
	data, err := h.readBody(w, r)
	if err != nil {
		return order.Request{}, err
	}
	req, err := wire.DecodeRequest(data)
	if err != nil {
		return order.Request{}, badRequest(err)
	}
	return req, nil
}

func (h *Handler) quote(w http.ResponseWriter, r *http.Request) error {
	req, err := h.decodeRequest(w, r)
	if err != nil {
		return err
	}
	q, err := h.orders.Quote(r.Context(), req)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { wire.EncodeQuote(e, q) })
	return nil
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) error {
	req, err := h.decodeRequest(w, r)
	if err != nil {
		return err
	}
	ctx := r.Context()
	o, err := h.orders.PlaceOrder(ctx, req)
	if err != nil {
		return err
	}
	h.placed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("category", o.CategoryID),
		attribute.String("type", string(o.Type)),
	))
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { wire.EncodeOrder(e, o) })
	return nil
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	orders, err := h.orders.List(r.Context(), order.Filter{
		Status:     order.Status(q.Get("status")),
		IDContains: q.Get("q"),
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { wire.EncodeOrders(e, orders) })
	return nil
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) error {
	o, err := h.orders.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { wire.EncodeOrder(e, o) })
	return nil
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) error {
	data, err := h.readBody(w, r)
	if err != nil {
		return err
	}
	status, err := wire.DecodeStatus(data)
	if err != nil {
		return badRequest(err)
	}
	o, err := h.orders.SetStatus(r.Context(), r.PathValue("id"), status)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { wire.EncodeOrder(e, o) })
	return nil
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) error {
	if err := h.orders.Delete(r.Context(), r.PathValue("id")); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// clearOrders bulk-deletes orders by status. Only cancelled orders can be
// cleared.
func (h *Handler) clearOrders(w http.ResponseWriter, r *http.Request) error {
	if s := order.Status(r.URL.Query().Get("status")); s != order.StatusCancelled {
		return apperr.Invalidf("status", "only cancelled orders can be cleared, got %q", s)
	}
	n, err := h.orders.ClearCancelled(r.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { wire.EncodeCount(e, wire.Count{Deleted: n}) })
	return nil
}
