package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"

	"github.com/xenking/warishayday/internal/domain/apperr"
	"github.com/xenking/warishayday/internal/domain/dashboard"
	"github.com/xenking/warishayday/internal/domain/order"
	"github.com/xenking/warishayday/internal/wire"
)

// dashboard aggregates confirmed orders around the requested day, which
// defaults to today in the shop's zone.
func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) error {
	loc := h.orders.Location()
	day := h.now().In(loc)
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.ParseInLocation(dashboard.DateLayout, raw, loc)
		if err != nil {
			return apperr.Invalidf("date", "expected %s, got %q", dashboard.DateLayout, raw)
		}
		day = parsed
	}

	orders, err := h.orders.List(r.Context(), order.Filter{Status: order.StatusConfirmed})
	if err != nil {
		return err
	}
	summary := dashboard.Build(orders, day, loc)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { wire.EncodeDashboard(e, &summary) })
	return nil
}
