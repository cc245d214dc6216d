package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/warishayday/internal/domain/apperr"
	"github.com/xenking/warishayday/internal/domain/order"
	"github.com/xenking/warishayday/internal/domain/shop"
	"github.com/xenking/warishayday/internal/wire"
)

var errUnauthorized = &statusError{code: http.StatusUnauthorized, msg: "unauthorized"}

// statusError carries an explicit HTTP status.
type statusError struct {
	code int
	msg  string
	err  error
}

func (e *statusError) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *statusError) Unwrap() error { return e.err }

// badRequest reports a body that could not be decoded. Validation errors
// raised while decoding keep their own status.
func badRequest(err error) error {
	if apperr.IsValidation(err) {
		return err
	}
	return &statusError{code: http.StatusBadRequest, msg: "malformed request", err: err}
}

// writeError maps err to a status code and an error body. Unexpected errors
// are logged and reported without detail.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	body := wire.Error{Code: http.StatusInternalServerError, Message: "internal server error"}

	var (
		se   *statusError
		verr *apperr.ValidationError
		cerr *apperr.ConflictError
		terr *apperr.TransportError
	)
	switch {
	case errors.As(err, &se):
		body.Code, body.Message = se.code, se.Error()
	case errors.As(err, &verr):
		body.Code, body.Message, body.Field = http.StatusUnprocessableEntity, verr.Error(), verr.Field
	case errors.As(err, &cerr):
		body.Code, body.Message = http.StatusConflict, cerr.Error()
	case errors.As(err, &terr):
		body.Code, body.Message = http.StatusServiceUnavailable, "storage unavailable"
		zctx.From(r.Context()).Warn("Storage unavailable", zap.Error(err))
	case errors.Is(err, order.ErrNotFound), errors.Is(err, shop.ErrCategoryNotFound):
		body.Code, body.Message = http.StatusNotFound, err.Error()
	default:
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	}

	writeJSON(w, body.Code, func(e *jx.Encoder) { wire.EncodeError(e, body) })
}
