package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"

	"github.com/xenking/warishayday/internal/domain/auth"
	"github.com/xenking/warishayday/internal/wire"
)

const bearerPrefix = "Bearer "

// admin rejects requests without a valid session token.
func (h *Handler) admin(next handlerFunc) handlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
		if !ok || !h.auth.ValidToken(strings.TrimSpace(token)) {
			return errUnauthorized
		}
		return next(w, r)
	}
}

func (h *Handler) postLogin(w http.ResponseWriter, r *http.Request) error {
	data, err := h.readBody(w, r)
	if err != nil {
		return err
	}
	pin, err := wire.DecodeLogin(data)
	if err != nil {
		return badRequest(err)
	}
	if err := auth.CheckPIN(pin); err != nil {
		return err
	}
	if !h.auth.Verify(pin) {
		zctx.From(r.Context()).Warn("Admin login rejected")
		return &statusError{code: http.StatusUnauthorized, msg: "invalid pin"}
	}
	token := h.auth.Token()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { wire.EncodeToken(e, token) })
	return nil
}
