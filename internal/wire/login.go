package wire

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// EncodeLogin writes a login request.
func EncodeLogin(e *jx.Encoder, pin string) {
	e.ObjStart()
	e.FieldStart("pin")
	e.Str(pin)
	e.ObjEnd()
}

// DecodeLogin reads a login request and returns the PIN.
func DecodeLogin(data []byte) (string, error) {
	var pin string
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		if key != "pin" {
			return d.Skip()
		}
		var err error
		pin, err = d.Str()
		return err
	})
	if err != nil {
		return "", errors.Wrap(err, "decode login")
	}
	return pin, nil
}

// EncodeToken writes a login response.
func EncodeToken(e *jx.Encoder, token string) {
	e.ObjStart()
	e.FieldStart("token")
	e.Str(token)
	e.ObjEnd()
}

// DecodeToken reads a login response.
func DecodeToken(data []byte) (string, error) {
	var token string
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		if key != "token" {
			return d.Skip()
		}
		var err error
		token, err = d.Str()
		return err
	})
	if err != nil {
		return "", errors.Wrap(err, "decode token")
	}
	return token, nil
}
