// Package wire holds the JSON encodings shared by the HTTP handler and the
// API client.
package wire

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// Error is the body of every non-2xx response.
type Error struct {
	Code    int
	Message string
	// Field names the offending input of a validation error.
	Field string
}

// EncodeError writes an error body.
func EncodeError(e *jx.Encoder, v Error) {
	e.ObjStart()
	e.FieldStart("code")
	e.Int(v.Code)
	e.FieldStart("message")
	e.Str(v.Message)
	if v.Field != "" {
		e.FieldStart("field")
		e.Str(v.Field)
	}
	e.ObjEnd()
}

// DecodeError reads an error body.
func DecodeError(data []byte) (Error, error) {
	var v Error
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "code":
			v.Code, err = d.Int()
		case "message":
			v.Message, err = d.Str()
		case "field":
			v.Field, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return Error{}, errors.Wrap(err, "decode error body")
	}
	return v, nil
}

// Count is the body returned by bulk deletes.
type Count struct {
	Deleted int
}

// EncodeCount writes a Count.
func EncodeCount(e *jx.Encoder, v Count) {
	e.ObjStart()
	e.FieldStart("deleted")
	e.Int(v.Deleted)
	e.ObjEnd()
}

// DecodeCount reads a Count.
func DecodeCount(data []byte) (Count, error) {
	var v Count
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		if key != "deleted" {
			return d.Skip()
		}
		var err error
		v.Deleted, err = d.Int()
		return err
	})
	if err != nil {
		return Count{}, errors.Wrap(err, "decode count")
	}
	return v, nil
}

// Encode runs fn on a fresh encoder and returns the bytes.
func Encode(fn func(e *jx.Encoder)) []byte {
	var e jx.Encoder
	fn(&e)
	return e.Bytes()
}

// optionalStr reads a string that may be null.
func optionalStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}
