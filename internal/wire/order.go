package wire

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/warishayday/internal/domain/order"
	"github.com/xenking/warishayday/internal/domain/pricing"
	"github.com/xenking/warishayday/internal/domain/shop"
)

// TimeLayout is the timestamp encoding.
const TimeLayout = time.RFC3339Nano

func encodeLines(e *jx.Encoder, lines []order.Line) {
	e.ArrStart()
	for _, l := range lines {
		e.ObjStart()
		e.FieldStart("name")
		e.Str(l.Name)
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()
}

func decodeLines(d *jx.Decoder) ([]order.Line, error) {
	var lines []order.Line
	err := d.Arr(func(d *jx.Decoder) error {
		var l order.Line
		err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "name":
				l.Name, err = d.Str()
			case "quantity":
				l.Quantity, err = d.Int()
			default:
				err = d.Skip()
			}
			return err
		})
		lines = append(lines, l)
		return err
	})
	return lines, err
}

// EncodeRequest writes a quote or order request.
func EncodeRequest(e *jx.Encoder, req order.Request) {
	e.ObjStart()
	e.FieldStart("categoryId")
	e.Str(req.CategoryID)
	e.FieldStart("limit")
	e.Int(req.DeclaredLimit)
	e.FieldStart("type")
	e.Str(string(req.Type))
	if len(req.Lines) > 0 {
		e.FieldStart("items")
		encodeLines(e, req.Lines)
	}
	e.ObjEnd()
}

// DecodeRequest reads a quote or order request.
func DecodeRequest(data []byte) (order.Request, error) {
	var req order.Request
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "categoryId":
			req.CategoryID, err = d.Str()
		case "limit":
			req.DeclaredLimit, err = d.Int()
		case "type":
			var s string
			s, err = d.Str()
			req.Type = shop.PurchaseType(s)
		case "items":
			req.Lines, err = decodeLines(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return order.Request{}, errors.Wrap(err, "decode order request")
	}
	return req, nil
}

// EncodeQuote writes a priced request.
func EncodeQuote(e *jx.Encoder, q *order.Quote) {
	e.ObjStart()
	e.FieldStart("price")
	e.Int64(q.Price)
	e.FieldStart("status")
	e.Str(q.Status)
	e.FieldStart("mode")
	e.Str(string(q.Mode))
	e.FieldStart("trays")
	e.Int(q.Trays)
	e.FieldStart("units")
	e.Int(q.Units)
	e.FieldStart("declaredLimit")
	e.Int(q.Limit.Declared)
	e.FieldStart("remainingLimit")
	e.Int(q.Limit.Remaining)
	e.FieldStart("fullLimit")
	e.Bool(q.Limit.FullLimit)
	e.FieldStart("category")
	e.Str(q.Category)
	e.FieldStart("items")
	encodeLines(e, q.Lines)
	e.ObjEnd()
}

// DecodeQuote reads a priced request.
func DecodeQuote(data []byte) (*order.Quote, error) {
	var q order.Quote
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "price":
			q.Price, err = d.Int64()
		case "status":
			q.Status, err = d.Str()
		case "mode":
			var s string
			s, err = d.Str()
			q.Mode = pricing.Mode(s)
		case "trays":
			q.Trays, err = d.Int()
		case "units":
			q.Units, err = d.Int()
		case "declaredLimit":
			q.Limit.Declared, err = d.Int()
		case "remainingLimit":
			q.Limit.Remaining, err = d.Int()
		case "fullLimit":
			q.Limit.FullLimit, err = d.Bool()
		case "category":
			q.Category, err = d.Str()
		case "items":
			q.Lines, err = decodeLines(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode quote")
	}
	return &q, nil
}

// EncodeOrder writes an order. Lines are also rendered as display strings.
func EncodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("category")
	e.Str(o.Category)
	e.FieldStart("categoryId")
	e.Str(o.CategoryID)
	e.FieldStart("type")
	e.Str(string(o.Type))
	e.FieldStart("items")
	encodeLines(e, o.Lines)
	e.FieldStart("itemsText")
	e.ArrStart()
	for _, l := range o.Lines {
		e.Str(l.String())
	}
	e.ArrEnd()
	e.FieldStart("price")
	e.Int64(o.Price)
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("timestamp")
	e.Str(o.CreatedAt.Format(TimeLayout))
	e.ObjEnd()
}

func decodeOrder(d *jx.Decoder) (order.Order, error) {
	var o order.Order
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			o.ID, err = d.Str()
		case "category":
			o.Category, err = d.Str()
		case "categoryId":
			o.CategoryID, err = optionalStr(d)
		case "type":
			var s string
			s, err = d.Str()
			o.Type = shop.PurchaseType(s)
		case "items":
			o.Lines, err = decodeLines(d)
		case "price":
			o.Price, err = d.Int64()
		case "status":
			var s string
			s, err = d.Str()
			o.Status = order.Status(s)
		case "timestamp":
			var s string
			if s, err = d.Str(); err == nil {
				o.CreatedAt, err = time.Parse(TimeLayout, s)
			}
		default:
			err = d.Skip()
		}
		return err
	})
	return o, err
}

// DecodeOrder reads an order.
func DecodeOrder(data []byte) (*order.Order, error) {
	o, err := decodeOrder(jx.DecodeBytes(data))
	if err != nil {
		return nil, errors.Wrap(err, "decode order")
	}
	return &o, nil
}

// EncodeOrders writes an order list.
func EncodeOrders(e *jx.Encoder, orders []order.Order) {
	e.ArrStart()
	for i := range orders {
		EncodeOrder(e, &orders[i])
	}
	e.ArrEnd()
}

// DecodeOrders reads an order list.
func DecodeOrders(data []byte) ([]order.Order, error) {
	orders := []order.Order{}
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		o, err := decodeOrder(d)
		if err != nil {
			return err
		}
		orders = append(orders, o)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode orders")
	}
	return orders, nil
}

// EncodeStatus writes a status change request.
func EncodeStatus(e *jx.Encoder, s order.Status) {
	e.ObjStart()
	e.FieldStart("status")
	e.Str(string(s))
	e.ObjEnd()
}

// DecodeStatus reads a status change request.
func DecodeStatus(data []byte) (order.Status, error) {
	var s string
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		if key != "status" {
			return d.Skip()
		}
		var err error
		s, err = d.Str()
		return err
	})
	if err != nil {
		return "", errors.Wrap(err, "decode status")
	}
	return order.Status(s), nil
}
