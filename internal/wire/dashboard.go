package wire

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/warishayday/internal/domain/dashboard"
)

func encodeEntries(e *jx.Encoder, entries []dashboard.Entry) {
	e.ArrStart()
	for _, en := range entries {
		e.ObjStart()
		e.FieldStart("key")
		e.Str(en.Key)
		e.FieldStart("value")
		e.Int64(en.Value)
		e.FieldStart("share")
		e.Str(en.Share.StringFixed(1))
		e.ObjEnd()
	}
	e.ArrEnd()
}

func decodeEntries(d *jx.Decoder) ([]dashboard.Entry, error) {
	entries := []dashboard.Entry{}
	err := d.Arr(func(d *jx.Decoder) error {
		var en dashboard.Entry
		err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "key":
				en.Key, err = d.Str()
			case "value":
				en.Value, err = d.Int64()
			case "share":
				var s string
				if s, err = d.Str(); err == nil {
					en.Share, err = decimal.NewFromString(s)
				}
			default:
				err = d.Skip()
			}
			return err
		})
		entries = append(entries, en)
		return err
	})
	return entries, err
}

// EncodeDashboard writes a sales summary. Shares are fixed-point strings.
func EncodeDashboard(e *jx.Encoder, s *dashboard.Summary) {
	e.ObjStart()
	e.FieldStart("day")
	e.Str(s.Day)
	e.FieldStart("today")
	e.Int64(s.Today)
	e.FieldStart("month")
	e.Int64(s.Month)
	e.FieldStart("year")
	e.Int64(s.Year)
	e.FieldStart("orders")
	e.Int(s.Orders)
	e.FieldStart("byCategory")
	encodeEntries(e, s.ByCategory)
	e.FieldStart("byType")
	encodeEntries(e, s.ByType)
	e.FieldStart("items")
	encodeEntries(e, s.Items)
	e.FieldStart("timeline")
	e.ArrStart()
	for _, p := range s.Timeline {
		e.ObjStart()
		e.FieldStart("date")
		e.Str(p.Date)
		e.FieldStart("total")
		e.Int64(p.Total)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}

// DecodeDashboard reads a sales summary.
func DecodeDashboard(data []byte) (*dashboard.Summary, error) {
	var s dashboard.Summary
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "day":
			s.Day, err = d.Str()
		case "today":
			s.Today, err = d.Int64()
		case "month":
			s.Month, err = d.Int64()
		case "year":
			s.Year, err = d.Int64()
		case "orders":
			s.Orders, err = d.Int()
		case "byCategory":
			s.ByCategory, err = decodeEntries(d)
		case "byType":
			s.ByType, err = decodeEntries(d)
		case "items":
			s.Items, err = decodeEntries(d)
		case "timeline":
			s.Timeline = []dashboard.Point{}
			err = d.Arr(func(d *jx.Decoder) error {
				var p dashboard.Point
				err := d.Obj(func(d *jx.Decoder, key string) error {
					var err error
					switch key {
					case "date":
						p.Date, err = d.Str()
					case "total":
						p.Total, err = d.Int64()
					default:
						err = d.Skip()
					}
					return err
				})
				s.Timeline = append(s.Timeline, p)
				return err
			})
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode dashboard")
	}
	return &s, nil
}
