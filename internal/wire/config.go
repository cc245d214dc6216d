package wire

import (
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/warishayday/internal/domain/shop"
)

// EncodeConfig writes the configuration document. The document keeps its
// stored field names, so it is marshaled from its struct tags.
func EncodeConfig(e *jx.Encoder, cfg *shop.ShopConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "encode config")
	}
	e.Raw(raw)
	return nil
}

// DecodeConfig reads a whole configuration document.
func DecodeConfig(data []byte) (*shop.ShopConfig, error) {
	d := jx.DecodeBytes(data)
	if d.Next() != jx.Object {
		return nil, errors.New("decode config: document must be an object")
	}
	// Check the syntax before handing the raw bytes over.
	if !jx.Valid(data) {
		return nil, errors.New("decode config: invalid json")
	}
	return shop.Decode(data)
}

// NewCategory is the body of a category creation request.
type NewCategory struct {
	ID    string
	Label string
}

// EncodeNewCategory writes a category creation request.
func EncodeNewCategory(e *jx.Encoder, v NewCategory) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(v.ID)
	e.FieldStart("label")
	e.Str(v.Label)
	e.ObjEnd()
}

// DecodeNewCategory reads a category creation request.
func DecodeNewCategory(data []byte) (NewCategory, error) {
	var v NewCategory
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			v.ID, err = d.Str()
		case "label":
			v.Label, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return NewCategory{}, errors.Wrap(err, "decode category")
	}
	return v, nil
}

// EncodeItems writes an item catalog.
func EncodeItems(e *jx.Encoder, items []shop.Item) {
	e.ArrStart()
	for _, it := range items {
		e.ObjStart()
		e.FieldStart("name")
		e.Str(it.Name)
		if it.Image != "" {
			e.FieldStart("img")
			e.Str(it.Image)
		}
		e.ObjEnd()
	}
	e.ArrEnd()
}

// DecodeItems reads an item catalog.
func DecodeItems(data []byte) ([]shop.Item, error) {
	items := []shop.Item{}
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		var it shop.Item
		err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "name":
				it.Name, err = d.Str()
			case "img":
				it.Image, err = optionalStr(d)
			default:
				err = d.Skip()
			}
			return err
		})
		items = append(items, it)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode items")
	}
	return items, nil
}

// EncodePrices writes a price row.
func EncodePrices(e *jx.Encoder, p shop.PriceTable) {
	e.ObjStart()
	e.FieldStart("mixed")
	e.Int64(p.Mixed)
	e.FieldStart("selected")
	e.Int64(p.Selected)
	e.FieldStart("pure")
	e.Int64(p.Pure)
	e.FieldStart("tray")
	e.Int64(p.Tray)
	if p.MapPrice != nil {
		e.FieldStart("mapPrice")
		e.Int64(*p.MapPrice)
	}
	e.ObjEnd()
}

// DecodePrices reads a price row. Only "tray" is meaningful for the cross
// row.
func DecodePrices(data []byte) (shop.PriceTable, error) {
	var p shop.PriceTable
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "mixed":
			p.Mixed, err = d.Int64()
		case "selected":
			p.Selected, err = d.Int64()
		case "pure":
			p.Pure, err = d.Int64()
		case "tray":
			p.Tray, err = d.Int64()
		case "mapPrice":
			if d.Next() == jx.Null {
				return d.Null()
			}
			var v int64
			v, err = d.Int64()
			p.MapPrice = &v
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return shop.PriceTable{}, errors.Wrap(err, "decode prices")
	}
	return p, nil
}
