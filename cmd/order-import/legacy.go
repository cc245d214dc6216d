package main

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/warishayday/internal/domain/order"
	"github.com/xenking/warishayday/internal/domain/shop"
)

const decodeBufSize = 64 << 10

// openExport opens path, transparently decompressing .gz files.
func openExport(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	gz, err := pgzip.NewReader(bufio.NewReader(f))
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "create gzip reader for %s", path)
	}
	return &gzipFile{Reader: gz, file: f}, nil
}

type gzipFile struct {
	*pgzip.Reader
	file *os.File
}

func (g *gzipFile) Close() error {
	gzErr := g.Reader.Close()
	if err := g.file.Close(); err != nil {
		return err
	}
	return gzErr
}

// decodeExport reads a JSON array of orders as exported by the previous
// system. Item lines there are "<name> x<qty>" strings, prices may be
// numeric strings and the status may be missing.
func decodeExport(r io.Reader) ([]order.Order, error) {
	var out []order.Order
	d := jx.Decode(r, decodeBufSize)
	err := d.Arr(func(d *jx.Decoder) error {
		o, err := decodeRecord(d)
		if err != nil {
			return errors.Wrapf(err, "record %d", len(out))
		}
		out = append(out, o)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode export")
	}
	return out, nil
}

func decodeRecord(d *jx.Decoder) (order.Order, error) {
	var (
		o      order.Order
		status string
		typ    string
	)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			o.ID, err = d.Str()
		case "category":
			o.Category, err = optionalStr(d)
		case "categoryId":
			o.CategoryID, err = optionalStr(d)
		case "type":
			typ, err = d.Str()
		case "items":
			o.Lines, err = decodeLegacyLines(d)
		case "price":
			o.Price, err = decodePrice(d)
		case "status":
			status, err = optionalStr(d)
		case "timestamp":
			var raw string
			if raw, err = optionalStr(d); err == nil && raw != "" {
				o.CreatedAt, err = time.Parse(time.RFC3339Nano, raw)
			}
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return order.Order{}, err
	}

	o.ID = strings.TrimSpace(o.ID)
	if o.ID == "" {
		return order.Order{}, errors.New("missing id")
	}
	o.Type = shop.PurchaseType(typ)
	if !o.Type.Valid() {
		return order.Order{}, errors.Errorf("order %s: unknown type %q", o.ID, typ)
	}
	o.Status = order.StatusNew
	if status != "" {
		o.Status = order.Status(status)
	}
	if !o.Status.Valid() {
		return order.Order{}, errors.Errorf("order %s: unknown status %q", o.ID, status)
	}
	if o.CreatedAt.IsZero() {
		return order.Order{}, errors.Errorf("order %s: missing timestamp", o.ID)
	}
	if o.Lines == nil {
		o.Lines = []order.Line{}
	}
	return o, nil
}

// decodeLegacyLines accepts an array of "<name> x<qty>" strings or
// {name,quantity} objects, or such an array encoded again as a string.
func decodeLegacyLines(d *jx.Decoder) ([]order.Line, error) {
	switch d.Next() {
	case jx.Null:
		return nil, d.Null()
	case jx.String:
		raw, err := d.Str()
		if err != nil {
			return nil, err
		}
		return decodeLegacyLines(jx.DecodeStr(raw))
	}

	lines := []order.Line{}
	err := d.Arr(func(d *jx.Decoder) error {
		if d.Next() == jx.String {
			s, err := d.Str()
			if err != nil {
				return err
			}
			line, err := order.ParseLegacyLine(s)
			if err != nil {
				return err
			}
			lines = append(lines, line)
			return nil
		}
		var line order.Line
		err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "name":
				line.Name, err = d.Str()
			case "quantity":
				line.Quantity, err = d.Int()
			default:
				err = d.Skip()
			}
			return err
		})
		lines = append(lines, line)
		return err
	})
	return lines, err
}

// decodePrice reads a whole-baht price written as a number or a numeric
// string.
func decodePrice(d *jx.Decoder) (int64, error) {
	var raw string
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return 0, err
		}
		raw = s
	default:
		n, err := d.Num()
		if err != nil {
			return 0, err
		}
		raw = n.String()
	}
	v, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return 0, errors.Wrapf(err, "price %q", raw)
	}
	if v.IsNegative() {
		return 0, errors.Errorf("negative price %s", v)
	}
	return v.Round(0).IntPart(), nil
}

func optionalStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

// resolveCategories fills missing category ids by matching the stored
// label against the current configuration.
func resolveCategories(orders []order.Order, cfg *shop.ShopConfig) {
	byLabel := make(map[string]string, len(cfg.CategoryMeta))
	for id, meta := range cfg.CategoryMeta {
		byLabel[meta.Label] = id
	}
	for i := range orders {
		if orders[i].CategoryID == "" {
			orders[i].CategoryID = byLabel[orders[i].Category]
		}
	}
}

// dedup drops orders whose id is already stored or was already accepted
// in this run. The bloom filter holds stored ids; a hit is confirmed with
// exists since the filter may report false positives.
type dedup struct {
	stored   *bloom.BloomFilter
	exists   func(ctx context.Context, id string) (bool, error)
	accepted map[string]struct{}
}

func newDedup(expected uint, exists func(ctx context.Context, id string) (bool, error)) *dedup {
	return &dedup{
		stored:   bloom.NewWithEstimates(max(expected, 1024), 0.001),
		exists:   exists,
		accepted: make(map[string]struct{}),
	}
}

// Seed records an id known to be stored.
func (f *dedup) Seed(id string) { f.stored.AddString(id) }

// Filter returns the orders that still need importing.
func (f *dedup) Filter(ctx context.Context, orders []order.Order) ([]order.Order, error) {
	out := make([]order.Order, 0, len(orders))
	for _, o := range orders {
		if _, ok := f.accepted[o.ID]; ok {
			continue
		}
		if f.stored.TestString(o.ID) {
			found, err := f.exists(ctx, o.ID)
			if err != nil {
				return nil, errors.Wrapf(err, "check order %s", o.ID)
			}
			if found {
				continue
			}
		}
		f.accepted[o.ID] = struct{}{}
		out = append(out, o)
	}
	return out, nil
}
