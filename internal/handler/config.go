package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/warishayday/internal/domain/shop"
	"github.com/xenking/warishayday/internal/wire"
)

func writeConfig(w http.ResponseWriter, status int, cfg *shop.ShopConfig) error {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	if err := wire.EncodeConfig(e, cfg); err != nil {
		return err
	}
	writeJSON(w, status, func(out *jx.Encoder) { out.Raw(e.Bytes()) })
	return nil
}

func (h *Handler) getConfig(w http.ResponseWriter, r *http.Request) error {
	cfg, err := h.config.Load(r.Context())
	if err != nil {
		return err
	}
	return writeConfig(w, http.StatusOK, cfg)
}

func (h *Handler) putConfig(w http.ResponseWriter, r *http.Request) error {
	data, err := h.readBody(w, r)
	if err != nil {
		return err
	}
	next, err := wire.DecodeConfig(data)
	if err != nil {
		return badRequest(err)
	}
	cfg, err := h.config.Replace(r.Context(), next)
	if err != nil {
		return err
	}
	return writeConfig(w, http.StatusOK, cfg)
}

// update decodes the body with decode and applies it through fn.
func update[T any](h *Handler, w http.ResponseWriter, r *http.Request, decode func([]byte) (T, error), fn func(cfg *shop.ShopConfig, v T) error) (*shop.ShopConfig, error) {
	data, err := h.readBody(w, r)
	if err != nil {
		return nil, err
	}
	v, err := decode(data)
	if err != nil {
		return nil, badRequest(err)
	}
	return h.config.Update(r.Context(), func(cfg *shop.ShopConfig) error {
		return fn(cfg, v)
	})
}

func (h *Handler) addCategory(w http.ResponseWriter, r *http.Request) error {
	cfg, err := update(h, w, r, wire.DecodeNewCategory, func(cfg *shop.ShopConfig, v wire.NewCategory) error {
		_, err := cfg.AddCategory(v.ID, v.Label)
		return err
	})
	if err != nil {
		return err
	}
	return writeConfig(w, http.StatusCreated, cfg)
}

func (h *Handler) removeCategory(w http.ResponseWriter, r *http.Request) error {
	id := r.PathValue("id")
	cfg, err := h.config.Update(r.Context(), func(cfg *shop.ShopConfig) error {
		return cfg.RemoveCategory(id)
	})
	if err != nil {
		return err
	}
	return writeConfig(w, http.StatusOK, cfg)
}

func (h *Handler) setItems(w http.ResponseWriter, r *http.Request) error {
	id := r.PathValue("id")
	cfg, err := update(h, w, r, wire.DecodeItems, func(cfg *shop.ShopConfig, items []shop.Item) error {
		return cfg.SetItems(id, items)
	})
	if err != nil {
		return err
	}
	return writeConfig(w, http.StatusOK, cfg)
}

func (h *Handler) setPrices(w http.ResponseWriter, r *http.Request) error {
	id := r.PathValue("id")
	cfg, err := update(h, w, r, wire.DecodePrices, func(cfg *shop.ShopConfig, p shop.PriceTable) error {
		return cfg.SetPrices(id, p)
	})
	if err != nil {
		return err
	}
	return writeConfig(w, http.StatusOK, cfg)
}

func (h *Handler) setCrossTray(w http.ResponseWriter, r *http.Request) error {
	cfg, err := update(h, w, r, wire.DecodePrices, func(cfg *shop.ShopConfig, p shop.PriceTable) error {
		return cfg.SetCrossTray(p.Tray)
	})
	if err != nil {
		return err
	}
	return writeConfig(w, http.StatusOK, cfg)
}
