package shop

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"

	"github.com/xenking/warishayday/internal/domain/apperr"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report fields by their document names.
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks field constraints and the cross-field invariants of the
// document: at least one category, every category fully described, a cross
// price row, and no category using the reserved cross key.
func (c *ShopConfig) Validate() error {
	if err := structValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return apperr.Invalid(fe.Namespace(), fmt.Sprintf("failed %q constraint", fe.Tag()))
		}
		return errors.Wrap(err, "validate shop config")
	}

	if len(c.CategoryMeta) == 0 {
		return apperr.Invalid("categoryMeta", "at least one category is required")
	}
	if _, ok := c.CategoryMeta[CrossTableKey]; ok {
		return apperr.Invalidf("categoryMeta", "%q is reserved", CrossTableKey)
	}
	for id := range c.CategoryMeta {
		if _, ok := c.Prices[id]; !ok {
			return apperr.Invalidf("prices", "missing price table for category %q", id)
		}
		if _, ok := c.Items[id]; !ok {
			return apperr.Invalidf("items", "missing item list for category %q", id)
		}
	}
	if _, ok := c.Prices[CrossTableKey]; !ok {
		return apperr.Invalidf("prices", "missing %q price table", CrossTableKey)
	}
	return nil
}
