package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVariantKey_OrderIndependent(t *testing.T) {
	a := VariantKey(map[string]string{"size": "M", "color": "red"})
	b := VariantKey(map[string]string{"color": "red", "size": "M"})

	assert.Equal(t, a, b)
	assert.Equal(t, "color=red;size=M", a)
}

func TestVariantKey_NormalizesCaseAndWhitespace(t *testing.T) {
	a := VariantKey(map[string]string{"Size": " M "})
	b := VariantKey(map[string]string{"size": "M"})

	assert.Equal(t, b, a)
}

func TestVariantKey_EmptyForNonVariantProducts(t *testing.T) {
	assert.Equal(t, "", VariantKey(nil))
	assert.Equal(t, "", VariantKey(map[string]string{}))
	assert.Equal(t, "", VariantKey(map[string]string{"size": "  "}))
}

func TestItemIdentity_VariantsDiffer(t *testing.T) {
	base := LineItem{ProductID: "P1", VariantKey: "size=m"}
	other := LineItem{ProductID: "P1", VariantKey: "size=l"}
	same := LineItem{ProductID: "P1", VariantKey: "size=m"}

	assert.NotEqual(t, base.Identity(), other.Identity())
	assert.Equal(t, base.Identity(), same.Identity())
}

func TestValidateLineItem(t *testing.T) {
	valid := LineItem{ProductID: "P1", Name: "Thing", UnitPrice: 9.99, Quantity: 1}
	assert.NoError(t, ValidateLineItem(valid))

	tests := []struct {
		name   string
		mutate func(*LineItem)
	}{
		{"missing product id", func(i *LineItem) { i.ProductID = "" }},
		{"missing name", func(i *LineItem) { i.Name = "" }},
		{"zero price", func(i *LineItem) { i.UnitPrice = 0 }},
		{"negative price", func(i *LineItem) { i.UnitPrice = -1 }},
		{"zero quantity", func(i *LineItem) { i.Quantity = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := valid
			tt.mutate(&item)
			err := ValidateLineItem(item)
			assert.Error(t, err)
			assert.Equal(t, ErrValidation, KindOf(err))
		})
	}
}

func TestValidateWishlistEntry(t *testing.T) {
	valid := WishlistEntry{ProductID: "P1", Name: "Thing", UnitPrice: 9.99}
	assert.NoError(t, ValidateWishlistEntry(valid))

	invalid := valid
	invalid.UnitPrice = 0
	assert.Equal(t, ErrValidation, KindOf(ValidateWishlistEntry(invalid)))
}
