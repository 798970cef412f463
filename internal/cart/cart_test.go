package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddMergesUnmarkedLines(t *testing.T) {
	var c Cart
	c.Add(Line{ProductID: 10, Qty: 2})
	c.Add(Line{ProductID: 10, Qty: 3})
	assert.Len(t, c.Lines, 1)
	assert.Equal(t, 5, c.Lines[0].Qty)
	assert.Empty(t, c.Lines[0].UniqueKey)
}

func TestAddKeepsMarkedLinesSeparate(t *testing.T) {
	var c Cart
	c.Add(Line{ProductID: 10, Qty: 2})
	c.Add(Line{ProductID: 10, Qty: 1, AcceptedBackorder: true})
	c.Add(Line{ProductID: 10, Qty: 1, AcceptedBackorder: true})

	assert.Len(t, c.Lines, 3)
	assert.NotEmpty(t, c.Lines[1].UniqueKey)
	assert.NotEmpty(t, c.Lines[2].UniqueKey)
	assert.NotEqual(t, c.Lines[1].UniqueKey, c.Lines[2].UniqueKey)
	assert.True(t, c.HasBackorderLine())
}

func TestAddDistinguishesVariations(t *testing.T) {
	var c Cart
	c.Add(Line{ProductID: 10, VariationID: 101, Qty: 1})
	c.Add(Line{ProductID: 10, VariationID: 102, Qty: 1})
	assert.Len(t, c.Lines, 2)
}

func TestCoupons(t *testing.T) {
	var c Cart
	c.ApplyCoupon("AMOSTRAS")
	c.ApplyCoupon("amostras") // case-insensitive duplicate
	assert.Len(t, c.Coupons, 1)
	assert.True(t, c.HasCoupon("Amostras"))
	assert.False(t, c.HasCoupon("frete10"))
}

func TestHasBackorderLineEmptyCart(t *testing.T) {
	var c Cart
	assert.False(t, c.HasBackorderLine())
}
