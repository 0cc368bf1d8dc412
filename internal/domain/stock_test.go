package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecomputeTotal(t *testing.T) {
	tests := []struct {
		name    string
		product Product
		want    int
	}{
		{
			name:    "standalone",
			product: Product{StandaloneQuantity: 7},
			want:    7,
		},
		{
			name:    "standalone clamps negative",
			product: Product{StandaloneQuantity: -3},
			want:    0,
		},
		{
			name: "variants ignore standalone",
			product: Product{
				HasVariants:        true,
				StandaloneQuantity: 50,
				Variants:           []ProductVariant{{Name: "S", Quantity: 2}, {Name: "M", Quantity: 3}},
			},
			want: 5,
		},
		{
			name: "variants clamp negative",
			product: Product{
				HasVariants: true,
				Variants:    []ProductVariant{{Name: "S", Quantity: -4}, {Name: "M", Quantity: 1}},
			},
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.product
			p.RecomputeTotal()
			assert.Equal(t, tt.want, p.TotalQuantity)
			for _, v := range p.Variants {
				assert.GreaterOrEqual(t, v.Quantity, 0)
			}
		})
	}
}

func TestApplyDelta_Standalone(t *testing.T) {
	p := Product{StandaloneQuantity: 5}

	qty, err := p.ApplyDelta("", "", -2)
	require.NoError(t, err)
	assert.Equal(t, 3, qty)
	assert.Equal(t, 3, p.TotalQuantity)

	qty, err = p.ApplyDelta("", "", -10)
	require.NoError(t, err)
	assert.Equal(t, 0, qty)
	assert.Equal(t, 0, p.TotalQuantity)
}

func TestApplyDelta_Variants(t *testing.T) {
	p := Product{
		HasVariants: true,
		Variants: []ProductVariant{
			{ID: "v-s", Name: "Small", Quantity: 4},
			{ID: "v-m", Name: "Medium", Quantity: 1},
		},
	}

	qty, err := p.ApplyDelta("", "small", 3)
	require.NoError(t, err)
	assert.Equal(t, 7, qty)
	assert.Equal(t, 8, p.TotalQuantity)

	qty, err = p.ApplyDelta("v-m", "", -5)
	require.NoError(t, err)
	assert.Equal(t, 0, qty)
	assert.Equal(t, 7, p.TotalQuantity)

	_, err = p.ApplyDelta("", "", 1)
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = p.ApplyDelta("v-x", "", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAvailable(t *testing.T) {
	p := Product{HasVariants: true, Variants: []ProductVariant{{ID: "a", Name: "Red", Quantity: 2}}}
	assert.Equal(t, 2, p.Available("a", ""))
	assert.Equal(t, 2, p.Available("", "RED"))
	assert.Equal(t, 0, p.Available("", "Blue"))
	assert.Equal(t, 9, Product{StandaloneQuantity: 9}.Available("", ""))
}
