package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveProductID(t *testing.T) {
	id := uuid.New()
	other := uuid.New()

	tests := []struct {
		name string
		raw  map[string]interface{}
		want uuid.UUID
		err  error
	}{
		{
			name: "canonical key",
			raw:  map[string]interface{}{"productId": id.String()},
			want: id,
		},
		{
			name: "snake case fallback",
			raw:  map[string]interface{}{"product_id": id.String()},
			want: id,
		},
		{
			name: "legacy id key",
			raw:  map[string]interface{}{"id": id.String()},
			want: id,
		},
		{
			name: "legacy underscore id",
			raw:  map[string]interface{}{"_id": id.String()},
			want: id,
		},
		{
			name: "first non-empty key wins",
			raw:  map[string]interface{}{"productId": id.String(), "id": other.String()},
			want: id,
		},
		{
			name: "skips empty and keeps looking",
			raw:  map[string]interface{}{"productId": "  ", "id": id.String()},
			want: id,
		},
		{
			name: "trims whitespace",
			raw:  map[string]interface{}{"productId": "  " + id.String() + "  "},
			want: id,
		},
		{
			name: "unparseable everywhere",
			raw:  map[string]interface{}{"productId": "not-a-uuid"},
			err:  ErrMissingProductID,
		},
		{
			name: "missing entirely",
			raw:  map[string]interface{}{"name": "Tee"},
			err:  ErrMissingProductID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveProductID(tt.raw)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeLineItemsPrefersCartItems(t *testing.T) {
	id := uuid.New()
	legacy := uuid.New()

	doc := map[string]interface{}{
		"cartItems": []interface{}{
			map[string]interface{}{
				"productId": id.String(),
				"name":      "Tee",
				"size":      "M",
				"quantity":  float64(2),
				"unitPrice": float64(150),
			},
		},
		"items": []interface{}{
			map[string]interface{}{
				"productId": legacy.String(),
				"quantity":  float64(1),
			},
		},
	}

	items, err := NormalizeLineItems(doc)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, id, items[0].ProductID)
	assert.Equal(t, 2, items[0].Quantity)
	assert.True(t, items[0].LineTotal.Equal(decimal.NewFromInt(300)), "line total derived from price*qty")
}

func TestNormalizeLineItemsFallsBackToItems(t *testing.T) {
	id := uuid.New()

	doc := map[string]interface{}{
		"items": []interface{}{
			map[string]interface{}{
				"id":    id.String(),
				"title": "Legacy Tee",
				"qty":   float64(3),
				"price": "99.50",
				"total": "298.50",
			},
		},
	}

	items, err := NormalizeLineItems(doc)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, id, items[0].ProductID)
	assert.Equal(t, "Legacy Tee", items[0].Name)
	assert.Equal(t, 3, items[0].Quantity)
	assert.True(t, items[0].UnitPrice.Equal(decimal.RequireFromString("99.50")))
	assert.True(t, items[0].LineTotal.Equal(decimal.RequireFromString("298.50")))
}

func TestNormalizeLineItemsRejectsEmptyDoc(t *testing.T) {
	_, err := NormalizeLineItems(map[string]interface{}{})
	assert.ErrorIs(t, err, ErrEmptyCart)

	_, err = NormalizeLineItems(map[string]interface{}{"cartItems": []interface{}{}})
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestNormalizeLineItemsRejectsBadQuantity(t *testing.T) {
	doc := map[string]interface{}{
		"cartItems": []interface{}{
			map[string]interface{}{
				"productId": uuid.New().String(),
				"quantity":  float64(0),
			},
		},
	}

	_, err := NormalizeLineItems(doc)
	assert.Error(t, err)
}

func TestDecodeStoredLineItems(t *testing.T) {
	id := uuid.New()

	t.Run("normalized array round-trips", func(t *testing.T) {
		stored := []byte(`[{"productId":"` + id.String() + `","name":"Tee","size":"M","quantity":2,"unitPrice":"150.00","lineTotal":"300.00"}]`)

		items, err := DecodeStoredLineItems(stored)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, id, items[0].ProductID)
		assert.Equal(t, 2, items[0].Quantity)
		assert.True(t, items[0].UnitPrice.Equal(decimal.NewFromInt(150)))
		assert.True(t, items[0].LineTotal.Equal(decimal.NewFromInt(300)))
	})

	t.Run("legacy array spellings normalize on load", func(t *testing.T) {
		stored := []byte(`[{"product_id":"` + id.String() + `","title":"Tee","size":"M","qty":3,"price":100,"total":300}]`)

		items, err := DecodeStoredLineItems(stored)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, id, items[0].ProductID)
		assert.Equal(t, "Tee", items[0].Name)
		assert.Equal(t, 3, items[0].Quantity)
		assert.True(t, items[0].LineTotal.Equal(decimal.NewFromInt(300)))
	})

	t.Run("wrapped cartItems document", func(t *testing.T) {
		stored := []byte(`{"cartItems":[{"_id":"` + id.String() + `","name":"Tee","size":"L","quantity":1,"price":"99.50"}]}`)

		items, err := DecodeStoredLineItems(stored)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, id, items[0].ProductID)
		assert.True(t, items[0].LineTotal.Equal(decimal.RequireFromString("99.50")))
	})

	t.Run("null and empty pass through", func(t *testing.T) {
		items, err := DecodeStoredLineItems(nil)
		require.NoError(t, err)
		assert.Empty(t, items)

		items, err = DecodeStoredLineItems([]byte("null"))
		require.NoError(t, err)
		assert.Empty(t, items)

		items, err = DecodeStoredLineItems([]byte("[]"))
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("bad line surfaces an error", func(t *testing.T) {
		stored := []byte(`[{"productId":"` + id.String() + `","quantity":0}]`)

		_, err := DecodeStoredLineItems(stored)
		assert.Error(t, err)
	})
}

func TestOrderIsCommittable(t *testing.T) {
	tests := []struct {
		status        string
		paymentStatus string
		want          bool
	}{
		{StatusDraft, PaymentPending, true},
		{StatusPending, PaymentPending, true},
		{StatusDraft, PaymentPaid, false},
		{StatusConfirmed, PaymentPaid, false},
		{StatusCancelled, PaymentPending, false},
		{StatusPendingReview, PaymentPending, false},
	}

	for _, tt := range tests {
		o := &Order{Status: tt.status, PaymentStatus: tt.paymentStatus}
		assert.Equal(t, tt.want, o.IsCommittable(), "status %s payment %s", tt.status, tt.paymentStatus)
	}
}
