package orders

import (
	"bytes"
	"context"
	"testing"

	"github.com/freshcart/grocery-backend/pkg/config"
	"github.com/freshcart/grocery-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestByProductIDKeepsCallerSliceIntact(t *testing.T) {
	high := uuid.MustParse("f0000000-0000-0000-0000-000000000000")
	low := uuid.MustParse("10000000-0000-0000-0000-000000000000")
	items := []models.OrderItem{
		{ProductID: high, Quantity: 1},
		{ProductID: low, Quantity: 2},
	}

	sorted := byProductID(items)
	require.Equal(t, low, sorted[0].ProductID)
	require.Equal(t, high, sorted[1].ProductID)
	require.Equal(t, high, items[0].ProductID)
}

func TestRestockReturnsEveryLine(t *testing.T) {
	f := newFixture(t, config.PolicyConfig{})
	a := f.newProduct(t, 1)
	b := f.newProduct(t, 2)
	if bytes.Compare(a.ID[:], b.ID[:]) < 0 {
		a, b = b, a
	}

	repo := NewRepository(f.db)
	err := repo.Restock(context.Background(), []models.OrderItem{
		{ProductID: a.ID, Quantity: 3},
		{ProductID: b.ID, Quantity: 4},
	})
	require.NoError(t, err)

	var got models.Product
	require.NoError(t, f.db.First(&got, "id = ?", a.ID).Error)
	require.Equal(t, a.Stock+3, got.Stock)
	require.NoError(t, f.db.First(&got, "id = ?", b.ID).Error)
	require.Equal(t, b.Stock+4, got.Stock)
}
