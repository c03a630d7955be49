package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/botscript-backend/internal/repository"
	"github.com/javajoker/botscript-backend/internal/repository/memory"
)

func TestSeedInitialDataIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	require.NoError(t, SeedInitialData(ctx, store))
	require.NoError(t, SeedInitialData(ctx, store))

	products, err := store.Products().ListPublished(ctx, repository.ProductFilter{Sort: repository.SortPopular})
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, "Stream Alerts Plus", products[0].Title)

	seller, err := store.Users().GetByEmail(ctx, demoSellerEmail)
	require.NoError(t, err)
	profile, err := store.Profiles().GetByID(ctx, seller.ID)
	require.NoError(t, err)
	assert.True(t, profile.IsSeller())
}
