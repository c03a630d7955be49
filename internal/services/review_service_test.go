package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/botscript-backend/internal/models"
)

func TestCreateReviewRequiresPurchase(t *testing.T) {
	f := newFixture(t)
	svc := NewReviewService(f.store)
	ctx := context.Background()
	req := &CreateReviewRequest{Rating: 4, Comment: "Très pratique"}

	_, err := svc.CreateReview(ctx, nil, f.product.ID, req)
	assert.ErrorIs(t, err, ErrAuthenticationRequired)

	_, err = svc.CreateReview(ctx, f.buyer, f.product.ID, req)
	assert.ErrorIs(t, err, ErrForbidden)

	f.purchase(t, f.product)

	review, err := svc.CreateReview(ctx, f.buyer, f.product.ID, req)
	require.NoError(t, err)
	assert.Equal(t, 4, review.Rating)

	product := f.reload(t, f.product.ID)
	assert.Equal(t, 4.0, product.RatingAvg)
	assert.Equal(t, int64(1), product.RatingCount)

	// One review per order
	_, err = svc.CreateReview(ctx, f.buyer, f.product.ID, req)
	assert.ErrorIs(t, err, ErrConflict)

	// A second purchase allows a second review
	f.purchase(t, f.product)
	_, err = svc.CreateReview(ctx, f.buyer, f.product.ID, &CreateReviewRequest{Rating: 5, Comment: "Parfait"})
	require.NoError(t, err)

	product = f.reload(t, f.product.ID)
	assert.Equal(t, 4.5, product.RatingAvg)
	assert.Equal(t, int64(2), product.RatingCount)

	reviews, err := svc.ListReviews(ctx, f.product.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, "Parfait", reviews[0].Comment)
}

func TestCreateReviewValidatesRating(t *testing.T) {
	f := newFixture(t)
	svc := NewReviewService(f.store)

	for _, rating := range []int{0, 6} {
		_, err := svc.CreateReview(context.Background(), f.buyer, f.product.ID, &CreateReviewRequest{Rating: rating, Comment: "x"})
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr, "rating %d", rating)
	}
}

func TestFavorites(t *testing.T) {
	f := newFixture(t)
	svc := NewFavoriteService(f.store)
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, f.buyer, f.product.ID))
	require.NoError(t, svc.Add(ctx, f.buyer, f.product.ID))

	favorites, err := svc.List(ctx, f.buyer)
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	require.NotNil(t, favorites[0].Product)
	assert.Equal(t, f.product.Title, favorites[0].Product.Title)

	draft := f.createProduct(t, "Draft", 1, models.ProductStatusDraft)
	assert.ErrorIs(t, svc.Add(ctx, f.buyer, draft.ID), ErrNotFound)

	require.NoError(t, svc.Remove(ctx, f.buyer, f.product.ID))
	assert.ErrorIs(t, svc.Remove(ctx, f.buyer, f.product.ID), ErrNotFound)
	assert.ErrorIs(t, svc.Add(ctx, nil, f.product.ID), ErrAuthenticationRequired)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	svc := NewUserService(f.store)
	ctx := context.Background()

	profile, err := svc.UpdateProfile(ctx, f.buyer, &UpdateUserProfileRequest{
		FullName: strPtr("Jean Dupont"),
		Bio:      strPtr("  Streamer  "),
	})
	require.NoError(t, err)
	assert.Equal(t, "Jean Dupont", profile.FullName)
	assert.Equal(t, "Streamer", profile.Bio)
	assert.Equal(t, "jean", profile.Username)

	_, err = svc.UpdateProfile(ctx, f.buyer, &UpdateUserProfileRequest{Username: strPtr("studio")})
	assert.ErrorIs(t, err, ErrConflict)

	public, err := svc.GetPublicProfile(ctx, f.seller.UserID)
	require.NoError(t, err)
	assert.Equal(t, []string{f.product.Title}, titles(public.Products))
}
