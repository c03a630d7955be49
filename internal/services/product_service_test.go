package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/botscript-backend/internal/config"
	"github.com/javajoker/botscript-backend/internal/models"
)

func floatPtr(v float64) *float64 { return &v }

func strPtr(v string) *string { return &v }

func titles(products []models.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.Title)
	}
	return out
}

func TestCatalogFiltersAndSorts(t *testing.T) {
	f := newFixture(t)
	svc := NewProductService(f.store, nil)
	ctx := context.Background()

	bot, err := svc.CreateProduct(ctx, f.seller, &CreateProductRequest{
		Title:       "Bot Modération Pro",
		Description: "Système de modération automatique complet",
		Category:    "discord",
		Price:       floatPtr(29.99),
		Version:     "2.1.0",
	})
	require.NoError(t, err)
	_, err = svc.CreateProduct(ctx, f.seller, &CreateProductRequest{
		Title:       "Hidden draft",
		Description: "Not visible in the catalog",
		Category:    "discord",
		Price:       floatPtr(1),
		Version:     "0.1.0",
		Status:      models.ProductStatusDraft,
	})
	require.NoError(t, err)

	all, err := svc.Catalog(ctx, CatalogQuery{Sort: "price-asc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Productivity Booster", "Bot Modération Pro"}, titles(all))

	discord, err := svc.Catalog(ctx, CatalogQuery{Category: "discord"})
	require.NoError(t, err)
	assert.Equal(t, []string{bot.Title}, titles(discord))

	searched, err := svc.Catalog(ctx, CatalogQuery{Category: "all", Search: "MODÉRATION"})
	require.NoError(t, err)
	assert.Equal(t, []string{bot.Title}, titles(searched))

	priced, err := svc.Catalog(ctx, CatalogQuery{PriceMin: floatPtr(19.99), PriceMax: floatPtr(19.99)})
	require.NoError(t, err)
	assert.Equal(t, []string{"Productivity Booster"}, titles(priced))

	empty, err := svc.Catalog(ctx, CatalogQuery{Search: "nothing matches"})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = svc.Catalog(ctx, CatalogQuery{Category: "firefox"})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestFilterProducts(t *testing.T) {
	products := []models.Product{
		{Title: "Alpha", Description: "chat bot", Price: 5},
		{Title: "Beta", Description: "extension", Price: 15},
		{Title: "Gamma BOT", Description: "", Price: 25},
	}

	assert.Equal(t, []string{"Alpha", "Gamma BOT"}, titles(FilterProducts(products, "bot", nil, nil)))
	assert.Equal(t, []string{"Beta", "Gamma BOT"}, titles(FilterProducts(products, "", floatPtr(15), nil)))
	assert.Equal(t, []string{"Alpha", "Beta"}, titles(FilterProducts(products, " ", nil, floatPtr(15))))
	assert.Empty(t, FilterProducts(products, "bot", floatPtr(6), floatPtr(24)))
}

func TestGetProductHidesDraftsFromOthers(t *testing.T) {
	f := newFixture(t)
	svc := NewProductService(f.store, nil)
	ctx := context.Background()
	draft := f.createProduct(t, "Draft", 5, models.ProductStatusDraft)

	_, err := svc.GetProduct(ctx, nil, draft.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.GetProduct(ctx, f.buyer, draft.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	detail, err := svc.GetProduct(ctx, f.seller, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, draft.ID, detail.Product.ID)
	assert.NotNil(t, detail.Reviews)
}

func TestCreateProductRequiresSeller(t *testing.T) {
	f := newFixture(t)
	svc := NewProductService(f.store, nil)
	req := &CreateProductRequest{
		Title:       "Stream Alerts Plus",
		Description: "Alertes Twitch customisables",
		Category:    "twitch",
		Price:       floatPtr(24.99),
		Version:     "3.0.0",
		Tags:        "twitch, streaming ,, alertes",
	}

	_, err := svc.CreateProduct(context.Background(), nil, req)
	assert.ErrorIs(t, err, ErrAuthenticationRequired)

	_, err = svc.CreateProduct(context.Background(), f.buyer, req)
	assert.ErrorIs(t, err, ErrForbidden)

	product, err := svc.CreateProduct(context.Background(), f.seller, req)
	require.NoError(t, err)
	assert.Equal(t, models.ProductStatusPublished, product.Status)
	assert.Equal(t, []string{"twitch", "streaming", "alertes"}, []string(product.Tags))
}

func TestCreateProductValidation(t *testing.T) {
	f := newFixture(t)
	svc := NewProductService(f.store, nil)

	_, err := svc.CreateProduct(context.Background(), f.seller, &CreateProductRequest{
		Title:       "ab",
		Description: "short",
		Category:    "firefox",
		Price:       floatPtr(-1),
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	fields := map[string]bool{}
	for _, field := range verr.Fields {
		fields[field.Field] = true
	}
	for _, name := range []string{"title", "description", "category", "price", "version"} {
		assert.True(t, fields[name], name)
	}
}

func TestUpdateProductOwnerOnly(t *testing.T) {
	f := newFixture(t)
	svc := NewProductService(f.store, nil)
	ctx := context.Background()
	other := f.createAccount(t, "other@example.com", "other_studio", models.UserTypeSeller)

	_, err := svc.UpdateProduct(ctx, other, f.product.ID, &UpdateProductRequest{Price: floatPtr(1)})
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := svc.UpdateProduct(ctx, f.seller, f.product.ID, &UpdateProductRequest{
		Price: floatPtr(17.5),
		Tags:  strPtr("chrome,focus"),
	})
	require.NoError(t, err)
	assert.Equal(t, 17.5, updated.Price)
	assert.Equal(t, f.product.Title, updated.Title)

	reloaded := f.reload(t, f.product.ID)
	assert.Equal(t, 17.5, reloaded.Price)
	assert.Equal(t, []string{"chrome", "focus"}, []string(reloaded.Tags))
}

func TestProductFileKeyMustBeOwnUpload(t *testing.T) {
	f := newFixture(t)
	svc := NewProductService(f.store, nil)
	ctx := context.Background()
	other := f.createAccount(t, "other@example.com", "other_studio", models.UserTypeSeller)
	own := ArchiveKeyPrefix(f.seller.UserID)

	for name, key := range map[string]string{
		"other seller": ArchiveKeyPrefix(other.UserID) + "20240101_abcd1234.zip",
		"outside":      "private/keys.pem",
		"legacy":       "products/files/20240101_abcd1234.zip",
		"traversal":    own + "../" + other.UserID.String() + "/x.zip",
		"folder":       own,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.UpdateProduct(ctx, f.seller, f.product.ID, &UpdateProductRequest{FileKey: strPtr(key)})
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "file_key", verr.Fields[0].Field)
		})
	}

	_, err := svc.CreateProduct(ctx, f.seller, &CreateProductRequest{
		Title:       "Stream Alerts Plus",
		Description: "Alertes Twitch customisables",
		Category:    "twitch",
		Price:       floatPtr(24.99),
		Version:     "3.0.0",
		FileKey:     "products/files/" + other.UserID.String() + "/bundle.zip",
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	product, err := svc.CreateProduct(ctx, f.seller, &CreateProductRequest{
		Title:       "Stream Alerts Plus",
		Description: "Alertes Twitch customisables",
		Category:    "twitch",
		Price:       floatPtr(24.99),
		Version:     "3.0.0",
		FileKey:     own + "20240101_abcd1234.zip",
	})
	require.NoError(t, err)
	assert.Equal(t, own+"20240101_abcd1234.zip", product.FileKey)
}

// recordingFiles resolves URLs like the local storage and records deletions.
type recordingFiles struct {
	*StorageService
	err     error
	deleted []string
}

func (r *recordingFiles) DeleteFile(_ context.Context, key string) error {
	if r.err != nil {
		return r.err
	}
	r.deleted = append(r.deleted, key)
	return nil
}

func TestUpdateProductDeletesReplacedFiles(t *testing.T) {
	f := newFixture(t)
	f.cfg.Server = config.ServerConfig{Host: "localhost", Port: "8080"}
	storage, err := NewStorageService(f.cfg)
	require.NoError(t, err)
	files := &recordingFiles{StorageService: storage}
	svc := NewProductService(f.store, files)
	ctx := context.Background()

	prefix := ArchiveKeyPrefix(f.seller.UserID)
	imageKey := imageFolder + "/" + f.seller.UserID.String() + "/cover.png"
	original := f.product.FileKey

	_, err = svc.UpdateProduct(ctx, f.seller, f.product.ID, &UpdateProductRequest{
		FileKey:  strPtr(prefix + "v1.zip"),
		ImageURL: strPtr(storage.localURL(imageKey)),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{original}, files.deleted)

	_, err = svc.UpdateProduct(ctx, f.seller, f.product.ID, &UpdateProductRequest{
		FileKey:  strPtr(prefix + "v2.zip"),
		ImageURL: strPtr("https://cdn.example.com/cover.png"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{original, prefix + "v1.zip", imageKey}, files.deleted)

	// External images and unchanged files stay
	_, err = svc.UpdateProduct(ctx, f.seller, f.product.ID, &UpdateProductRequest{
		FileKey:  strPtr(prefix + "v2.zip"),
		ImageURL: strPtr("https://cdn.example.com/other.png"),
	})
	require.NoError(t, err)
	assert.Len(t, files.deleted, 3)

	files.err = errInjected
	updated, err := svc.UpdateProduct(ctx, f.seller, f.product.ID, &UpdateProductRequest{FileKey: strPtr(prefix + "v3.zip")})
	require.NoError(t, err)
	assert.Equal(t, prefix+"v3.zip", updated.FileKey)
	assert.Equal(t, prefix+"v3.zip", f.reload(t, f.product.ID).FileKey)
}

func TestComputeSellerStats(t *testing.T) {
	stats := ComputeSellerStats([]models.Product{
		{Price: 29.99, Sales: 10, RatingAvg: 4.5},
		{Price: 19.99, Sales: 3, RatingAvg: 0},
	})
	assert.Equal(t, 359.87, stats.TotalRevenue)
	assert.Equal(t, int64(13), stats.TotalSales)
	assert.Equal(t, 2.25, stats.AverageRating)
	assert.Equal(t, 2, stats.ProductCount)

	assert.Equal(t, &SellerStats{}, ComputeSellerStats(nil))
}
