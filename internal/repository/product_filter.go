// internal/repository/product_filter.go
package repository

import (
	"sort"
	"strings"

	"github.com/javajoker/botscript-backend/internal/models"
)

type ProductSort string

const (
	SortPopular   ProductSort = "popular"
	SortPriceAsc  ProductSort = "price-asc"
	SortPriceDesc ProductSort = "price-desc"
	SortRating    ProductSort = "rating"
	SortRecent    ProductSort = "recent"
)

// ParseProductSort maps a query value to a sort, falling back to popular for
// empty or unknown values.
func ParseProductSort(value string) ProductSort {
	switch s := ProductSort(strings.ToLower(strings.TrimSpace(value))); s {
	case SortPopular, SortPriceAsc, SortPriceDesc, SortRating, SortRecent:
		return s
	default:
		return SortPopular
	}
}

// OrderClause is the SQL ordering for the sort.
func (s ProductSort) OrderClause() string {
	switch s {
	case SortPriceAsc:
		return "price ASC"
	case SortPriceDesc:
		return "price DESC"
	case SortRating:
		return "rating_avg DESC"
	case SortRecent:
		return "created_at DESC"
	default:
		return "sales DESC"
	}
}

type ProductFilter struct {
	// Category is empty for every category.
	Category models.ProductCategory
	Sort     ProductSort
}

// ParseCategory treats "" and "all" as no filter.
func ParseCategory(value string) (models.ProductCategory, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" || value == "all" {
		return "", true
	}
	category := models.ProductCategory(value)
	return category, category.Valid()
}

// SortProducts orders products in place. Ties keep their input order.
func SortProducts(products []models.Product, by ProductSort) {
	var less func(a, b *models.Product) bool
	switch by {
	case SortPriceAsc:
		less = func(a, b *models.Product) bool { return a.Price < b.Price }
	case SortPriceDesc:
		less = func(a, b *models.Product) bool { return a.Price > b.Price }
	case SortRating:
		less = func(a, b *models.Product) bool { return a.RatingAvg > b.RatingAvg }
	case SortRecent:
		less = func(a, b *models.Product) bool { return a.CreatedAt.After(b.CreatedAt) }
	default:
		less = func(a, b *models.Product) bool { return a.Sales > b.Sales }
	}
	sort.SliceStable(products, func(i, j int) bool {
		return less(&products[i], &products[j])
	})
}
