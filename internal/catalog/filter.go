package catalog

import (
	"strings"

	"weldzone/storefront/internal/domain"
)

// Query selects the visible part of the catalog. A nil CategoryID means
// every category.
type Query struct {
	Term       string
	CategoryID *int64
}

// Filter returns the products matching q in their original order. The term
// matches case-insensitively as a substring of the name or description.
func Filter(products []domain.Product, q Query) []domain.Product {
	term := normalizeTerm(q.Term)

	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if !matchesTerm(p, term) {
			continue
		}
		if q.CategoryID != nil && !p.InCategory(*q.CategoryID) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// CategoryCount is a category together with the number of matching products
type CategoryCount struct {
	domain.Category
	Count int `json:"count"`
}

// CategoriesWithProducts keeps the categories that have at least one
// product matching term, in the order the categories were given. The
// current category selection is deliberately not applied so the other
// categories stay selectable.
func CategoriesWithProducts(categories []domain.Category, products []domain.Product, term string) []CategoryCount {
	t := normalizeTerm(term)

	counts := make(map[int64]int)
	for _, p := range products {
		if p.CategoryID == nil || !matchesTerm(p, t) {
			continue
		}
		counts[*p.CategoryID]++
	}

	out := make([]CategoryCount, 0, len(categories))
	for _, c := range categories {
		if n := counts[c.ID]; n > 0 {
			out = append(out, CategoryCount{Category: c, Count: n})
		}
	}
	return out
}

func normalizeTerm(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}

func matchesTerm(p domain.Product, term string) bool {
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Name), term) ||
		strings.Contains(strings.ToLower(p.Description), term)
}
