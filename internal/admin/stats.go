package admin

import (
	"context"

	"weldzone/storefront/internal/domain"
)

const uncategorized = "Sin categoría"

type CategoryStat struct {
	Name  string `json:"name"`
	Count int    `json:"value"`
}

// Stats is the dashboard summary of the catalog
type Stats struct {
	Total        int            `json:"total"`
	Active       int            `json:"activos"`
	Discontinued int            `json:"descontinuados"`
	ByCategory   []CategoryStat `json:"porCategoria"`
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	products, err := s.Products(ctx)
	if err != nil {
		return nil, err
	}
	return computeStats(products), nil
}

// computeStats counts products per state and per category name, categories
// in order of first appearance.
func computeStats(products []domain.Product) *Stats {
	st := &Stats{Total: len(products), ByCategory: []CategoryStat{}}
	index := make(map[string]int)

	for _, p := range products {
		switch p.State {
		case domain.ProductStateActive:
			st.Active++
		case domain.ProductStateDiscontinued:
			st.Discontinued++
		}

		name := p.CategoryName()
		if name == "" {
			name = uncategorized
		}
		if i, ok := index[name]; ok {
			st.ByCategory[i].Count++
			continue
		}
		index[name] = len(st.ByCategory)
		st.ByCategory = append(st.ByCategory, CategoryStat{Name: name, Count: 1})
	}
	return st
}
