package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"weldzone/storefront/internal/client"
	"weldzone/storefront/internal/domain"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrProductNotFound is returned when a product id is not in the catalog
var ErrProductNotFound = errors.New("product not found")

// Page is one rendering of the storefront catalog
type Page struct {
	Products   []domain.Product `json:"products"`
	Categories []CategoryCount  `json:"categories"`
	Total      int              `json:"total"`
}

// Catalog keeps the product and category lists read from the backend for a
// stale time, then fetches them again on the next read.
type Catalog struct {
	backend   client.Backend
	staleTime time.Duration
	now       func() time.Time

	mu         sync.Mutex
	products   []domain.Product
	categories []domain.Category
	fetchedAt  time.Time
}

func NewCatalog(backend client.Backend, staleTime time.Duration) *Catalog {
	return &Catalog{
		backend:   backend,
		staleTime: staleTime,
		now:       time.Now,
	}
}

// Products returns the cached product list, fetching it when stale
func (c *Catalog) Products(ctx context.Context) ([]domain.Product, error) {
	products, _, err := c.load(ctx)
	return products, err
}

// Product looks a product up by id in the cached list
func (c *Catalog) Product(ctx context.Context, id int64) (*domain.Product, error) {
	products, _, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	i := slices.IndexFunc(products, func(p domain.Product) bool { return p.ID == id })
	if i < 0 {
		return nil, fmt.Errorf("product %d: %w", id, ErrProductNotFound)
	}
	p := products[i]
	return &p, nil
}

// Browse applies q to the catalog and lists the categories that still have
// products for the search term.
func (c *Catalog) Browse(ctx context.Context, q Query) (*Page, error) {
	products, categories, err := c.load(ctx)
	if err != nil {
		return nil, err
	}

	visible := Filter(products, q)
	return &Page{
		Products:   visible,
		Categories: CategoriesWithProducts(categories, products, q.Term),
		Total:      len(visible),
	}, nil
}

// Invalidate forces the next read to go to the backend
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.fetchedAt = time.Time{}
}

func (c *Catalog) load(ctx context.Context) ([]domain.Product, []domain.Category, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.fetchedAt.IsZero() && c.now().Sub(c.fetchedAt) < c.staleTime {
		return c.products, c.categories, nil
	}

	var (
		products   []domain.Product
		categories []domain.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = c.backend.ListProducts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		categories, err = c.backend.ListCategories(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		if c.products != nil {
			log.Warnf("⚠️ Catalog refresh failed, serving previous list: %v", err)
			return c.products, c.categories, nil
		}
		return nil, nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	c.products = products
	c.categories = categories
	c.fetchedAt = c.now()
	log.Debugf("Catalog loaded: %d products, %d categories", len(products), len(categories))
	return products, categories, nil
}
