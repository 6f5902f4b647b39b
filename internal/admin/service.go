package admin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"weldzone/storefront/internal/client"
	"weldzone/storefront/internal/domain"
	"weldzone/storefront/internal/optimistic"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrValidation marks input rejected before anything is sent to the backend
var ErrValidation = errors.New("validation failed")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// CatalogInvalidator drops cached storefront data after a write
type CatalogInvalidator interface {
	Invalidate()
}

// ConfigInvalidator drops the cached site config after it is edited
type ConfigInvalidator interface {
	Invalidate(ctx context.Context) error
}

// File is an upload attached to a product form
type File struct {
	Name string
	Body io.Reader
}

// ProductInput is a product form: the writable fields plus optional new
// image and specification files.
type ProductInput struct {
	Draft domain.ProductDraft
	Image *File
	Spec  *File
}

// SaveResult is a saved product and the non-fatal problems met on the way
type SaveResult struct {
	Product  *domain.Product `json:"product"`
	Warnings []string        `json:"warnings,omitempty"`
}

// Service runs the admin panel operations against the backend. The product
// list it keeps is updated optimistically and reverted when a write fails.
type Service struct {
	backend client.Backend
	catalog CatalogInvalidator
	config  ConfigInvalidator

	// serializes product writes so only one optimistic attempt is pending
	writeMu  sync.Mutex
	products *optimistic.Value[[]domain.Product]
	// set once the full list came from the backend
	loaded atomic.Bool
}

func NewService(backend client.Backend, catalog CatalogInvalidator, config ConfigInvalidator) *Service {
	return &Service{
		backend:  backend,
		catalog:  catalog,
		config:   config,
		products: optimistic.New[[]domain.Product](nil),
	}
}

// Products reloads the product list from the backend
func (s *Service) Products(ctx context.Context) ([]domain.Product, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	products, err := s.backend.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	s.products.CommitValue(products)
	s.loaded.Store(true)
	return slices.Clone(products), nil
}

// List returns the product list the admin panel shows. Once loaded it is
// served from memory, including a write still in flight; refresh reloads
// it from the backend.
func (s *Service) List(ctx context.Context, refresh bool) ([]domain.Product, error) {
	if !refresh && s.loaded.Load() {
		return s.CurrentProducts(), nil
	}
	return s.Products(ctx)
}

// CreateProduct validates the form, uploads its files and creates the
// product. A failed upload aborts the creation.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*SaveResult, error) {
	draft, err := validateDraft(in.Draft)
	if err != nil {
		return nil, err
	}
	if draft.State == "" {
		draft.State = domain.ProductStateActive
	}

	if in.Image != nil {
		res, err := s.backend.Upload(ctx, domain.UploadImage, in.Image.Name, in.Image.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to upload image: %w", err)
		}
		draft.ImageURL = res.URL
	}
	if in.Spec != nil {
		res, err := s.backend.Upload(ctx, domain.UploadSpec, in.Spec.Name, in.Spec.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to upload specification: %w", err)
		}
		draft.SpecFileURL = res.URL
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	created, err := s.backend.CreateProduct(ctx, draft)
	if err != nil {
		return nil, err
	}

	s.products.CommitValue(append(slices.Clone(s.products.Committed()), *created))
	s.catalog.Invalidate()

	log.Infof("✅ Product %d %q created", created.ID, created.Name)
	return &SaveResult{Product: created}, nil
}

// UpdateProduct saves an edited product. A failed file upload keeps the
// previous URL and the save goes on with a warning; a failed save reverts
// every pending change.
func (s *Service) UpdateProduct(ctx context.Context, id int64, in ProductInput) (*SaveResult, error) {
	draft, err := validateDraft(in.Draft)
	if err != nil {
		return nil, err
	}

	current, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if draft.State == "" {
		draft.State = current.State
	}

	var warnings []string
	draft.ImageURL = current.ImageURL
	draft.SpecFileURL = current.SpecFileURL

	if in.Image != nil {
		if res, err := s.backend.Upload(ctx, domain.UploadImage, in.Image.Name, in.Image.Body); err != nil {
			log.Warnf("⚠️ Image upload for product %d failed, keeping the previous one: %v", id, err)
			warnings = append(warnings, "image upload failed, the previous image was kept")
		} else {
			draft.ImageURL = res.URL
		}
	}
	if in.Spec != nil {
		if res, err := s.backend.Upload(ctx, domain.UploadSpec, in.Spec.Name, in.Spec.Body); err != nil {
			log.Warnf("⚠️ Spec upload for product %d failed, keeping the previous one: %v", id, err)
			warnings = append(warnings, "specification upload failed, the previous file was kept")
		} else {
			draft.SpecFileURL = res.URL
		}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	prev := s.products.Attempt(replaceProduct(s.products.Committed(), applyDraft(*current, draft)))

	updated, err := s.backend.UpdateProduct(ctx, id, draft)
	if err != nil {
		s.products.Revert()
		log.Errorf("❌ Product %d not saved, changes reverted: %v", id, err)
		return nil, err
	}

	s.products.CommitValue(replaceProduct(prev, *updated))
	s.catalog.Invalidate()

	log.Infof("✅ Product %d updated", id)
	return &SaveResult{Product: updated, Warnings: warnings}, nil
}

// DeleteProduct removes a product; the local list is restored when the
// backend refuses.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.products.Attempt(slices.DeleteFunc(slices.Clone(s.products.Committed()), func(p domain.Product) bool {
		return p.ID == id
	}))

	if err := s.backend.DeleteProduct(ctx, id); err != nil {
		s.products.Revert()
		return err
	}

	s.products.Commit()
	s.catalog.Invalidate()
	log.Infof("🗑️ Product %d deleted", id)
	return nil
}

// CurrentProducts returns the list as the admin panel shows it, including
// a write still in flight.
func (s *Service) CurrentProducts() []domain.Product {
	return slices.Clone(s.products.Get())
}

func (s *Service) lookup(ctx context.Context, id int64) (*domain.Product, error) {
	committed := s.products.Committed()
	if i := slices.IndexFunc(committed, func(p domain.Product) bool { return p.ID == id }); i >= 0 {
		p := committed[i]
		return &p, nil
	}
	return s.backend.GetProduct(ctx, id)
}

func validateDraft(d domain.ProductDraft) (domain.ProductDraft, error) {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return d, invalid("product name is required")
	}
	if d.Price <= 0 {
		return d, invalid("price must be greater than 0")
	}
	switch d.State {
	case "", domain.ProductStateActive, domain.ProductStateDiscontinued:
	default:
		return d, invalid("unknown product state %q", d.State)
	}
	if d.CategoryID != nil && *d.CategoryID <= 0 {
		d.CategoryID = nil
	}
	if d.TagID != nil && *d.TagID <= 0 {
		d.TagID = nil
	}
	return d, nil
}

func applyDraft(p domain.Product, d domain.ProductDraft) domain.Product {
	if !sameID(p.CategoryID, d.CategoryID) {
		p.Category = nil
	}
	if !sameID(p.TagID, d.TagID) {
		p.Tag = nil
	}
	p.Name = d.Name
	p.Description = d.Description
	p.Price = d.Price
	p.CategoryID = d.CategoryID
	p.TagID = d.TagID
	p.ImageURL = d.ImageURL
	p.SpecFileURL = d.SpecFileURL
	p.State = d.State
	return p
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func replaceProduct(list []domain.Product, p domain.Product) []domain.Product {
	out := slices.Clone(list)
	if i := slices.IndexFunc(out, func(x domain.Product) bool { return x.ID == p.ID }); i >= 0 {
		out[i] = p
		return out
	}
	return append(out, p)
}

// Reference is what the configuration page shows
type Reference struct {
	Config     *domain.SiteConfig `json:"config"`
	Categories []domain.Category  `json:"categorias"`
	Tags       []domain.Tag       `json:"etiquetas"`
}

// LoadReference fetches the site config, categories and tags in parallel
func (s *Service) LoadReference(ctx context.Context) (*Reference, error) {
	ref := &Reference{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cfg, err := s.backend.GetConfig(gctx)
		ref.Config = cfg
		return err
	})
	g.Go(func() error {
		categories, err := s.backend.ListCategories(gctx)
		ref.Categories = categories
		return err
	})
	g.Go(func() error {
		tags, err := s.backend.ListTags(gctx)
		ref.Tags = tags
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return ref, nil
}

// SaveConfig stores a new WhatsApp number and refreshes the storefront copy
func (s *Service) SaveConfig(ctx context.Context, whatsapp string) (*domain.SiteConfig, error) {
	whatsapp = strings.TrimSpace(whatsapp)
	if whatsapp == "" {
		return nil, invalid("a WhatsApp number is required")
	}

	saved, err := s.backend.UpdateConfig(ctx, domain.SiteConfig{WhatsApp: whatsapp})
	if err != nil {
		return nil, err
	}

	if err := s.config.Invalidate(ctx); err != nil {
		log.Warnf("⚠️ Site config saved but the storefront copy could not be refreshed: %v", err)
	}
	log.Infof("✅ WhatsApp number updated")
	return saved, nil
}
