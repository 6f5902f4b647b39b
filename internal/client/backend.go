package client

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"weldzone/storefront/internal/config"
	"weldzone/storefront/internal/domain"

	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

// Backend is the remote WeldZone REST API. It owns products, categories,
// tags, the site configuration and uploaded files.
type Backend interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	CreateProduct(ctx context.Context, draft domain.ProductDraft) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id int64, draft domain.ProductDraft) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	ListCategories(ctx context.Context) ([]domain.Category, error)
	CreateCategory(ctx context.Context, name string) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id int64, name string) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	ListTags(ctx context.Context) ([]domain.Tag, error)
	CreateTag(ctx context.Context, name, color string) (*domain.Tag, error)
	UpdateTag(ctx context.Context, id int64, patch domain.TagPatch) (*domain.Tag, error)
	DeleteTag(ctx context.Context, id int64) error

	GetConfig(ctx context.Context) (*domain.SiteConfig, error)
	UpdateConfig(ctx context.Context, cfg domain.SiteConfig) (*domain.SiteConfig, error)

	Upload(ctx context.Context, kind domain.UploadKind, fileName string, file io.Reader) (*domain.UploadResult, error)
}

type backendClient struct {
	rl         ratelimit.Limiter
	baseURL    string
	httpClient *resty.Client
}

func NewBackend(cfg config.BackendConfig) Backend {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(time.Duration(cfg.Timeout)*time.Second).
		SetRetryCount(cfg.MaxRetries).
		SetHeader("Accept", "application/json")

	rps := cfg.MaxRequestsPerSecond
	if rps <= 0 {
		rps = 20
	}

	return &backendClient{
		rl:         ratelimit.New(rps),
		baseURL:    cfg.BaseURL,
		httpClient: client,
	}
}

func (c *backendClient) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	if err := c.do(ctx, http.MethodGet, "/products", nil, &products); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	for i := range products {
		products[i].Normalize()
	}

	log.Debugf("Fetched %d products", len(products))
	return products, nil
}

func (c *backendClient) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	var product domain.Product
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/products/%d", id), nil, &product); err != nil {
		return nil, fmt.Errorf("failed to get product %d: %w", id, err)
	}
	product.Normalize()
	return &product, nil
}

func (c *backendClient) CreateProduct(ctx context.Context, draft domain.ProductDraft) (*domain.Product, error) {
	var product domain.Product
	if err := c.do(ctx, http.MethodPost, "/products", draft, &product); err != nil {
		return nil, fmt.Errorf("failed to create product %q: %w", draft.Name, err)
	}
	product.Normalize()
	return &product, nil
}

func (c *backendClient) UpdateProduct(ctx context.Context, id int64, draft domain.ProductDraft) (*domain.Product, error) {
	var product domain.Product
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/products/%d", id), draft, &product); err != nil {
		return nil, fmt.Errorf("failed to update product %d: %w", id, err)
	}
	product.Normalize()
	return &product, nil
}

func (c *backendClient) DeleteProduct(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/products/%d", id), nil, nil); err != nil {
		return fmt.Errorf("failed to delete product %d: %w", id, err)
	}
	return nil
}

func (c *backendClient) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var categories []domain.Category
	if err := c.do(ctx, http.MethodGet, "/config/categorias", nil, &categories); err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (c *backendClient) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	var category domain.Category
	body := map[string]string{"nombre": name}
	if err := c.do(ctx, http.MethodPost, "/config/categorias", body, &category); err != nil {
		return nil, fmt.Errorf("failed to create category %q: %w", name, err)
	}
	return &category, nil
}

func (c *backendClient) UpdateCategory(ctx context.Context, id int64, name string) (*domain.Category, error) {
	var category domain.Category
	body := map[string]string{"nombre": name}
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/config/categorias/%d", id), body, &category); err != nil {
		return nil, fmt.Errorf("failed to update category %d: %w", id, err)
	}
	return &category, nil
}

func (c *backendClient) DeleteCategory(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/config/categorias/%d", id), nil, nil); err != nil {
		return fmt.Errorf("failed to delete category %d: %w", id, err)
	}
	return nil
}

func (c *backendClient) ListTags(ctx context.Context) ([]domain.Tag, error) {
	var tags []domain.Tag
	if err := c.do(ctx, http.MethodGet, "/config/etiquetas", nil, &tags); err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return tags, nil
}

func (c *backendClient) CreateTag(ctx context.Context, name, color string) (*domain.Tag, error) {
	var tag domain.Tag
	body := domain.Tag{Name: name, Color: color}
	if err := c.do(ctx, http.MethodPost, "/config/etiquetas", body, &tag); err != nil {
		return nil, fmt.Errorf("failed to create tag %q: %w", name, err)
	}
	return &tag, nil
}

func (c *backendClient) UpdateTag(ctx context.Context, id int64, patch domain.TagPatch) (*domain.Tag, error) {
	var tag domain.Tag
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/config/etiquetas/%d", id), patch, &tag); err != nil {
		return nil, fmt.Errorf("failed to update tag %d: %w", id, err)
	}
	return &tag, nil
}

func (c *backendClient) DeleteTag(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/config/etiquetas/%d", id), nil, nil); err != nil {
		return fmt.Errorf("failed to delete tag %d: %w", id, err)
	}
	return nil
}

func (c *backendClient) GetConfig(ctx context.Context) (*domain.SiteConfig, error) {
	var cfg domain.SiteConfig
	if err := c.do(ctx, http.MethodGet, "/config", nil, &cfg); err != nil {
		return nil, fmt.Errorf("failed to get site config: %w", err)
	}
	return &cfg, nil
}

func (c *backendClient) UpdateConfig(ctx context.Context, cfg domain.SiteConfig) (*domain.SiteConfig, error) {
	var saved domain.SiteConfig
	if err := c.do(ctx, http.MethodPut, "/config", cfg, &saved); err != nil {
		return nil, fmt.Errorf("failed to update site config: %w", err)
	}
	// some backend versions answer with an empty body on success
	if saved.WhatsApp == "" {
		saved = cfg
	}
	return &saved, nil
}

func (c *backendClient) Upload(ctx context.Context, kind domain.UploadKind, fileName string, file io.Reader) (*domain.UploadResult, error) {
	path, err := uploadPath(kind)
	if err != nil {
		return nil, err
	}

	c.rl.Take()

	var (
		result domain.UploadResult
		apiErr errorBody
	)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetMultipartField("file", fileName, mime.TypeByExtension(filepath.Ext(fileName)), file).
		SetResult(&result).
		SetError(&apiErr).
		SetExpectResponseContentType("application/json").
		Post(path)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("upload cancelled: %w", ctx.Err())
		}
		if resp != nil && resp.IsError() {
			return nil, fmt.Errorf("failed to upload %s: %w", fileName, remoteErrorOf(resp, apiErr))
		}
		return nil, fmt.Errorf("failed to upload %s: %w", fileName, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("failed to upload %s: %w", fileName, remoteErrorOf(resp, apiErr))
	}
	if result.URL == "" {
		return nil, fmt.Errorf("upload of %s returned no url", fileName)
	}

	log.Infof("✅ Uploaded %s %s", kind, fileName)
	return &result, nil
}

func uploadPath(kind domain.UploadKind) (string, error) {
	switch kind {
	case domain.UploadImage:
		return "/upload", nil
	case domain.UploadSpec:
		return "/upload-specs", nil
	default:
		return "", fmt.Errorf("unknown upload kind %q", kind)
	}
}

// do sends a JSON request and lets resty decode the JSON answer into out
// when out is not nil. Non-2xx answers become a *RemoteError.
func (c *backendClient) do(ctx context.Context, method, path string, body, out any) error {
	c.rl.Take()

	var apiErr errorBody
	req := c.httpClient.R().
		SetContext(ctx).
		SetError(&apiErr).
		SetExpectResponseContentType("application/json")
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("request cancelled: %w", ctx.Err())
		}
		// an error body that claimed to be JSON and was not
		if resp != nil && resp.IsError() {
			return c.remoteError(method, path, resp, apiErr)
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	if resp.IsError() {
		return c.remoteError(method, path, resp, apiErr)
	}
	return nil
}

func (c *backendClient) remoteError(method, path string, resp *resty.Response, apiErr errorBody) *RemoteError {
	remote := remoteErrorOf(resp, apiErr)
	log.Warnf("⚠️ Backend answered %d for %s %s: %s", remote.Status, method, path, remote.Message)
	return remote
}
