package container

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"weldzone/storefront/internal/admin"
	"weldzone/storefront/internal/api"
	"weldzone/storefront/internal/cart"
	"weldzone/storefront/internal/catalog"
	"weldzone/storefront/internal/client"
	"weldzone/storefront/internal/config"
	"weldzone/storefront/internal/order"
	"weldzone/storefront/internal/siteconfig"
	"weldzone/storefront/internal/state"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

// Container holds all initialized components
type Container struct {
	Config       *config.Config
	Backend      client.Backend
	StateManager state.StateManager

	SiteConfig *siteconfig.Accessor
	Cart       *cart.Store
	Catalog    *catalog.Catalog
	Checkout   *order.Checkout
	Admin      *admin.Service

	Router *gin.Engine
}

// New creates a new container with all dependencies initialized
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	container := &Container{
		Config: cfg,
	}

	stateManager, err := container.newStateManager(ctx)
	if err != nil {
		return nil, err
	}
	container.StateManager = stateManager

	backend := client.NewBackend(cfg.Backend)
	container.Backend = backend

	container.SiteConfig = siteconfig.NewAccessor(backend, stateManager, cfg.Storage.ConfigKey, cfg.Storefront.RevalidateInterval)
	container.Cart = cart.NewStore(ctx, stateManager, cfg.Storage.CartKey)
	container.Catalog = catalog.NewCatalog(backend, cfg.Storefront.CatalogStaleTime)

	formatter, err := order.NewPriceFormatter(cfg.Storefront.Locale)
	if err != nil {
		_ = stateManager.Close()
		return nil, err
	}
	tmpl := order.Template{
		StoreName:  cfg.Storefront.StoreName,
		Currency:   cfg.Storefront.Currency,
		CatalogURL: cfg.Storefront.CatalogURL,
	}
	container.Checkout = order.NewCheckout(container.Cart, container.SiteConfig, tmpl, formatter, cfg.Storefront.WhatsAppURL)

	container.Admin = admin.NewService(backend, container.Catalog, container.SiteConfig)

	container.Router = api.NewRouter(cfg.Server.Mode,
		api.NewStorefrontHandler(container.Catalog, container.Cart, container.Checkout, container.SiteConfig),
		api.NewAdminHandler(container.Admin),
	)

	return container, nil
}

func (c *Container) newStateManager(ctx context.Context) (state.StateManager, error) {
	switch c.Config.Storage.Driver {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", c.Config.Redis.Host, c.Config.Redis.Port),
			Password: c.Config.Redis.Password,
			DB:       c.Config.Redis.Database,
		})

		// Test connection
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		log.Info("✅ Connected to Redis successfully")

		return state.NewRedisStateManager(rdb, c.Config.Redis.KeyPrefix), nil
	default:
		sm, err := state.NewBoltStateManager(c.Config.Storage.Path, c.Config.Storage.Bucket)
		if err != nil {
			return nil, fmt.Errorf("failed to open local state: %w", err)
		}
		log.Infof("✅ Local state opened at %s", c.Config.Storage.Path)
		return sm, nil
	}
}

// Run starts config revalidation and serves the HTTP API until ctx is done
func (c *Container) Run(ctx context.Context) error {
	if err := c.SiteConfig.Start(ctx); err != nil {
		return err
	}
	defer c.SiteConfig.Stop()

	srv := &http.Server{
		Addr:              c.Config.Server.Addr(),
		Handler:           c.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Infof("🚀 Storefront listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close performs cleanup when shutting down
func (c *Container) Close() error {
	log.Info("Shutting down container...")

	// the redis state manager closes the shared client
	if err := c.StateManager.Close(); err != nil {
		return fmt.Errorf("failed to close state: %w", err)
	}

	log.Info("Container shut down successfully")
	return nil
}
