package siteconfig

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"weldzone/storefront/internal/client"
	"weldzone/storefront/internal/domain"
	"weldzone/storefront/internal/state"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// State is where the accessor is in its cache/validate cycle
type State string

const (
	StateUninitialized State = "uninitialized"
	StateCachedOnly    State = "cached-only"
	StateValidated     State = "validated"
	StateRevalidating  State = "revalidating"
)

// Snapshot is what readers see. Err is the last fetch failure and is
// cleared by the next successful fetch.
type Snapshot struct {
	Config  *domain.SiteConfig
	State   State
	Loading bool
	Err     error
}

// Contact returns the configured WhatsApp number or "" when none is known yet
func (s Snapshot) Contact() string {
	if s.Config == nil {
		return ""
	}
	return s.Config.Contact()
}

// Accessor serves the site configuration from memory, backed by a local
// cache entry, and revalidates it against the backend on a fixed interval.
type Accessor struct {
	backend  client.Backend
	state    state.StateManager
	key      string
	interval time.Duration

	mu      sync.RWMutex
	current *domain.SiteConfig
	st      State
	loading bool
	err     error
	// set when the cache entry was dropped; the next fetch rewrites it
	stale bool

	cron *cron.Cron
}

func NewAccessor(backend client.Backend, sm state.StateManager, key string, interval time.Duration) *Accessor {
	return &Accessor{
		backend:  backend,
		state:    sm,
		key:      key,
		interval: interval,
		st:       StateUninitialized,
		loading:  true,
	}
}

// Start serves the cached value right away, fetches the authoritative one in
// the background and schedules revalidation.
func (a *Accessor) Start(ctx context.Context) error {
	if cached := a.loadCache(ctx); cached != nil {
		a.mu.Lock()
		a.current = cached
		a.st = StateCachedOnly
		a.loading = false
		a.mu.Unlock()
		log.Infof("📦 Serving cached site config")
	}

	go func() {
		if err := a.Refresh(ctx); err != nil {
			log.Warnf("⚠️ Initial site config fetch failed: %v", err)
		}
	}()

	c := cron.New()
	_, err := c.AddFunc(fmt.Sprintf("@every %s", a.interval), func() {
		if err := a.Refresh(ctx); err != nil {
			log.Warnf("⚠️ Site config revalidation failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule config revalidation: %w", err)
	}
	c.Start()

	a.mu.Lock()
	a.cron = c
	a.mu.Unlock()

	log.Infof("🔄 Site config revalidation every %s", a.interval)
	return nil
}

// Stop cancels the revalidation schedule. A fetch already in flight still
// completes and may update the cache.
func (a *Accessor) Stop() {
	a.mu.Lock()
	c := a.cron
	a.cron = nil
	a.mu.Unlock()

	if c != nil {
		c.Stop()
	}
}

// Get returns the current snapshot without blocking on the network
func (a *Accessor) Get() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	snap := Snapshot{State: a.st, Loading: a.loading, Err: a.err}
	if a.current != nil {
		cfg := *a.current
		snap.Config = &cfg
	}
	return snap
}

// Refresh fetches the authoritative config and updates memory and cache when
// it differs from what is held. On failure the last known value stays and
// the error is recorded on the snapshot.
func (a *Accessor) Refresh(ctx context.Context) error {
	a.mu.Lock()
	prev := a.st
	if prev == StateValidated {
		a.st = StateRevalidating
	}
	if a.current == nil {
		a.loading = true
	}
	a.mu.Unlock()

	fetched, err := a.backend.GetConfig(ctx)
	if err != nil {
		a.mu.Lock()
		if a.st == StateRevalidating {
			a.st = StateValidated
		}
		a.loading = false
		a.err = err
		a.mu.Unlock()
		return err
	}

	a.mu.Lock()
	changed := a.current == nil || a.stale || a.current.WhatsApp != fetched.WhatsApp
	a.stale = false
	if changed {
		cfg := *fetched
		a.current = &cfg
	}
	a.st = StateValidated
	a.loading = false
	a.err = nil
	a.mu.Unlock()

	if changed {
		a.saveCache(ctx, *fetched)
		log.Infof("✅ Site config updated from backend")
	} else {
		log.Debugf("Site config unchanged")
	}
	return nil
}

// Invalidate drops the cached entry and fetches again. Used after the
// config is edited so readers stop seeing the old contact. Readers keep the
// last known value until the fetch succeeds.
func (a *Accessor) Invalidate(ctx context.Context) error {
	if err := a.state.Delete(ctx, a.key); err != nil {
		log.Warnf("⚠️ Failed to drop cached site config: %v", err)
	}

	a.mu.Lock()
	a.stale = true
	a.mu.Unlock()

	return a.Refresh(ctx)
}

func (a *Accessor) loadCache(ctx context.Context) *domain.SiteConfig {
	raw, err := a.state.Load(ctx, a.key)
	if err != nil {
		log.Warnf("⚠️ Failed to read cached site config: %v", err)
		return nil
	}
	if len(raw) == 0 {
		return nil
	}

	var cfg domain.SiteConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		log.Warnf("⚠️ Cached site config is not valid JSON, ignoring it: %v", err)
		return nil
	}
	return &cfg
}

func (a *Accessor) saveCache(ctx context.Context, cfg domain.SiteConfig) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		log.Errorf("❌ Failed to encode site config: %v", err)
		return
	}
	if err := a.state.Save(ctx, a.key, raw); err != nil {
		log.Errorf("❌ Failed to cache site config: %v", err)
	}
}
