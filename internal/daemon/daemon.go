// Package daemon wires the durable cache, job record store, peer session
// manager, API server and background maintenance into one long-running
// service per device.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/pickit-labs/pickit/internal/cache"
	"github.com/pickit-labs/pickit/internal/config"
	"github.com/pickit-labs/pickit/internal/logfields"
	"github.com/pickit-labs/pickit/internal/metrics"
	"github.com/pickit-labs/pickit/internal/notify"
	"github.com/pickit-labs/pickit/internal/server"
	"github.com/pickit-labs/pickit/internal/session"
	"github.com/pickit-labs/pickit/internal/shop"
	"github.com/pickit-labs/pickit/internal/store"
	"github.com/pickit-labs/pickit/internal/transport"
)

// shopPricingZero distinguishes "no pricing in the seed" from real rates.
var shopPricingZero = shop.Pricing{}

// Daemon is one running pickit device.
type Daemon struct {
	config         *config.Config
	configFilePath string

	cache     *cache.Store
	store     *store.Store
	sessions  *session.Manager
	apiServer *server.Server
	watcher   *ConfigWatcher
	scheduler *Scheduler
	registry  *prom.Registry

	serverErr chan error
}

// New builds a daemon from configuration. configFilePath may be empty to
// disable config file watching.
func New(cfg *config.Config, configFilePath string) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	kv, err := cache.Open(filepath.Join(cfg.DataDir, "pickit.db"))
	if err != nil {
		return nil, fmt.Errorf("open durable cache: %w", err)
	}

	registry := prom.NewRegistry()
	rec := metrics.NewPrometheusRecorder(registry)

	dispatcher := notify.NewDispatcher(rec, notifyTargets(cfg)...)
	st := store.New(kv, dispatcher, rec)
	st.Load()
	seedFromConfig(st, cfg)

	sm := session.New(
		transport.NewNATS(cfg.NATSURL),
		session.Callbacks{
			OnJobUpdate: st.ApplyRemote,
			ActiveJob:   st.ActiveJob,
		},
		rec,
	)
	st.SetPublisher(sm.Publish)

	d := &Daemon{
		config:         cfg,
		configFilePath: configFilePath,
		cache:          kv,
		store:          st,
		sessions:       sm,
		registry:       registry,
		serverErr:      make(chan error, 1),
	}
	st.SetIdentityChangeHook(d.reconfigure)
	d.apiServer = server.New(cfg.HTTP.Listen, st, sm, registry)

	sched, err := NewScheduler(st, cfg.FlushInterval.Std())
	if err != nil {
		return nil, err
	}
	d.scheduler = sched

	return d, nil
}

// notifyTargets assembles the dispatcher targets: the audible cue and
// system alert always, email/SMS when recipients are configured.
func notifyTargets(cfg *config.Config) []notify.Target {
	targets := []notify.Target{notify.Chime{}, notify.Desktop{}}
	if cfg.Notify.Email != "" {
		targets = append(targets, notify.Email{To: cfg.Notify.Email})
	}
	if cfg.Notify.SMS != "" {
		targets = append(targets, notify.SMS{To: cfg.Notify.SMS})
	}
	return targets
}

// seedFromConfig applies first-run seeds: cached values win once set.
func seedFromConfig(st *store.Store, cfg *config.Config) {
	if st.Role() == "" && cfg.Role != "" {
		st.SetRole(cfg.Role)
	}
	current := st.Shop()
	if !current.IsConfigured && cfg.Shop != nil {
		seed := *cfg.Shop
		if seed.ID == "" {
			seed.ID = current.ID
		}
		if seed.Pricing == (shopPricingZero) {
			seed.Pricing = current.Pricing
		}
		seed.IsConfigured = true
		st.SetShop(seed)
	}
}

// reconfigure re-evaluates the peer session after a role, shop identity
// or link change. This is the only trigger for transport rebuilds.
func (d *Daemon) reconfigure() {
	role := session.Role(d.store.Role())
	shopID, linked := d.store.LinkedShop()
	slog.Info("re-evaluating peer session",
		logfields.Role(string(role)), logfields.ShopID(shopID))
	d.sessions.Configure(role, shopID, linked)
}

// Start brings the device up and returns once all components run.
func (d *Daemon) Start(ctx context.Context) error {
	d.reconfigure()
	d.scheduler.Start(ctx)

	if d.configFilePath != "" {
		watcher, err := NewConfigWatcher(d.configFilePath, d)
		if err != nil {
			slog.Warn("config watching disabled", logfields.Error(err))
		} else {
			d.watcher = watcher
			if err := watcher.Start(ctx); err != nil {
				slog.Warn("config watching disabled", logfields.Error(err))
				d.watcher = nil
			}
		}
	}

	go func() {
		d.serverErr <- d.apiServer.Start()
	}()
	return nil
}

// Wait blocks until the context ends or the API server fails.
func (d *Daemon) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	case err := <-d.serverErr:
		return err
	}
}

// Stop tears the device down: session first so the peer sees a clean
// close, then a final durable flush.
func (d *Daemon) Stop(ctx context.Context) error {
	if d.watcher != nil {
		d.watcher.Stop()
	}
	if err := d.scheduler.Stop(); err != nil {
		slog.Warn("scheduler shutdown failed", logfields.Error(err))
	}
	d.sessions.Close()
	d.store.Flush()

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := d.apiServer.Stop(shutdownCtx); err != nil {
		slog.Warn("API server shutdown failed", logfields.Error(err))
	}
	return d.cache.Close()
}

// applyConfig folds a reloaded configuration into the running device.
// Role and shop identity changes re-trigger the session rebuild through
// the store's identity hook.
func (d *Daemon) applyConfig(cfg *config.Config) {
	if cfg.Role != "" && cfg.Role != d.store.Role() {
		slog.Info("role changed by configuration", logfields.Role(cfg.Role))
		d.store.SetRole(cfg.Role)
	}
	if cfg.Shop != nil && cfg.Shop.ID != "" && cfg.Shop.ID != d.store.Shop().ID {
		seed := *cfg.Shop
		seed.IsConfigured = true
		slog.Info("shop identity changed by configuration", logfields.ShopID(seed.ID))
		d.store.SetShop(seed)
	}
	d.config = cfg
}
