package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pickit-labs/pickit/internal/config"
	"github.com/pickit-labs/pickit/internal/logfields"
)

// ConfigWatcher monitors the configuration file and folds changes into
// the running daemon. An edited role or shop identity is the edge that
// rebuilds the peer session.
type ConfigWatcher struct {
	configPath   string
	daemon       *Daemon
	watcher      *fsnotify.Watcher
	stopChan     chan struct{}
	reloadChan   chan struct{}
	debounceTime time.Duration
}

// NewConfigWatcher creates a watcher for the given configuration file.
func NewConfigWatcher(configPath string, daemon *Daemon) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	return &ConfigWatcher{
		configPath:   absPath,
		daemon:       daemon,
		watcher:      watcher,
		stopChan:     make(chan struct{}),
		reloadChan:   make(chan struct{}, 1),
		debounceTime: 2 * time.Second, // Debounce rapid file changes
	}, nil
}

// Start begins monitoring the configuration file.
func (cw *ConfigWatcher) Start(ctx context.Context) error {
	// Watch the directory containing the config file (more reliable than
	// watching the file directly, editors replace files on save).
	configDir := filepath.Dir(cw.configPath)
	if err := cw.watcher.Add(configDir); err != nil {
		return fmt.Errorf("watch config directory %s: %w", configDir, err)
	}

	slog.Info("watching configuration", "config_path", cw.configPath)

	go cw.watchLoop(ctx.Done())
	go cw.reloadLoop(ctx.Done())
	return nil
}

// Stop stops the configuration watcher.
func (cw *ConfigWatcher) Stop() {
	close(cw.stopChan)
	if err := cw.watcher.Close(); err != nil {
		slog.Error("error closing file watcher", logfields.Error(err))
	}
}

func (cw *ConfigWatcher) watchLoop(done <-chan struct{}) {
	configFile := filepath.Base(cw.configPath)

	for {
		select {
		case <-done:
			return
		case <-cw.stopChan:
			return
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != configFile {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			// Coalesce bursts; the reload loop debounces.
			select {
			case cw.reloadChan <- struct{}{}:
			default:
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("config watcher error", logfields.Error(err))
		}
	}
}

func (cw *ConfigWatcher) reloadLoop(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-cw.stopChan:
			return
		case <-cw.reloadChan:
			time.Sleep(cw.debounceTime)
			// Drain anything that arrived during the debounce window.
			select {
			case <-cw.reloadChan:
			default:
			}
			cw.reload()
		}
	}
}

func (cw *ConfigWatcher) reload() {
	cfg, err := config.Load(cw.configPath)
	if err != nil {
		slog.Warn("ignoring invalid configuration reload", logfields.Error(err))
		return
	}
	slog.Info("configuration reloaded", "config_path", cw.configPath)
	cw.daemon.applyConfig(cfg)
}
