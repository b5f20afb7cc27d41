// control/hotreload.go
// Author: momentics <momentics@gmail.com>
//
// Watches the config file and hands each valid revision to reload hooks.

package control

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Loader keeps the current configuration and notifies hooks on change.
type Loader struct {
	v      *viper.Viper
	logger *slog.Logger

	mu      sync.RWMutex
	current *Config
	hooks   []func(*Config)
}

// NewLoader loads path and returns a Loader holding the result.
func NewLoader(path string, logger *slog.Logger) (*Loader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	v := newViper(path)
	if err := readConfig(v, path); err != nil {
		return nil, err
	}
	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	return &Loader{v: v, logger: logger, current: cfg}, nil
}

// Current returns the last valid configuration.
func (l *Loader) Current() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// OnReload registers a hook called with every new valid configuration.
func (l *Loader) OnReload(fn func(*Config)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hooks = append(l.hooks, fn)
}

// Watch starts watching the config file.
func (l *Loader) Watch() {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if err := l.Reload(); err != nil {
			l.logger.Warn("config reload rejected", "file", e.Name, "error", err)
		}
	})
	l.v.WatchConfig()
}

// Reload re-decodes the configuration and runs hooks synchronously. An
// invalid revision leaves the current one in place.
func (l *Loader) Reload() error {
	if l.v.ConfigFileUsed() != "" {
		if err := l.v.ReadInConfig(); err != nil {
			return fmt.Errorf("reload: %w", err)
		}
	}
	cfg, err := decode(l.v)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.current = cfg
	hooks := slices.Clone(l.hooks)
	l.mu.Unlock()
	for _, fn := range hooks {
		fn(cfg)
	}
	return nil
}
