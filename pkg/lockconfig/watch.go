package lockconfig

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Watcher reloads a Config whenever its backing file changes, for
// condlockd deployments that want to adjust lease defaults or logging
// level without a restart. The acquisition state machine itself never
// consults a Watcher — only the ambient coordinator defaults it feeds are
// safe to change live.
type Watcher struct {
	v        *viper.Viper
	mu       sync.RWMutex
	current  *Config
	onChange func(*Config)
}

// WatchConfig starts watching configPath for changes, applying defaults
// and validation on every reload, and returns a Watcher seeded with the
// initial load. onChange, if non-nil, is invoked (from viper's watcher
// goroutine) after each successful reload; a reload that fails validation
// is logged-worthy but leaves the previous Config in place.
func WatchConfig(configPath string, onChange func(*Config)) (*Watcher, error) {
	v := viper.New()
	setupViper(v, configPath)

	if _, err := readConfigFile(v); err != nil {
		return nil, err
	}

	w := &Watcher{v: v, onChange: onChange}
	if err := w.reload(); err != nil {
		return nil, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}
		if err := w.reload(); err != nil {
			// Keep serving the last good configuration; a malformed
			// edit mid-save should not tear down a running server.
			return
		}
		if w.onChange != nil {
			w.onChange(w.Current())
		}
	})
	v.WatchConfig()

	return w, nil
}

func (w *Watcher) reload() error {
	var cfg Config
	if err := w.v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return fmt.Errorf("lockconfig: unmarshal config: %w", err)
	}
	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return fmt.Errorf("lockconfig: validation failed: %w", err)
	}

	w.mu.Lock()
	w.current = &cfg
	w.mu.Unlock()
	return nil
}

// Current returns the most recently loaded, validated configuration.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}
