package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// HealthRules are the thresholds driving the health summary findings.
type HealthRules struct {
	// ErrorCountThreshold is the number of errors within the error
	// window above which a runtime is flagged. Strictly greater than.
	ErrorCountThreshold int `yaml:"error_count_threshold"`

	// ErrorWindowMinutes is the lookback for the high error rate check.
	ErrorWindowMinutes int `yaml:"error_window_minutes"`

	// StatusWindowMinutes is the lookback for processor status events.
	StatusWindowMinutes int `yaml:"status_window_minutes"`
}

// DefaultHealthRules returns the built-in thresholds.
func DefaultHealthRules() HealthRules {
	return HealthRules{
		ErrorCountThreshold: 5,
		ErrorWindowMinutes:  30,
		StatusWindowMinutes: 60,
	}
}

func (r HealthRules) Validate() error {
	if r.ErrorCountThreshold < 0 {
		return fmt.Errorf("error_count_threshold must not be negative, got %d", r.ErrorCountThreshold)
	}
	if r.ErrorWindowMinutes <= 0 {
		return fmt.Errorf("error_window_minutes must be positive, got %d", r.ErrorWindowMinutes)
	}
	if r.StatusWindowMinutes <= 0 {
		return fmt.Errorf("status_window_minutes must be positive, got %d", r.StatusWindowMinutes)
	}
	return nil
}

// ErrorWindow returns the high error rate lookback as a duration.
func (r HealthRules) ErrorWindow() time.Duration {
	return time.Duration(r.ErrorWindowMinutes) * time.Minute
}

// StatusWindow returns the processor status lookback as a duration.
func (r HealthRules) StatusWindow() time.Duration {
	return time.Duration(r.StatusWindowMinutes) * time.Minute
}

// LoadHealthRules reads threshold overrides from a YAML file. Fields
// left zero in the file fall back to the defaults.
func LoadHealthRules(path string) (HealthRules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return HealthRules{}, fmt.Errorf("read rules file: %w", err)
	}

	rules := DefaultHealthRules()
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return HealthRules{}, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	if err := rules.Validate(); err != nil {
		return HealthRules{}, fmt.Errorf("invalid rules in %s: %w", path, err)
	}
	return rules, nil
}

// RuleHolder is the live set of health rules, safe for concurrent
// readers while a watcher swaps in reloaded values.
type RuleHolder struct {
	mu    sync.RWMutex
	rules HealthRules
	log   *slog.Logger
}

func NewRuleHolder(rules HealthRules, log *slog.Logger) *RuleHolder {
	return &RuleHolder{rules: rules, log: log}
}

// Current returns the active rules.
func (h *RuleHolder) Current() HealthRules {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rules
}

func (h *RuleHolder) set(rules HealthRules) {
	h.mu.Lock()
	h.rules = rules
	h.mu.Unlock()
}

// Watch reloads the rules file whenever it changes on disk. A reload
// that fails to parse or validate keeps the last good rules. Blocks
// until ctx is cancelled.
func (h *RuleHolder) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory, not the file: editors replace files on
	// save, which drops a file-level watch.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			rules, err := LoadHealthRules(path)
			if err != nil {
				h.log.Error("rules reload failed, keeping previous rules",
					"path", path,
					"error", err,
				)
				continue
			}
			h.set(rules)
			h.log.Info("health rules reloaded",
				"path", path,
				"error_count_threshold", rules.ErrorCountThreshold,
				"error_window_minutes", rules.ErrorWindowMinutes,
				"status_window_minutes", rules.StatusWindowMinutes,
			)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			h.log.Error("rules watcher error", "error", err)
		}
	}
}
