package signal

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"alphadesk/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultWeights is the base weight table over the complete producer set.
// The values sum to 1.0; aggregation renormalizes over whichever subset is
// actually present in a bundle.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		KeyFundamentals: 0.24,
		KeyTechnical:    0.23,
		KeyValuation:    0.23,
		KeyDeepValue:    0.15,
		KeySentiment:    0.15,
	}
}

type weightsFile struct {
	Weights map[string]float64 `yaml:"weights"`
}

// WeightsSnapshot is an immutable view of the active weight table.
type WeightsSnapshot struct {
	Version  int64
	LoadedAt time.Time
	Weights  map[string]float64
}

// WeightsRegistry serves the analyst weight table and hot-reloads overrides
// from an optional YAML file.
type WeightsRegistry struct {
	path string
	v    *viper.Viper

	mu       sync.RWMutex
	snapshot WeightsSnapshot
}

// NewWeightsRegistry builds a registry that hot-reloads the file on change.
// An empty path yields the built-in defaults with no file watching.
func NewWeightsRegistry(path string) (*WeightsRegistry, error) {
	r, done, err := newRegistry(path)
	if err != nil || done {
		return r, err
	}
	v := viper.New()
	v.SetConfigFile(r.path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading weights file failed: %w", err)
	}
	v.OnConfigChange(func(fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("analyst weights reload failed: %v", err)
			return
		}
		snap := r.Snapshot()
		logger.Infof("analyst weights reloaded (version=%d, producers=%d)", snap.Version, len(snap.Weights))
	})
	v.WatchConfig()
	r.v = v
	return r, nil
}

// NewStaticWeightsRegistry loads the file once and never watches it.
func NewStaticWeightsRegistry(path string) (*WeightsRegistry, error) {
	r, _, err := newRegistry(path)
	return r, err
}

func newRegistry(path string) (*WeightsRegistry, bool, error) {
	r := &WeightsRegistry{path: strings.TrimSpace(path)}
	r.snapshot = WeightsSnapshot{Version: 1, LoadedAt: time.Now(), Weights: DefaultWeights()}
	if r.path == "" {
		return r, true, nil
	}
	if _, err := os.Stat(r.path); err != nil {
		return nil, true, fmt.Errorf("weights file not readable: %w", err)
	}
	if err := r.reload(); err != nil {
		return nil, true, err
	}
	return r, false, nil
}

// ApplyOverrides merges inline weight overrides on top of the active table.
func (r *WeightsRegistry) ApplyOverrides(overrides map[string]float64) error {
	if len(overrides) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	merged := make(map[string]float64, len(r.snapshot.Weights)+len(overrides))
	for k, v := range r.snapshot.Weights {
		merged[k] = v
	}
	for key, w := range overrides {
		if w < 0 {
			return fmt.Errorf("weight for %q must not be negative", key)
		}
		merged[CanonicalKey(key)] = w
	}
	r.snapshot = WeightsSnapshot{
		Version:  r.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Weights:  merged,
	}
	return nil
}

func (r *WeightsRegistry) reload() error {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return err
	}
	var file weightsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parsing weights yaml failed: %w", err)
	}
	merged := DefaultWeights()
	for key, w := range file.Weights {
		if w < 0 {
			return fmt.Errorf("weight for %q must not be negative", key)
		}
		merged[CanonicalKey(key)] = w
	}
	r.mu.Lock()
	r.snapshot = WeightsSnapshot{
		Version:  r.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Weights:  merged,
	}
	r.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the active weight table.
func (r *WeightsRegistry) Snapshot() WeightsSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	weights := make(map[string]float64, len(r.snapshot.Weights))
	for k, v := range r.snapshot.Weights {
		weights[k] = v
	}
	return WeightsSnapshot{Version: r.snapshot.Version, LoadedAt: r.snapshot.LoadedAt, Weights: weights}
}
