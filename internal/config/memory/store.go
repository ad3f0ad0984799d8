// Package memory provides an in-memory config.Store implementation.
package memory

import (
	"context"
	"sync"

	"logcore/internal/config"
)

// Store is an in-memory config.Store. Intended for testing; configuration
// is not persisted across restarts.
type Store struct {
	mu  sync.RWMutex
	cfg *config.Config
}

// NewStore creates a new in-memory Store.
func NewStore() *Store {
	return &Store{}
}

// Load returns the stored configuration, or nil if nothing has been saved.
func (s *Store) Load(_ context.Context) (*config.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cfg == nil {
		return nil, nil
	}
	return copyConfig(s.cfg), nil
}

// Save stores cfg in memory.
func (s *Store) Save(_ context.Context, cfg *config.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cfg = copyConfig(cfg)
	return nil
}

func copyConfig(cfg *config.Config) *config.Config {
	if cfg == nil {
		return nil
	}

	c := &config.Config{
		Sources:      make([]config.SourceConfig, len(cfg.Sources)),
		PatternOrder: append([]string(nil), cfg.PatternOrder...),
	}
	for i, src := range cfg.Sources {
		c.Sources[i] = config.SourceConfig{
			ID:     src.ID,
			Type:   src.Type,
			Params: copyParams(src.Params),
		}
	}
	return c
}

func copyParams(params map[string]string) map[string]string {
	if params == nil {
		return nil
	}
	cp := make(map[string]string, len(params))
	for k, v := range params {
		cp[k] = v
	}
	return cp
}
