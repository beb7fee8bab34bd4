package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/boogy/jencoder/pkg/config"
	"github.com/boogy/jencoder/pkg/store"
)

// Manager loads and saves Settings in a store
type Manager struct {
	store              store.Store
	key                string
	ttl                time.Duration
	persistKeyMaterial bool
	defaults           Settings
}

// NewManager creates a manager for st. A nil cfg uses the built in defaults.
func NewManager(st store.Store, cfg *config.Config) *Manager {
	m := &Manager{
		store:    st,
		key:      StorageKey,
		defaults: Default(),
	}
	if cfg == nil {
		return m
	}

	if cfg.DefaultAlgorithm != "" {
		m.defaults.Algorithm = cfg.DefaultAlgorithm
	}
	if cfg.Store != nil {
		if cfg.Store.Key != "" {
			m.key = cfg.Store.Key
		}
		m.ttl = cfg.Store.TTL
		m.persistKeyMaterial = cfg.Store.PersistKeyMaterial
	}
	return m
}

// Defaults returns the settings used when nothing is saved
func (m *Manager) Defaults() Settings {
	return m.defaults
}

// Load returns the saved settings merged over the defaults. Missing or
// unreadable saved settings yield the defaults.
func (m *Manager) Load(ctx context.Context) (Settings, error) {
	data, err := m.store.Get(ctx, m.key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return m.defaults, nil
		}
		return m.defaults, fmt.Errorf("failed to load settings: %w", err)
	}

	s, err := Import(m.defaults, data, FormatJSON)
	if err != nil {
		slog.Warn("Ignoring saved settings", "key", m.key, "error", err)
		return m.defaults, nil
	}
	return s, nil
}

// Save validates and stores s. The secret and private key are dropped
// unless the store is configured to keep key material.
func (m *Manager) Save(ctx context.Context, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}

	data, err := Export(s, FormatJSON, m.persistKeyMaterial)
	if err != nil {
		return err
	}
	if err := m.store.Set(ctx, m.key, data, m.ttl); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	slog.Debug("Saved settings", "key", m.key, "algorithm", s.Algorithm, "keyMaterial", m.persistKeyMaterial)
	return nil
}

// Reset removes the saved settings and returns the defaults
func (m *Manager) Reset(ctx context.Context) (Settings, error) {
	if err := m.store.Delete(ctx, m.key); err != nil {
		return m.defaults, fmt.Errorf("failed to reset settings: %w", err)
	}
	return m.defaults, nil
}
