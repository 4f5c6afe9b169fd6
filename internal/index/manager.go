// Package index manages the lifecycle of a search index: it guarantees the
// index exists with the requested schema before anything reads or writes it.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"docsearch/internal/domain"
)

// Manager performs idempotent index creation against a search store.
type Manager struct {
	store domain.SearchStore
	log   *slog.Logger
}

// NewManager creates a lifecycle manager.
func NewManager(store domain.SearchStore, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{store: store, log: log}
}

// EnsureIndex fetches the index by name and creates it when the store
// reports it absent. Returns true when this call created the index. Only a
// genuine not-found triggers creation; transport failures propagate so a
// flaky lookup is never mistaken for absence. An existing index whose vector
// dimension differs from the requested one is accepted with a warning.
func (m *Manager) EnsureIndex(ctx context.Context, def domain.IndexDefinition) (bool, error) {
	existing, err := m.store.GetIndex(ctx, def.Name)
	if err == nil {
		if existing.Vector.Dimensions != def.Vector.Dimensions {
			m.log.Warn("existing index schema differs from requested",
				"index", def.Name,
				"existing_dimensions", existing.Vector.Dimensions,
				"requested_dimensions", def.Vector.Dimensions)
		}
		m.log.Info("index already exists", "index", def.Name)
		return false, nil
	}
	if !errors.Is(err, domain.ErrIndexNotFound) {
		return false, fmt.Errorf("fetch index %q: %w", def.Name, err)
	}
	m.log.Info("index not found, creating", "index", def.Name)
	if err := m.store.CreateIndex(ctx, def); err != nil {
		return false, fmt.Errorf("create index %q: %w", def.Name, err)
	}
	m.log.Info("index created", "index", def.Name)
	return true, nil
}
