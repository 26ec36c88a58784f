package repository

import (
	"context"

	"github.com/XVM-Systems/RAIL/internal/domain/entity"
)

// Snapshot is the full persisted state: every endpoint pool keyed by chain ID
// plus the stored explorer API keys.
type Snapshot struct {
	Pools   map[int64]entity.EndpointPool `yaml:"rpcs"`
	APIKeys map[string]string             `yaml:"api_keys"`
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	cp := Snapshot{
		Pools:   make(map[int64]entity.EndpointPool, len(s.Pools)),
		APIKeys: make(map[string]string, len(s.APIKeys)),
	}
	for id, pool := range s.Pools {
		cp.Pools[id] = pool.Clone()
	}
	for svc, key := range s.APIKeys {
		cp.APIKeys[svc] = key
	}
	return cp
}

// ConfigStore owns the durable copy of the snapshot. The core loads it once
// at startup and saves after every successful mutation; it never touches the
// storage format directly.
type ConfigStore interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snapshot Snapshot) error
}
