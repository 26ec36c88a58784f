package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/XVM-Systems/RAIL/internal/config"
	"github.com/XVM-Systems/RAIL/internal/domain/entity"
	domainRepo "github.com/XVM-Systems/RAIL/internal/domain/repository"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Compile-time check
var _ domainRepo.ConfigStore = (*Store)(nil)

// document is the on-disk YAML layout of the snapshot.
type document struct {
	RPCs    map[int64]entity.EndpointPool `yaml:"rpcs"`
	APIKeys map[string]string             `yaml:"api_keys"`
}

// Store persists the configuration snapshot as a YAML document on disk.
// A file lock guards against concurrent processes interleaving writes.
type Store struct {
	path   string
	lock   *flock.Flock
	logger *zap.Logger
}

// NewStore creates a file-backed config store.
func NewStore(cfg config.StorageConfig, logger *zap.Logger) (*Store, error) {
	dir := filepath.Dir(cfg.Path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create config directory: %w", err)
		}
	}
	return &Store{
		path:   cfg.Path,
		lock:   flock.New(cfg.LockPath),
		logger: logger.Named("FileConfigStore"),
	}, nil
}

// Load reads the snapshot from disk. A missing file yields an empty snapshot.
func (s *Store) Load(ctx context.Context) (domainRepo.Snapshot, error) {
	if err := s.lock.Lock(); err != nil {
		return domainRepo.Snapshot{}, fmt.Errorf("acquire config lock: %w", err)
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("Failed to release config lock", zap.Error(err))
		}
	}()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Info("Config file not found, starting with empty snapshot",
				zap.String("path", s.path),
			)
			return emptySnapshot(), nil
		}
		return domainRepo.Snapshot{}, fmt.Errorf("read config file: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return domainRepo.Snapshot{}, fmt.Errorf("parse config file %s: %w", s.path, err)
	}

	snapshot := emptySnapshot()
	for chainID, pool := range doc.RPCs {
		pool.ChainID = chainID
		snapshot.Pools[chainID] = pool
	}
	for svc, key := range doc.APIKeys {
		snapshot.APIKeys[svc] = key
	}

	s.logger.Info("Loaded config snapshot",
		zap.String("path", s.path),
		zap.Int("pools", len(snapshot.Pools)),
		zap.Int("apiKeys", len(snapshot.APIKeys)),
	)
	return snapshot, nil
}

// Save writes the snapshot to disk, replacing the previous document.
func (s *Store) Save(ctx context.Context, snapshot domainRepo.Snapshot) error {
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("acquire config lock: %w", err)
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("Failed to release config lock", zap.Error(err))
		}
	}()

	doc := document{
		RPCs:    snapshot.Pools,
		APIKeys: snapshot.APIKeys,
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal config snapshot: %w", err)
	}

	// Write-then-rename keeps a crashed save from truncating the document.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace config file: %w", err)
	}

	s.logger.Debug("Saved config snapshot",
		zap.String("path", s.path),
		zap.Int("pools", len(snapshot.Pools)),
	)
	return nil
}

func emptySnapshot() domainRepo.Snapshot {
	return domainRepo.Snapshot{
		Pools:   make(map[int64]entity.EndpointPool),
		APIKeys: make(map[string]string),
	}
}
