package state

import (
	"context"
	"fmt"

	"github.com/picklr-io/datastacks/internal/ir"
)

// Backend stores snapshots.
type Backend interface {
	Read(ctx context.Context) (*ir.Snapshot, error)
	Write(ctx context.Context, snap *ir.Snapshot) error
	Lock(ctx context.Context) error
	Unlock(ctx context.Context) error
}

var (
	_ Backend = (*Manager)(nil)
	_ Backend = (*s3Backend)(nil)
)

// BackendConfig selects a backend. Config keys depend on Type.
type BackendConfig struct {
	Type   string            `json:"type" yaml:"type"` // "local" or "s3"
	Config map[string]string `json:"config" yaml:"config"`
}

// NewBackend creates a backend from configuration.
func NewBackend(ctx context.Context, cfg *BackendConfig, cipher *Cipher) (Backend, error) {
	if cfg == nil {
		return nil, fmt.Errorf("backend configuration is nil")
	}

	switch cfg.Type {
	case "local", "":
		return NewManager(cfg.Config["path"], cipher), nil
	case "s3":
		b, err := newS3Backend(ctx, cfg.Config, cipher)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown backend type: %s", cfg.Type)
	}
}

// WithLock runs fn while holding the backend lock.
func WithLock(ctx context.Context, b Backend, fn func() error) (err error) {
	if err := b.Lock(ctx); err != nil {
		return err
	}
	defer func() {
		if uerr := b.Unlock(ctx); uerr != nil && err == nil {
			err = uerr
		}
	}()
	return fn()
}
