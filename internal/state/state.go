// Package state stores the snapshot of the last recorded synthesis, which
// diff compares the current cloud assembly against.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/picklr-io/datastacks/internal/ir"
	"github.com/picklr-io/datastacks/internal/logging"
)

const (
	DefaultPath     = ".datastacks/snapshot.json"
	SnapshotVersion = 1
)

// Manager handles reading and writing of a local snapshot file.
type Manager struct {
	path   string
	cipher *Cipher
	now    func() time.Time
}

// NewManager returns a manager for path. A nil cipher stores plain JSON.
func NewManager(path string, cipher *Cipher) *Manager {
	if path == "" {
		path = DefaultPath
	}
	return &Manager{path: path, cipher: cipher, now: time.Now}
}

func (m *Manager) Path() string { return m.path }

// Read loads the snapshot. A missing file yields an empty snapshot.
func (m *Manager) Read(ctx context.Context) (*ir.Snapshot, error) {
	raw, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return emptySnapshot(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file %s: %w", m.path, err)
	}
	snap, err := decode(raw, m.cipher)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot from %s: %w", m.path, err)
	}
	return snap, nil
}

// Write stores snap, incrementing its serial and assigning a lineage on
// the first write.
func (m *Manager) Write(ctx context.Context, snap *ir.Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	content, err := encode(snap, m.cipher, m.now)
	if err != nil {
		return err
	}

	// write then rename so readers never see a partial file
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot file %s: %w", m.path, err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("failed to write snapshot file %s: %w", m.path, err)
	}

	logging.Debug("snapshot written", "path", m.path, "serial", snap.Serial, "stacks", len(snap.Stacks))
	return nil
}

func emptySnapshot() *ir.Snapshot {
	return &ir.Snapshot{Version: SnapshotVersion, Stacks: []*ir.StackSnapshot{}}
}

// encode advances serial and lineage, then serializes snap.
func encode(snap *ir.Snapshot, cipher *Cipher, now func() time.Time) ([]byte, error) {
	if snap.Version == 0 {
		snap.Version = SnapshotVersion
	}
	if snap.Lineage == "" {
		snap.Lineage = uuid.NewString()
	}
	snap.Serial++
	snap.RecordedAt = now().UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize snapshot: %w", err)
	}
	data = append(data, '\n')

	sealed, err := cipher.Seal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt snapshot: %w", err)
	}
	return sealed, nil
}

func decode(raw []byte, cipher *Cipher) (*ir.Snapshot, error) {
	data, err := cipher.Open(raw)
	if err != nil {
		return nil, err
	}
	var snap ir.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	if snap.Version > SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d is newer than supported version %d", snap.Version, SnapshotVersion)
	}
	return &snap, nil
}
