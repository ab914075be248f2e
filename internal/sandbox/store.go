package sandbox

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/surfbox-dev/surfbox/internal/logging"
)

// Store persists instance records as one JSON file per instance, so a later
// process can pick up sandboxes this one launched. The engine remains the
// source of truth for container state; records are reconciled against it on
// restore.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// Save writes an instance record.
func (s *Store) Save(inst *Instance) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("creating instance store: %w", err)
	}
	data, err := json.MarshalIndent(inst, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding instance %s: %w", inst.Name, err)
	}
	tmp := s.path(inst.Name) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing instance %s: %w", inst.Name, err)
	}
	return os.Rename(tmp, s.path(inst.Name))
}

// Load reads one instance record by name.
func (s *Store) Load(name string) (*Instance, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return nil, err
	}
	var inst Instance
	if err := json.Unmarshal(data, &inst); err != nil {
		return nil, fmt.Errorf("decoding instance %s: %w", name, err)
	}
	return &inst, nil
}

// List reads all instance records. Unreadable records are skipped with a
// warning rather than failing the whole listing.
func (s *Store) List() ([]*Instance, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []*Instance
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".json")
		inst, err := s.Load(name)
		if err != nil {
			logging.Warn("skipping unreadable instance record", "name", name, "error", err)
			continue
		}
		out = append(out, inst)
	}
	return out, nil
}

// Delete removes an instance record. Deleting a missing record is a no-op.
func (s *Store) Delete(name string) error {
	err := os.Remove(s.path(name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
