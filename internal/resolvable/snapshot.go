package resolvable

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Snapshot is a serialized resolver state: the resolvable records as the
// engine reports them plus its license store.
type Snapshot struct {
	Resolvables []Record `yaml:"resolvables"`
	// Licenses maps product name to language to license text.
	Licenses                    map[string]map[string]string `yaml:"licenses,omitempty"`
	LicenseConfirmationRequired []string                     `yaml:"license_confirmation_required,omitempty"`
	LicensesConfirmed           []string                     `yaml:"licenses_confirmed,omitempty"`
}

// ReadSnapshot decodes a YAML snapshot.
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if err == io.EOF {
			return &s, nil
		}
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &s, nil
}

// LoadSnapshot reads a YAML snapshot from path.
func LoadSnapshot(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	s, err := ReadSnapshot(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Save writes the snapshot to path, replacing it atomically.
func (s *Snapshot) Save(path string) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
