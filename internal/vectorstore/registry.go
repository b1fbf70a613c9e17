package vectorstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// registryFile is the sidecar file holding collection creation metadata.
// chromem-go accepts collection metadata at creation time but exposes no API
// to read it back, so the store keeps its own copy beside the database.
const registryFile = "collections.json"

// registry persists collection-name -> creation-metadata mappings. It is
// re-read from disk on every access so that state never goes stale across
// operations.
type registry struct {
	path string
}

func newRegistry(dir string) *registry {
	return &registry{path: filepath.Join(dir, registryFile)}
}

// load reads the registry file. A missing file yields an empty map.
func (r *registry) load() (map[string]map[string]string, error) {
	content, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return map[string]map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading collection registry: %w", err)
	}

	entries := map[string]map[string]string{}
	if err := json.Unmarshal(content, &entries); err != nil {
		return nil, fmt.Errorf("parsing collection registry: %w", err)
	}
	return entries, nil
}

// get returns the metadata recorded for a collection, or nil if absent.
// Read failures degrade to nil: callers fall back to defaults rather than
// failing the whole operation over sidecar metadata.
func (r *registry) get(name string) map[string]string {
	entries, err := r.load()
	if err != nil {
		return nil
	}
	return entries[name]
}

// set records metadata for a collection. The file is written atomically
// via a temp file and rename.
func (r *registry) set(name string, metadata map[string]string) error {
	entries, err := r.load()
	if err != nil {
		return err
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	entries[name] = metadata

	content, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding collection registry: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, content, 0600); err != nil {
		return fmt.Errorf("writing collection registry: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replacing collection registry: %w", err)
	}
	return nil
}

// delete removes a collection's registry entry if present.
func (r *registry) delete(name string) error {
	entries, err := r.load()
	if err != nil {
		return err
	}
	if _, ok := entries[name]; !ok {
		return nil
	}
	delete(entries, name)

	content, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding collection registry: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, content, 0600); err != nil {
		return fmt.Errorf("writing collection registry: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replacing collection registry: %w", err)
	}
	return nil
}
