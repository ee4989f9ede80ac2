// Package runtime acquires a managed Java runtime: it resolves a build from the
// registered catalogs, downloads and verifies the archive, unpacks it into the
// install tree and normalizes the layout.
package runtime

import (
	"context"
	"fmt"
	"sync"
)

// Catalog lists the runtime builds published for a major version.
type Catalog interface {
	// Name identifies the catalog in logs and install records.
	Name() string
	// Artifacts returns the builds for q. Implementations may return builds
	// for other platforms too; the acquirer filters them.
	Artifacts(ctx context.Context, q Query) ([]ArtifactDescriptor, error)
}

// Query selects runtime builds.
type Query struct {
	Major     int
	ImageType string
	OS        string
	Arch      string
}

// ArtifactDescriptor describes one downloadable runtime archive.
type ArtifactDescriptor struct {
	OS          string // windows, mac, linux
	Arch        string // x64, x32, aarch64, arm
	ImageType   string // jdk, jre
	URL         string
	Checksum    string // hex SHA-256
	ArchiveName string
	Size        int64
	Version     string // release name, e.g. jdk-17.0.8+7
	Source      string // catalog name
}

// Select returns the first candidate matching os, arch and imageType exactly,
// together with the number of matches.
func Select(candidates []ArtifactDescriptor, os, arch, imageType string) (ArtifactDescriptor, int) {
	var (
		chosen  ArtifactDescriptor
		matches int
	)
	for _, c := range candidates {
		if c.OS != os || c.Arch != arch || c.ImageType != imageType {
			continue
		}
		if matches == 0 {
			chosen = c
		}
		matches++
	}
	return chosen, matches
}

// Registry holds catalogs in registration order, which is also resolution order.
type Registry struct {
	mu       sync.RWMutex
	catalogs map[string]Catalog
	order    []string
}

// NewRegistry creates a new catalog registry.
func NewRegistry() *Registry {
	return &Registry{
		catalogs: make(map[string]Catalog),
	}
}

// Register adds a catalog to the registry.
func (r *Registry) Register(name string, catalog Catalog) error {
	if name == "" {
		return fmt.Errorf("catalog name cannot be empty")
	}
	if catalog == nil {
		return fmt.Errorf("catalog cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.catalogs[name]; exists {
		return fmt.Errorf("catalog %s is already registered", name)
	}

	r.catalogs[name] = catalog
	r.order = append(r.order, name)
	return nil
}

// Get retrieves a catalog by name.
func (r *Registry) Get(name string) (Catalog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	catalog, exists := r.catalogs[name]
	if !exists {
		return nil, fmt.Errorf("catalog %s not found", name)
	}

	return catalog, nil
}

// List returns the registered catalog names in resolution order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}
