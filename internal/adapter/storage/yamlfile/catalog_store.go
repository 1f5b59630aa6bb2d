package yamlfile

import (
	"context"
	"fmt"
	"os"

	"atm-gateway/internal/catalog"
)

// CatalogStore implements ports.CatalogRepository on a catalog YAML file.
type CatalogStore struct {
	path string
}

// NewCatalogStore creates a store backed by the file at path.
func NewCatalogStore(path string) *CatalogStore {
	return &CatalogStore{path: path}
}

// Load reads and parses the catalog.
func (s *CatalogStore) Load(_ context.Context) (*catalog.Collection, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := catalog.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", s.path, err)
	}
	return c, nil
}

// Save writes the document c was built from.
func (s *CatalogStore) Save(_ context.Context, c *catalog.Collection) error {
	return writeAtomic(s.path, c.Raw())
}
