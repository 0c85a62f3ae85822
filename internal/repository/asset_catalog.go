package repository

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"RWAPrice/internal/domain/models"
	drepo "RWAPrice/internal/domain/repository"
)

// YAMLAssetCatalog is the read-only asset catalog loaded once at startup.
type YAMLAssetCatalog struct {
	assets map[string]models.AssetMetadata
}

type catalogFile struct {
	Assets []models.AssetMetadata `yaml:"assets"`
}

// NewYAMLAssetCatalog loads the catalog from path.
func NewYAMLAssetCatalog(path string) (*YAMLAssetCatalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read asset catalog: %w", err)
	}

	var f catalogFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse asset catalog: %w", err)
	}

	assets := make(map[string]models.AssetMetadata, len(f.Assets))
	for _, a := range f.Assets {
		if a.ID == "" {
			return nil, fmt.Errorf("asset catalog: entry missing id")
		}
		if _, dup := assets[a.ID]; dup {
			return nil, fmt.Errorf("asset catalog: duplicate id %q", a.ID)
		}
		assets[a.ID] = a
	}
	return &YAMLAssetCatalog{assets: assets}, nil
}

// Get returns metadata for id or ErrAssetNotFound.
func (c *YAMLAssetCatalog) Get(id string) (models.AssetMetadata, error) {
	a, ok := c.assets[id]
	if !ok {
		return models.AssetMetadata{}, fmt.Errorf("%w: %s", models.ErrAssetNotFound, id)
	}
	return a, nil
}

// All returns every asset, ordered by id.
func (c *YAMLAssetCatalog) All() []models.AssetMetadata {
	out := make([]models.AssetMetadata, 0, len(c.assets))
	for _, a := range c.assets {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

var _ drepo.AssetCatalog = (*YAMLAssetCatalog)(nil)
