package file

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roadwatch/backend/internal/domain"
)

// CatalogDocument mirrors the YAML layout of a static hazard file.
type CatalogDocument struct {
	Zones []domain.HazardZone  `yaml:"zones"`
	Fixed []domain.FixedHazard `yaml:"fixed"`
	Stats struct {
		FatalityPercent *float64 `yaml:"fatality_percent"`
		Deaths          *int     `yaml:"deaths"`
		Accidents       *int     `yaml:"accidents"`
	} `yaml:"stats"`
}

// CatalogFile implements domain.HazardProvider from a YAML file. The file is
// read again on every call so edits show up on the next catalog reload.
type CatalogFile struct {
	path string
}

func NewCatalogFile(path string) *CatalogFile {
	return &CatalogFile{path: path}
}

// Parse decodes a hazard document.
func Parse(data []byte) (*CatalogDocument, error) {
	var doc CatalogDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("hazard file: failed to parse: %w", err)
	}
	return &doc, nil
}

func (f *CatalogFile) read(ctx context.Context) (*CatalogDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("hazard file: failed to read %s: %w", f.path, err)
	}
	return Parse(data)
}

func (f *CatalogFile) Zones(ctx context.Context) ([]domain.HazardZone, error) {
	doc, err := f.read(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Zones, nil
}

func (f *CatalogFile) FixedHazards(ctx context.Context) ([]domain.FixedHazard, error) {
	doc, err := f.read(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Fixed, nil
}

func (f *CatalogFile) FatalityPercent(ctx context.Context) (float64, error) {
	doc, err := f.read(ctx)
	if err != nil {
		return 0, err
	}
	if doc.Stats.FatalityPercent == nil {
		return 0, fmt.Errorf("hazard file: fatality_percent not set")
	}
	return *doc.Stats.FatalityPercent, nil
}

func (f *CatalogFile) DeathCount(ctx context.Context) (int, int, error) {
	doc, err := f.read(ctx)
	if err != nil {
		return 0, 0, err
	}
	if doc.Stats.Deaths == nil || doc.Stats.Accidents == nil {
		return 0, 0, fmt.Errorf("hazard file: deaths/accidents not set")
	}
	return *doc.Stats.Deaths, *doc.Stats.Accidents, nil
}
