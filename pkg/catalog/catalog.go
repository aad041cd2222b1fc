// Package catalog loads and validates quiz step catalogs.
//
// A catalog is an ordered list of steps read from YAML or JSON. The package embeds the
// default funnel so a binary works without any file on disk.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aretw0/funnel/pkg/domain"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Document is the on-disk shape of a catalog file.
type Document struct {
	Steps []domain.Step `json:"steps" yaml:"steps"`
}

var (
	defaultOnce    sync.Once
	defaultCatalog *domain.Catalog
	defaultErr     error
)

// Default returns the embedded catalog. It is parsed once and shared.
func Default() *domain.Catalog {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Parse(defaultYAML, FormatYAML)
	})
	if defaultErr != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", defaultErr))
	}
	return defaultCatalog
}

// Format identifies a catalog encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath guesses the encoding from a file extension. Anything that is not
// .json is read as YAML.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Load reads and validates a catalog file.
func Load(path string) (*domain.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data, FormatFromPath(path))
}

// Parse decodes a catalog document and validates it.
func Parse(data []byte, format Format) (*domain.Catalog, error) {
	var doc Document
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse catalog: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse catalog: %w", err)
		}
	}

	if err := Validate(doc.Steps); err != nil {
		return nil, err
	}
	return domain.NewCatalog(doc.Steps)
}

// Marshal encodes a catalog back into a document.
func Marshal(c *domain.Catalog, format Format) ([]byte, error) {
	doc := Document{Steps: c.Steps()}
	if format == FormatJSON {
		return json.MarshalIndent(doc, "", "  ")
	}
	return yaml.Marshal(doc)
}
