package kb

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/rlnc-dashboard/model"
)

// Format names a dataset encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

//go:embed default_dataset.json
var defaultDataset []byte

// FormatFromPath guesses the encoding from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// DecodeDataset reads a dataset in the given format without validating it.
func DecodeDataset(r io.Reader, format Format) (*model.Dataset, error) {
	var ds model.Dataset
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&ds); err != nil {
			return nil, fmt.Errorf("decode yaml dataset: %w", err)
		}
	case FormatJSON, "":
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&ds); err != nil {
			return nil, fmt.Errorf("decode json dataset: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported dataset format %q", format)
	}
	return &ds, nil
}

// Load decodes and validates a dataset and returns a KnowledgeBase over it.
func Load(r io.Reader, format Format) (*KnowledgeBase, error) {
	ds, err := DecodeDataset(r, format)
	if err != nil {
		return nil, err
	}
	return NewKnowledgeBase(ds)
}

// LoadFile loads a dataset file, picking the format from its extension.
func LoadFile(path string) (*KnowledgeBase, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", path, err)
	}
	defer f.Close()

	store, err := Load(f, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("load dataset %s: %w", path, err)
	}
	return store, nil
}

// Default returns a KnowledgeBase over the compiled-in experiment results.
func Default() (*KnowledgeBase, error) {
	store, err := Load(bytes.NewReader(defaultDataset), FormatJSON)
	if err != nil {
		return nil, fmt.Errorf("load default dataset: %w", err)
	}
	return store, nil
}
