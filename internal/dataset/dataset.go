// Package dataset loads the HOGE reference dataset and holds the current one
// for concurrent readers.
package dataset

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"time"

	"sigs.k8s.io/yaml"

	"github.com/Paulumo/System-Remaster-sub001/internal/perf"
)

//go:embed hoge.yaml
var defaultYAML []byte

// DefaultSource names the embedded dataset in Loaded.Source.
const DefaultSource = "embedded:hoge.yaml"

// Loaded is a validated dataset ready for queries.
type Loaded struct {
	Dataset  perf.Dataset
	Family   *perf.CurveFamily
	Wind     *perf.WindFamily
	Source   string
	LoadedAt time.Time
}

// Parse decodes a YAML or JSON dataset. Unknown fields are rejected.
func Parse(r io.Reader) (perf.Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return perf.Dataset{}, fmt.Errorf("reading dataset: %w", err)
	}
	var ds perf.Dataset
	if err := yaml.UnmarshalStrict(data, &ds); err != nil {
		return perf.Dataset{}, fmt.Errorf("decoding dataset: %w", err)
	}
	return ds, nil
}

// Build validates ds and builds its curve families.
func Build(ds perf.Dataset, source string) (*Loaded, error) {
	family, wind, err := perf.Load(ds)
	if err != nil {
		return nil, err
	}
	return &Loaded{
		Dataset:  ds,
		Family:   family,
		Wind:     wind,
		Source:   source,
		LoadedAt: time.Now().UTC(),
	}, nil
}

// Default returns the embedded reference dataset.
func Default() (*Loaded, error) {
	ds, err := Parse(bytes.NewReader(defaultYAML))
	if err != nil {
		return nil, fmt.Errorf("embedded dataset: %w", err)
	}
	return Build(ds, DefaultSource)
}

// LoadFile reads and validates a dataset file.
func LoadFile(path string) (*Loaded, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()

	ds, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return Build(ds, path)
}
