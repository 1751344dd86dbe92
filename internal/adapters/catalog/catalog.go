// Package catalog serves the production line catalog and rate table from a
// TOML file.
//
// The file lists one table per line, keyed by line ID:
//
//	[lines.L04]
//	name = "Line 4 (RXT1)"
//
//	[lines.L04.rates]
//	REF1 = 5.0   # seconds per unit
//	REF2 = 7.5
//
// The references of a line are the keys of its rate table.
package catalog

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/example/prodtrack/internal/ports/secondary"
)

// LineConfig is one [lines.<id>] table.
type LineConfig struct {
	Name  string             `toml:"name"`
	Rates map[string]float64 `toml:"rates"`
}

// File is the decoded catalog file.
type File struct {
	Lines map[string]LineConfig `toml:"lines"`
}

// Catalog implements secondary.CatalogProvider and secondary.RateProvider.
// It is read-only after construction and safe for concurrent use.
type Catalog struct {
	lines map[string]LineConfig
}

// Load reads and validates a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates catalog TOML.
func Parse(data []byte) (*Catalog, error) {
	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return New(f)
}

// New builds a catalog from decoded configuration. Line IDs and references
// are trimmed; rates must be positive.
func New(f File) (*Catalog, error) {
	lines := make(map[string]LineConfig, len(f.Lines))
	for id, line := range f.Lines {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("catalog: empty line id")
		}
		rates := make(map[string]float64, len(line.Rates))
		for ref, rate := range line.Rates {
			ref = strings.TrimSpace(ref)
			if rate <= 0 {
				return nil, fmt.Errorf("catalog: line %s reference %s: rate must be positive, got %v", id, ref, rate)
			}
			rates[ref] = rate
		}
		name := strings.TrimSpace(line.Name)
		if name == "" {
			name = id
		}
		lines[id] = LineConfig{Name: name, Rates: rates}
	}
	return &Catalog{lines: lines}, nil
}

// Empty returns a catalog with no lines.
func Empty() *Catalog {
	return &Catalog{lines: map[string]LineConfig{}}
}

// LineExists reports whether the line is registered.
func (c *Catalog) LineExists(_ context.Context, lineID string) (bool, error) {
	_, ok := c.lines[lineID]
	return ok, nil
}

// ListLines returns all registered lines sorted by ID.
func (c *Catalog) ListLines(_ context.Context) ([]*secondary.LineRecord, error) {
	ids := make([]string, 0, len(c.lines))
	for id := range c.lines {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	records := make([]*secondary.LineRecord, 0, len(ids))
	for _, id := range ids {
		line := c.lines[id]
		refs := make([]string, 0, len(line.Rates))
		for ref := range line.Rates {
			refs = append(refs, ref)
		}
		sort.Strings(refs)
		records = append(records, &secondary.LineRecord{ID: id, Name: line.Name, References: refs})
	}
	return records, nil
}

// LookupRate returns the seconds per unit of reference on line.
func (c *Catalog) LookupRate(_ context.Context, lineID, reference string) (float64, bool, error) {
	line, ok := c.lines[lineID]
	if !ok {
		return 0, false, nil
	}
	rate, ok := line.Rates[reference]
	return rate, ok, nil
}

// Ensure Catalog implements the interfaces
var (
	_ secondary.CatalogProvider = (*Catalog)(nil)
	_ secondary.RateProvider    = (*Catalog)(nil)
)
