// Package reference loads the curated reference data the ingestion pipeline
// matches against: header aliases for every variable and the mapping from
// raw identifiers to product keys.
package reference

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Veraticus/foundry-forecast/internal/ingest"
)

// ErrConflict is returned when reference data maps one key two ways.
var ErrConflict = errors.New("conflicting reference entry")

// File is the on-disk shape of a reference file.
//
//	aliases:
//	  Basis: [sku, item number]
//	  Date: [date, week ending, $yyyy-mm-dd]
//	  Units Sold: [units sold, unitssold]
//	products:
//	  WIDGET-1: [ABC123, ABC124]
type File struct {
	Aliases  map[string][]string `yaml:"aliases"`
	Products map[string][]string `yaml:"products"`
}

// Reference answers alias and product lookups.
type Reference struct {
	aliases   map[string]string
	products  map[string]string
	templates []string
	variables []string
}

// Load reads a reference file.
func Load(path string) (*Reference, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to open reference file: %w", err)
	}
	defer func() { _ = f.Close() }()

	ref, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("reference file %s: %w", path, err)
	}
	return ref, nil
}

// Parse decodes reference YAML.
func Parse(r io.Reader) (*Reference, error) {
	var file File
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode reference data: %w", err)
	}
	return New(file)
}

// New builds a Reference from decoded data. Alias text is matched case
// insensitively; date templates are the $-prefixed aliases of Date.
func New(file File) (*Reference, error) {
	ref := &Reference{
		aliases:  make(map[string]string),
		products: make(map[string]string),
	}

	canonicals := make([]string, 0, len(file.Aliases))
	for canonical := range file.Aliases {
		canonicals = append(canonicals, canonical)
	}
	sort.Strings(canonicals)

	for _, canonical := range canonicals {
		name := strings.TrimSpace(canonical)
		switch name {
		case ingest.BasisName, ingest.DateName, ingest.IgnoreName, ingest.MissingName:
		default:
			ref.variables = append(ref.variables, name)
		}

		// A canonical name always matches itself.
		if err := ref.addAlias(name, name); err != nil {
			return nil, err
		}
		for _, alias := range file.Aliases[canonical] {
			alias = strings.TrimSpace(alias)
			if strings.HasPrefix(alias, ingest.TemplatePrefix) {
				if name == ingest.DateName {
					ref.templates = append(ref.templates, alias)
				}
				continue
			}
			if err := ref.addAlias(alias, name); err != nil {
				return nil, err
			}
		}
	}

	for product, raws := range file.Products {
		product = strings.TrimSpace(product)
		if err := ref.addProduct(product, product); err != nil {
			return nil, err
		}
		for _, raw := range raws {
			if err := ref.addProduct(strings.TrimSpace(raw), product); err != nil {
				return nil, err
			}
		}
	}

	return ref, nil
}

func (r *Reference) addAlias(alias, canonical string) error {
	key := strings.ToLower(alias)
	if key == "" {
		return nil
	}
	if existing, ok := r.aliases[key]; ok && existing != canonical {
		return fmt.Errorf("%w: alias %q maps to both %q and %q", ErrConflict, alias, existing, canonical)
	}
	r.aliases[key] = canonical
	return nil
}

func (r *Reference) addProduct(raw, product string) error {
	if raw == "" {
		return nil
	}
	if existing, ok := r.products[raw]; ok && existing != product {
		return fmt.Errorf("%w: identifier %q maps to both %q and %q", ErrConflict, raw, existing, product)
	}
	r.products[raw] = product
	return nil
}

// LookupAlias implements ingest.AliasLookup.
func (r *Reference) LookupAlias(alias string) (string, bool) {
	canonical, ok := r.aliases[strings.ToLower(alias)]
	return canonical, ok
}

// LookupProduct implements ingest.ProductLookup.
func (r *Reference) LookupProduct(raw string) (string, bool) {
	product, ok := r.products[strings.TrimSpace(raw)]
	return product, ok
}

// DateTemplates returns the configured date templates in file order, each
// with its $ prefix.
func (r *Reference) DateTemplates() []string {
	return append([]string(nil), r.templates...)
}

// Variables lists the canonical variable names, sorted.
func (r *Reference) Variables() []string {
	return append([]string(nil), r.variables...)
}

// WithResolved returns a product lookup that also honors identifiers linked
// by hand after they were first seen.
func (r *Reference) WithResolved(resolved map[string]string) ingest.ProductLookup {
	return chain{r, mapLookup(resolved)}
}

type mapLookup map[string]string

func (m mapLookup) LookupProduct(raw string) (string, bool) {
	product, ok := m[strings.TrimSpace(raw)]
	return product, ok
}

type chain []ingest.ProductLookup

func (c chain) LookupProduct(raw string) (string, bool) {
	for _, l := range c {
		if product, ok := l.LookupProduct(raw); ok {
			return product, true
		}
	}
	return "", false
}

var (
	_ ingest.AliasLookup   = (*Reference)(nil)
	_ ingest.ProductLookup = (*Reference)(nil)
)
