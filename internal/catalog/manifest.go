package catalog

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/stratum/internal/compile"
)

// Manifest is a YAML document declaring stored relations and their
// column schemas, used to seed a catalog or a compiler session.
type Manifest struct {
	Relations []RelationDef `yaml:"relations"`
}

// RelationDef declares one stored relation. Keys and Values together
// determine the relation's arity.
type RelationDef struct {
	Name   string       `yaml:"name"`
	Keys   []ColumnSpec `yaml:"keys"`
	Values []ColumnSpec `yaml:"values"`
}

// ColumnSpec is one column declaration. Type defaults to Any.
type ColumnSpec struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Nullable bool   `yaml:"nullable"`
}

var knownTypes = map[compile.ColType]bool{
	compile.TypeAny:    true,
	compile.TypeBool:   true,
	compile.TypeInt:    true,
	compile.TypeFloat:  true,
	compile.TypeString: true,
	compile.TypeBytes:  true,
	compile.TypeUUID:   true,
	compile.TypeList:   true,
	compile.TypeJSON:   true,
}

// LoadManifest reads and validates a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	seen := make(map[string]bool, len(m.Relations))
	for _, rel := range m.Relations {
		if rel.Name == "" {
			return fmt.Errorf("manifest relation with empty name")
		}
		if seen[rel.Name] {
			return fmt.Errorf("manifest declares relation %q twice", rel.Name)
		}
		seen[rel.Name] = true
		if len(rel.Keys) == 0 {
			return fmt.Errorf("relation %q declares no key columns", rel.Name)
		}
		for _, col := range append(append([]ColumnSpec{}, rel.Keys...), rel.Values...) {
			if col.Name == "" {
				return fmt.Errorf("relation %q has a column with empty name", rel.Name)
			}
			if col.Type != "" && !knownTypes[compile.ColType(col.Type)] {
				return fmt.Errorf("relation %q column %q has unknown type %q", rel.Name, col.Name, col.Type)
			}
		}
	}
	return nil
}

// Arity returns the total column count of the relation.
func (r RelationDef) Arity() int {
	return len(r.Keys) + len(r.Values)
}

func (r RelationDef) columns() (keys, nonKeys []compile.ColumnDef) {
	return columnDefs(r.Keys), columnDefs(r.Values)
}

func columnDefs(specs []ColumnSpec) []compile.ColumnDef {
	out := make([]compile.ColumnDef, len(specs))
	for i, spec := range specs {
		typ := compile.ColType(spec.Type)
		if spec.Type == "" {
			typ = compile.TypeAny
		}
		out[i] = compile.ColumnDef{
			Name:   spec.Name,
			Typing: compile.NullableColType{Type: typ, Nullable: spec.Nullable},
		}
	}
	return out
}

// Declare registers every manifest relation with the compiler.
func (m *Manifest) Declare(comp *compile.Compiler) error {
	for _, rel := range m.Relations {
		keys, nonKeys := rel.columns()
		if _, err := comp.CreateRelationWithSchema(rel.Name, rel.Arity(), keys, nonKeys); err != nil {
			return err
		}
	}
	return nil
}

// Store persists every manifest relation into the catalog.
func (m *Manifest) Store(ctx context.Context, cat *Catalog) error {
	for _, rel := range m.Relations {
		keys, nonKeys := rel.columns()
		if _, err := cat.PutRelation(ctx, rel.Name, rel.Arity(), keys, nonKeys); err != nil {
			return err
		}
	}
	return nil
}
