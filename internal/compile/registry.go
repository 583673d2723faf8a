package compile

import (
	"sort"

	"github.com/roach88/stratum/internal/expr"
)

// ColType enumerates the column types a stored relation may declare.
type ColType string

// Column types.
const (
	TypeAny    ColType = "Any"
	TypeBool   ColType = "Bool"
	TypeInt    ColType = "Int"
	TypeFloat  ColType = "Float"
	TypeString ColType = "String"
	TypeBytes  ColType = "Bytes"
	TypeUUID   ColType = "Uuid"
	TypeList   ColType = "List"
	TypeJSON   ColType = "Json"
)

// NullableColType is a column type plus nullability.
type NullableColType struct {
	Type     ColType `json:"type"`
	Nullable bool    `json:"nullable"`
}

// ColumnDef is the static schema of one stored-relation column.
type ColumnDef struct {
	Name       string          `json:"name"`
	Typing     NullableColType `json:"typing"`
	DefaultGen expr.Expr       `json:"-"`
}

// RelationHandle is the registry's metadata for one stored relation.
// Plan construction only consults Arity; column metadata is carried for
// the catalog and the evaluator.
type RelationHandle struct {
	ID      uint16
	Name    string
	Arity   int
	Keys    []ColumnDef
	NonKeys []ColumnDef
}

func (h *RelationHandle) clone() *RelationHandle {
	out := *h
	out.Keys = append([]ColumnDef(nil), h.Keys...)
	out.NonKeys = append([]ColumnDef(nil), h.NonKeys...)
	return &out
}

// CreateRelation registers a stored relation with the given arity and no
// column metadata. It fails with a name-conflict error if the name is
// already registered. IDs are assigned from a monotonically increasing
// counter scoped to this compiler.
func (c *Compiler) CreateRelation(name string, arity int) (*RelationHandle, error) {
	return c.CreateRelationWithSchema(name, arity, nil, nil)
}

// CreateRelationWithSchema registers a stored relation together with its
// key and non-key column definitions. When columns are given, arity must
// equal their total count.
func (c *Compiler) CreateRelationWithSchema(name string, arity int, keys, nonKeys []ColumnDef) (*RelationHandle, error) {
	if _, ok := c.relations[name]; ok {
		return nil, errRelNameConflict(name)
	}
	handle := &RelationHandle{
		ID:      c.nextRelID,
		Name:    name,
		Arity:   arity,
		Keys:    keys,
		NonKeys: nonKeys,
	}
	c.nextRelID++
	c.relations[name] = handle
	return handle.clone(), nil
}

// GetRelation returns a copy of the handle for the named relation, or a
// not-found error.
func (c *Compiler) GetRelation(name string) (*RelationHandle, error) {
	handle, ok := c.relations[name]
	if !ok {
		return nil, errStoredRelationNotFound(name)
	}
	return handle.clone(), nil
}

// RelationExists reports whether the named relation is registered.
func (c *Compiler) RelationExists(name string) bool {
	_, ok := c.relations[name]
	return ok
}

// ListRelations returns all registered handles ordered by name.
func (c *Compiler) ListRelations() []*RelationHandle {
	out := make([]*RelationHandle, 0, len(c.relations))
	for _, handle := range c.relations {
		out = append(out, handle.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// CreateOutputRelation registers the output relation a query asked to
// create. Unlike CreateRelation it reports the conflict with the
// store-relation-conflict code, matching the top-level query semantics.
func (c *Compiler) CreateOutputRelation(name string, arity int) error {
	if c.RelationExists(name) {
		return errStoreRelationConflict(name)
	}
	_, err := c.CreateRelation(name, arity)
	return err
}
