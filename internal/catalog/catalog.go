// Package catalog loads the visible part of a PostgreSQL catalog into an
// immutable in-memory snapshot: schemas, tables, columns and constraints.
//
// A *Catalog is never modified after Load returns, so it can be shared by
// any number of goroutines. Use Store to swap snapshots on reload.
package catalog

import (
	"strings"

	"github.com/koustreak/mngr/internal/errs"
)

// Catalog is one loaded snapshot.
type Catalog struct {
	schemas []*Schema

	byOID       map[uint32]*Table
	byQualified map[string]*Table
	byName      map[string]*Table
	ambiguous   map[string][]string // unqualified name -> qualified names
}

// New builds a snapshot from schemas. Load is the usual way to get one;
// New serves callers that assemble metadata themselves. The tables must not
// be modified afterwards.
func New(schemas []*Schema) *Catalog {
	c := &Catalog{
		schemas:     schemas,
		byOID:       make(map[uint32]*Table),
		byQualified: make(map[string]*Table),
		byName:      make(map[string]*Table),
		ambiguous:   make(map[string][]string),
	}

	for _, s := range schemas {
		for _, t := range s.Tables {
			if t.byName == nil {
				t.index()
			}
			c.byOID[t.OID] = t
			c.byQualified[t.QualifiedName()] = t

			if prev, dup := c.byName[t.Name]; dup {
				if len(c.ambiguous[t.Name]) == 0 {
					c.ambiguous[t.Name] = []string{prev.QualifiedName()}
				}
				c.ambiguous[t.Name] = append(c.ambiguous[t.Name], t.QualifiedName())
				continue
			}
			c.byName[t.Name] = t
		}
	}
	for name := range c.ambiguous {
		delete(c.byName, name)
	}

	return c
}

// Schemas returns the visible schemas ordered by name.
func (c *Catalog) Schemas() []*Schema {
	return c.schemas
}

// Tables returns every visible table, schema by schema.
func (c *Catalog) Tables() []*Table {
	var out []*Table
	for _, s := range c.schemas {
		out = append(out, s.Tables...)
	}
	return out
}

// Len returns the number of visible tables.
func (c *Catalog) Len() int {
	return len(c.byOID)
}

// TableByOID resolves a table by its catalog object id.
func (c *Catalog) TableByOID(oid uint32) (*Table, error) {
	t, ok := c.byOID[oid]
	if !ok {
		return nil, errs.Newf(errs.ErrKindNotFound, "table with oid %d not found", oid)
	}
	return t, nil
}

// Table resolves "schema.table" or a bare table name. A bare name that
// exists in more than one visible schema is a configuration error.
func (c *Catalog) Table(name string) (*Table, error) {
	if strings.Contains(name, ".") {
		if t, ok := c.byQualified[name]; ok {
			return t, nil
		}
		// a bare name may itself contain a dot
	}

	if candidates, ok := c.ambiguous[name]; ok {
		return nil, errs.Newf(errs.ErrKindConfiguration,
			"table name %q is ambiguous, qualify it with one of: %s", name, strings.Join(candidates, ", "))
	}
	if t, ok := c.byName[name]; ok {
		return t, nil
	}
	return nil, errs.Newf(errs.ErrKindNotFound, "table %q not found", name)
}

// Ambiguous returns the bare table names shared by more than one schema.
func (c *Catalog) Ambiguous() map[string][]string {
	return c.ambiguous
}
