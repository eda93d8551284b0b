// Package query renders the SELECT, COUNT and paged statements behind every
// listing endpoint. Callers name fields by their view names and a
// ProjectionMap resolves them to qualified columns.
package query

import "strings"

// ProjectionMap maps view names to alias-qualified columns across a base
// table and any joined tables. Columns render in projection order.
type ProjectionMap struct {
	from    []string
	alias   string
	columns map[string]string
	order   []string
}

// NewProjectionMap starts a projection over schema.table aliased as alias.
func NewProjectionMap(schema, table, alias string) *ProjectionMap {
	return &ProjectionMap{
		from:    []string{schema + "." + table + " " + alias},
		alias:   alias,
		columns: map[string]string{},
	}
}

// Project maps column of the most recently added table to viewName.
func (p *ProjectionMap) Project(column, viewName string) *ProjectionMap {
	qualified := p.alias + "." + column
	p.columns[viewName] = qualified
	p.order = append(p.order, qualified)
	return p
}

// Join appends "kind schema.table alias ON on", e.g. kind "LEFT JOIN".
// Later Project calls qualify with the joined alias.
func (p *ProjectionMap) Join(schema, table, alias, kind, on string) *ProjectionMap {
	p.from = append(p.from, kind+" "+schema+"."+table+" "+alias+" ON "+on)
	p.alias = alias
	return p
}

// Table returns the base table reference, "schema.table alias".
func (p *ProjectionMap) Table() string {
	return p.from[0]
}

// From returns the FROM clause body: the base table and its joins.
func (p *ProjectionMap) From() string {
	return strings.Join(p.from, " ")
}

// Column resolves a view name. Unmapped names are returned unchanged.
func (p *ProjectionMap) Column(viewName string) string {
	if col, ok := p.columns[viewName]; ok {
		return col
	}
	return viewName
}

// Columns returns the projected columns as a SELECT list.
func (p *ProjectionMap) Columns() string {
	return strings.Join(p.order, ", ")
}
