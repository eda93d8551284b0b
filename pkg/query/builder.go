package query

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// SortField is one ORDER BY term. Field is a view name resolved through the
// ProjectionMap.
type SortField struct {
	Field      string
	Descending bool
}

// ParseSortFields parses "Label,-ClassifiedAt" style sort strings. A leading
// "-" sorts descending. Empty input yields nil.
func ParseSortFields(s string) []SortField {
	if s == "" {
		return nil
	}

	var fields []SortField
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, desc := strings.CutPrefix(part, "-")
		fields = append(fields, SortField{Field: name, Descending: desc})
	}
	return fields
}

// condition is a WHERE term. Each "?" in clause is replaced by the next
// positional parameter when the query is rendered.
type condition struct {
	clause string
	args   []any
}

// Builder assembles SELECT statements over a ProjectionMap. Filters are
// AND-ed in the order they are added and nil filter values are skipped, so
// optional criteria can be chained without guards.
type Builder struct {
	projection  *ProjectionMap
	conditions  []condition
	orderBy     []SortField
	defaultSort []SortField
}

// NewBuilder creates a Builder ordered by defaultSort unless OrderByFields
// supplies an explicit order.
func NewBuilder(projection *ProjectionMap, defaultSort ...SortField) *Builder {
	return &Builder{projection: projection, defaultSort: defaultSort}
}

// Build returns the filtered, ordered SELECT.
func (b *Builder) Build() (string, []any) {
	where, args := b.where()
	return b.selectFrom() + where + b.order(), args
}

// BuildCount returns the COUNT(*) for the current filters.
func (b *Builder) BuildCount() (string, []any) {
	where, args := b.where()
	return "SELECT COUNT(*) FROM " + b.projection.From() + where, args
}

// BuildPage returns one page of the filtered, ordered SELECT. page is
// one-based.
func (b *Builder) BuildPage(page, pageSize int) (string, []any) {
	where, args := b.where()
	limit := fmt.Sprintf(" LIMIT %d OFFSET %d", pageSize, (page-1)*pageSize)
	return b.selectFrom() + where + b.order() + limit, args
}

// BuildSingle selects the row whose idField equals id. Filters and ordering
// are ignored.
func (b *Builder) BuildSingle(idField string, id any) (string, []any) {
	return b.selectFrom() + " WHERE " + b.projection.Column(idField) + " = $1", []any{id}
}

// OrderByFields replaces the default sort.
func (b *Builder) OrderByFields(fields []SortField) *Builder {
	b.orderBy = fields
	return b
}

// WhereEquals filters on field = value. Nil values and nil pointers are skipped.
func (b *Builder) WhereEquals(field string, value any) *Builder {
	if isNil(value) {
		return b
	}
	return b.add(b.projection.Column(field)+" = ?", value)
}

// WhereContains filters on a case-insensitive substring match. Nil and
// empty values are skipped.
func (b *Builder) WhereContains(field string, value *string) *Builder {
	if value == nil || *value == "" {
		return b
	}
	return b.add(b.projection.Column(field)+" ILIKE ?", "%"+*value+"%")
}

// WhereIn filters on field matching any of values. Empty slices are skipped.
func (b *Builder) WhereIn(field string, values []any) *Builder {
	if len(values) == 0 {
		return b
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
	return b.add(b.projection.Column(field)+" IN ("+marks+")", values...)
}

// WhereNull filters on field IS NULL when null is true and IS NOT NULL when
// it is false. A nil pointer is skipped.
func (b *Builder) WhereNull(field string, null *bool) *Builder {
	if null == nil {
		return b
	}
	op := " IS NOT NULL"
	if *null {
		op = " IS NULL"
	}
	return b.add(b.projection.Column(field) + op)
}

// WhereSearch matches search as a substring of any of fields. Nil and empty
// searches are skipped.
func (b *Builder) WhereSearch(search *string, fields ...string) *Builder {
	if search == nil || *search == "" || len(fields) == 0 {
		return b
	}

	clauses := make([]string, len(fields))
	args := make([]any, len(fields))
	for i, f := range fields {
		clauses[i] = b.projection.Column(f) + " ILIKE ?"
		args[i] = "%" + *search + "%"
	}
	return b.add("("+strings.Join(clauses, " OR ")+")", args...)
}

func (b *Builder) add(clause string, args ...any) *Builder {
	b.conditions = append(b.conditions, condition{clause: clause, args: args})
	return b
}

func (b *Builder) selectFrom() string {
	return "SELECT " + b.projection.Columns() + " FROM " + b.projection.From()
}

func (b *Builder) where() (string, []any) {
	if len(b.conditions) == 0 {
		return "", nil
	}

	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(" WHERE ")
	for i, c := range b.conditions {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		clause := c.clause
		for _, arg := range c.args {
			args = append(args, arg)
			clause = strings.Replace(clause, "?", "$"+strconv.Itoa(len(args)), 1)
		}
		sb.WriteString(clause)
	}
	return sb.String(), args
}

func (b *Builder) order() string {
	fields := b.orderBy
	if len(fields) == 0 {
		fields = b.defaultSort
	}
	if len(fields) == 0 {
		return ""
	}

	terms := make([]string, len(fields))
	for i, f := range fields {
		dir := "ASC"
		if f.Descending {
			dir = "DESC"
		}
		terms[i] = b.projection.Column(f.Field) + " " + dir
	}
	return " ORDER BY " + strings.Join(terms, ", ")
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	switch v := reflect.ValueOf(value); v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return v.IsNil()
	}
	return false
}
