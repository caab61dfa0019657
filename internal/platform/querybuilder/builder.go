// Package querybuilder assembles the small set of Postgres statements the
// repositories need: positional-placeholder SELECTs and INSERTs with an
// optional raw suffix for ON CONFLICT clauses.
package querybuilder

import (
	"fmt"
	"strconv"
	"strings"
)

// argList collects bound values and hands out $n placeholders in order.
type argList struct {
	values []any
}

func (a *argList) bind(value any) string {
	a.values = append(a.values, value)
	return "$" + strconv.Itoa(len(a.values))
}

type Condition interface {
	render(args *argList) string
}

type eqCondition struct {
	column string
	value  any
}

func Eq(column string, value any) Condition {
	return eqCondition{column: column, value: value}
}

func (c eqCondition) render(args *argList) string {
	return c.column + " = " + args.bind(c.value)
}

type inCondition struct {
	column string
	values []any
}

func In(column string, values []any) Condition {
	return inCondition{column: column, values: values}
}

func (c inCondition) render(args *argList) string {
	if len(c.values) == 0 {
		// An empty IN list matches nothing.
		return "1=0"
	}
	placeholders := make([]string, 0, len(c.values))
	for _, v := range c.values {
		placeholders = append(placeholders, args.bind(v))
	}
	return c.column + " IN (" + strings.Join(placeholders, ", ") + ")"
}

type exprCondition struct {
	expr string
	args []any
}

// Expr embeds a raw fragment, rewriting each ? to the next placeholder.
func Expr(expr string, exprArgs ...any) Condition {
	return exprCondition{expr: expr, args: exprArgs}
}

func (c exprCondition) render(args *argList) string {
	if len(c.args) == 0 {
		return c.expr
	}
	var out strings.Builder
	next := 0
	for i := 0; i < len(c.expr); i++ {
		if c.expr[i] == '?' && next < len(c.args) {
			out.WriteString(args.bind(c.args[next]))
			next++
			continue
		}
		out.WriteByte(c.expr[i])
	}
	return out.String()
}

type SelectBuilder struct {
	columns []string
	table   string
	where   []Condition
	orderBy []string
	limit   int
}

func Select(columns ...string) *SelectBuilder {
	return &SelectBuilder{columns: append([]string(nil), columns...)}
}

func (b *SelectBuilder) From(table string) *SelectBuilder {
	b.table = table
	return b
}

// Where appends conditions; multiple conditions are joined with AND.
func (b *SelectBuilder) Where(conditions ...Condition) *SelectBuilder {
	b.where = append(b.where, conditions...)
	return b
}

func (b *SelectBuilder) OrderBy(parts ...string) *SelectBuilder {
	b.orderBy = append(b.orderBy, parts...)
	return b
}

func (b *SelectBuilder) Limit(limit int) *SelectBuilder {
	b.limit = limit
	return b
}

func (b *SelectBuilder) ToSQL() (string, []any, error) {
	if len(b.columns) == 0 {
		return "", nil, fmt.Errorf("select columns are required")
	}
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("select table is required")
	}

	var args argList
	parts := []string{"SELECT " + strings.Join(b.columns, ", ") + " FROM " + b.table}
	if clause := renderWhere(b.where, &args); clause != "" {
		parts = append(parts, clause)
	}
	if len(b.orderBy) > 0 {
		parts = append(parts, "ORDER BY "+strings.Join(b.orderBy, ", "))
	}
	if b.limit > 0 {
		parts = append(parts, "LIMIT "+strconv.Itoa(b.limit))
	}

	return strings.Join(parts, " "), args.values, nil
}

type InsertBuilder struct {
	table   string
	columns []string
	rows    [][]any
	suffix  string
}

func InsertInto(table string) *InsertBuilder {
	return &InsertBuilder{table: table}
}

func (b *InsertBuilder) Columns(columns ...string) *InsertBuilder {
	b.columns = append([]string(nil), columns...)
	return b
}

func (b *InsertBuilder) Values(values ...any) *InsertBuilder {
	b.rows = append(b.rows, append([]any(nil), values...))
	return b
}

// Suffix appends raw SQL after the VALUES list, typically an ON CONFLICT
// clause.
func (b *InsertBuilder) Suffix(sql string) *InsertBuilder {
	b.suffix = strings.TrimSpace(sql)
	return b
}

func (b *InsertBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("insert table is required")
	}
	if len(b.columns) == 0 {
		return "", nil, fmt.Errorf("insert columns are required")
	}
	if len(b.rows) == 0 {
		return "", nil, fmt.Errorf("insert values are required")
	}

	var args argList
	rows := make([]string, 0, len(b.rows))
	for rowIdx, row := range b.rows {
		if len(row) != len(b.columns) {
			return "", nil, fmt.Errorf("insert row %d has %d values, expected %d", rowIdx, len(row), len(b.columns))
		}
		placeholders := make([]string, 0, len(row))
		for _, value := range row {
			placeholders = append(placeholders, args.bind(value))
		}
		rows = append(rows, "("+strings.Join(placeholders, ", ")+")")
	}

	sql := "INSERT INTO " + b.table +
		" (" + strings.Join(b.columns, ", ") + ") VALUES " + strings.Join(rows, ", ")
	if b.suffix != "" {
		sql += " " + b.suffix
	}
	return sql, args.values, nil
}

func renderWhere(conditions []Condition, args *argList) string {
	if len(conditions) == 0 {
		return ""
	}
	rendered := make([]string, 0, len(conditions))
	for _, c := range conditions {
		rendered = append(rendered, c.render(args))
	}
	return "WHERE " + strings.Join(rendered, " AND ")
}
