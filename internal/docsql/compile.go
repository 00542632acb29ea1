// Package docsql compiles document predicates and aggregate calls into
// parameterized SQL for SQLite's JSON1 functions.
//
// This package is the injection-safety boundary for dynamic queries:
//   - JSON field names and comparison values are ALWAYS bound as
//     parameters (never interpolated into SQL text).
//   - Comparison operators and aggregate functions come only from fixed
//     allow-lists.
//   - Table and index identifiers are validated once, at store
//     construction, via ValidIdent.
//
// The one escape hatch is the raw WHERE clause on aggregates, which is
// interpolated verbatim. Callers own its safety; prefer structured
// predicates.
package docsql

import (
	"fmt"
	"strings"
)

// extractExpr pulls a JSON field out of the data column. The field name is
// bound as a parameter, so it never appears in the SQL text.
const extractExpr = "json_extract(data, '$.' || ?)"

// Op is a comparison operator for a structured predicate.
type Op string

// Allowed comparison operators. Anything else is rejected before a query
// is built.
const (
	OpEq Op = "="
	OpNe Op = "!="
	OpLt Op = "<"
	OpGt Op = ">"
	OpLe Op = "<="
	OpGe Op = ">="
)

var validOps = map[Op]bool{
	OpEq: true,
	OpNe: true,
	OpLt: true,
	OpGt: true,
	OpLe: true,
	OpGe: true,
}

// Predicate is one (field, operator, value) constraint over a JSON field.
// Multiple predicates are ANDed together.
type Predicate struct {
	Field string
	Op    Op
	Value any
}

// Eq builds the common single-equality predicate.
func Eq(field string, value any) Predicate {
	return Predicate{Field: field, Op: OpEq, Value: value}
}

// AggregateOp is an aggregate function name from the fixed allow-list.
type AggregateOp string

// Allowed aggregate functions.
const (
	AggCount AggregateOp = "COUNT"
	AggSum   AggregateOp = "SUM"
	AggAvg   AggregateOp = "AVG"
	AggMin   AggregateOp = "MIN"
	AggMax   AggregateOp = "MAX"
)

var validAggregates = map[AggregateOp]bool{
	AggCount: true,
	AggSum:   true,
	AggAvg:   true,
	AggMin:   true,
	AggMax:   true,
}

// ValidationError reports a malformed query request: a disallowed
// operator or aggregate function, an empty field, an empty predicate set,
// or structured and raw predicates supplied together. It is always
// returned before any SQL is executed.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "invalid query: " + e.Message
}

func validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ValidIdent reports whether name is usable as a table or index
// identifier: ASCII letters, digits and underscores, not starting with a
// digit. Identifiers are the only strings docstore interpolates into SQL,
// so they are locked down at construction time.
func ValidIdent(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// compileWhere renders predicates as an ANDed WHERE clause with one
// (field, value) parameter pair per predicate.
func compileWhere(preds []Predicate) (string, []any, error) {
	conds := make([]string, 0, len(preds))
	params := make([]any, 0, len(preds)*2)
	for _, p := range preds {
		if p.Field == "" {
			return "", nil, validationf("predicate field cannot be empty")
		}
		if !validOps[p.Op] {
			return "", nil, validationf("disallowed comparison operator %q", string(p.Op))
		}
		conds = append(conds, fmt.Sprintf("%s %s ?", extractExpr, p.Op))
		params = append(params, p.Field, p.Value)
	}
	return " WHERE " + strings.Join(conds, " AND "), params, nil
}

// CompileSearch builds a parameterized SELECT over the document table for
// one or more ANDed predicates. The table name must already be validated
// by the caller. An empty predicate set is a ValidationError: an
// unconstrained scan must be asked for explicitly, not fallen into.
func CompileSearch(table string, preds []Predicate) (string, []any, error) {
	if len(preds) == 0 {
		return "", nil, validationf("search requires at least one predicate")
	}
	where, params, err := compileWhere(preds)
	if err != nil {
		return "", nil, err
	}
	query := fmt.Sprintf("SELECT id, data FROM %s%s", table, where)
	return query, params, nil
}

// CompileAggregate builds a parameterized aggregate query over a JSON
// field. Structured predicates and a raw WHERE clause are mutually
// exclusive; supplying both is a ValidationError. The raw clause is
// interpolated verbatim and is the caller's responsibility.
func CompileAggregate(table string, op AggregateOp, field string, preds []Predicate, rawWhere string) (string, []any, error) {
	op = AggregateOp(strings.ToUpper(string(op)))
	if !validAggregates[op] {
		return "", nil, validationf("invalid aggregate function %q", string(op))
	}
	if field == "" {
		return "", nil, validationf("aggregate field cannot be empty")
	}
	if rawWhere != "" && len(preds) > 0 {
		return "", nil, validationf("specify either structured predicates or a raw WHERE clause, not both")
	}

	query := fmt.Sprintf("SELECT %s(%s) FROM %s", op, extractExpr, table)
	params := []any{field}

	switch {
	case rawWhere != "":
		query += " WHERE " + rawWhere
	case len(preds) > 0:
		where, whereParams, err := compileWhere(preds)
		if err != nil {
			return "", nil, err
		}
		query += where
		params = append(params, whereParams...)
	}
	return query, params, nil
}
