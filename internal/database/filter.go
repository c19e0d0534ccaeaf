// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package database

import (
	"fmt"
	"regexp"
	"strings"
)

// FilterOp is the comparison a Filter applies.
type FilterOp int

const (
	// OpEq matches column = value.
	OpEq FilterOp = iota
	// OpIn matches column IN (values...). A single value degrades to OpEq.
	OpIn
	// OpLike matches a case-insensitive substring.
	OpLike
	// OpIsNull matches column IS NULL.
	OpIsNull
)

func (op FilterOp) String() string {
	switch op {
	case OpEq:
		return "eq"
	case OpIn:
		return "in"
	case OpLike:
		return "like"
	case OpIsNull:
		return "is_null"
	default:
		return fmt.Sprintf("FilterOp(%d)", int(op))
	}
}

// Filter is one WHERE condition. Build filters with Eq, In, Like and IsNull;
// values are always bound as parameters.
type Filter struct {
	Column string
	Op     FilterOp
	Values []any
}

// Eq matches rows where column equals value.
func Eq(column string, value any) Filter {
	return Filter{Column: column, Op: OpEq, Values: []any{value}}
}

// In matches rows where column is one of values.
func In[T any](column string, values ...T) Filter {
	vals := make([]any, len(values))
	for i, v := range values {
		vals[i] = v
	}
	return Filter{Column: column, Op: OpIn, Values: vals}
}

// Like matches rows where lower(column) contains lower(substr).
func Like(column, substr string) Filter {
	return Filter{Column: column, Op: OpLike, Values: []any{substr}}
}

// IsNull matches rows where column is NULL.
func IsNull(column string) Filter {
	return Filter{Column: column, Op: OpIsNull}
}

// identifierPattern accepts optionally table-qualified snake_case identifiers.
var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*(\.[a-z_][a-z0-9_]*)?$`)

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// buildWhere renders filters as a WHERE clause (including the keyword) joined
// with AND. It returns an empty clause for no filters.
func buildWhere(filters []Filter) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}

	conditions := make([]string, 0, len(filters))
	var args []any

	for _, f := range filters {
		if !identifierPattern.MatchString(f.Column) {
			return "", nil, &ColumnError{Column: f.Column, Reason: "not a valid identifier"}
		}

		switch f.Op {
		case OpEq:
			if len(f.Values) != 1 {
				return "", nil, fmt.Errorf("filter %s on %s needs exactly one value", f.Op, f.Column)
			}
			conditions = append(conditions, f.Column+" = ?")
			args = append(args, f.Values[0])

		case OpIn:
			switch len(f.Values) {
			case 0:
				// An empty set matches nothing.
				conditions = append(conditions, "FALSE")
			case 1:
				conditions = append(conditions, f.Column+" = ?")
				args = append(args, f.Values[0])
			default:
				placeholders := strings.TrimSuffix(strings.Repeat("?,", len(f.Values)), ",")
				conditions = append(conditions, fmt.Sprintf("%s IN (%s)", f.Column, placeholders))
				args = append(args, f.Values...)
			}

		case OpLike:
			if len(f.Values) != 1 {
				return "", nil, fmt.Errorf("filter %s on %s needs exactly one value", f.Op, f.Column)
			}
			s, ok := f.Values[0].(string)
			if !ok {
				return "", nil, fmt.Errorf("filter %s on %s needs a string value", f.Op, f.Column)
			}
			conditions = append(conditions, fmt.Sprintf(`lower(%s) LIKE ? ESCAPE '\'`, f.Column))
			args = append(args, "%"+escapeLike(strings.ToLower(s))+"%")

		case OpIsNull:
			conditions = append(conditions, f.Column+" IS NULL")

		default:
			return "", nil, fmt.Errorf("unsupported filter operation %s", f.Op)
		}
	}

	return "WHERE " + strings.Join(conditions, " AND "), args, nil
}
