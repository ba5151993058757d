package storage

import (
	"fmt"
	"strings"

	"github.com/packing-audit/internal/types"
)

// ListOptions controls paging, sorting and free-text search of list queries
type ListOptions struct {
	Limit   int
	Offset  int
	SortBy  string
	SortDir types.SortDirection
	Search  string
}

// sortColumns maps public sort keys onto SQL expressions. Only keys in the
// table can reach ORDER BY.
type sortColumns struct {
	columns  map[string]string
	fallback string
	dir      types.SortDirection
}

// orderBy renders an ORDER BY clause with a stable id tiebreaker
func (s sortColumns) orderBy(key string, dir types.SortDirection, idColumn string) string {
	column, ok := s.columns[key]
	if !ok {
		column = s.columns[s.fallback]
	}
	if dir != types.SortAsc && dir != types.SortDesc {
		dir = s.dir
	}
	return fmt.Sprintf("ORDER BY %s %s, %s %s", column, dir.SQL(), idColumn, dir.SQL())
}

// Allows reports whether key is a sortable column
func (s sortColumns) Allows(key string) bool {
	_, ok := s.columns[key]
	return ok
}

// Sortable column tables per list endpoint.
var (
	PackingSortColumns = sortColumns{
		columns: map[string]string{
			"created_at": "pi.created_at",
			"barcode":    "pi.barcode",
			"status":     "pi.status",
			"start_time": "pi.start_time",
		},
		fallback: "created_at",
		dir:      types.SortDesc,
	}

	BatchJobSortColumns = sortColumns{
		columns: map[string]string{
			"started_at":    "bj.started_at",
			"status":        "bj.status",
			"total_items":   "bj.total_items",
			"success_items": "bj.success_items",
			"failed_items":  "bj.failed_items",
		},
		fallback: "started_at",
		dir:      types.SortDesc,
	}

	ClipSortColumns = sortColumns{
		columns: map[string]string{
			"generated_at": "mc.generated_at",
			"barcode":      "pi.barcode",
		},
		fallback: "generated_at",
		dir:      types.SortDesc,
	}

	UserSortColumns = sortColumns{
		columns: map[string]string{
			"name":       "u.name",
			"email":      "u.email",
			"created_at": "u.created_at",
		},
		fallback: "created_at",
		dir:      types.SortDesc,
	}

	CameraSortColumns = sortColumns{
		columns: map[string]string{
			"name":       "c.name",
			"created_at": "c.created_at",
		},
		fallback: "created_at",
		dir:      types.SortDesc,
	}

	WorkstationSortColumns = sortColumns{
		columns: map[string]string{
			"name":       "w.name",
			"created_at": "w.created_at",
		},
		fallback: "created_at",
		dir:      types.SortDesc,
	}
)

// whereBuilder accumulates positional predicates
type whereBuilder struct {
	clauses []string
	args    []any
}

// add appends a predicate whose single placeholder is written as ?
func (w *whereBuilder) add(clause string, arg any) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, strings.ReplaceAll(clause, "?", fmt.Sprintf("$%d", len(w.args))))
}

// search appends an ILIKE match over any of the columns
func (w *whereBuilder) search(term string, columns ...string) {
	if term == "" || len(columns) == 0 {
		return
	}
	w.args = append(w.args, "%"+escapeLike(term)+"%")
	placeholder := fmt.Sprintf("$%d", len(w.args))

	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = fmt.Sprintf("%s ILIKE %s", col, placeholder)
	}
	w.clauses = append(w.clauses, "("+strings.Join(parts, " OR ")+")")
}

func (w *whereBuilder) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.clauses, " AND ")
}

// page appends LIMIT and OFFSET placeholders and returns the clause
func (w *whereBuilder) page(opts ListOptions) (string, []any) {
	args := append([]any{}, w.args...)
	args = append(args, opts.Limit, opts.Offset)
	return fmt.Sprintf("LIMIT $%d OFFSET $%d", len(args)-1, len(args)), args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
