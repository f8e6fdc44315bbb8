// Package table holds the in-memory tabular model shared by the loader,
// the filters and the exporters.
package table

import (
	"errors"
	"fmt"
	"sort"
)

var ErrColumnNotFound = errors.New("column not found")

// Table is an ordered set of named columns and string rows.
// Every row has exactly len(Columns) cells.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// New builds a table, padding short rows with empty cells and truncating
// long ones so that every row matches the header width.
func New(columns []string, rows [][]string) *Table {
	t := &Table{
		Columns: append([]string(nil), columns...),
		Rows:    make([][]string, 0, len(rows)),
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, t.normalize(r))
	}
	return t
}

func (t *Table) normalize(row []string) []string {
	out := make([]string, len(t.Columns))
	copy(out, row)
	return out
}

// Shape returns (rows, columns).
func (t *Table) Shape() (int, int) {
	return len(t.Rows), len(t.Columns)
}

// ColumnIndex returns the position of the named column.
func (t *Table) ColumnIndex(name string) (int, error) {
	for i, c := range t.Columns {
		if c == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
}

// Column returns every value of the named column in row order.
func (t *Table) Column(name string) ([]string, error) {
	idx, err := t.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	values := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		values[i] = r[idx]
	}
	return values, nil
}

// Unique returns the sorted distinct values of the named column.
func (t *Table) Unique(name string) ([]string, error) {
	values, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(values))
	unique := make([]string, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		unique = append(unique, v)
	}
	sort.Strings(unique)
	return unique, nil
}

// Head returns a copy holding at most the first n rows.
func (t *Table) Head(n int) *Table {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	if n < 0 {
		n = 0
	}
	return New(t.Columns, t.Rows[:n])
}

// Where returns a copy holding the rows for which keep returns true.
// Row order is preserved.
func (t *Table) Where(keep func(row []string) bool) *Table {
	out := &Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([][]string, 0),
	}
	for _, r := range t.Rows {
		if keep(r) {
			out.Rows = append(out.Rows, append([]string(nil), r...))
		}
	}
	return out
}

// Filter keeps the rows whose sector is in sectors AND whose symbol is in
// symbols. An empty set on either side matches nothing.
func (t *Table) Filter(sectorCol string, sectors map[string]bool, symbolCol string, symbols map[string]bool) (*Table, error) {
	sectorIdx, err := t.ColumnIndex(sectorCol)
	if err != nil {
		return nil, err
	}
	symbolIdx, err := t.ColumnIndex(symbolCol)
	if err != nil {
		return nil, err
	}
	return t.Where(func(row []string) bool {
		return sectors[row[sectorIdx]] && symbols[row[symbolIdx]]
	}), nil
}

// DedupeBy drops every row whose key column value was already seen and
// returns the dropped keys.
func (t *Table) DedupeBy(keyCol string) (*Table, []string, error) {
	idx, err := t.ColumnIndex(keyCol)
	if err != nil {
		return nil, nil, err
	}
	seen := make(map[string]bool, len(t.Rows))
	var dropped []string
	out := t.Where(func(row []string) bool {
		k := row[idx]
		if seen[k] {
			dropped = append(dropped, k)
			return false
		}
		seen[k] = true
		return true
	})
	return out, dropped, nil
}
