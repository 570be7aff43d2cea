// Package memstore provides in-memory implementations of the store contracts.
// The service and controller tests run against it.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/goccy/go-json"

	"exusiai.dev/crm-backup/internal/model"
	"exusiai.dev/crm-backup/internal/store"
)

type OpKind string

const (
	OpSelect OpKind = "select"
	OpDelete OpKind = "delete"
	OpUpsert OpKind = "upsert"
)

type Op struct {
	Kind  OpKind
	Table string
	// Offset is the page offset of a select.
	Offset int
	// Count is the number of rows returned, removed or written.
	Count int
}

// Rows is an in-memory store.RowStore. Every call is appended to the op log.
type Rows struct {
	mu     sync.Mutex
	tables map[string][]model.Row
	ops    []Op

	// Optional failure injection hooks. A non-nil error aborts the call.
	SelectErr func(table string, r model.Range) error
	DeleteErr func(table string) error
	UpsertErr func(table string) error

	// BeforeDelete is called before every DeleteAll.
	BeforeDelete func(ctx context.Context, table string)
}

var (
	_ store.RowStore   = (*Rows)(nil)
	_ store.Transactor = (*Rows)(nil)
)

func NewRows() *Rows {
	return &Rows{tables: make(map[string][]model.Row)}
}

// Seed replaces the content of table.
func (s *Rows) Seed(table string, rows ...model.Row) *Rows {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[table] = cloneRows(rows)
	return s
}

// Table returns a copy of the rows of table in storage order.
func (s *Rows) Table(table string) []model.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRows(s.tables[table])
}

func (s *Rows) Ops() []Op {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Op(nil), s.ops...)
}

// OpsOf returns the logged operations of kind in call order.
func (s *Rows) OpsOf(kind OpKind) []Op {
	var out []Op
	for _, op := range s.Ops() {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}

func (s *Rows) SelectRange(_ context.Context, table string, r model.Range) ([]model.Row, error) {
	if s.SelectErr != nil {
		if err := s.SelectErr(table, r); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows := cloneRows(s.tables[table])
	if r.OrderBy != "" {
		sort.SliceStable(rows, func(i, j int) bool {
			return less(rows[i][r.OrderBy], rows[j][r.OrderBy])
		})
	}

	var page []model.Row
	if r.Offset < len(rows) {
		end := len(rows)
		if r.Limit > 0 && r.Offset+r.Limit < end {
			end = r.Offset + r.Limit
		}
		page = rows[r.Offset:end]
	}
	s.ops = append(s.ops, Op{Kind: OpSelect, Table: table, Offset: r.Offset, Count: len(page)})
	return page, nil
}

func (s *Rows) DeleteAll(ctx context.Context, table string) (int64, error) {
	if s.BeforeDelete != nil {
		s.BeforeDelete(ctx, table)
	}
	if s.DeleteErr != nil {
		if err := s.DeleteErr(table); err != nil {
			return 0, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.tables[table])
	delete(s.tables, table)
	s.ops = append(s.ops, Op{Kind: OpDelete, Table: table, Count: n})
	return int64(n), nil
}

func (s *Rows) Upsert(_ context.Context, table string, conflictKey string, rows []model.Row) error {
	if s.UpsertErr != nil {
		if err := s.UpsertErr(table); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.tables[table]
	index := make(map[string]int, len(existing))
	for i, row := range existing {
		index[keyOf(row[conflictKey])] = i
	}
	for _, row := range cloneRows(rows) {
		k := keyOf(row[conflictKey])
		if i, ok := index[k]; ok {
			existing[i] = row
			continue
		}
		index[k] = len(existing)
		existing = append(existing, row)
	}
	s.tables[table] = existing
	s.ops = append(s.ops, Op{Kind: OpUpsert, Table: table, Count: len(rows)})
	return nil
}

// RunInTx restores the content of every table when fn fails. The op log is kept.
func (s *Rows) RunInTx(ctx context.Context, fn func(ctx context.Context, rows store.RowStore) error) error {
	s.mu.Lock()
	saved := make(map[string][]model.Row, len(s.tables))
	for t, rows := range s.tables {
		saved[t] = cloneRows(rows)
	}
	s.mu.Unlock()

	if err := fn(ctx, s); err != nil {
		s.mu.Lock()
		s.tables = saved
		s.mu.Unlock()
		return err
	}
	return nil
}

func cloneRows(rows []model.Row) []model.Row {
	if rows == nil {
		return nil
	}
	out := make([]model.Row, len(rows))
	for i, row := range rows {
		c := make(model.Row, len(row))
		for k, v := range row {
			c[k] = v
		}
		out[i] = c
	}
	return out
}

// keyOf normalizes key values so that 7, int64(7) and json.Number("7") collide.
func keyOf(v any) string {
	return fmt.Sprint(v)
}

func less(a, b any) bool {
	fa, aok := number(a)
	fb, bok := number(b)
	if aok && bok {
		return fa < fb
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}
