package repo

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/uptrace/bun"

	"exusiai.dev/crm-backup/internal/model"
	"exusiai.dev/crm-backup/internal/store"
)

// Table reads and writes rows of arbitrary tables as column maps.
type Table struct {
	db *bun.DB
	// idb is the transaction when the Table was handed out by RunInTx, db otherwise.
	idb bun.IDB
}

func NewTable(db *bun.DB) *Table {
	return &Table{db: db, idb: db}
}

func (r *Table) SelectRange(ctx context.Context, table string, rng model.Range) ([]model.Row, error) {
	rows := make([]model.Row, 0, rng.Limit)
	q := r.idb.NewSelect().
		TableExpr("?", bun.Ident(table)).
		ColumnExpr("*")
	if rng.OrderBy != "" {
		q = q.OrderExpr("? ASC", bun.Ident(rng.OrderBy))
	}
	err := q.Offset(rng.Offset).
		Limit(rng.Limit).
		Scan(ctx, &rows)
	if errors.Is(err, sql.ErrNoRows) {
		return rows, nil
	} else if err != nil {
		return nil, errors.Wrapf(err, "select %s [%d, +%d)", table, rng.Offset, rng.Limit)
	}
	return rows, nil
}

func (r *Table) DeleteAll(ctx context.Context, table string) (int64, error) {
	res, err := r.idb.NewDelete().
		TableExpr("?", bun.Ident(table)).
		Where("TRUE").
		Exec(ctx)
	if err != nil {
		return 0, errors.Wrapf(err, "delete from %s", table)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// Upsert inserts rows with ON CONFLICT (conflictKey) DO UPDATE. Rows missing
// a column present in other rows get NULL for it.
func (r *Table) Upsert(ctx context.Context, table string, conflictKey string, rows []model.Row) error {
	if len(rows) == 0 {
		return nil
	}

	columns := columnsOf(rows)
	normalized := lo.Map(rows, func(row model.Row, _ int) model.Row {
		out := make(model.Row, len(columns))
		for _, c := range columns {
			out[c] = row[c]
		}
		return out
	})

	q := r.idb.NewInsert().
		Model(&normalized).
		ModelTableExpr("?", bun.Ident(table))

	updatable := lo.Without(columns, conflictKey)
	if len(updatable) == 0 {
		q = q.On("CONFLICT (?) DO NOTHING", bun.Ident(conflictKey))
	} else {
		q = q.On("CONFLICT (?) DO UPDATE", bun.Ident(conflictKey))
		for _, c := range updatable {
			q = q.Set("? = EXCLUDED.?", bun.Ident(c), bun.Ident(c))
		}
	}

	if _, err := q.Exec(ctx); err != nil {
		return errors.Wrapf(err, "upsert %d rows into %s", len(rows), table)
	}
	return nil
}

func (r *Table) RunInTx(ctx context.Context, fn func(ctx context.Context, rows store.RowStore) error) error {
	if r.db == nil {
		// already inside a transaction
		return fn(ctx, r)
	}
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &Table{idb: tx})
	})
}

func columnsOf(rows []model.Row) []string {
	seen := make(map[string]struct{})
	var columns []string
	for _, row := range rows {
		for c := range row {
			if _, ok := seen[c]; !ok {
				seen[c] = struct{}{}
				columns = append(columns, c)
			}
		}
	}
	return columns
}
