package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"exusiai.dev/crm-backup/internal/catalog"
	"exusiai.dev/crm-backup/internal/model"
	"exusiai.dev/crm-backup/internal/pkg/observability"
	"exusiai.dev/crm-backup/internal/store"
)

// ErrUpstreamRead is wrapped around row store read failures that abort a snapshot.
var ErrUpstreamRead = errors.New("row store read failed")

type Builder struct {
	Rows     store.RowStore
	Catalog  *catalog.Catalog
	PageSize int

	// AbortOnReadError fails the build on the first page read error. Otherwise
	// the table is truncated to the rows read so far.
	AbortOnReadError bool
}

// Snapshot is the in-memory result of reading a table set.
type Snapshot struct {
	Data map[string][]model.Row
	// Tables is the requested table set in request order.
	Tables []string
	// Truncated lists tables whose pagination stopped on a read error.
	Truncated []string
}

func (s *Snapshot) Records() int {
	n := 0
	for _, rows := range s.Data {
		n += len(rows)
	}
	return n
}

// FetchAllRows pages through table ordered by its primary key until a page
// shorter than PageSize comes back. truncated is set when a read error ended
// the pagination early under the truncate policy.
func (b *Builder) FetchAllRows(ctx context.Context, table string, abortOnReadError bool) (rows []model.Row, truncated bool, err error) {
	pageSize := b.PageSize
	if pageSize <= 0 {
		pageSize = 1000
	}
	orderBy := b.Catalog.PrimaryKey(table)

	rows = make([]model.Row, 0)
	for offset := 0; ; offset += pageSize {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}

		page, err := b.Rows.SelectRange(ctx, table, model.Range{
			Offset:  offset,
			Limit:   pageSize,
			OrderBy: orderBy,
		})
		if err != nil {
			if abortOnReadError || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, false, errors.Wrapf(ErrUpstreamRead, "table %s at offset %d: %v", table, offset, err)
			}
			log.Warn().
				Str("evt.name", "snapshot.fetch.truncated").
				Str("table", table).
				Int("offset", offset).
				Int("rows_kept", len(rows)).
				Err(err).
				Msg("page read failed, keeping rows read so far")
			observability.SnapshotTruncatedTables.WithLabelValues(table).Inc()
			return rows, true, nil
		}

		rows = append(rows, page...)
		log.Trace().
			Str("evt.name", "snapshot.fetch.page").
			Str("table", table).
			Int("offset", offset).
			Int("count", len(page)).
			Msg("fetched page")

		if len(page) < pageSize {
			return rows, false, nil
		}
	}
}

// Build reads every table of tables sequentially.
func (b *Builder) Build(ctx context.Context, tables []string, abortOnReadError bool) (*Snapshot, error) {
	started := time.Now()
	snap := &Snapshot{
		Data:   make(map[string][]model.Row, len(tables)),
		Tables: append([]string(nil), tables...),
	}

	for _, table := range tables {
		if _, dup := snap.Data[table]; dup {
			continue
		}
		rows, truncated, err := b.FetchAllRows(ctx, table, abortOnReadError)
		if err != nil {
			return nil, err
		}
		snap.Data[table] = rows
		if truncated {
			snap.Truncated = append(snap.Truncated, table)
		}
	}

	log.Debug().
		Str("evt.name", "snapshot.build.completed").
		Int("tables", len(snap.Data)).
		Int("records", snap.Records()).
		Strs("truncated", snap.Truncated).
		Dur("took", time.Since(started)).
		Msg("snapshot built")

	return snap, nil
}
