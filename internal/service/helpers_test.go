package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"

	"exusiai.dev/crm-backup/internal/catalog"
	"exusiai.dev/crm-backup/internal/model"
	"exusiai.dev/crm-backup/internal/pkg/blob"
	"exusiai.dev/crm-backup/internal/pkg/memstore"
)

type recordedEvent struct {
	Name    string
	Payload any
}

type recordingEvents struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingEvents) Publish(_ context.Context, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{Name: event, Payload: payload})
}

func (r *recordingEvents) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.events))
	for _, e := range r.events {
		names = append(names, e.Name)
	}
	return names
}

// stepClock returns a time source that advances one second on every call.
func stepClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

type fixture struct {
	rows    *memstore.Rows
	backups *memstore.Backups
	blob    *blob.Memory
	lock    *memstore.Mutex
	events  *recordingEvents
	svc     *Backup
}

type fixtureOpts struct {
	catalog    *catalog.Catalog
	pageSize   int
	batchSize  int
	maxBackups int
	abort      bool
}

func newFixture(t *testing.T, opts fixtureOpts) *fixture {
	t.Helper()

	if opts.catalog == nil {
		opts.catalog = catalog.Default
	}
	if opts.pageSize == 0 {
		opts.pageSize = 1000
	}
	if opts.batchSize == 0 {
		opts.batchSize = 500
	}
	if opts.maxBackups == 0 {
		opts.maxBackups = 30
	}

	f := &fixture{
		rows:    memstore.NewRows(),
		backups: memstore.NewBackups(),
		blob:    blob.NewMemory(),
		lock:    &memstore.Mutex{},
		events:  &recordingEvents{},
	}

	pruner := &Pruner{
		Backups:    f.backups,
		Blob:       f.blob,
		MaxBackups: opts.maxBackups,
		Events:     f.events,
	}
	snapshotter := &Snapshotter{
		Builder: &Builder{
			Rows:             f.rows,
			Catalog:          opts.catalog,
			PageSize:         opts.pageSize,
			AbortOnReadError: opts.abort,
		},
		Writer: &Writer{
			Backups: f.backups,
			Blob:    f.blob,
			Catalog: opts.catalog,
			Now:     stepClock(),
		},
		Pruner: pruner,
		Events: f.events,
	}
	f.svc = &Backup{
		Catalog:     opts.catalog,
		Backups:     f.backups,
		Blob:        f.blob,
		Snapshotter: snapshotter,
		Pruner:      pruner,
		Restorer: &Restorer{
			Backups:     f.backups,
			Blob:        f.blob,
			Rows:        f.rows,
			Catalog:     opts.catalog,
			Snapshotter: snapshotter,
			Lock:        f.lock,
			Events:      f.events,
			BatchSize:   opts.batchSize,
			Tx:          f.rows,
		},
	}
	return f
}

func rowsWithIDs(ids ...int) []model.Row {
	rows := make([]model.Row, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, model.Row{"id": id, "name": "row"})
	}
	return rows
}

func seqRows(n int) []model.Row {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i + 1
	}
	return rowsWithIDs(ids...)
}

// idsOf returns the id column of rows as strings so that ints and json.Number compare equal.
func idsOf(rows []model.Row) []string {
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, spew.Sprint(r["id"]))
	}
	return ids
}

func loadPayload(t *testing.T, f *fixture, b *model.Backup) *model.Payload {
	t.Helper()
	raw, err := f.blob.Get(context.Background(), b.FilePath)
	if err != nil {
		t.Fatalf("blob %s: %v", b.FilePath, err)
	}
	p, err := model.DecodePayload(raw)
	if err != nil {
		t.Fatalf("decode %s: %v\n%s", b.FilePath, err, spew.Sdump(string(raw)))
	}
	return p
}
