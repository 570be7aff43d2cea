package model

// Row is a single record of an arbitrary table, keyed by column name.
// It is an alias so that bun treats []Row as a map slice model.
type Row = map[string]any

// Range selects a window of a table ordered by OrderBy ascending.
type Range struct {
	Offset  int
	Limit   int
	OrderBy string
}
