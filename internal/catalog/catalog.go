// Package catalog lists the CRM tables that can be backed up, the module each
// table belongs to and the foreign-key dependencies between them.
//
// InsertOrder puts every referenced table before the tables referencing it.
// DeleteOrder is its mirror, so children are cleared before their parents.
package catalog

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
)

const DefaultPrimaryKey = "id"

type Table struct {
	Name string

	// PrimaryKey is used as the upsert conflict key and the pagination order.
	// Defaults to DefaultPrimaryKey.
	PrimaryKey string

	// Module is the module a partial backup selects this table by.
	Module string

	// References lists the backupable tables this table holds foreign keys into.
	References []string
}

type Catalog struct {
	tables      []Table
	byName      map[string]Table
	modules     map[string][]string
	moduleNames []string
	insertOrder []string
	deleteOrder []string
}

func New(tables []Table) (*Catalog, error) {
	c := &Catalog{
		tables:  make([]Table, 0, len(tables)),
		byName:  make(map[string]Table, len(tables)),
		modules: make(map[string][]string),
	}

	for _, t := range tables {
		if t.Name == "" {
			return nil, fmt.Errorf("catalog: table with empty name")
		}
		if _, dup := c.byName[t.Name]; dup {
			return nil, fmt.Errorf("catalog: duplicate table %q", t.Name)
		}
		if t.PrimaryKey == "" {
			t.PrimaryKey = DefaultPrimaryKey
		}
		c.tables = append(c.tables, t)
		c.byName[t.Name] = t
		if t.Module != "" {
			if _, ok := c.modules[t.Module]; !ok {
				c.moduleNames = append(c.moduleNames, t.Module)
			}
			c.modules[t.Module] = append(c.modules[t.Module], t.Name)
		}
	}

	for _, t := range c.tables {
		for _, ref := range t.References {
			if _, ok := c.byName[ref]; !ok {
				return nil, fmt.Errorf("catalog: table %q references unknown table %q", t.Name, ref)
			}
		}
	}

	order, err := c.sortParentsFirst()
	if err != nil {
		return nil, err
	}
	c.insertOrder = order
	c.deleteOrder = lo.Reverse(append([]string(nil), order...))

	return c, nil
}

func MustNew(tables []Table) *Catalog {
	c, err := New(tables)
	if err != nil {
		panic(err)
	}
	return c
}

// sortParentsFirst is Kahn's algorithm; ties are broken by declaration order so the
// result is deterministic.
func (c *Catalog) sortParentsFirst() ([]string, error) {
	pending := make(map[string]int, len(c.tables))
	children := make(map[string][]string, len(c.tables))
	for _, t := range c.tables {
		refs := lo.Uniq(lo.Without(t.References, t.Name))
		pending[t.Name] = len(refs)
		for _, ref := range refs {
			children[ref] = append(children[ref], t.Name)
		}
	}

	position := make(map[string]int, len(c.tables))
	for i, t := range c.tables {
		position[t.Name] = i
	}

	var ready []string
	for _, t := range c.tables {
		if pending[t.Name] == 0 {
			ready = append(ready, t.Name)
		}
	}

	order := make([]string, 0, len(c.tables))
	for len(ready) > 0 {
		sort.SliceStable(ready, func(i, j int) bool { return position[ready[i]] < position[ready[j]] })
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		for _, child := range children[next] {
			pending[child]--
			if pending[child] == 0 {
				ready = append(ready, child)
			}
		}
	}

	if len(order) != len(c.tables) {
		cyclic := lo.Filter(lo.Keys(pending), func(name string, _ int) bool { return pending[name] > 0 })
		sort.Strings(cyclic)
		return nil, fmt.Errorf("catalog: dependency cycle between tables %v", cyclic)
	}
	return order, nil
}

// FullTableSet returns every backupable table in declaration order.
func (c *Catalog) FullTableSet() []string {
	return lo.Map(c.tables, func(t Table, _ int) string { return t.Name })
}

// ModuleTables returns the tables belonging to module.
func (c *Catalog) ModuleTables(module string) ([]string, bool) {
	tables, ok := c.modules[module]
	if !ok {
		return nil, false
	}
	return append([]string(nil), tables...), true
}

// Modules returns the module names in declaration order.
func (c *Catalog) Modules() []string {
	return append([]string(nil), c.moduleNames...)
}

func (c *Catalog) InsertOrder() []string {
	return append([]string(nil), c.insertOrder...)
}

func (c *Catalog) DeleteOrder() []string {
	return append([]string(nil), c.deleteOrder...)
}

func (c *Catalog) Has(table string) bool {
	_, ok := c.byName[table]
	return ok
}

// PrimaryKey returns the primary key column of table, or DefaultPrimaryKey for
// tables unknown to the catalog.
func (c *Catalog) PrimaryKey(table string) string {
	if t, ok := c.byName[table]; ok {
		return t.PrimaryKey
	}
	return DefaultPrimaryKey
}
