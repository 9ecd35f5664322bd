package database

import (
	"fmt"
	"strings"
)

// TableSpec declares one table belonging to a collection. The Name is the
// bare table name; the full name gets the collection prefix applied when
// the table is created. Columns holds column and constraint DDL fragments.
type TableSpec struct {
	Name    string
	Columns []string
}

// Table is a convenience constructor for a TableSpec.
func Table(name string, columns ...string) TableSpec {
	return TableSpec{Name: name, Columns: columns}
}

func (s TableSpec) createSQL(fullName string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		fullName, strings.Join(s.Columns, ", "))
}
