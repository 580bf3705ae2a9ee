package schema

import "strings"

type Table struct {
	Name        string
	Schema      string
	Columns     []*Column
	PrimaryKey  *PrimaryKey
	ForeignKeys []*ForeignKey
	Indexes     []*Index
	RowEstimate int64 // catalog statistics, exact count when statistics are missing

	// RowCountExact is set when RowEstimate came from COUNT(*).
	RowCountExact bool
}

type Column struct {
	Name       string
	DataType   string // native type as reported by the catalog, normalized by the dialect
	Class      Class
	IsNullable bool
	Default    *string
	Position   int
	Meaning    string // decoded name, e.g. "cust_nm" -> "customer name"
}

type PrimaryKey struct {
	Name    string
	Columns []string // declaration order
}

// ColumnPair links one local foreign-key column to the column it references.
type ColumnPair struct {
	Local      string
	Referenced string
}

type ForeignKey struct {
	Name      string
	Pairs     []ColumnPair // declaration order, never empty
	RefSchema string
	RefTable  string
}

type Index struct {
	Name    string
	Columns []string
	Unique  bool
	Primary bool
}

// ColumnMatch is one row of a cross-table column lookup. Column is nil when
// the table has no such column.
type ColumnMatch struct {
	Table  string
	Column *Column
}

func (t *Table) HasPrimaryKey() bool {
	return t.PrimaryKey != nil && len(t.PrimaryKey.Columns) > 0
}

// Column looks a column up by exact name first, then case-insensitively.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// IsPrimaryKeyColumn reports whether name is part of the primary key.
func (t *Table) IsPrimaryKeyColumn(name string) bool {
	if !t.HasPrimaryKey() {
		return false
	}
	for _, c := range t.PrimaryKey.Columns {
		if c == name {
			return true
		}
	}
	return false
}

func (fk *ForeignKey) LocalColumns() []string {
	cols := make([]string, len(fk.Pairs))
	for i, p := range fk.Pairs {
		cols[i] = p.Local
	}
	return cols
}

func (fk *ForeignKey) ReferencedColumns() []string {
	cols := make([]string, len(fk.Pairs))
	for i, p := range fk.Pairs {
		cols[i] = p.Referenced
	}
	return cols
}
