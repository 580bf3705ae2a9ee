package report

import (
	"fmt"
	"strings"
)

// Kind is a check kind. Declaration order is the canonical report order.
type Kind int

const (
	Nan Kind = iota
	OrphanReference
	Encoding
	MissingPrimaryKey
	LargeTable
)

// Kinds lists every kind in canonical order.
var Kinds = []Kind{Nan, OrphanReference, Encoding, MissingPrimaryKey, LargeTable}

var kindNames = map[Kind]string{
	Nan:               "nan",
	OrphanReference:   "orphan_reference",
	Encoding:          "encoding",
	MissingPrimaryKey: "missing_primary_key",
	LargeTable:        "large_table",
}

var kindTitles = map[Kind]string{
	Nan:               "NaN / NULL values",
	OrphanReference:   "Orphaned references",
	Encoding:          "Invalid encoding",
	MissingPrimaryKey: "Missing primary key",
	LargeTable:        "Large table",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) Title() string { return kindTitles[k] }

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// TableLevel kinds describe the table as a whole, never a column.
func (k Kind) TableLevel() bool {
	return k == MissingPrimaryKey || k == LargeTable
}

// KindSet is a set of check kinds.
type KindSet uint8

const AllKinds = KindSet(1<<Nan | 1<<OrphanReference | 1<<Encoding | 1<<MissingPrimaryKey | 1<<LargeTable)

func KindSetOf(kinds ...Kind) KindSet {
	var s KindSet
	for _, k := range kinds {
		s |= 1 << k
	}
	return s
}

func (s KindSet) Has(k Kind) bool { return s&(1<<k) != 0 }

func (s KindSet) Without(k Kind) KindSet { return s &^ (1 << k) }

func (s KindSet) String() string {
	var names []string
	for _, k := range Kinds {
		if s.Has(k) {
			names = append(names, k.String())
		}
	}
	return strings.Join(names, ",")
}

// Field is one column value of a sample row.
type Field struct {
	Column string
	Value  any
}

// SampleRow is an offending row: primary-key fields, then the offending
// and context column values.
type SampleRow struct {
	Key    []Field
	Values []Field
}

type Finding struct {
	Kind       Kind
	Table      string
	Columns    []string // empty for table-level kinds
	Constraint string   // foreign key name for orphan references
	Detail     string
	Count      int64
	Percentage float64
	Sample     []SampleRow

	// Error is set when the check itself failed; Count and Sample are then
	// meaningless.
	Error string
	// SampleError is set when counting worked but fetching the sample did not.
	SampleError string
}

func (f *Finding) Failed() bool { return f.Error != "" }

// Subject names what the finding is about: "table.column", "table.fk_name"
// or the table alone.
func (f *Finding) Subject() string {
	switch {
	case f.Constraint != "":
		return f.Table + "." + f.Constraint
	case len(f.Columns) > 0:
		return f.Table + "." + strings.Join(f.Columns, ",")
	default:
		return f.Table
	}
}

type SkipReason string

const (
	SkipExplicit      SkipReason = "explicit skip"
	SkipSizeThreshold SkipReason = "size threshold"
)

// Exclusion notes a column left out of a check because of its type.
type Exclusion struct {
	Column string
	Type   string
	Reason string
}

type TableReport struct {
	Table    string
	RowCount int64
	Findings []*Finding
	Excluded []Exclusion

	// Error is set when the table could not be described or counted.
	Error string

	Skipped    bool
	SkipReason SkipReason
}

// SkippedTable returns a report for a table that was not checked.
func SkippedTable(table string, reason SkipReason) *TableReport {
	return &TableReport{Table: table, Skipped: true, SkipReason: reason}
}

// Add appends a finding. Skipped tables carry no findings.
func (r *TableReport) Add(f *Finding) {
	if r.Skipped || f == nil {
		return
	}
	r.Findings = append(r.Findings, f)
}

// Clean reports whether the table was checked, every check completed and
// nothing was found. A failed check leaves the table unverified.
func (r *TableReport) Clean() bool {
	return !r.Skipped && r.Error == "" && len(r.Findings) == 0
}

type Summary struct {
	TablesScanned  int
	TablesSkipped  int
	FindingsByKind map[Kind]int
	FailedChecks   int
}

type DatabaseReport struct {
	Tables  []*TableReport
	Summary Summary
	// Partial is set when the scan stopped before visiting every table.
	Partial bool
}

func NewDatabaseReport() *DatabaseReport {
	return &DatabaseReport{Summary: Summary{FindingsByKind: make(map[Kind]int)}}
}

// Add appends a table report and folds it into the summary.
func (r *DatabaseReport) Add(t *TableReport) {
	r.Tables = append(r.Tables, t)
	if t.Skipped {
		r.Summary.TablesSkipped++
		return
	}
	r.Summary.TablesScanned++
	if t.Error != "" {
		r.Summary.FailedChecks++
	}
	for _, f := range t.Findings {
		if f.Failed() {
			r.Summary.FailedChecks++
			continue
		}
		r.Summary.FindingsByKind[f.Kind]++
	}
}

// Percent is 100 * count / total, and 0 for an empty table.
func Percent(count, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return 100 * float64(count) / float64(total)
}
