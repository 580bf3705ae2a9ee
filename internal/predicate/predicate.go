// Package predicate builds the conditions that flag bad rows as a small
// tree, and lowers that tree to a dialect's SQL. Identifier quoting happens
// only here, through the dialect.
package predicate

import (
	"fmt"
	"strings"

	"dqc/internal/dialect"
	"dqc/internal/schema"
)

// Predicate is a node of the condition tree.
type Predicate interface {
	lower(d dialect.Dialect, alias string) string
}

type IsNull struct{ Column string }

type IsNotNull struct{ Column string }

// IsNaN matches the engine's floating-point not-a-number value.
type IsNaN struct {
	Column     string
	NativeType string
}

// InvalidText matches NUL bytes and control characters other than tab, line
// feed and carriage return. Unicode adds U+FFFD, left behind when bad byte
// sequences were decoded on the way in.
type InvalidText struct {
	Column  string
	Unicode bool
}

// NonASCII matches values with any byte above 0x7F.
type NonASCII struct{ Column string }

// Equals compares a column with a text literal.
type Equals struct {
	Column  string
	Literal string
}

type And []Predicate

type Or []Predicate

// NotExists is true when no row of the referenced table matches every pair.
type NotExists struct {
	RefSchema string
	RefTable  string
	Pairs     []schema.ColumnPair
}

// Lower renders p as SQL. Column references are qualified with alias when
// it is not empty.
func Lower(p Predicate, d dialect.Dialect, alias string) string {
	if p == nil {
		return "1 = 1"
	}
	return p.lower(d, alias)
}

func ref(d dialect.Dialect, alias, column string) string {
	if alias == "" {
		return d.QuoteIdent(column)
	}
	return alias + "." + d.QuoteIdent(column)
}

func (p IsNull) lower(d dialect.Dialect, alias string) string {
	return ref(d, alias, p.Column) + " IS NULL"
}

func (p IsNotNull) lower(d dialect.Dialect, alias string) string {
	return ref(d, alias, p.Column) + " IS NOT NULL"
}

func (p IsNaN) lower(d dialect.Dialect, alias string) string {
	if cond := d.NaNCondition(ref(d, alias, p.Column), p.NativeType); cond != "" {
		return cond
	}
	return "1 = 0"
}

func (p InvalidText) lower(d dialect.Dialect, alias string) string {
	return d.InvalidTextCondition(ref(d, alias, p.Column), p.Unicode)
}

func (p NonASCII) lower(d dialect.Dialect, alias string) string {
	if cond := d.NonASCIICondition(ref(d, alias, p.Column)); cond != "" {
		return cond
	}
	return "1 = 0"
}

func (p Equals) lower(d dialect.Dialect, alias string) string {
	return fmt.Sprintf("%s = %s", ref(d, alias, p.Column), quoteLiteral(p.Literal))
}

func (p And) lower(d dialect.Dialect, alias string) string {
	return join(p, d, alias, " AND ", "1 = 1")
}

func (p Or) lower(d dialect.Dialect, alias string) string {
	return join(p, d, alias, " OR ", "1 = 0")
}

func (p NotExists) lower(d dialect.Dialect, alias string) string {
	inner := "p"
	if alias == inner {
		inner = "p2"
	}
	conds := make([]string, len(p.Pairs))
	for i, pair := range p.Pairs {
		conds[i] = fmt.Sprintf("%s = %s", ref(d, inner, pair.Referenced), ref(d, alias, pair.Local))
	}
	return fmt.Sprintf("NOT EXISTS (SELECT 1 FROM %s %s WHERE %s)",
		d.QualifiedTable(p.RefSchema, p.RefTable), inner, strings.Join(conds, " AND "))
}

func join(parts []Predicate, d dialect.Dialect, alias, sep, empty string) string {
	switch len(parts) {
	case 0:
		return empty
	case 1:
		return parts[0].lower(d, alias)
	}
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = p.lower(d, alias)
	}
	return "(" + strings.Join(out, sep) + ")"
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
