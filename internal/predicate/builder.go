package predicate

import (
	"dqc/internal/dialect"
	"dqc/internal/schema"
)

// NaNLiteral is the text some loaders write in place of a missing number.
const NaNLiteral = "NaN"

// ForNaN builds the NaN-equivalent condition for a column: NULL when the
// column is nullable, the engine's NaN value where the type can hold one, and
// the literal 'NaN' in text columns. It returns nil when nothing can match,
// including for Other-class columns.
func ForNaN(col *schema.Column, d dialect.Dialect) Predicate {
	if col.Class == schema.Other {
		return nil
	}

	var parts Or
	if col.IsNullable {
		parts = append(parts, IsNull{Column: col.Name})
	}
	if d.NaNCondition("x", col.DataType) != "" {
		parts = append(parts, IsNaN{Column: col.Name, NativeType: col.DataType})
	}
	if col.Class == schema.Text && d.SupportsEquality(col.DataType) {
		parts = append(parts, Equals{Column: col.Name, Literal: NaNLiteral})
	}

	if len(parts) == 0 {
		return nil
	}
	return parts
}

// ForEncoding builds the invalid-text condition. Only Text columns qualify.
// unicode is whether the server stores text as Unicode.
func ForEncoding(col *schema.Column, unicode bool) Predicate {
	if col.Class != schema.Text {
		return nil
	}
	return InvalidText{Column: col.Name, Unicode: unicode}
}

// ForEncodingCandidates narrows a non-Unicode server's rows to the ones that
// may hold bad text: control characters or any non-ASCII byte. Whether the
// bytes are valid UTF-8 is left to the caller. It returns nil when the
// dialect cannot filter on bytes.
func ForEncodingCandidates(col *schema.Column, d dialect.Dialect) Predicate {
	if col.Class != schema.Text || d.NonASCIICondition("x") == "" {
		return nil
	}
	return Or{InvalidText{Column: col.Name}, NonASCII{Column: col.Name}}
}

// ForOrphans builds the dangling-reference condition for a foreign key. A row
// with any NULL local column never matches.
func ForOrphans(fk *schema.ForeignKey, defaultSchema string) Predicate {
	if len(fk.Pairs) == 0 {
		return nil
	}
	refSchema := fk.RefSchema
	if refSchema == "" {
		refSchema = defaultSchema
	}

	parts := make(And, 0, len(fk.Pairs)+1)
	for _, p := range fk.Pairs {
		parts = append(parts, IsNotNull{Column: p.Local})
	}
	return append(parts, NotExists{RefSchema: refSchema, RefTable: fk.RefTable, Pairs: fk.Pairs})
}
