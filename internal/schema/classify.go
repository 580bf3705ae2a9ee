package schema

import (
	"strings"

	"dqc/internal/dialect"
)

// Class is the semantic class of a column type. The zero value is Other.
type Class int

const (
	Other Class = iota
	Numeric
	DateTime
	Text
)

func (c Class) String() string {
	switch c {
	case Numeric:
		return "numeric"
	case DateTime:
		return "datetime"
	case Text:
		return "text"
	default:
		return "other"
	}
}

// ClassSet is a set of column classes.
type ClassSet uint8

// AllClasses enables every class.
const AllClasses = ClassSet(1<<Other | 1<<Numeric | 1<<DateTime | 1<<Text)

func ClassSetOf(classes ...Class) ClassSet {
	var s ClassSet
	for _, c := range classes {
		s |= 1 << c
	}
	return s
}

func (s ClassSet) Has(c Class) bool {
	return s&(1<<c) != 0
}

var numericTypes = map[string]bool{
	"smallint": true, "integer": true, "int": true, "bigint": true, "tinyint": true, "mediumint": true,
	"int2": true, "int4": true, "int8": true, "serial": true, "smallserial": true, "bigserial": true,
	"decimal": true, "dec": true, "numeric": true, "number": true, "fixed": true, "money": true, "smallmoney": true,
	"real": true, "float": true, "float4": true, "float8": true, "double": true, "double precision": true,
	"binary_float": true, "binary_double": true,
}

var textTypes = map[string]bool{
	"char": true, "character": true, "bpchar": true, "varchar": true, "character varying": true,
	"nchar": true, "nvarchar": true, "national character": true, "national character varying": true,
	"varchar2": true, "nvarchar2": true, "text": true, "tinytext": true, "mediumtext": true, "longtext": true,
	"ntext": true, "clob": true, "nclob": true, "citext": true, "name": true, "string": true,
	"enum": true, "set": true,
}

var dateTimeTypes = map[string]bool{
	"date": true, "datetime": true, "datetime2": true, "smalldatetime": true, "datetimeoffset": true,
	"timestamptz": true, "timetz": true, "year": true,
}

// NormalizeNativeType lowercases a type and drops parameters, sign and
// padding modifiers: "INT(11) UNSIGNED ZEROFILL" -> "int".
func NormalizeNativeType(nativeType string) string {
	fields := strings.Fields(dialect.BaseType(nativeType))
	kept := fields[:0]
	for _, f := range fields {
		switch f {
		case "unsigned", "signed", "zerofill":
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

// Classify maps a native type onto its semantic class. Unknown types are Other.
func Classify(nativeType string) Class {
	t := NormalizeNativeType(nativeType)
	// array types: "_int4" (udt_name) or "integer[]"
	if strings.HasPrefix(t, "_") || strings.HasSuffix(t, "[]") {
		return Other
	}
	switch {
	case numericTypes[t]:
		return Numeric
	case textTypes[t]:
		return Text
	case dateTimeTypes[t],
		strings.HasPrefix(t, "timestamp"),
		strings.HasPrefix(t, "time"),
		strings.HasPrefix(t, "interval"):
		return DateTime
	}
	return Other
}
