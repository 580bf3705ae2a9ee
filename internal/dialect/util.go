package dialect

import (
	"strings"
	"time"
)

// QuoteWith wraps name in the given delimiters, doubling any closing
// delimiter found inside the name.
func QuoteWith(name, open, close string) string {
	return open + strings.ReplaceAll(name, close, close+close) + close
}

// JoinQualified joins an already quoted schema and table. An empty schema
// yields the bare table.
func JoinQualified(quote func(string) string, schema, table string) string {
	if schema == "" {
		return quote(table)
	}
	return quote(schema) + "." + quote(table)
}

// BaseType lowercases a native type and strips any parameter list, so
// "NUMERIC(10,2)" and "numeric" compare equal.
func BaseType(nativeType string) string {
	t := strings.ToLower(strings.TrimSpace(nativeType))
	if i := strings.Index(t, "("); i >= 0 {
		rest := ""
		if j := strings.Index(t[i:], ")"); j >= 0 {
			rest = t[i+j+1:]
		}
		t = strings.TrimSpace(t[:i]) + rest
	}
	return strings.Join(strings.Fields(t), " ")
}

// DefaultNormalizeType is a default implementation for type normalization (lowercase).
func DefaultNormalizeType(sqlType string) string {
	return strings.ToLower(strings.TrimSpace(sqlType))
}

// DefaultGetSchemaName is a default implementation for Getting Schema Name (identity).
func DefaultGetSchemaName(input string) string {
	return input
}

func oneOf(s string, set ...string) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}

// IsUnicodeEncoding reports whether a server character set stores text as
// Unicode. An unknown (empty) character set counts as Unicode.
func IsUnicodeEncoding(name string) bool {
	n := strings.ToLower(strings.NewReplacer("-", "", "_", "").Replace(strings.TrimSpace(name)))
	switch {
	case n == "":
		return true
	case strings.HasPrefix(n, "utf8"), strings.HasPrefix(n, "al32utf8"), strings.HasPrefix(n, "al16utf16"):
		return true
	}
	return n == "unicode" || n == "utf16"
}

func timeoutMillis(timeout time.Duration) int64 {
	if ms := timeout.Milliseconds(); ms > 0 {
		return ms
	}
	return 1
}
