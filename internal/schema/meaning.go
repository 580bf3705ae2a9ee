package schema

import "strings"

var abbreviations = map[string]string{
	// Common Nouns
	"nm": "name", "dt": "date", "no": "number", "cd": "code",
	"desc": "description", "amt": "amount", "cnt": "count", "qty": "quantity",
	"addr": "address", "tel": "phone", "hp": "phone", "ph": "phone",
	"mail": "email", "eml": "email", "ttl": "title", "tit": "title", "subj": "subject",
	"usr": "user", "emp": "employee", "cust": "customer", "cstmr": "customer",
	"dept": "department", "grp": "group", "cat": "category",
	"ts": "timestamp", "tm": "time",

	// Verbs / Status
	"reg": "registered", "mod": "modified", "del": "deleted", "cre": "created",
	"upd": "updated", "stat": "status", "sts": "status",
	"typ": "type", "val": "value", "ord": "order", "seq": "sequence",
}

// AnalyzeMeaning decodes common abbreviations in a column name:
// "cust_nm" -> "customer name".
func AnalyzeMeaning(colName string) string {
	parts := strings.FieldsFunc(strings.ToLower(colName), func(r rune) bool {
		return r == '_' || r == '-' || r == ' ' || r == '.'
	})
	decoded := make([]string, 0, len(parts))
	for _, part := range parts {
		if full, ok := abbreviations[part]; ok {
			decoded = append(decoded, full)
		} else {
			decoded = append(decoded, part)
		}
	}
	return strings.Join(decoded, " ")
}

// contextKeywords ranks what makes a column useful next to an offending
// value when a human reads a sample row. Lower is better.
var contextKeywords = []string{
	"name", "code", "title", "email", "number", "subject", "status", "type", "created", "date", "timestamp",
}

// ContextRank scores a column for use as sample context. Columns whose
// decoded name matches no keyword rank last.
func ContextRank(c *Column) int {
	meaning := c.Meaning
	if meaning == "" {
		meaning = AnalyzeMeaning(c.Name)
	}
	words := strings.Fields(meaning)
	for rank, kw := range contextKeywords {
		for _, w := range words {
			if w == kw || strings.HasPrefix(w, kw) {
				return rank
			}
		}
	}
	return len(contextKeywords)
}
