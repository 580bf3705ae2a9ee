package engine

import (
	"encoding/hex"
	"math"
	"sort"
	"strconv"
	"unicode/utf8"

	"dqc/internal/report"
	"dqc/internal/schema"
)

// SampleColumns decides what a sample row shows for the given offending
// columns. Keys are the primary-key columns. Values are the offending
// columns not already in the key, followed by up to contextN context
// columns ranked by name meaning, then by ordinal position.
func SampleColumns(t *schema.Table, offending []string, contextN int) (keys, values []string) {
	used := make(map[string]bool)
	if t.HasPrimaryKey() {
		for _, c := range t.PrimaryKey.Columns {
			keys = append(keys, c)
			used[c] = true
		}
	}
	for _, c := range offending {
		if !used[c] {
			values = append(values, c)
			used[c] = true
		}
	}

	var candidates []*schema.Column
	for _, c := range t.Columns {
		if used[c.Name] || c.Class == schema.Other {
			continue
		}
		candidates = append(candidates, c)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		ri, rj := schema.ContextRank(candidates[i]), schema.ContextRank(candidates[j])
		if ri != rj {
			return ri < rj
		}
		return candidates[i].Position < candidates[j].Position
	})
	for i := 0; i < len(candidates) && i < contextN; i++ {
		values = append(values, candidates[i].Name)
	}
	return keys, values
}

func sampleRow(keys, values []string, vals []any) report.SampleRow {
	return report.SampleRow{
		Key:    fields(keys, vals[:len(keys)]),
		Values: fields(values, vals[len(keys):]),
	}
}

func fields(names []string, vals []any) []report.Field {
	out := make([]report.Field, len(names))
	for i, n := range names {
		out[i] = report.Field{Column: n, Value: displayValue(vals[i])}
	}
	return out
}

// displayValue turns driver values into something every output format can
// carry. Raw bytes and strings that are not valid UTF-8 become hex; NaN
// and infinities become text since JSON has no literal for them.
func displayValue(v any) any {
	switch x := v.(type) {
	case []byte:
		if utf8.Valid(x) {
			return string(x)
		}
		return "0x" + hex.EncodeToString(x)
	case string:
		if !utf8.ValidString(x) {
			return "0x" + hex.EncodeToString([]byte(x))
		}
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return strconv.FormatFloat(x, 'g', -1, 64)
		}
	case float32:
		if f := float64(x); math.IsNaN(f) || math.IsInf(f, 0) {
			return strconv.FormatFloat(f, 'g', -1, 32)
		}
	}
	return v
}
