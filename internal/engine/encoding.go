package engine

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"dqc/internal/dialect"
	"dqc/internal/predicate"
	"dqc/internal/report"
	"dqc/internal/schema"
)

func (c *Checker) checkEncoding(ctx context.Context, t *schema.Table, snapshot int64, r *report.TableReport) error {
	if !c.opts.Classes.Has(schema.Text) {
		return nil
	}
	unicode := dialect.IsUnicodeEncoding(c.opts.Encoding)

	for _, col := range t.Columns {
		if col.Class != schema.Text {
			continue
		}
		if !c.d.SupportsTextScan(col.DataType) {
			r.Excluded = append(r.Excluded, report.Exclusion{Column: col.Name, Type: col.DataType, Reason: "type cannot be searched for bad text"})
			continue
		}

		f := &report.Finding{Kind: report.Encoding, Table: t.Name, Columns: []string{col.Name}}
		var err error
		if cand := predicate.ForEncodingCandidates(col, c.d); !unicode && cand != nil {
			err = c.validateText(ctx, t, snapshot, f, cand, r)
		} else {
			err = c.run(ctx, t, snapshot, f, predicate.ForEncoding(col, unicode), f.Columns, r)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// validateText reads every row the candidate predicate lets through and
// counts the values that are not valid UTF-8 or hold control characters.
// Servers with a single-byte character set cannot express that test in SQL.
func (c *Checker) validateText(ctx context.Context, t *schema.Table, snapshot int64, f *report.Finding, cand predicate.Predicate, r *report.TableReport) error {
	if snapshot == 0 {
		return nil
	}

	from := fmt.Sprintf("%s %s", c.d.QualifiedTable(t.Schema, t.Name), tableAlias)
	where := predicate.Lower(cand, c.d, tableAlias)
	keys, values := SampleColumns(t, f.Columns, c.opts.ContextColumns)
	pos := offendingPosition(t, f.Columns[0], keys)

	var count int64
	var sample []report.SampleRow
	err := c.scanRows(ctx, c.selectQuery(from, where, keys, values), len(keys)+len(values), func(vals []any) bool {
		if !invalidText(vals[pos]) {
			return true
		}
		count++
		if len(sample) < c.opts.SampleSize {
			sample = append(sample, sampleRow(keys, values, vals))
		}
		return true
	})
	if err != nil {
		return c.fail(ctx, f, r, err)
	}
	if count == 0 {
		return nil
	}

	f.Count = count
	f.Percentage = report.Percent(count, snapshot)
	f.Sample = sample
	r.Add(f)
	return nil
}

// offendingPosition finds the column in a row laid out as keys then values.
// SampleColumns puts an offending column first among the values unless it is
// part of the key.
func offendingPosition(t *schema.Table, column string, keys []string) int {
	if t.IsPrimaryKeyColumn(column) {
		for i, k := range keys {
			if k == column {
				return i
			}
		}
	}
	return len(keys)
}

// invalidText reports whether a scanned text value is malformed: not UTF-8,
// a replacement character, or a control character other than tab, CR and LF.
func invalidText(v any) bool {
	var s string
	switch x := v.(type) {
	case []byte:
		s = string(x)
	case string:
		s = x
	default:
		return false
	}
	if !utf8.ValidString(s) || strings.ContainsRune(s, utf8.RuneError) {
		return true
	}
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b == 0x7f || (b < 0x20 && b != '\t' && b != '\n' && b != '\r') {
			return true
		}
	}
	return false
}
