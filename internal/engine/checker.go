package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dqc/internal/database"
	"dqc/internal/dialect"
	"dqc/internal/logger"
	"dqc/internal/predicate"
	"dqc/internal/report"
	"dqc/internal/schema"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	DefaultThreshold      = 500000
	DefaultSampleSize     = 5
	DefaultContextColumns = 3

	tableAlias = "t"
)

// Options is the check configuration: which kinds run, on which column
// classes, and how much evidence each finding carries.
type Options struct {
	Checks         report.KindSet
	Classes        schema.ClassSet
	SampleSize     int
	ContextColumns int
	Threshold      int64
	QueryTimeout   time.Duration // per statement, 0 = none

	// Encoding is the server character set. Empty means Unicode.
	Encoding string
	// ServerTimeout is set when the session already enforces QueryTimeout.
	ServerTimeout bool
}

func DefaultOptions() Options {
	return Options{
		Checks:         report.AllKinds,
		Classes:        schema.AllClasses,
		SampleSize:     DefaultSampleSize,
		ContextColumns: DefaultContextColumns,
		Threshold:      DefaultThreshold,
	}
}

// NeedsCount reports whether any enabled check uses the row-count snapshot.
func (o Options) NeedsCount() bool {
	return o.Checks.Has(report.Nan) || o.Checks.Has(report.OrphanReference) ||
		o.Checks.Has(report.Encoding) || o.Checks.Has(report.LargeTable)
}

// Checker runs the enabled checks against one table at a time.
type Checker struct {
	q    database.Querier
	d    dialect.Dialect
	opts Options
	log  *logger.Logger
}

func NewChecker(q database.Querier, d dialect.Dialect, opts Options, log *logger.Logger) *Checker {
	return &Checker{q: q, d: d, opts: opts, log: log}
}

// CheckTable runs the enabled checks in canonical order. snapshot is the row
// count every percentage is computed against; zero skips all count queries.
// A failing check becomes a finding with an error marker. Only a lost
// connection or cancellation of ctx is returned as an error.
func (c *Checker) CheckTable(ctx context.Context, t *schema.Table, snapshot int64) (*report.TableReport, error) {
	r := &report.TableReport{Table: t.Name, RowCount: snapshot}

	if c.opts.Checks.Has(report.Nan) || c.opts.Checks.Has(report.Encoding) {
		for _, col := range t.Columns {
			if col.Class == schema.Other {
				r.Excluded = append(r.Excluded, report.Exclusion{Column: col.Name, Type: col.DataType, Reason: "unsupported type"})
			}
		}
	}

	steps := []struct {
		kind report.Kind
		run  func(context.Context, *schema.Table, int64, *report.TableReport) error
	}{
		{report.Nan, c.checkNaN},
		{report.OrphanReference, c.checkReferences},
		{report.Encoding, c.checkEncoding},
		{report.MissingPrimaryKey, c.checkPrimaryKey},
		{report.LargeTable, c.checkLargeTable},
	}
	for _, step := range steps {
		if !c.opts.Checks.Has(step.kind) {
			continue
		}
		if err := step.run(ctx, t, snapshot, r); err != nil {
			return r, err
		}
	}
	return r, nil
}

func (c *Checker) checkNaN(ctx context.Context, t *schema.Table, snapshot int64, r *report.TableReport) error {
	for _, col := range t.Columns {
		if col.Class == schema.Other || !c.opts.Classes.Has(col.Class) {
			continue
		}
		p := predicate.ForNaN(col, c.d)
		if p == nil {
			continue
		}
		f := &report.Finding{Kind: report.Nan, Table: t.Name, Columns: []string{col.Name}}
		if err := c.run(ctx, t, snapshot, f, p, f.Columns, r); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) checkReferences(ctx context.Context, t *schema.Table, snapshot int64, r *report.TableReport) error {
	for _, fk := range t.ForeignKeys {
		p := predicate.ForOrphans(fk, t.Schema)
		if p == nil {
			continue
		}
		f := &report.Finding{
			Kind:       report.OrphanReference,
			Table:      t.Name,
			Columns:    fk.LocalColumns(),
			Constraint: fk.Name,
			Detail:     fmt.Sprintf("references %s(%s)", fk.RefTable, strings.Join(fk.ReferencedColumns(), ", ")),
		}
		if err := c.run(ctx, t, snapshot, f, p, f.Columns, r); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) checkPrimaryKey(_ context.Context, t *schema.Table, _ int64, r *report.TableReport) error {
	if !t.HasPrimaryKey() {
		r.Add(&report.Finding{
			Kind:   report.MissingPrimaryKey,
			Table:  t.Name,
			Detail: "no primary key constraint",
		})
	}
	return nil
}

func (c *Checker) checkLargeTable(_ context.Context, t *schema.Table, snapshot int64, r *report.TableReport) error {
	if snapshot <= c.opts.Threshold {
		return nil
	}
	r.Add(&report.Finding{
		Kind:       report.LargeTable,
		Table:      t.Name,
		Count:      snapshot,
		Percentage: report.Percent(snapshot-c.opts.Threshold, c.opts.Threshold),
		Detail:     fmt.Sprintf("%d rows, threshold %d", snapshot, c.opts.Threshold),
	})
	return nil
}

// run counts the rows matching p and, when there are any, samples them.
func (c *Checker) run(ctx context.Context, t *schema.Table, snapshot int64, f *report.Finding, p predicate.Predicate, offending []string, r *report.TableReport) error {
	if snapshot == 0 {
		return nil
	}

	from := fmt.Sprintf("%s %s", c.d.QualifiedTable(t.Schema, t.Name), tableAlias)
	where := predicate.Lower(p, c.d, tableAlias)

	count, err := c.count(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", from, where))
	if err != nil {
		return c.fail(ctx, f, r, err)
	}
	if count == 0 {
		return nil
	}

	f.Count = count
	f.Percentage = report.Percent(count, snapshot)

	sample, err := c.sample(ctx, t, from, where, offending)
	if err != nil {
		if fatal(ctx, err) {
			return c.abort(ctx, err)
		}
		c.log.WithFields(logrus.Fields{"check": f.Kind, "subject": f.Subject()}).WithError(err).Warn("sampling failed")
		f.SampleError = err.Error()
	}
	f.Sample = sample
	r.Add(f)
	return nil
}

// fail records err on f and reports it. A fatal error ends the run instead.
func (c *Checker) fail(ctx context.Context, f *report.Finding, r *report.TableReport, err error) error {
	if fatal(ctx, err) {
		return c.abort(ctx, err)
	}
	c.log.WithFields(logrus.Fields{"check": f.Kind, "subject": f.Subject()}).WithError(err).Warn("check failed")
	f.Error = err.Error()
	r.Add(f)
	return nil
}

func (c *Checker) count(ctx context.Context, query string) (int64, error) {
	qctx, cancel := c.queryContext(ctx)
	defer cancel()

	c.log.Debug(query)
	var n int64
	if err := c.q.QueryRowContext(qctx, query).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count query failed")
	}
	return n, nil
}

// sample reads at most SampleSize matching rows.
func (c *Checker) sample(ctx context.Context, t *schema.Table, from, where string, offending []string) ([]report.SampleRow, error) {
	if c.opts.SampleSize <= 0 {
		return nil, nil
	}

	keys, values := SampleColumns(t, offending, c.opts.ContextColumns)
	query := c.d.GetLimitRowQuery(c.selectQuery(from, where, keys, values), c.opts.SampleSize)

	var out []report.SampleRow
	err := c.scanRows(ctx, query, len(keys)+len(values), func(vals []any) bool {
		out = append(out, sampleRow(keys, values, vals))
		return len(out) < c.opts.SampleSize
	})
	return out, err
}

// selectQuery selects keys then values from the matching rows, ordered by
// primary key when the table has one.
func (c *Checker) selectQuery(from, where string, keys, values []string) string {
	cols := append(append([]string{}, keys...), values...)
	refs := make([]string, len(cols))
	for i, col := range cols {
		refs[i] = tableAlias + "." + c.d.QuoteIdent(col)
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", strings.Join(refs, ", "), from, where)
	if len(keys) > 0 {
		query += " ORDER BY " + strings.Join(refs[:len(keys)], ", ")
	}
	return query
}

// scanRows runs query and hands each row of n columns to fn until fn
// returns false or the rows run out.
func (c *Checker) scanRows(ctx context.Context, query string, n int, fn func(vals []any) bool) error {
	qctx, cancel := c.queryContext(ctx)
	defer cancel()

	c.log.Debug(query)
	rows, err := c.q.QueryContext(qctx, query)
	if err != nil {
		return errors.Wrap(err, "sample query failed")
	}
	defer rows.Close()

	for rows.Next() {
		vals := make([]any, n)
		ptrs := make([]any, n)
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return errors.Wrap(err, "failed to scan sample row")
		}
		if !fn(vals) {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "error iterating sample rows")
	}
	return nil
}

// queryContext bounds one statement on the client when the server does not
// enforce the timeout itself. Cancelling a statement this way closes the
// connection on some drivers.
func (c *Checker) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opts.QueryTimeout > 0 && !c.opts.ServerTimeout {
		return context.WithTimeout(ctx, c.opts.QueryTimeout)
	}
	return ctx, func() {}
}

func (c *Checker) abort(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return &database.ConnectionError{Driver: c.d.Name(), Err: err}
}

// fatal separates run-ending errors from failures of a single statement.
func fatal(ctx context.Context, err error) bool {
	return ctx.Err() != nil || database.IsConnectionError(err)
}
