package engine

import (
	"context"
	"strings"

	"dqc/internal/database"
	"dqc/internal/logger"
	"dqc/internal/report"
	"dqc/internal/schema"

	"github.com/pkg/errors"
)

// ScanOptions selects which tables a database scan visits.
type ScanOptions struct {
	SkipTables []string
	SkipLarge  bool
}

// Progress is called after each table, skipped or not.
type Progress func(table string, done, total int)

// Scanner drives the Checker over every table of a schema.
type Scanner struct {
	in      *schema.Introspector
	checker *Checker
	log     *logger.Logger
}

func NewScanner(in *schema.Introspector, checker *Checker, log *logger.Logger) *Scanner {
	return &Scanner{in: in, checker: checker, log: log}
}

// Scan checks every table in lexical order. The skip list is applied before
// any row count is read; the size filter uses catalog estimates only. If ctx
// is cancelled between tables, the report built so far is returned flagged
// as partial.
func (s *Scanner) Scan(ctx context.Context, opts ScanOptions, onProgress Progress) (*report.DatabaseReport, error) {
	rep := report.NewDatabaseReport()

	names, err := s.in.TableNames(ctx)
	if err != nil {
		return rep, s.abort(ctx, err)
	}

	skipped := make(map[string]report.SkipReason)
	remaining, explicit := FilterSkipList(names, opts.SkipTables)
	for _, n := range explicit {
		skipped[n] = report.SkipExplicit
	}

	if opts.SkipLarge {
		var large []string
		remaining, large, err = FilterBySize(ctx, remaining, s.checker.opts.Threshold, s.estimate)
		if err != nil {
			if ctx.Err() != nil {
				rep.Partial = true
				return rep, nil
			}
			return rep, err
		}
		for _, n := range large {
			skipped[n] = report.SkipSizeThreshold
		}
	}
	s.log.Debugf("scanning %d of %d tables", len(remaining), len(names))

	for i, name := range names {
		if ctx.Err() != nil {
			s.log.Warn("scan interrupted, report is partial")
			rep.Partial = true
			break
		}

		if reason, ok := skipped[name]; ok {
			rep.Add(report.SkippedTable(name, reason))
		} else {
			tr, err := s.scanTable(ctx, name)
			if err != nil {
				if ctx.Err() != nil {
					s.log.Warn("scan interrupted, report is partial")
					rep.Partial = true
					break
				}
				return rep, err
			}
			rep.Add(tr)
		}

		if onProgress != nil {
			onProgress(name, i+1, len(names))
		}
	}
	return rep, nil
}

func (s *Scanner) scanTable(ctx context.Context, name string) (*report.TableReport, error) {
	t, err := s.in.DescribeTable(ctx, name)
	if err != nil {
		if fatal(ctx, err) {
			return nil, s.abort(ctx, err)
		}
		s.log.WithError(err).Warnf("cannot describe %s", name)
		return &report.TableReport{Table: name, Error: err.Error()}, nil
	}

	snapshot := t.RowEstimate
	if s.checker.opts.NeedsCount() && !t.RowCountExact {
		if snapshot, err = s.in.CountRows(ctx, t.Name); err != nil {
			if fatal(ctx, err) {
				return nil, s.abort(ctx, err)
			}
			s.log.WithError(err).Warnf("cannot count rows of %s", name)
			return &report.TableReport{Table: name, Error: err.Error()}, nil
		}
	}

	return s.checker.CheckTable(ctx, t, snapshot)
}

func (s *Scanner) estimate(ctx context.Context, table string) (int64, error) {
	n, err := s.in.EstimateRows(ctx, table)
	if err != nil && fatal(ctx, err) {
		return 0, s.abort(ctx, err)
	}
	return n, err
}

func (s *Scanner) abort(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if database.IsConnectionError(err) {
		var connErr *database.ConnectionError
		if errors.As(err, &connErr) {
			return err
		}
		return &database.ConnectionError{Driver: s.checker.d.Name(), Err: err}
	}
	return err
}

// FilterSkipList splits names into kept and explicitly skipped ones.
// Matching is case-insensitive and issues no queries.
func FilterSkipList(names, skip []string) (kept, skipped []string) {
	set := make(map[string]bool, len(skip))
	for _, s := range skip {
		set[strings.ToLower(strings.TrimSpace(s))] = true
	}
	for _, n := range names {
		if set[strings.ToLower(n)] {
			skipped = append(skipped, n)
		} else {
			kept = append(kept, n)
		}
	}
	return kept, skipped
}

// EstimateFunc returns a cheap row-count estimate for a table.
type EstimateFunc func(ctx context.Context, table string) (int64, error)

// FilterBySize splits names into tables at or under threshold and tables
// above it. A table whose estimate fails with a non-fatal error is kept.
func FilterBySize(ctx context.Context, names []string, threshold int64, estimate EstimateFunc) (kept, large []string, err error) {
	for _, n := range names {
		rows, err := estimate(ctx, n)
		if err != nil {
			if fatal(ctx, err) {
				return nil, nil, err
			}
			kept = append(kept, n)
			continue
		}
		if rows > threshold {
			large = append(large, n)
		} else {
			kept = append(kept, n)
		}
	}
	return kept, large, nil
}
