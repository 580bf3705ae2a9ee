package engine_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"dqc/internal/dialect"
	"dqc/internal/engine"
	"dqc/internal/logger"
	"dqc/internal/report"
	"dqc/internal/schema"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tablesQuery   = "FROM information_schema.tables WHERE table_schema = $1"
	estimateQuery = "SELECT c.reltuples::bigint"
)

func newScanner(t *testing.T, opts engine.Options) (*engine.Scanner, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	d := &dialect.PostgresDialect{}
	log := logger.Discard()
	in := schema.NewIntrospector(db, d, "public", log)
	return engine.NewScanner(in, engine.NewChecker(db, d, opts, log), log), mock
}

func tableRows(names ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"table_name"})
	for _, n := range names {
		rows.AddRow(n)
	}
	return rows
}

func expectDescribeNoKeys(mock sqlmock.Sqlmock, table string, estimate int64) {
	mock.ExpectQuery(q("c.table_schema = $1 AND c.table_name = $2")).WithArgs("public", table).
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "column_default", "ordinal_position"}).
			AddRow("id", "integer", "NO", nil, 1))
	mock.ExpectQuery(q("tc.constraint_type = 'PRIMARY KEY'")).WithArgs("public", table).
		WillReturnRows(sqlmock.NewRows([]string{"constraint_name", "column_name"}))
	mock.ExpectQuery(q("FROM pg_constraint con")).WithArgs("public", table).
		WillReturnRows(sqlmock.NewRows([]string{"a", "b", "c", "d", "e"}))
	mock.ExpectQuery(q("FROM pg_index ix")).WithArgs("public", table).
		WillReturnRows(sqlmock.NewRows([]string{"a", "b", "c", "d"}))
	mock.ExpectQuery(q(estimateQuery)).WithArgs("public", table).
		WillReturnRows(sqlmock.NewRows([]string{"reltuples"}).AddRow(estimate))
}

// logs: 10 rows, events: 600,000 rows, threshold 500,000.
func TestScan_SkipListAndSizeThreshold(t *testing.T) {
	s, mock := newScanner(t, engine.DefaultOptions())

	mock.ExpectQuery(q(tablesQuery)).WillReturnRows(tableRows("events", "logs"))
	// logs is skipped by name, so only events is estimated
	mock.ExpectQuery(q(estimateQuery)).WithArgs("public", "events").
		WillReturnRows(sqlmock.NewRows([]string{"reltuples"}).AddRow(600000))

	var seen []string
	rep, err := s.Scan(context.Background(), engine.ScanOptions{SkipTables: []string{"logs"}, SkipLarge: true},
		func(table string, done, total int) { seen = append(seen, fmt.Sprintf("%s %d/%d", table, done, total)) })
	require.NoError(t, err)

	require.Len(t, rep.Tables, 2)
	assert.Equal(t, "events", rep.Tables[0].Table)
	assert.True(t, rep.Tables[0].Skipped)
	assert.Equal(t, report.SkipSizeThreshold, rep.Tables[0].SkipReason)
	assert.Equal(t, "logs", rep.Tables[1].Table)
	assert.Equal(t, report.SkipExplicit, rep.Tables[1].SkipReason)

	assert.Equal(t, 2, rep.Summary.TablesSkipped)
	assert.Equal(t, 0, rep.Summary.TablesScanned)
	assert.False(t, rep.Partial)
	assert.Equal(t, []string{"events 1/2", "logs 2/2"}, seen)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScan_EmptyDatabase(t *testing.T) {
	s, mock := newScanner(t, engine.DefaultOptions())
	mock.ExpectQuery(q(tablesQuery)).WillReturnRows(tableRows())

	rep, err := s.Scan(context.Background(), engine.ScanOptions{}, nil)
	require.NoError(t, err)
	assert.Empty(t, rep.Tables)
	assert.Zero(t, rep.Summary.TablesScanned)
}

func TestScan_InterruptedIsPartial(t *testing.T) {
	s, mock := newScanner(t, only(report.MissingPrimaryKey))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mock.ExpectQuery(q(tablesQuery)).WillReturnRows(tableRows("alpha", "beta"))
	expectDescribeNoKeys(mock, "alpha", 10)

	rep, err := s.Scan(ctx, engine.ScanOptions{}, func(string, int, int) { cancel() })
	require.NoError(t, err)
	assert.True(t, rep.Partial)
	require.Len(t, rep.Tables, 1)
	assert.Equal(t, "alpha", rep.Tables[0].Table)
	// no COUNT(*) when only table-level checks run
	assert.Equal(t, int64(10), rep.Tables[0].RowCount)
	require.Len(t, rep.Tables[0].Findings, 1)
	assert.Equal(t, report.MissingPrimaryKey, rep.Tables[0].Findings[0].Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScan_ReusesExactCountWithoutStatistics(t *testing.T) {
	s, mock := newScanner(t, only(report.Nan))

	mock.ExpectQuery(q(tablesQuery)).WillReturnRows(tableRows("fresh"))
	expectDescribeNoKeys(mock, "fresh", -1)
	mock.ExpectQuery(q(`SELECT COUNT(*) FROM "public"."fresh"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(8)))

	rep, err := s.Scan(context.Background(), engine.ScanOptions{}, nil)
	require.NoError(t, err)
	require.Len(t, rep.Tables, 1)
	assert.Empty(t, rep.Tables[0].Error)
	assert.Equal(t, int64(8), rep.Tables[0].RowCount)
	// id is NOT NULL integer: no NaN query, and no second COUNT(*)
	assert.Empty(t, rep.Tables[0].Findings)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScan_DescribeFailureIsRecorded(t *testing.T) {
	s, mock := newScanner(t, engine.DefaultOptions())

	mock.ExpectQuery(q(tablesQuery)).WillReturnRows(tableRows("vault"))
	mock.ExpectQuery(q("c.table_schema = $1 AND c.table_name = $2")).
		WillReturnError(errors.New("permission denied for table vault"))

	rep, err := s.Scan(context.Background(), engine.ScanOptions{}, nil)
	require.NoError(t, err)
	require.Len(t, rep.Tables, 1)
	assert.Contains(t, rep.Tables[0].Error, "permission denied")
	assert.Equal(t, 1, rep.Summary.FailedChecks)
}

func TestLargeTables(t *testing.T) {
	s, mock := newScanner(t, engine.DefaultOptions())
	expect := func(sizes map[string]int64, names ...string) {
		mock.ExpectQuery(q(tablesQuery)).WillReturnRows(tableRows(names...))
		for _, n := range names {
			mock.ExpectQuery(q(estimateQuery)).WithArgs("public", n).
				WillReturnRows(sqlmock.NewRows([]string{"reltuples"}).AddRow(sizes[n]))
		}
	}
	sizes := map[string]int64{"audit": 700000, "events": 900000, "tags": 10, "zebra": 700000}

	expect(sizes, "audit", "events", "tags", "zebra")
	got, err := s.LargeTables(context.Background(), 500000, 0, false, nil)
	require.NoError(t, err)
	assert.Equal(t, []engine.TableSize{
		{Table: "events", Rows: 900000, Large: true},
		{Table: "audit", Rows: 700000, Large: true},
		{Table: "zebra", Rows: 700000, Large: true},
	}, got)

	expect(sizes, "audit", "events", "tags", "zebra")
	got, err = s.LargeTables(context.Background(), 500000, 1, false, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "events", got[0].Table)

	mock.ExpectQuery(q(tablesQuery)).WillReturnRows(tableRows("audit", "events", "tags", "zebra"))
	for _, n := range []string{"audit", "events", "tags"} {
		mock.ExpectQuery(q(estimateQuery)).WithArgs("public", n).
			WillReturnRows(sqlmock.NewRows([]string{"reltuples"}).AddRow(sizes[n]))
	}
	got, err = s.LargeTables(context.Background(), 500000, 0, true, []string{"ZEBRA"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, engine.TableSize{Table: "tags", Rows: 10}, got[2])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFilters_IdempotentAndCommutative(t *testing.T) {
	faker := gofakeit.New(42)
	ctx := context.Background()
	const threshold = 500000

	for i := 0; i < 50; i++ {
		var names []string
		estimates := make(map[string]int64)
		count := faker.Number(0, 15)
		for j := 0; j < count; j++ {
			n := fmt.Sprintf("%s_%d", strings.ToLower(faker.Noun()), j)
			names = append(names, n)
			estimates[n] = int64(faker.Number(0, 1000000))
		}
		var skip []string
		for _, n := range names {
			if faker.Bool() {
				if faker.Bool() {
					n = strings.ToUpper(n)
				}
				skip = append(skip, n)
			}
		}
		skip = append(skip, "not_a_table")
		estimate := func(_ context.Context, n string) (int64, error) { return estimates[n], nil }

		keptA, explicitA := engine.FilterSkipList(names, skip)
		keptA, largeA, err := engine.FilterBySize(ctx, keptA, threshold, estimate)
		require.NoError(t, err)

		keptB, largeB, err := engine.FilterBySize(ctx, names, threshold, estimate)
		require.NoError(t, err)
		keptB, explicitB := engine.FilterSkipList(keptB, skip)

		assert.ElementsMatch(t, keptA, keptB)
		assert.ElementsMatch(t, append(explicitA, largeA...), append(explicitB, largeB...))

		again, none := engine.FilterSkipList(keptA, skip)
		assert.Equal(t, keptA, again)
		assert.Empty(t, none)
	}
}
