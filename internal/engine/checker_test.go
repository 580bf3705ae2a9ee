package engine_test

import (
	"context"
	"io"
	"math"
	"regexp"
	"testing"

	"dqc/internal/database"
	"dqc/internal/dialect"
	"dqc/internal/engine"
	"dqc/internal/logger"
	"dqc/internal/report"
	"dqc/internal/schema"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func q(s string) string { return regexp.QuoteMeta(s) }

func newChecker(t *testing.T, opts engine.Options) (*engine.Checker, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return engine.NewChecker(db, &dialect.PostgresDialect{}, opts, logger.Discard()), mock
}

func only(kinds ...report.Kind) engine.Options {
	opts := engine.DefaultOptions()
	opts.Checks = report.KindSetOf(kinds...)
	return opts
}

func paymentsTable() *schema.Table {
	return &schema.Table{
		Name:   "payments",
		Schema: "public",
		Columns: []*schema.Column{
			{Name: "id", DataType: "integer", Class: schema.Numeric, Position: 1},
			{Name: "amount", DataType: "double precision", Class: schema.Numeric, IsNullable: true, Position: 2},
		},
		PrimaryKey: &schema.PrimaryKey{Name: "payments_pkey", Columns: []string{"id"}},
	}
}

// amount holds [10.5, NaN, NULL, 20.0]
func TestCheckTable_PaymentsNaN(t *testing.T) {
	c, mock := newChecker(t, only(report.Nan))
	where := `(t."amount" IS NULL OR t."amount" = 'NaN')`

	mock.ExpectQuery(q(`SELECT COUNT(*) FROM "public"."payments" t WHERE ` + where)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(q(`SELECT t."id", t."amount" FROM "public"."payments" t WHERE ` + where + ` ORDER BY t."id" LIMIT 5`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "amount"}).
			AddRow(int64(2), math.NaN()).
			AddRow(int64(3), nil))

	r, err := c.CheckTable(context.Background(), paymentsTable(), 4)
	require.NoError(t, err)
	require.Len(t, r.Findings, 1)

	f := r.Findings[0]
	assert.Equal(t, report.Nan, f.Kind)
	assert.Equal(t, []string{"amount"}, f.Columns)
	assert.Equal(t, int64(2), f.Count)
	assert.Equal(t, 50.0, f.Percentage)
	require.Len(t, f.Sample, 2)
	assert.Equal(t, []report.Field{{Column: "id", Value: int64(2)}}, f.Sample[0].Key)
	assert.Equal(t, "NaN", f.Sample[0].Values[0].Value)
	assert.Equal(t, []report.Field{{Column: "id", Value: int64(3)}}, f.Sample[1].Key)
	assert.Nil(t, f.Sample[1].Values[0].Value)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// customers holds {1, 2}; orders.customer_id holds 1, 3, NULL.
func TestCheckTable_OrdersOrphans(t *testing.T) {
	c, mock := newChecker(t, only(report.OrphanReference))
	tbl := &schema.Table{
		Name:   "orders",
		Schema: "public",
		Columns: []*schema.Column{
			{Name: "id", DataType: "integer", Class: schema.Numeric, Position: 1},
			{Name: "customer_id", DataType: "integer", Class: schema.Numeric, IsNullable: true, Position: 2},
		},
		PrimaryKey: &schema.PrimaryKey{Name: "orders_pkey", Columns: []string{"id"}},
		ForeignKeys: []*schema.ForeignKey{{
			Name:      "orders_customer_id_fkey",
			RefSchema: "public",
			RefTable:  "customers",
			Pairs:     []schema.ColumnPair{{Local: "customer_id", Referenced: "id"}},
		}},
	}
	where := `(t."customer_id" IS NOT NULL AND NOT EXISTS (SELECT 1 FROM "public"."customers" p WHERE p."id" = t."customer_id"))`

	mock.ExpectQuery(q(`SELECT COUNT(*) FROM "public"."orders" t WHERE ` + where)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(q(`SELECT t."id", t."customer_id" FROM "public"."orders" t WHERE ` + where + ` ORDER BY t."id" LIMIT 5`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "customer_id"}).AddRow(2, 3))

	r, err := c.CheckTable(context.Background(), tbl, 3)
	require.NoError(t, err)
	require.Len(t, r.Findings, 1)

	f := r.Findings[0]
	assert.Equal(t, report.OrphanReference, f.Kind)
	assert.Equal(t, "orders_customer_id_fkey", f.Constraint)
	assert.Equal(t, int64(1), f.Count)
	assert.InDelta(t, 33.3, f.Percentage, 0.05)
	assert.Equal(t, "references customers(id)", f.Detail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckTable_EmptyTableRunsNoCounts(t *testing.T) {
	c, mock := newChecker(t, engine.DefaultOptions())
	tbl := paymentsTable()
	tbl.PrimaryKey = nil

	r, err := c.CheckTable(context.Background(), tbl, 0)
	require.NoError(t, err)

	require.Len(t, r.Findings, 1)
	assert.Equal(t, report.MissingPrimaryKey, r.Findings[0].Kind)
	for _, f := range r.Findings {
		assert.Zero(t, f.Percentage)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckTable_FailingColumnDoesNotAbort(t *testing.T) {
	c, mock := newChecker(t, only(report.Nan))
	tbl := &schema.Table{
		Name:   "readings",
		Schema: "public",
		Columns: []*schema.Column{
			{Name: "secret", DataType: "real", Class: schema.Numeric, IsNullable: true},
			{Name: "value", DataType: "real", Class: schema.Numeric, IsNullable: true},
		},
	}

	mock.ExpectQuery(q(`t."secret" IS NULL`)).WillReturnError(errors.New("permission denied for column secret"))
	mock.ExpectQuery(q(`SELECT COUNT(*) FROM "public"."readings" t WHERE (t."value" IS NULL`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	// no primary key: no ORDER BY
	mock.ExpectQuery(q(`SELECT t."value", t."secret" FROM "public"."readings" t WHERE (t."value" IS NULL OR t."value" = 'NaN') LIMIT 5`)).
		WillReturnRows(sqlmock.NewRows([]string{"value", "secret"}).AddRow(nil, 1.5))

	r, err := c.CheckTable(context.Background(), tbl, 10)
	require.NoError(t, err)
	require.Len(t, r.Findings, 2)

	assert.True(t, r.Findings[0].Failed())
	assert.Contains(t, r.Findings[0].Error, "permission denied")
	assert.False(t, r.Findings[1].Failed())
	assert.Equal(t, 10.0, r.Findings[1].Percentage)
	assert.Empty(t, r.Findings[1].Sample[0].Key)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckTable_LostConnectionAborts(t *testing.T) {
	c, mock := newChecker(t, only(report.Nan))
	mock.ExpectQuery(q(`SELECT COUNT(*)`)).WillReturnError(io.ErrUnexpectedEOF)

	_, err := c.CheckTable(context.Background(), paymentsTable(), 4)
	require.Error(t, err)
	assert.True(t, database.IsConnectionError(err))

	var connErr *database.ConnectionError
	assert.ErrorAs(t, err, &connErr)
}

func TestCheckTable_SampleCapped(t *testing.T) {
	opts := only(report.Nan)
	opts.SampleSize = 2
	c, mock := newChecker(t, opts)

	mock.ExpectQuery(q(`SELECT COUNT(*)`)).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectQuery(q(`ORDER BY t."id" LIMIT 2`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "amount"}).
			AddRow(1, nil).AddRow(2, nil).AddRow(3, nil).AddRow(4, nil))

	r, err := c.CheckTable(context.Background(), paymentsTable(), 4)
	require.NoError(t, err)
	assert.Len(t, r.Findings[0].Sample, 2)
	assert.Equal(t, int64(4), r.Findings[0].Count)
}

func TestCheckTable_SampleFailureKeepsCount(t *testing.T) {
	c, mock := newChecker(t, only(report.Nan))
	mock.ExpectQuery(q(`SELECT COUNT(*)`)).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(q(`SELECT t."id"`)).WillReturnError(errors.New("statement timeout"))

	r, err := c.CheckTable(context.Background(), paymentsTable(), 4)
	require.NoError(t, err)
	require.Len(t, r.Findings, 1)
	assert.False(t, r.Findings[0].Failed())
	assert.Equal(t, int64(1), r.Findings[0].Count)
	assert.Contains(t, r.Findings[0].SampleError, "statement timeout")
}

func TestCheckTable_LargeTable(t *testing.T) {
	c, mock := newChecker(t, only(report.LargeTable, report.MissingPrimaryKey))

	r, err := c.CheckTable(context.Background(), paymentsTable(), 600000)
	require.NoError(t, err)
	require.Len(t, r.Findings, 1)

	f := r.Findings[0]
	assert.Equal(t, report.LargeTable, f.Kind)
	assert.Equal(t, int64(600000), f.Count)
	assert.InDelta(t, 20.0, f.Percentage, 1e-9)
	assert.Empty(t, f.Columns)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckTable_ClassFilterAndExclusions(t *testing.T) {
	opts := only(report.Nan, report.Encoding)
	opts.Classes = schema.ClassSetOf(schema.Text)
	c, mock := newChecker(t, opts)

	tbl := &schema.Table{
		Name:   "notes",
		Schema: "public",
		Columns: []*schema.Column{
			{Name: "score", DataType: "double precision", Class: schema.Numeric, IsNullable: true},
			{Name: "body", DataType: "text", Class: schema.Text},
			{Name: "meta", DataType: "jsonb", Class: schema.Other, IsNullable: true},
		},
	}

	mock.ExpectQuery(q(`SELECT COUNT(*) FROM "public"."notes" t WHERE t."body" = 'NaN'`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(q(`SELECT COUNT(*) FROM "public"."notes" t WHERE (strpos(t."body", chr(65533)) > 0`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	r, err := c.CheckTable(context.Background(), tbl, 7)
	require.NoError(t, err)
	assert.Empty(t, r.Findings)
	assert.True(t, r.Clean())
	require.Len(t, r.Excluded, 1)
	assert.Equal(t, "meta", r.Excluded[0].Column)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckTable_CancelledContext(t *testing.T) {
	c, mock := newChecker(t, only(report.Nan))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	mock.ExpectQuery(q(`SELECT COUNT(*)`)).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	_, err := c.CheckTable(ctx, paymentsTable(), 4)
	assert.ErrorIs(t, err, context.Canceled)
}
