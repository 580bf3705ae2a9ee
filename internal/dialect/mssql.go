package dialect

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type MSSQLDialect struct{}

func (d *MSSQLDialect) Name() string { return "sqlserver" }

func (d *MSSQLDialect) GetTablesQuery() string {
	return `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = @p1 AND TABLE_TYPE = 'BASE TABLE' ORDER BY TABLE_NAME`
}

func (d *MSSQLDialect) GetColumnsQuery() string {
	return `SELECT COLUMN_NAME, DATA_TYPE, IS_NULLABLE, COLUMN_DEFAULT, ORDINAL_POSITION
FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_SCHEMA = @p1 AND TABLE_NAME = @p2
ORDER BY ORDINAL_POSITION`
}

func (d *MSSQLDialect) GetAllColumnsQuery() string {
	return `SELECT c.TABLE_NAME, c.COLUMN_NAME, c.DATA_TYPE, c.IS_NULLABLE
FROM INFORMATION_SCHEMA.COLUMNS c
JOIN INFORMATION_SCHEMA.TABLES t ON t.TABLE_SCHEMA = c.TABLE_SCHEMA AND t.TABLE_NAME = c.TABLE_NAME
WHERE c.TABLE_SCHEMA = @p1 AND t.TABLE_TYPE = 'BASE TABLE'
ORDER BY c.TABLE_NAME, c.ORDINAL_POSITION`
}

func (d *MSSQLDialect) GetPrimaryKeyQuery() string {
	return `SELECT tc.CONSTRAINT_NAME, kcu.COLUMN_NAME
FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
    ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
    AND tc.TABLE_SCHEMA = kcu.TABLE_SCHEMA
    AND tc.TABLE_NAME = kcu.TABLE_NAME
WHERE tc.CONSTRAINT_TYPE = 'PRIMARY KEY' AND tc.TABLE_SCHEMA = @p1 AND tc.TABLE_NAME = @p2
ORDER BY kcu.ORDINAL_POSITION`
}

func (d *MSSQLDialect) GetForeignKeysQuery() string {
	return `SELECT fk.name, pc.name, rs.name, rt.name, rc.name
FROM sys.foreign_keys fk
JOIN sys.tables t ON fk.parent_object_id = t.object_id
JOIN sys.schemas s ON t.schema_id = s.schema_id
JOIN sys.foreign_key_columns fkc ON fkc.constraint_object_id = fk.object_id
JOIN sys.columns pc ON pc.object_id = fkc.parent_object_id AND pc.column_id = fkc.parent_column_id
JOIN sys.tables rt ON rt.object_id = fkc.referenced_object_id
JOIN sys.schemas rs ON rt.schema_id = rs.schema_id
JOIN sys.columns rc ON rc.object_id = fkc.referenced_object_id AND rc.column_id = fkc.referenced_column_id
WHERE s.name = @p1 AND t.name = @p2
ORDER BY fk.name, fkc.constraint_column_id`
}

func (d *MSSQLDialect) GetIndexesQuery() string {
	return `SELECT i.name, c.name, CAST(i.is_unique AS INT), CAST(i.is_primary_key AS INT)
FROM sys.indexes i
JOIN sys.tables t ON i.object_id = t.object_id
JOIN sys.schemas s ON t.schema_id = s.schema_id
JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
JOIN sys.columns c ON c.object_id = ic.object_id AND c.column_id = ic.column_id
WHERE s.name = @p1 AND t.name = @p2 AND i.name IS NOT NULL AND ic.is_included_column = 0
ORDER BY i.name, ic.key_ordinal`
}

func (d *MSSQLDialect) GetRowEstimateQuery() string {
	return `SELECT CAST(COALESCE(SUM(p.rows), -1) AS BIGINT)
FROM sys.partitions p
JOIN sys.tables t ON p.object_id = t.object_id
JOIN sys.schemas s ON t.schema_id = s.schema_id
WHERE s.name = @p1 AND t.name = @p2 AND p.index_id IN (0, 1)`
}

func (d *MSSQLDialect) CurrentSchemaQuery() string {
	return "SELECT SCHEMA_NAME()"
}

// BeforeScan is a no-op. SQL Server has no session-wide read-only switch.
func (d *MSSQLDialect) BeforeScan(ctx context.Context, conn Execer) error {
	return nil
}

// ServerEncodingQuery is empty: the driver hands every string out as Unicode.
func (d *MSSQLDialect) ServerEncodingQuery() string {
	return ""
}

// StatementTimeout is empty: SQL Server has no server-side statement
// timeout. The driver cancels with an attention packet and keeps the session.
func (d *MSSQLDialect) StatementTimeout(timeout time.Duration) string {
	return ""
}

func (d *MSSQLDialect) QuoteIdent(name string) string {
	return QuoteWith(name, "[", "]")
}

func (d *MSSQLDialect) QualifiedTable(schema, table string) string {
	return JoinQualified(d.QuoteIdent, schema, table)
}

func (d *MSSQLDialect) GetLimitRowQuery(query string, limit int) string {
	// Simple replacement: SELECT -> SELECT TOP N
	return strings.Replace(query, "SELECT", fmt.Sprintf("SELECT TOP %d", limit), 1)
}

// NaNCondition is empty: float columns cannot store NaN in SQL Server.
func (d *MSSQLDialect) NaNCondition(expr, nativeType string) string {
	return ""
}

func (d *MSSQLDialect) InvalidTextCondition(expr string, unicode bool) string {
	cond := fmt.Sprintf(`CHARINDEX(NCHAR(0) COLLATE Latin1_General_BIN2, %[1]s COLLATE Latin1_General_BIN2) > 0`+
		` OR PATINDEX(N'%%[' + NCHAR(1) + N'-' + NCHAR(8) + NCHAR(11) + NCHAR(12) + NCHAR(14) + N'-' + NCHAR(31) + NCHAR(127) + N']%%' COLLATE Latin1_General_BIN2, %[1]s COLLATE Latin1_General_BIN2) > 0`, expr)
	if unicode {
		cond += fmt.Sprintf(" OR CHARINDEX(NCHAR(65533), %s) > 0", expr)
	}
	return "(" + cond + ")"
}

func (d *MSSQLDialect) NonASCIICondition(expr string) string {
	return ""
}

func (d *MSSQLDialect) SupportsEquality(nativeType string) bool {
	return !oneOf(BaseType(nativeType), "text", "ntext", "image", "xml")
}

// SupportsTextScan is false for the legacy LOB types, which CHARINDEX and
// COLLATE reject.
func (d *MSSQLDialect) SupportsTextScan(nativeType string) bool {
	return !oneOf(BaseType(nativeType), "text", "ntext", "image", "xml")
}

func (d *MSSQLDialect) NormalizeType(sqlType string) string {
	return DefaultNormalizeType(sqlType)
}

func (d *MSSQLDialect) GetSchemaName(input string) string {
	if input == "" {
		return "dbo"
	}
	return input
}
