package dialect

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type MysqlDialect struct{}

func (d *MysqlDialect) Name() string { return "mysql" }

func (d *MysqlDialect) GetTablesQuery() string {
	return `SELECT TABLE_NAME FROM information_schema.TABLES WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE' ORDER BY TABLE_NAME`
}

func (d *MysqlDialect) GetColumnsQuery() string {
	return `SELECT COLUMN_NAME, COLUMN_TYPE, IS_NULLABLE, COLUMN_DEFAULT, ORDINAL_POSITION
FROM information_schema.COLUMNS
WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
ORDER BY ORDINAL_POSITION`
}

func (d *MysqlDialect) GetAllColumnsQuery() string {
	return `SELECT c.TABLE_NAME, c.COLUMN_NAME, c.COLUMN_TYPE, c.IS_NULLABLE
FROM information_schema.COLUMNS c
JOIN information_schema.TABLES t ON t.TABLE_SCHEMA = c.TABLE_SCHEMA AND t.TABLE_NAME = c.TABLE_NAME
WHERE c.TABLE_SCHEMA = ? AND t.TABLE_TYPE = 'BASE TABLE'
ORDER BY c.TABLE_NAME, c.ORDINAL_POSITION`
}

func (d *MysqlDialect) GetPrimaryKeyQuery() string {
	return `SELECT tc.CONSTRAINT_NAME, kcu.COLUMN_NAME
FROM information_schema.TABLE_CONSTRAINTS tc
JOIN information_schema.KEY_COLUMN_USAGE kcu
    ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
    AND tc.TABLE_SCHEMA = kcu.TABLE_SCHEMA
    AND tc.TABLE_NAME = kcu.TABLE_NAME
WHERE tc.CONSTRAINT_TYPE = 'PRIMARY KEY' AND tc.TABLE_SCHEMA = ? AND tc.TABLE_NAME = ?
ORDER BY kcu.ORDINAL_POSITION`
}

func (d *MysqlDialect) GetForeignKeysQuery() string {
	return `SELECT CONSTRAINT_NAME, COLUMN_NAME, REFERENCED_TABLE_SCHEMA, REFERENCED_TABLE_NAME, REFERENCED_COLUMN_NAME
FROM information_schema.KEY_COLUMN_USAGE
WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ? AND REFERENCED_TABLE_NAME IS NOT NULL
ORDER BY CONSTRAINT_NAME, ORDINAL_POSITION`
}

func (d *MysqlDialect) GetIndexesQuery() string {
	// COLUMN_NAME is NULL for functional key parts.
	return `SELECT
    INDEX_NAME,
    COLUMN_NAME,
    CASE WHEN NON_UNIQUE = 0 THEN 1 ELSE 0 END,
    CASE WHEN INDEX_NAME = 'PRIMARY' THEN 1 ELSE 0 END
FROM information_schema.STATISTICS
WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
ORDER BY INDEX_NAME, SEQ_IN_INDEX`
}

func (d *MysqlDialect) GetRowEstimateQuery() string {
	return `SELECT COALESCE(TABLE_ROWS, -1) FROM information_schema.TABLES WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?`
}

func (d *MysqlDialect) CurrentSchemaQuery() string {
	return "SELECT DATABASE()"
}

func (d *MysqlDialect) BeforeScan(ctx context.Context, conn Execer) error {
	_, err := conn.ExecContext(ctx, "SET SESSION TRANSACTION READ ONLY")
	return err
}

func (d *MysqlDialect) ServerEncodingQuery() string {
	return "SELECT @@character_set_database"
}

// StatementTimeout applies to SELECT statements only, which is all a scan runs.
func (d *MysqlDialect) StatementTimeout(timeout time.Duration) string {
	return fmt.Sprintf("SET SESSION MAX_EXECUTION_TIME = %d", timeoutMillis(timeout))
}

func (d *MysqlDialect) QuoteIdent(name string) string {
	return QuoteWith(name, "`", "`")
}

func (d *MysqlDialect) QualifiedTable(schema, table string) string {
	return JoinQualified(d.QuoteIdent, schema, table)
}

func (d *MysqlDialect) GetLimitRowQuery(query string, limit int) string {
	return fmt.Sprintf("%s LIMIT %d", query, limit)
}

// NaNCondition is empty: MySQL rejects NaN on insert.
func (d *MysqlDialect) NaNCondition(expr, nativeType string) string {
	return ""
}

func (d *MysqlDialect) InvalidTextCondition(expr string, unicode bool) string {
	control := fmt.Sprintf(`%s REGEXP '[\\x00-\\x08\\x0B\\x0C\\x0E-\\x1F\\x7F]'`, expr)
	if !unicode {
		return control
	}
	return fmt.Sprintf(`(%s OR INSTR(%s, _utf8mb4 X'EFBFBD') > 0)`, control, expr)
}

// NonASCIICondition looks at the stored bytes through HEX, which works for
// every character set and needs no binary REGEXP.
func (d *MysqlDialect) NonASCIICondition(expr string) string {
	return fmt.Sprintf(`HEX(%s) REGEXP '^([0-9A-F]{2})*[89A-F]'`, expr)
}

func (d *MysqlDialect) SupportsEquality(nativeType string) bool {
	return true
}

func (d *MysqlDialect) SupportsTextScan(nativeType string) bool {
	return true
}

func (d *MysqlDialect) NormalizeType(sqlType string) string {
	t := strings.ToLower(strings.TrimSpace(sqlType))
	// tinyint(1) is the conventional boolean.
	if t == "tinyint(1)" {
		return "boolean"
	}
	return t
}

func (d *MysqlDialect) GetSchemaName(input string) string {
	return DefaultGetSchemaName(input)
}
