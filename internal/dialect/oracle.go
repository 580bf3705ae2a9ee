package dialect

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type OracleDialect struct{}

func (d *OracleDialect) Name() string { return "oracle" }

// Oracle catalog queries read the ALL_ views filtered by owner, so any
// schema the session can see may be inspected. go-ora binds by position:
// each query uses :1 (owner) and :2 (table) once, in that order.

func (d *OracleDialect) GetTablesQuery() string {
	return `SELECT TABLE_NAME FROM ALL_TABLES WHERE OWNER = :1 AND NESTED = 'NO' AND SECONDARY = 'N' AND DROPPED = 'NO' ORDER BY TABLE_NAME`
}

func (d *OracleDialect) GetColumnsQuery() string {
	return `SELECT
    COLUMN_NAME,
    DATA_TYPE,
    CASE WHEN NULLABLE = 'Y' THEN 'YES' ELSE 'NO' END,
    NULL,
    COLUMN_ID
FROM ALL_TAB_COLUMNS
WHERE OWNER = :1 AND TABLE_NAME = :2
ORDER BY COLUMN_ID`
}

func (d *OracleDialect) GetAllColumnsQuery() string {
	return `SELECT
    c.TABLE_NAME,
    c.COLUMN_NAME,
    c.DATA_TYPE,
    CASE WHEN c.NULLABLE = 'Y' THEN 'YES' ELSE 'NO' END
FROM ALL_TAB_COLUMNS c
JOIN ALL_TABLES t ON t.OWNER = c.OWNER AND t.TABLE_NAME = c.TABLE_NAME
WHERE c.OWNER = :1
ORDER BY c.TABLE_NAME, c.COLUMN_ID`
}

func (d *OracleDialect) GetPrimaryKeyQuery() string {
	return `SELECT ac.CONSTRAINT_NAME, cc.COLUMN_NAME
FROM ALL_CONSTRAINTS ac
JOIN ALL_CONS_COLUMNS cc ON cc.OWNER = ac.OWNER AND cc.CONSTRAINT_NAME = ac.CONSTRAINT_NAME
WHERE ac.CONSTRAINT_TYPE = 'P' AND ac.OWNER = :1 AND ac.TABLE_NAME = :2
ORDER BY cc.POSITION`
}

func (d *OracleDialect) GetForeignKeysQuery() string {
	return `SELECT c.CONSTRAINT_NAME, cc.COLUMN_NAME, r.OWNER, r.TABLE_NAME, rcc.COLUMN_NAME
FROM ALL_CONSTRAINTS c
JOIN ALL_CONS_COLUMNS cc ON cc.OWNER = c.OWNER AND cc.CONSTRAINT_NAME = c.CONSTRAINT_NAME
JOIN ALL_CONSTRAINTS r ON r.OWNER = c.R_OWNER AND r.CONSTRAINT_NAME = c.R_CONSTRAINT_NAME
JOIN ALL_CONS_COLUMNS rcc ON rcc.OWNER = r.OWNER AND rcc.CONSTRAINT_NAME = r.CONSTRAINT_NAME AND rcc.POSITION = cc.POSITION
WHERE c.CONSTRAINT_TYPE = 'R' AND c.OWNER = :1 AND c.TABLE_NAME = :2
ORDER BY c.CONSTRAINT_NAME, cc.POSITION`
}

func (d *OracleDialect) GetIndexesQuery() string {
	return `SELECT
    ic.INDEX_NAME,
    ic.COLUMN_NAME,
    CASE WHEN i.UNIQUENESS = 'UNIQUE' THEN 1 ELSE 0 END,
    CASE WHEN pk.CONSTRAINT_NAME IS NOT NULL THEN 1 ELSE 0 END
FROM ALL_IND_COLUMNS ic
JOIN ALL_INDEXES i ON i.OWNER = ic.INDEX_OWNER AND i.INDEX_NAME = ic.INDEX_NAME
LEFT JOIN ALL_CONSTRAINTS pk ON pk.OWNER = ic.TABLE_OWNER AND pk.INDEX_NAME = ic.INDEX_NAME AND pk.CONSTRAINT_TYPE = 'P'
WHERE ic.TABLE_OWNER = :1 AND ic.TABLE_NAME = :2
ORDER BY ic.INDEX_NAME, ic.COLUMN_POSITION`
}

func (d *OracleDialect) GetRowEstimateQuery() string {
	return `SELECT COALESCE(NUM_ROWS, -1) FROM ALL_TABLES WHERE OWNER = :1 AND TABLE_NAME = :2`
}

func (d *OracleDialect) CurrentSchemaQuery() string {
	return "SELECT USER FROM DUAL"
}

func (d *OracleDialect) BeforeScan(ctx context.Context, conn Execer) error {
	// Stable rendering of temporal samples.
	if _, err := conn.ExecContext(ctx, "ALTER SESSION SET NLS_DATE_FORMAT = 'YYYY-MM-DD HH24:MI:SS'"); err != nil {
		return err
	}
	_, err := conn.ExecContext(ctx, "ALTER SESSION SET NLS_TIMESTAMP_FORMAT = 'YYYY-MM-DD HH24:MI:SS.FF'")
	return err
}

func (d *OracleDialect) ServerEncodingQuery() string {
	return "SELECT VALUE FROM NLS_DATABASE_PARAMETERS WHERE PARAMETER = 'NLS_CHARACTERSET'"
}

// StatementTimeout is empty: per-call limits need the Resource Manager.
func (d *OracleDialect) StatementTimeout(timeout time.Duration) string {
	return ""
}

func (d *OracleDialect) QuoteIdent(name string) string {
	return QuoteWith(name, `"`, `"`)
}

func (d *OracleDialect) QualifiedTable(schema, table string) string {
	return JoinQualified(d.QuoteIdent, schema, table)
}

func (d *OracleDialect) GetLimitRowQuery(query string, limit int) string {
	return fmt.Sprintf("SELECT * FROM (%s) WHERE ROWNUM <= %d", query, limit)
}

func (d *OracleDialect) NaNCondition(expr, nativeType string) string {
	switch BaseType(nativeType) {
	case "binary_float", "binary_double":
		return fmt.Sprintf("%s IS NAN", expr)
	}
	return ""
}

func (d *OracleDialect) InvalidTextCondition(expr string, unicode bool) string {
	cond := fmt.Sprintf(`INSTR(%[1]s, CHR(0)) > 0`+
		` OR REGEXP_LIKE(%[1]s, '[' || CHR(1) || '-' || CHR(8) || CHR(11) || CHR(12) || CHR(14) || '-' || CHR(31) || CHR(127) || ']')`, expr)
	if unicode {
		cond += fmt.Sprintf(` OR INSTR(%s, UNISTR('\FFFD')) > 0`, expr)
	}
	return "(" + cond + ")"
}

// NonASCIICondition relies on ASCIISTR escaping every non-ASCII character
// as \XXXX. A literal backslash is escaped too; the caller validates
// candidates.
func (d *OracleDialect) NonASCIICondition(expr string) string {
	return fmt.Sprintf(`INSTR(ASCIISTR(%s), '\') > 0`, expr)
}

func (d *OracleDialect) SupportsEquality(nativeType string) bool {
	return !oneOf(BaseType(nativeType), "clob", "nclob", "blob", "long", "long raw")
}

// SupportsTextScan is false for LONG, which no SQL function accepts.
func (d *OracleDialect) SupportsTextScan(nativeType string) bool {
	return !oneOf(BaseType(nativeType), "long", "long raw")
}

func (d *OracleDialect) NormalizeType(sqlType string) string {
	t := strings.ToLower(strings.TrimSpace(sqlType))
	// TIMESTAMP(6) WITH TIME ZONE and friends
	if strings.HasPrefix(t, "timestamp") {
		return BaseType(t)
	}
	return t
}

func (d *OracleDialect) GetSchemaName(input string) string {
	return strings.ToUpper(input)
}
