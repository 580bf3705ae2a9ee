package dialect

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type PostgresDialect struct{}

func (d *PostgresDialect) Name() string { return "postgres" }

func (d *PostgresDialect) GetTablesQuery() string {
	return `SELECT table_name FROM information_schema.tables WHERE table_schema = $1 AND table_type = 'BASE TABLE' ORDER BY table_name`
}

func (d *PostgresDialect) GetColumnsQuery() string {
	// UDT_NAME carries the real type for arrays and user-defined types.
	return `SELECT
    c.column_name,
    CASE WHEN c.data_type IN ('USER-DEFINED', 'ARRAY') THEN c.udt_name ELSE c.data_type END,
    c.is_nullable,
    c.column_default,
    c.ordinal_position
FROM information_schema.columns c
WHERE c.table_schema = $1 AND c.table_name = $2
ORDER BY c.ordinal_position`
}

func (d *PostgresDialect) GetAllColumnsQuery() string {
	return `SELECT
    c.table_name,
    c.column_name,
    CASE WHEN c.data_type IN ('USER-DEFINED', 'ARRAY') THEN c.udt_name ELSE c.data_type END,
    c.is_nullable
FROM information_schema.columns c
JOIN information_schema.tables t ON t.table_schema = c.table_schema AND t.table_name = c.table_name
WHERE c.table_schema = $1 AND t.table_type = 'BASE TABLE'
ORDER BY c.table_name, c.ordinal_position`
}

func (d *PostgresDialect) GetPrimaryKeyQuery() string {
	return `SELECT tc.constraint_name, kcu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
    ON tc.constraint_name = kcu.constraint_name
    AND tc.table_schema = kcu.table_schema
    AND tc.table_name = kcu.table_name
WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_schema = $1 AND tc.table_name = $2
ORDER BY kcu.ordinal_position`
}

func (d *PostgresDialect) GetForeignKeysQuery() string {
	// information_schema.constraint_column_usage loses the pairing of
	// composite keys, so read conkey/confkey positionally.
	return `SELECT
    con.conname,
    la.attname,
    rn.nspname,
    rc.relname,
    ra.attname
FROM pg_constraint con
JOIN pg_class lc ON lc.oid = con.conrelid
JOIN pg_namespace ln ON ln.oid = lc.relnamespace
JOIN pg_class rc ON rc.oid = con.confrelid
JOIN pg_namespace rn ON rn.oid = rc.relnamespace
CROSS JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS k(lnum, rnum, pos)
JOIN pg_attribute la ON la.attrelid = con.conrelid AND la.attnum = k.lnum
JOIN pg_attribute ra ON ra.attrelid = con.confrelid AND ra.attnum = k.rnum
WHERE con.contype = 'f' AND ln.nspname = $1 AND lc.relname = $2
ORDER BY con.conname, k.pos`
}

func (d *PostgresDialect) GetIndexesQuery() string {
	return `SELECT
    ic.relname,
    a.attname,
    CASE WHEN ix.indisunique THEN 1 ELSE 0 END,
    CASE WHEN ix.indisprimary THEN 1 ELSE 0 END
FROM pg_index ix
JOIN pg_class tc ON tc.oid = ix.indrelid
JOIN pg_namespace n ON n.oid = tc.relnamespace
JOIN pg_class ic ON ic.oid = ix.indexrelid
CROSS JOIN LATERAL unnest(ix.indkey::int2[]) WITH ORDINALITY AS k(attnum, pos)
JOIN pg_attribute a ON a.attrelid = tc.oid AND a.attnum = k.attnum
WHERE n.nspname = $1 AND tc.relname = $2
ORDER BY ic.relname, k.pos`
}

func (d *PostgresDialect) GetRowEstimateQuery() string {
	return `SELECT c.reltuples::bigint
FROM pg_class c
JOIN pg_namespace n ON n.oid = c.relnamespace
WHERE n.nspname = $1 AND c.relname = $2 AND c.relkind IN ('r', 'p')`
}

func (d *PostgresDialect) CurrentSchemaQuery() string {
	return "SELECT current_schema()"
}

func (d *PostgresDialect) BeforeScan(ctx context.Context, conn Execer) error {
	_, err := conn.ExecContext(ctx, "SET SESSION CHARACTERISTICS AS TRANSACTION READ ONLY")
	return err
}

func (d *PostgresDialect) ServerEncodingQuery() string {
	return "SHOW server_encoding"
}

func (d *PostgresDialect) StatementTimeout(timeout time.Duration) string {
	return fmt.Sprintf("SET statement_timeout = %d", timeoutMillis(timeout))
}

func (d *PostgresDialect) QuoteIdent(name string) string {
	return QuoteWith(name, `"`, `"`)
}

func (d *PostgresDialect) QualifiedTable(schema, table string) string {
	return JoinQualified(d.QuoteIdent, schema, table)
}

func (d *PostgresDialect) GetLimitRowQuery(query string, limit int) string {
	return fmt.Sprintf("%s LIMIT %d", query, limit)
}

func (d *PostgresDialect) NaNCondition(expr, nativeType string) string {
	switch BaseType(nativeType) {
	case "real", "double precision", "float4", "float8", "numeric", "decimal":
		return fmt.Sprintf("%s = 'NaN'", expr)
	}
	return ""
}

func (d *PostgresDialect) InvalidTextCondition(expr string, unicode bool) string {
	// text values cannot hold NUL in PostgreSQL.
	control := fmt.Sprintf(`%s ~ '[\x01-\x08\x0B\x0C\x0E-\x1F\x7F]'`, expr)
	if !unicode {
		// chr() rejects code points above 255 in single-byte encodings.
		return control
	}
	return fmt.Sprintf(`(strpos(%s, chr(65533)) > 0 OR %s)`, expr, control)
}

func (d *PostgresDialect) NonASCIICondition(expr string) string {
	return fmt.Sprintf(`%s ~ '[^\x01-\x7F]'`, expr)
}

func (d *PostgresDialect) SupportsEquality(nativeType string) bool {
	return true
}

func (d *PostgresDialect) SupportsTextScan(nativeType string) bool {
	return true
}

func (d *PostgresDialect) NormalizeType(sqlType string) string {
	t := strings.ToLower(strings.TrimSpace(sqlType))
	switch t {
	case "int4":
		return "integer"
	case "int2":
		return "smallint"
	case "int8":
		return "bigint"
	case "float4":
		return "real"
	case "float8":
		return "double precision"
	case "bpchar":
		return "character"
	default:
		return t
	}
}

func (d *PostgresDialect) GetSchemaName(input string) string {
	if input == "" {
		return "public"
	}
	return input
}
