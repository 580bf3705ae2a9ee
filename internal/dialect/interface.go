package dialect

import (
	"context"
	"database/sql"
	"time"
)

// Execer is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Dialect abstracts database-specific operations.
//
// Catalog queries take the schema as the first bind argument and, for the
// table-scoped ones, the table name as the second.
type Dialect interface {
	Name() string

	// Metadata Queries (Schema Introspection)
	GetTablesQuery() string
	GetColumnsQuery() string
	GetAllColumnsQuery() string
	GetPrimaryKeyQuery() string
	GetForeignKeysQuery() string
	GetIndexesQuery() string
	GetRowEstimateQuery() string
	CurrentSchemaQuery() string

	// Session Hook, run once on the pinned connection before any check.
	BeforeScan(ctx context.Context, conn Execer) error
	// ServerEncodingQuery returns one row naming the character set text is
	// stored in. Empty when the engine always hands out Unicode text.
	ServerEncodingQuery() string
	// StatementTimeout makes the server cancel slow statements itself and
	// keep the session usable. Empty when the engine has no such setting.
	StatementTimeout(timeout time.Duration) string

	// Query Generation
	QuoteIdent(name string) string
	QualifiedTable(schema, table string) string
	GetLimitRowQuery(query string, limit int) string

	// Predicates. An empty string means the engine has no such condition
	// for the given type.
	NaNCondition(expr, nativeType string) string
	// InvalidTextCondition matches control characters other than tab, line
	// feed and carriage return. With unicode set it also matches U+FFFD;
	// only Unicode servers can name that character.
	InvalidTextCondition(expr string, unicode bool) string
	// NonASCIICondition matches values holding any byte above 0x7F.
	NonASCIICondition(expr string) string
	SupportsEquality(nativeType string) bool
	// SupportsTextScan reports whether the text functions of the encoding
	// check accept the type.
	SupportsTextScan(nativeType string) bool

	// Helpers
	NormalizeType(sqlType string) string
	GetSchemaName(input string) string
}
