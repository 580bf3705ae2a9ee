package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"dqc/internal/dialect"
	"dqc/internal/logger"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Querier is the read side of *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type sessionConn interface {
	Querier
	dialect.Execer
}

// Options describes where to connect.
type Options struct {
	DSN    string
	Driver string // empty = detect from DSN
	Schema string // empty = dialect default or the session's current schema

	// QueryTimeout is handed to the server when the engine supports a
	// session statement timeout.
	QueryTimeout time.Duration
}

// Connection is a single pinned session. Every query of a run goes through
// Conn so session settings apply to all of them.
type Connection struct {
	DB      *sql.DB
	Conn    *sql.Conn
	Driver  string
	Dialect dialect.Dialect
	Schema  string

	// Encoding is the server character set, empty when unknown.
	Encoding string
	// ServerTimeout is set when the session enforces QueryTimeout itself.
	ServerTimeout bool
}

// Open connects, pins one session, applies the dialect's session hook and
// resolves the schema to inspect.
func Open(ctx context.Context, opts Options, log *logger.Logger) (*Connection, error) {
	driverName := CanonicalDriver(opts.Driver)
	if driverName == "" {
		driverName = DetectDriver(opts.DSN)
	}

	dsn, err := NormalizeDSN(driverName, opts.DSN)
	if err != nil {
		return nil, &ConnectionError{Driver: driverName, Err: err}
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, &ConnectionError{Driver: driverName, Err: errors.Wrap(err, "failed to open db")}
	}
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, &ConnectionError{Driver: driverName, Err: errors.Wrap(err, "failed to connect to db")}
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		db.Close()
		return nil, &ConnectionError{Driver: driverName, Err: errors.Wrap(err, "failed to connect to db")}
	}

	d := dialect.GetDialect(driverName)
	schemaName, err := initSession(ctx, conn, d, opts.Schema, log)
	if err != nil {
		conn.Close()
		db.Close()
		return nil, err
	}

	encoding, serverTimeout, err := applySettings(ctx, conn, d, opts.QueryTimeout, log)
	if err != nil {
		conn.Close()
		db.Close()
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"driver":   driverName,
		"schema":   schemaName,
		"encoding": encoding,
	}).Debug("connected")

	return &Connection{
		DB:            db,
		Conn:          conn,
		Driver:        driverName,
		Dialect:       d,
		Schema:        schemaName,
		Encoding:      encoding,
		ServerTimeout: serverTimeout,
	}, nil
}

func initSession(ctx context.Context, conn sessionConn, d dialect.Dialect, schemaName string, log *logger.Logger) (string, error) {
	if err := d.BeforeScan(ctx, conn); err != nil {
		if IsConnectionError(err) {
			return "", &ConnectionError{Driver: d.Name(), Err: err}
		}
		// Older servers lack some session settings; checks only read anyway.
		log.WithError(err).Warn("session setup failed, continuing")
	}

	schemaName = d.GetSchemaName(schemaName)
	if schemaName != "" {
		return schemaName, nil
	}

	var current sql.NullString
	if err := conn.QueryRowContext(ctx, d.CurrentSchemaQuery()).Scan(&current); err != nil {
		if IsConnectionError(err) {
			return "", &ConnectionError{Driver: d.Name(), Err: err}
		}
		return "", errors.Wrap(err, "failed to get database name")
	}
	if !current.Valid || current.String == "" {
		return "", errors.New("no database selected in DSN")
	}
	return current.String, nil
}

// applySettings asks the server to enforce the statement timeout and reads
// the character set text is stored in. Neither is required: failures other
// than a lost connection only warn.
func applySettings(ctx context.Context, conn sessionConn, d dialect.Dialect, timeout time.Duration, log *logger.Logger) (string, bool, error) {
	var encoding string
	var serverTimeout bool

	var stmt string
	if timeout > 0 {
		stmt = d.StatementTimeout(timeout)
	}
	if stmt != "" {
		log.Debug(stmt)
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			if IsConnectionError(err) {
				return "", false, &ConnectionError{Driver: d.Name(), Err: err}
			}
			log.WithError(err).Warn("cannot set statement timeout on the server, cancelling from the client")
		} else {
			serverTimeout = true
		}
	}

	if query := d.ServerEncodingQuery(); query != "" {
		var enc sql.NullString
		if err := conn.QueryRowContext(ctx, query).Scan(&enc); err != nil {
			if IsConnectionError(err) {
				return "", false, &ConnectionError{Driver: d.Name(), Err: err}
			}
			log.WithError(err).Warn("cannot read server encoding, assuming Unicode")
		} else {
			encoding = enc.String
		}
	}
	return encoding, serverTimeout, nil
}

// Close releases the pinned session and the pool.
func (c *Connection) Close() error {
	if err := c.Conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		c.DB.Close()
		return err
	}
	return c.DB.Close()
}

// CanonicalDriver maps driver aliases onto registered database/sql names.
func CanonicalDriver(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return ""
	case "postgres", "postgresql", "pg":
		return "postgres"
	case "sqlserver", "mssql":
		return "sqlserver"
	case "oracle", "go-ora":
		return "oracle"
	case "mysql", "mariadb":
		return "mysql"
	default:
		return name
	}
}

// DetectDriver guesses the driver from the DSN. URL schemes win; otherwise
// key=value strings are taken as PostgreSQL and everything else as MySQL.
func DetectDriver(dsn string) string {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	if i := strings.Index(lower, "://"); i > 0 {
		if d := CanonicalDriver(lower[:i]); d == "postgres" || d == "mysql" || d == "sqlserver" || d == "oracle" {
			return d
		}
	}
	if strings.Contains(lower, "sslmode") || strings.Contains(lower, "host=") || strings.Contains(lower, "dbname=") {
		return "postgres"
	}
	return "mysql"
}

// NormalizeDSN rewrites a DSN into the form the driver expects. MySQL accepts
// both its native DSN and a mysql:// URL; time values are always parsed.
func NormalizeDSN(driverName, dsn string) (string, error) {
	if driverName != "mysql" {
		return dsn, nil
	}

	native := dsn
	if strings.HasPrefix(strings.ToLower(dsn), "mysql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", errors.Wrap(err, "invalid mysql url")
		}
		userinfo := ""
		if u.User != nil {
			userinfo = u.User.Username()
			if pw, ok := u.User.Password(); ok {
				userinfo += ":" + pw
			}
			userinfo += "@"
		}
		host := u.Host
		if u.Port() == "" {
			host += ":3306"
		}
		native = fmt.Sprintf("%stcp(%s)/%s", userinfo, host, strings.TrimPrefix(u.Path, "/"))
		if u.RawQuery != "" {
			native += "?" + u.RawQuery
		}
	}

	cfg, err := mysql.ParseDSN(native)
	if err != nil {
		return "", errors.Wrap(err, "invalid mysql dsn")
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}
