// internal/output/sql.go
package output

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver

	"github.com/valpere/CatalogScrapexter/internal/scraper"
)

// sqlDialect captures the per-database differences the sink cares about.
type sqlDialect struct {
	name        string
	driver      string
	idColumn    string
	textType    string
	quote       func(ident string) string
	placeholder func(n int) string
}

func doubleQuote(ident string) string { return `"` + ident + `"` }

func backtick(ident string) string { return "`" + ident + "`" }

func questionMark(int) string { return "?" }

func dollar(n int) string { return fmt.Sprintf("$%d", n) }

var sqlDialects = map[string]sqlDialect{
	"sqlite": {
		name:        "sqlite",
		driver:      "sqlite3",
		idColumn:    "INTEGER PRIMARY KEY AUTOINCREMENT",
		textType:    "TEXT",
		quote:       doubleQuote,
		placeholder: questionMark,
	},
	"postgres": {
		name:        "postgres",
		driver:      "postgres",
		idColumn:    "BIGSERIAL PRIMARY KEY",
		textType:    "TEXT",
		quote:       doubleQuote,
		placeholder: dollar,
	},
	"mysql": {
		name:        "mysql",
		driver:      "mysql",
		idColumn:    "BIGINT AUTO_INCREMENT PRIMARY KEY",
		textType:    "LONGTEXT",
		quote:       backtick,
		placeholder: questionMark,
	},
}

// SQLConfig configures a SQL sink. For sqlite, File is used when DSN is
// empty.
type SQLConfig struct {
	Dialect string
	DSN     string
	File    string
	Table   string
}

// SQLSink inserts rows into a table inside a single transaction. The table
// is created if missing; rows become visible only when Close commits.
type SQLSink struct {
	ctx         context.Context
	db          *sql.DB
	tx          *sql.Tx
	insert      *sql.Stmt
	dialect     sqlDialect
	table       string
	destination string
	closed      bool
}

// NewSQLSink connects to the database and opens the export transaction.
// ctx bounds every statement the sink issues.
func NewSQLSink(ctx context.Context, cfg SQLConfig) (*SQLSink, error) {
	dialect, ok := sqlDialects[cfg.Dialect]
	if !ok {
		return nil, fmt.Errorf("unsupported SQL dialect %q", cfg.Dialect)
	}
	if err := ValidateSQLIdentifier(cfg.Table); err != nil {
		return nil, err
	}

	dsn := cfg.DSN
	destination := dialect.name + ":" + cfg.Table
	if dialect.name == "sqlite" && dsn == "" {
		if cfg.File == "" {
			return nil, fmt.Errorf("SQLite database path is required")
		}
		if dir := filepath.Dir(cfg.File); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dsn = cfg.File + "?_busy_timeout=5000"
		destination = cfg.File + "#" + cfg.Table
	}
	if dsn == "" {
		return nil, fmt.Errorf("%s connection string is required", dialect.name)
	}

	db, err := sql.Open(dialect.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", dialect.name, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", dialect.name, err)
	}
	if dialect.name == "sqlite" {
		db.SetMaxOpenConns(1)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &SQLSink{
		ctx:         ctx,
		db:          db,
		tx:          tx,
		dialect:     dialect,
		table:       cfg.Table,
		destination: destination,
	}, nil
}

// WriteHeader creates the table and prepares the insert statement. MySQL
// commits DDL implicitly, so there the table survives an aborted export
// even though its rows do not.
func (s *SQLSink) WriteHeader(columns []string) error {
	if s.closed {
		return ErrSinkClosed
	}
	if _, err := s.tx.ExecContext(s.ctx, s.createTableSQL(columns)); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	stmt, err := s.tx.PrepareContext(s.ctx, s.insertSQL(columns))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	s.insert = stmt
	return nil
}

func (s *SQLSink) createTableSQL(columns []string) string {
	defs := []string{s.dialect.quote("id") + " " + s.dialect.idColumn}
	for _, c := range columns {
		defs = append(defs, s.dialect.quote(c)+" "+s.dialect.textType+" NOT NULL")
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		s.dialect.quote(s.table), strings.Join(defs, ", "))
}

func (s *SQLSink) insertSQL(columns []string) string {
	quoted := make([]string, len(columns))
	params := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = s.dialect.quote(c)
		params[i] = s.dialect.placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.dialect.quote(s.table), strings.Join(quoted, ", "), strings.Join(params, ", "))
}

// Append inserts one row.
func (s *SQLSink) Append(record scraper.ProductRecord) error {
	if s.closed {
		return ErrSinkClosed
	}
	if s.insert == nil {
		return fmt.Errorf("header not written")
	}
	_, err := s.insert.ExecContext(s.ctx, record.Title, record.Image, record.Description, record.Specs)
	return err
}

// Close commits the transaction and closes the connection.
func (s *SQLSink) Close() error {
	if s.closed {
		return ErrSinkClosed
	}
	s.closed = true
	defer s.db.Close()

	if s.insert != nil {
		s.insert.Close()
	}
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Abort rolls the transaction back.
func (s *SQLSink) Abort() error {
	if s.closed {
		return nil
	}
	s.closed = true
	defer s.db.Close()

	if s.insert != nil {
		s.insert.Close()
	}
	if err := s.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return err
	}
	return nil
}

// Format returns the output type
func (s *SQLSink) Format() string { return s.dialect.name }

// Destination names the target without exposing credentials.
func (s *SQLSink) Destination() string { return s.destination }
