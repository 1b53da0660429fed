package storage

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Rendering limits keep tool observations small enough to feed back into
// a model prompt.
const (
	maxQueryRows   = 50
	maxLineWidth   = 200
	truncationNote = "... (result truncated)"
)

const measurementSchema = `CREATE TABLE IF NOT EXISTS measurement (
	id INTEGER PRIMARY KEY,
	Brightness REAL,
	Humidity REAL,
	SetpointHistory REAL,
	Temperature REAL,
	roomname VARCHAR(14),
	date DATETIME
)`

// MeasurementStore is the sensor-history database behind the agent's SQL
// tool. It is owned by the process and passed explicitly to whoever
// needs it; *sql.DB is safe for concurrent sessions.
type MeasurementStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenMeasurementStore opens (or creates) the database and ensures the
// measurement table exists.
func OpenMeasurementStore(dsn string, logger *zap.Logger) (*MeasurementStore, error) {
	if logger == nil {
		logger = zap.L()
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open measurement db: %w", err)
	}
	if strings.Contains(dsn, ":memory:") {
		// In-memory sqlite exists per connection; a pool of one keeps
		// every query on the same database.
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(measurementSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create measurement table: %w", err)
	}
	return &MeasurementStore{db: db, logger: logger}, nil
}

func (s *MeasurementStore) Close() error { return s.db.Close() }

// LoadCSV ingests a sensor export into the measurement table and returns
// the number of rows inserted. Rows may carry a leading id column (7
// fields) or omit it (6 fields); a header row is skipped.
func (s *MeasurementStore) LoadCSV(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin load: %w", err)
	}
	defer tx.Rollback()

	withID, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO measurement (id, Brightness, Humidity, SetpointHistory, Temperature, roomname, date)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare load: %w", err)
	}
	defer withID.Close()
	withoutID, err := tx.PrepareContext(ctx,
		`INSERT INTO measurement (Brightness, Humidity, SetpointHistory, Temperature, roomname, date)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare load: %w", err)
	}
	defer withoutID.Close()

	inserted := 0
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return inserted, fmt.Errorf("parse %s: %w", path, err)
		}
		if first {
			first = false
			if looksLikeHeader(record) {
				continue
			}
		}
		switch len(record) {
		case 7:
			_, err = withID.ExecContext(ctx, record[0], record[1], record[2], record[3], record[4], record[5], record[6])
		case 6:
			_, err = withoutID.ExecContext(ctx, record[0], record[1], record[2], record[3], record[4], record[5])
		default:
			s.logger.Warn("skipping malformed measurement row", zap.Int("fields", len(record)))
			continue
		}
		if err != nil {
			return inserted, fmt.Errorf("insert measurement row: %w", err)
		}
		inserted++
	}
	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("commit load: %w", err)
	}
	s.logger.Info("measurement data loaded", zap.String("path", path), zap.Int("rows", inserted))
	return inserted, nil
}

// looksLikeHeader treats a row whose numeric columns do not parse as the
// CSV header.
func looksLikeHeader(record []string) bool {
	if len(record) < 2 {
		return false
	}
	probe := record[len(record)-2] // second to last column is roomname in data rows
	return strings.EqualFold(probe, "roomname")
}

// TableDescription returns the CREATE TABLE statement for the
// measurement table, used to document the SQL tool in the agent prompt.
func (s *MeasurementStore) TableDescription(ctx context.Context) (string, error) {
	var schema string
	err := s.db.QueryRowContext(ctx,
		`SELECT sql FROM sqlite_master WHERE type = 'table' AND name = 'measurement'`).Scan(&schema)
	if err != nil {
		return "", fmt.Errorf("describe measurement table: %w", err)
	}
	return schema, nil
}

// Query runs a read-only query and renders the result as " | "-joined
// lines, one header line plus one line per row, truncated to the
// configured limits.
func (s *MeasurementStore) Query(ctx context.Context, query string) (string, error) {
	q := strings.TrimSpace(query)
	upper := strings.ToUpper(q)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return "", fmt.Errorf("only SELECT queries are allowed")
	}

	// The prefix check only shapes the error message; WITH admits
	// writable statements (WITH ... DELETE), so the connection itself is
	// pinned read-only while the query runs.
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return "", fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()
	if _, err := conn.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
		return "", fmt.Errorf("pin connection read-only: %w", err)
	}
	// Reset on a fresh context; a canceled request must not return a
	// read-only connection to the pool.
	defer conn.ExecContext(context.Background(), "PRAGMA query_only = OFF")

	rows, err := conn.QueryContext(ctx, q)
	if err != nil {
		return "", fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return "", fmt.Errorf("read columns: %w", err)
	}

	var b strings.Builder
	b.WriteString(strings.Join(columns, " | "))

	count := 0
	for rows.Next() {
		if count >= maxQueryRows {
			b.WriteString("\n" + truncationNote)
			break
		}
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return "", fmt.Errorf("scan row: %w", err)
		}
		parts := make([]string, len(columns))
		for i, v := range values {
			parts[i] = renderValue(v)
		}
		line := strings.Join(parts, " | ")
		if len(line) > maxLineWidth {
			line = line[:maxLineWidth] + "..."
		}
		b.WriteString("\n" + line)
		count++
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate rows: %w", err)
	}
	return b.String(), nil
}

func renderValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
