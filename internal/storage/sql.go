package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"knapsackga/internal/model"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// dialect captures the SQL differences between the supported engines.
type dialect struct {
	name     string
	driver   string
	keyType  string
	blobType string
	// numbered placeholders ($1, $2, ...) instead of ?
	numbered bool
	// ON DUPLICATE KEY UPDATE instead of ON CONFLICT
	duplicateKey bool
}

var dialects = map[string]dialect{
	KindSQLite:   {name: KindSQLite, driver: "sqlite", keyType: "TEXT", blobType: "BLOB"},
	KindPostgres: {name: KindPostgres, driver: "postgres", keyType: "TEXT", blobType: "BYTEA", numbered: true},
	KindMySQL:    {name: KindMySQL, driver: "mysql", keyType: "VARCHAR(64)", blobType: "LONGBLOB", duplicateKey: true},
}

func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d dialect) upsert(table, key string, columns []string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	updates := make([]string, 0, len(columns))
	for _, col := range columns {
		if col == key {
			continue
		}
		if d.duplicateKey {
			updates = append(updates, fmt.Sprintf("%s = VALUES(%s)", col, col))
		} else {
			updates = append(updates, fmt.Sprintf("%s = excluded.%s", col, col))
		}
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), placeholders)
	if d.duplicateKey {
		query += " ON DUPLICATE KEY UPDATE " + strings.Join(updates, ", ")
	} else {
		query += fmt.Sprintf(" ON CONFLICT(%s) DO UPDATE SET %s", key, strings.Join(updates, ", "))
	}
	return d.rebind(query)
}

func (d dialect) schema() []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS runs (
			id %[1]s PRIMARY KEY,
			created_at %[1]s NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload %[2]s NOT NULL
		)`, d.keyType, d.blobType),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS fitness_history (
			run_id %[1]s PRIMARY KEY,
			payload %[2]s NOT NULL
		)`, d.keyType, d.blobType),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS generation_diagnostics (
			run_id %[1]s PRIMARY KEY,
			payload %[2]s NOT NULL
		)`, d.keyType, d.blobType),
	}
}

// SQLStore keeps run records in a database/sql backend: an sqlite file, or a
// postgres or mysql server addressed by DSN.
type SQLStore struct {
	dialect dialect
	dsn     string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLStore(kind, dsn string) (*SQLStore, error) {
	d, ok := dialects[kind]
	if !ok {
		return nil, fmt.Errorf("unsupported sql dialect: %s", kind)
	}
	return &SQLStore{dialect: d, dsn: dsn}, nil
}

func NewSQLiteStore(path string) *SQLStore {
	return &SQLStore{dialect: dialects[KindSQLite], dsn: path}
}

func (s *SQLStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dsn == "" {
		return fmt.Errorf("%s location is required", s.dialect.name)
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open(s.dialect.driver, s.dsn)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	for _, stmt := range s.dialect.schema() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return fmt.Errorf("create %s schema: %w", s.dialect.name, err)
		}
	}

	s.db = db
	return nil
}

func (s *SQLStore) SaveRun(ctx context.Context, run model.RunRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeRun(run)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx,
		s.dialect.upsert("runs", "id", []string{"id", "created_at", "schema_version", "codec_version", "payload"}),
		run.ID, run.CreatedAtUTC, CurrentSchemaVersion, CurrentCodecVersion, payload,
	)
	return err
}

func (s *SQLStore) GetRun(ctx context.Context, id string) (model.RunRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.RunRecord{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, s.dialect.rebind(`SELECT payload FROM runs WHERE id = ?`), id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.RunRecord{}, false, nil
		}
		return model.RunRecord{}, false, err
	}

	run, err := DecodeRun(payload)
	if err != nil {
		return model.RunRecord{}, false, fmt.Errorf("decode run %s: %w", id, err)
	}
	return run, true, nil
}

func (s *SQLStore) ListRuns(ctx context.Context) ([]model.RunRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT id, payload FROM runs ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]model.RunRecord, 0, 16)
	for rows.Next() {
		var (
			id      string
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		run, err := DecodeRun(payload)
		if err != nil {
			return nil, fmt.Errorf("decode run %s: %w", id, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *SQLStore) SaveFitnessHistory(ctx context.Context, runID string, history []model.FitnessSample) error {
	payload, err := EncodeFitnessHistory(history)
	if err != nil {
		return err
	}
	return s.savePayload(ctx, "fitness_history", runID, payload)
}

func (s *SQLStore) GetFitnessHistory(ctx context.Context, runID string) ([]model.FitnessSample, bool, error) {
	payload, ok, err := s.loadPayload(ctx, "fitness_history", runID)
	if err != nil || !ok {
		return nil, false, err
	}
	history, err := DecodeFitnessHistory(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode fitness history %s: %w", runID, err)
	}
	return history, true, nil
}

func (s *SQLStore) SaveGenerationDiagnostics(ctx context.Context, runID string, diagnostics []model.GenerationDiagnostics) error {
	payload, err := EncodeGenerationDiagnostics(diagnostics)
	if err != nil {
		return err
	}
	return s.savePayload(ctx, "generation_diagnostics", runID, payload)
}

func (s *SQLStore) GetGenerationDiagnostics(ctx context.Context, runID string) ([]model.GenerationDiagnostics, bool, error) {
	payload, ok, err := s.loadPayload(ctx, "generation_diagnostics", runID)
	if err != nil || !ok {
		return nil, false, err
	}
	diagnostics, err := DecodeGenerationDiagnostics(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode diagnostics %s: %w", runID, err)
	}
	return diagnostics, true, nil
}

func (s *SQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLStore) savePayload(ctx context.Context, table, runID string, payload []byte) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, s.dialect.upsert(table, "run_id", []string{"run_id", "payload"}), runID, payload)
	return err
}

func (s *SQLStore) loadPayload(ctx context.Context, table, runID string) ([]byte, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var payload []byte
	query := s.dialect.rebind(fmt.Sprintf(`SELECT payload FROM %s WHERE run_id = ?`, table))
	if err := db.QueryRowContext(ctx, query, runID).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return payload, true, nil
}

func (s *SQLStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}
