package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"

	"github.com/piwi3910/tiabridge/pkg/engine"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when an inspection does not exist
var ErrNotFound = errors.New("inspection not found")

// SQLiteStore keeps the inspection history in a SQLite database
type SQLiteStore struct {
	db   *sql.DB
	path string
	cfg  Config
}

// Config holds SQLite store configuration
type Config struct {
	Path        string
	BusyTimeout time.Duration
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	return &SQLiteStore{
		path: cfg.Path,
		cfg:  cfg,
	}, nil
}

// Open creates, initializes, migrates and health-checks a store in one step.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	s, err := NewSQLiteStore(Config{Path: path})
	if err != nil {
		return nil, err
	}
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	if err := s.HealthCheck(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("database is not usable after migration: %w", err)
	}
	return s, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	pragmas := []string{
		"_pragma=foreign_keys(1)",
		fmt.Sprintf("_pragma=busy_timeout(%d)", s.cfg.BusyTimeout.Milliseconds()),
	}
	if s.path != ":memory:" {
		pragmas = append(pragmas, "_pragma=journal_mode(WAL)", "_pragma=synchronous(NORMAL)")
	}
	dsn := fmt.Sprintf("file:%s?%s", s.path, strings.Join(pragmas, "&"))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: a run writes a handful of rows, and an in-memory
	// database exists only on the connection that created it.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// HealthCheck verifies the database connection is healthy
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	return s.db.PingContext(ctx)
}

// CreateInspection records the start of an inspection and returns it with a
// fresh ID.
func (s *SQLiteStore) CreateInspection(ctx context.Context, runID, projectPath string, mode engine.Mode) (*Inspection, error) {
	insp := &Inspection{
		ID:          uuid.New().String(),
		RunID:       runID,
		ProjectPath: projectPath,
		Mode:        mode,
		Status:      InspectionStatusRunning,
		StartedAt:   time.Now().UTC(),
	}

	query := `
		INSERT INTO inspections (id, run_id, project_path, mode, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		insp.ID,
		insp.RunID,
		insp.ProjectPath,
		insp.Mode,
		insp.Status,
		insp.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create inspection: %w", err)
	}

	return insp, nil
}

// CompleteInspection stores the outcome of an inspection
func (s *SQLiteStore) CompleteInspection(ctx context.Context, id string, result InspectionResult) error {
	query := `
		UPDATE inspections
		SET status = ?, project_name = ?, controller = ?, error_class = ?, error = ?, completed_at = ?
		WHERE id = ?
	`

	var errClass, errMsg *string
	if result.Err != nil {
		class := string(engine.ClassOf(result.Err))
		msg := result.Err.Error()
		errClass, errMsg = &class, &msg
	}

	res, err := s.db.ExecContext(ctx, query,
		result.Status,
		nullString(result.ProjectName),
		nullString(result.Controller),
		errClass,
		errMsg,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete inspection: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return nil
}

// AddUnits stores a listing of an inspection in one transaction, keeping the
// listing order.
func (s *SQLiteStore) AddUnits(ctx context.Context, inspectionID string, category engine.Category, units []engine.UnitRef) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO inspection_units (inspection_id, category, position, name, number, type_tag)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare unit insert: %w", err)
	}
	defer stmt.Close()

	for i, u := range units {
		if _, err := stmt.ExecContext(ctx, inspectionID, category, i, u.Name, u.Number, u.TypeTag); err != nil {
			return fmt.Errorf("failed to add unit %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit units: %w", err)
	}
	return nil
}

// GetInspection retrieves an inspection by ID
func (s *SQLiteStore) GetInspection(ctx context.Context, id string) (*Inspection, error) {
	query := inspectionSelect + ` WHERE i.id = ? GROUP BY i.id`

	insp, err := scanInspection(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get inspection: %w", err)
	}
	return insp, nil
}

// ListInspections lists inspections, newest first
func (s *SQLiteStore) ListInspections(ctx context.Context, limit, offset int) ([]*Inspection, error) {
	query := inspectionSelect + `
		GROUP BY i.id
		ORDER BY i.started_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list inspections: %w", err)
	}
	defer rows.Close()

	inspections := []*Inspection{}
	for rows.Next() {
		insp, err := scanInspection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inspection: %w", err)
		}
		inspections = append(inspections, insp)
	}

	return inspections, rows.Err()
}

// ListUnits returns the units of one listing of an inspection in listing order
func (s *SQLiteStore) ListUnits(ctx context.Context, inspectionID string, category engine.Category) ([]UnitRecord, error) {
	query := `
		SELECT inspection_id, category, position, name, number, type_tag
		FROM inspection_units
		WHERE inspection_id = ? AND category = ?
		ORDER BY position
	`

	rows, err := s.db.QueryContext(ctx, query, inspectionID, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	defer rows.Close()

	var units []UnitRecord
	for rows.Next() {
		var (
			u      UnitRecord
			number sql.NullInt64
		)
		if err := rows.Scan(&u.InspectionID, &u.Category, &u.Position, &u.Name, &number, &u.TypeTag); err != nil {
			return nil, fmt.Errorf("failed to scan unit: %w", err)
		}
		if number.Valid {
			n := int(number.Int64)
			u.Number = &n
		}
		units = append(units, u)
	}

	return units, rows.Err()
}

const inspectionSelect = `
	SELECT i.id, i.run_id, i.project_path, i.project_name, i.controller, i.mode, i.status,
	       i.error_class, i.error, i.started_at, i.completed_at,
	       COALESCE(SUM(u.category = 'data'), 0),
	       COALESCE(SUM(u.category = 'function'), 0)
	FROM inspections i
	LEFT JOIN inspection_units u ON u.inspection_id = i.id
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInspection(row rowScanner) (*Inspection, error) {
	insp := &Inspection{}
	err := row.Scan(
		&insp.ID,
		&insp.RunID,
		&insp.ProjectPath,
		&insp.ProjectName,
		&insp.Controller,
		&insp.Mode,
		&insp.Status,
		&insp.ErrorClass,
		&insp.Error,
		&insp.StartedAt,
		&insp.CompletedAt,
		&insp.DataUnits,
		&insp.FunctionUnits,
	)
	if err != nil {
		return nil, err
	}
	return insp, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
