package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/opencivic/caseflow/internal/domain"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // Register SQLite driver.
)

//go:embed migrations/*.sql
var migrations embed.FS

// CaseRepository implements domain.CaseRepository using SQLite. The
// workflow history is stored as a JSON document alongside the case row, so
// a transition (status + assignment + history append) commits as one
// single-row write guarded by the version column.
type CaseRepository struct {
	db *sql.DB
}

// New opens a SQLite database, runs migrations, and returns a ready repository.
func New(dataSourceName string) (*CaseRepository, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A single connection avoids SQLITE_BUSY when the database is shared
	// with the embedded job queue, and keeps :memory: databases coherent.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	// Enable foreign keys (off by default in SQLite).
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return NewFromDB(db)
}

// NewFromDB wraps an existing database connection, runs migrations, and returns a ready repository.
// Use this when the *sql.DB has been pre-configured (e.g., with otelsql instrumentation).
func NewFromDB(db *sql.DB) (*CaseRepository, error) {
	if err := runMigrations(db); err != nil {
		return nil, err
	}

	return &CaseRepository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *CaseRepository) Close() error {
	return r.db.Close()
}

// DB returns the underlying database connection for use by other adapters
// (user repository, river).
func (r *CaseRepository) DB() *sql.DB {
	return r.db
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

const timeFormat = "2006-01-02T15:04:05.000Z"

const caseColumns = `id, case_number, case_type, status, submitter_data, documents,
	submitted_by, assigned_to, workflow_history, created_at, updated_at, version`

func (r *CaseRepository) Create(ctx context.Context, c domain.Case) error {
	submitterData, history, documents, err := encodeCasePayloads(c)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO cases (`+caseColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.CaseNumber, string(c.Type), string(c.Status),
		submitterData, documents, c.SubmittedBy, nullable(c.AssignedTo), history,
		c.CreatedAt.Format(timeFormat), c.UpdatedAt.Format(timeFormat), c.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.CaseNumberConflictError{Number: c.CaseNumber}
		}
		return fmt.Errorf("inserting case: %w", err)
	}
	return nil
}

func (r *CaseRepository) GetByID(ctx context.Context, id string) (domain.Case, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+caseColumns+` FROM cases WHERE id = ?`, id,
	)
	c, err := scanCase(row)
	if err == sql.ErrNoRows {
		return domain.Case{}, domain.ErrCaseNotFound
	}
	return c, err
}

func (r *CaseRepository) List(ctx context.Context, filter domain.CaseFilter) ([]domain.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases`
	var conds []string
	var args []any

	if filter.Status != nil {
		conds = append(conds, `status = ?`)
		args = append(args, string(*filter.Status))
	}
	if filter.Type != nil {
		conds = append(conds, `case_type = ?`)
		args = append(args, string(*filter.Type))
	}
	if filter.AssignedTo != nil {
		conds = append(conds, `assigned_to = ?`)
		args = append(args, *filter.AssignedTo)
	}
	if filter.SubmittedOrAssignedTo != nil {
		conds = append(conds, `(status = 'submitted' OR assigned_to = ?)`)
		args = append(args, *filter.SubmittedOrAssignedTo)
	}

	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		// SQLite rejects OFFSET without LIMIT; -1 means unbounded.
		query += ` LIMIT -1`
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing cases: %w", err)
	}
	defer rows.Close()

	var cases []domain.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}

	return cases, rows.Err()
}

func (r *CaseRepository) UpdateIfUnchanged(ctx context.Context, c domain.Case, expectedVersion int64) error {
	_, history, _, err := encodeCasePayloads(c)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE cases
		 SET status = ?, assigned_to = ?, workflow_history = ?, updated_at = ?, version = version + 1
		 WHERE id = ? AND version = ?`,
		string(c.Status), nullable(c.AssignedTo), history,
		c.UpdatedAt.Format(timeFormat), c.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("updating case: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		var exists int
		if err := r.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM cases WHERE id = ?`, c.ID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("checking case existence: %w", err)
		}
		if exists == 0 {
			return domain.ErrCaseNotFound
		}
		return domain.ErrVersionConflict
	}

	return nil
}

func (r *CaseRepository) CountByStatus(ctx context.Context) (map[domain.Status]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM cases GROUP BY status`,
	)
	if err != nil {
		return nil, fmt.Errorf("counting by status: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scanning status count: %w", err)
		}
		out[domain.Status(status)] = count
	}
	return out, rows.Err()
}

func (r *CaseRepository) CountByType(ctx context.Context) (map[domain.CaseType]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT case_type, COUNT(*) FROM cases GROUP BY case_type`,
	)
	if err != nil {
		return nil, fmt.Errorf("counting by type: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.CaseType]int)
	for rows.Next() {
		var caseType string
		var count int
		if err := rows.Scan(&caseType, &count); err != nil {
			return nil, fmt.Errorf("scanning type count: %w", err)
		}
		out[domain.CaseType(caseType)] = count
	}
	return out, rows.Err()
}

func (r *CaseRepository) CountAssignedTo(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cases WHERE assigned_to = ?`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting assigned cases: %w", err)
	}
	return count, nil
}

func (r *CaseRepository) CountByTypeInYear(ctx context.Context, t domain.CaseType, year int) (int, error) {
	start := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cases WHERE case_type = ? AND created_at >= ? AND created_at < ?`,
		string(t), start.Format(timeFormat), end.Format(timeFormat),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting cases in year: %w", err)
	}
	return count, nil
}

// historyEntry is the JSON shape of one workflow history record.
type historyEntry struct {
	Action          string    `json:"action"`
	PerformedBy     string    `json:"performed_by"`
	PerformedByName string    `json:"performed_by_name,omitempty"`
	Comment         string    `json:"comment,omitempty"`
	ResultingStatus string    `json:"resulting_status"`
	Timestamp       time.Time `json:"timestamp"`
}

func encodeCasePayloads(c domain.Case) (submitterData, history, documents string, err error) {
	data := c.SubmitterData
	if data == nil {
		data = map[string]any{}
	}
	sd, err := json.Marshal(data)
	if err != nil {
		return "", "", "", fmt.Errorf("encoding submitter data: %w", err)
	}

	entries := make([]historyEntry, len(c.History))
	for i, e := range c.History {
		entries[i] = historyEntry{
			Action:          string(e.Action),
			PerformedBy:     e.PerformedBy,
			PerformedByName: e.PerformedByName,
			Comment:         e.Comment,
			ResultingStatus: string(e.ResultingStatus),
			Timestamp:       e.Timestamp,
		}
	}
	h, err := json.Marshal(entries)
	if err != nil {
		return "", "", "", fmt.Errorf("encoding workflow history: %w", err)
	}

	docs := c.Documents
	if docs == nil {
		docs = []string{}
	}
	d, err := json.Marshal(docs)
	if err != nil {
		return "", "", "", fmt.Errorf("encoding documents: %w", err)
	}

	return string(sd), string(h), string(d), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCase(row scanner) (domain.Case, error) {
	var c domain.Case
	var caseType, status, submitterData, documents, history, createdAt, updatedAt string
	var assignedTo sql.NullString

	err := row.Scan(&c.ID, &c.CaseNumber, &caseType, &status, &submitterData,
		&documents, &c.SubmittedBy, &assignedTo, &history, &createdAt, &updatedAt, &c.Version)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Case{}, err
		}
		return domain.Case{}, fmt.Errorf("scanning case: %w", err)
	}

	c.Type = domain.CaseType(caseType)
	c.Status = domain.Status(status)
	if assignedTo.Valid {
		c.AssignedTo = assignedTo.String
	}
	if c.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return domain.Case{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if c.UpdatedAt, err = time.Parse(timeFormat, updatedAt); err != nil {
		return domain.Case{}, fmt.Errorf("parsing updated_at: %w", err)
	}

	if err := json.Unmarshal([]byte(submitterData), &c.SubmitterData); err != nil {
		return domain.Case{}, fmt.Errorf("decoding submitter data: %w", err)
	}
	if err := json.Unmarshal([]byte(documents), &c.Documents); err != nil {
		return domain.Case{}, fmt.Errorf("decoding documents: %w", err)
	}

	var entries []historyEntry
	if err := json.Unmarshal([]byte(history), &entries); err != nil {
		return domain.Case{}, fmt.Errorf("decoding workflow history: %w", err)
	}
	c.History = make([]domain.WorkflowEntry, len(entries))
	for i, e := range entries {
		c.History[i] = domain.WorkflowEntry{
			Action:          domain.Action(e.Action),
			PerformedBy:     e.PerformedBy,
			PerformedByName: e.PerformedByName,
			Comment:         e.Comment,
			ResultingStatus: domain.Status(e.ResultingStatus),
			Timestamp:       e.Timestamp,
		}
	}

	return c, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
