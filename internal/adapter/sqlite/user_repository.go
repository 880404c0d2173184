package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/opencivic/caseflow/internal/domain"
)

// UserRepository implements domain.UserRepository using SQLite. It shares
// the connection owned by CaseRepository; migrations have already run.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository wraps an existing migrated database connection.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, username, full_name, email, role, password_hash, active, created_at`

func (r *UserRepository) Create(ctx context.Context, u domain.User) error {
	active := 0
	if u.Active {
		active = 1
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.FullName, u.Email, string(u.Role),
		u.PasswordHash, active, u.CreatedAt.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username,
	))
}

func (r *UserRepository) ListActive(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE active = 1 ORDER BY username`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		var role, createdAt string
		var active int
		if err := rows.Scan(&u.ID, &u.Username, &u.FullName, &u.Email,
			&role, &u.PasswordHash, &active, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}
		u.Role = domain.Role(role)
		u.Active = active != 0
		if u.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

func scanUser(row *sql.Row) (domain.User, error) {
	var u domain.User
	var role, createdAt string
	var active int

	err := row.Scan(&u.ID, &u.Username, &u.FullName, &u.Email,
		&role, &u.PasswordHash, &active, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("scanning user: %w", err)
	}

	u.Role = domain.Role(role)
	u.Active = active != 0
	if u.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return domain.User{}, fmt.Errorf("parsing created_at: %w", err)
	}

	return u, nil
}
