package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"spendtrail/internal/core"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when the requested row does not exist or
	// belongs to another user.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a uniqueness rule is violated,
	// e.g. a second budget for the same (user, category).
	ErrDuplicate = errors.New("already exists")
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable, for readiness checks.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// periodBounds returns the half-open [start, end) date strings covering
// the period, matching the entry_date column format.
func periodBounds(p core.Period) (string, string) {
	return p.Start().String(), p.Next().Start().String()
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (name, email, avatar, join_date, income_goal_cents, savings_goal_cents)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.Name, u.Email, u.Avatar, u.JoinDate.String(), u.IncomeGoal.Cents, u.SavingsGoal.Cents)
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, fmt.Errorf("create user %s: %w", u.Email, ErrDuplicate)
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	u.ID, err = res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("create user id: %w", err)
	}
	return u, nil
}

const userColumns = `id, name, email, avatar, join_date, income_goal_cents, savings_goal_cents`

func scanUser(row *sql.Row) (core.User, error) {
	var u core.User
	var joinDate string
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Avatar, &joinDate, &u.IncomeGoal.Cents, &u.SavingsGoal.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, err
	}
	if u.JoinDate, err = core.ParseDate(joinDate); err != nil {
		return core.User{}, fmt.Errorf("parse join date: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) UserByID(ctx context.Context, id int64) (core.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return core.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, err
}

func (r *SQLiteRepository) UserByEmail(ctx context.Context, email string) (core.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return core.User{}, fmt.Errorf("get user %s: %w", email, err)
	}
	return u, err
}

// UserByTokenHash resolves a bearer credential to its owner.
func (r *SQLiteRepository) UserByTokenHash(ctx context.Context, tokenHash string) (core.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT u.id, u.name, u.email, u.avatar, u.join_date, u.income_goal_cents, u.savings_goal_cents
		 FROM users u JOIN api_tokens t ON t.user_id = u.id
		 WHERE t.token_hash = ?`, tokenHash))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return core.User{}, fmt.Errorf("get user by token: %w", err)
	}
	return u, err
}

// IssueToken registers a credential hash for the user.
func (r *SQLiteRepository) IssueToken(ctx context.Context, userID int64, tokenHash string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO api_tokens (token_hash, user_id) VALUES (?, ?)`, tokenHash, userID)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	return nil
}

// UpdateGoals sets the income and savings goals. Goals are not
// retroactive: past summaries are recomputed against the new values.
func (r *SQLiteRepository) UpdateGoals(ctx context.Context, userID int64, incomeGoal, savingsGoal core.Money) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET income_goal_cents = ?, savings_goal_cents = ? WHERE id = ?`,
		incomeGoal.Cents, savingsGoal.Cents, userID)
	if err != nil {
		return fmt.Errorf("update goals: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update goals: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
