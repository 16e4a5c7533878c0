package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDuplicateEmail = errors.New("email already registered")
	ErrUsersExist     = errors.New("users already exist")
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"nombre"`
	Role         string    `json:"rol"`
	Active       bool      `json:"activo"`
	CreatedAt    time.Time `json:"fechaCreacion"`
	LastAccess   time.Time `json:"ultimoAcceso,omitempty"`
}

const userColumns = `id, email, password_hash, name, role, active, created_at, last_access`

// CountUsers returns the number of users in the database.
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// CreateUser inserts u, filling ID and CreatedAt.
func (s *Store) CreateUser(ctx context.Context, u *User) error {
	if _, err := s.UserByEmail(ctx, u.Email); err == nil {
		return ErrDuplicateEmail
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	u.ID = uuid.NewString()
	u.CreatedAt = time.Now().UTC()
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.Name, u.Role, u.Active, formatTime(u.CreatedAt), "",
	)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// CreateFirstUser inserts u only while the users table is empty. The check
// and the insert are one statement, so concurrent callers cannot both win.
func (s *Store) CreateFirstUser(ctx context.Context, u *User) error {
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now().UTC()
	res, err := s.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?
		WHERE NOT EXISTS (SELECT 1 FROM users)`,
		u.ID, u.Email, u.PasswordHash, u.Name, u.Role, u.Active, formatTime(u.CreatedAt), "",
	)
	if err != nil {
		return fmt.Errorf("create first user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUsersExist
	}
	return nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (User, error) {
	return s.userWhere(ctx, "email = ?", email)
}

func (s *Store) UserByID(ctx context.Context, id string) (User, error) {
	return s.userWhere(ctx, "id = ?", id)
}

func (s *Store) userWhere(ctx context.Context, cond string, arg any) (User, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+cond, arg)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

// ListUsers returns all users, newest first.
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := make([]User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) SetUserActive(ctx context.Context, id string, active bool) error {
	res, err := s.conn.ExecContext(ctx, `UPDATE users SET active = ? WHERE id = ?`, active, id)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) TouchLastAccess(ctx context.Context, id string, at time.Time) error {
	_, err := s.conn.ExecContext(ctx, `UPDATE users SET last_access = ? WHERE id = ?`, formatTime(at), id)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(sc scanner) (User, error) {
	var u User
	var createdAt, lastAccess string
	err := sc.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.Active, &createdAt, &lastAccess)
	if err != nil {
		return u, err
	}
	u.CreatedAt = parseTime(createdAt)
	u.LastAccess = parseTime(lastAccess)
	return u, nil
}
