package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"opsboard.dev/internal/auth"
)

func (s *Store) CreateUser(ctx context.Context, u *auth.User) error {
	_, err := s.db.ExecContext(ctx, `
		insert into users (id, name, email, password_hash, role, organization_id, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
	`, u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role), u.OrganizationID, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return fmt.Errorf("%w: email already exists", auth.ErrConflict)
		}
		return err
	}
	return nil
}

func (s *Store) FindUser(ctx context.Context, id string) (*auth.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		select id, name, email, password_hash, role, organization_id, created_at, updated_at
		from users
		where id = $1
	`, id))
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		select id, name, email, password_hash, role, organization_id, created_at, updated_at
		from users
		where email = $1
	`, email))
}

func (s *Store) scanUser(row *sql.Row) (*auth.User, error) {
	var (
		u    auth.User
		role string
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.OrganizationID, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	parsed, ok := auth.ParseRole(role)
	if !ok {
		return nil, fmt.Errorf("user %s has unknown role %q", u.ID, role)
	}
	u.Role = parsed
	return &u, nil
}
