package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"opsboard.dev/internal/auth"
	"opsboard.dev/internal/org"
)

func (s *Store) CreateOrganization(ctx context.Context, o *org.Organization) error {
	var parent sql.NullString
	if o.ParentID != nil {
		parent = sql.NullString{String: *o.ParentID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		insert into organizations (id, name, parent_id, created_at)
		values ($1, $2, $3, $4)
	`, o.ID, o.Name, parent, o.CreatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return fmt.Errorf("%w: parent organization", auth.ErrNotFound)
		}
		return err
	}
	return nil
}

func (s *Store) FindOrganization(ctx context.Context, id string) (*org.Organization, error) {
	var (
		o      org.Organization
		parent sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		select id, name, parent_id, created_at
		from organizations
		where id = $1
	`, id).Scan(&o.ID, &o.Name, &parent, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if parent.Valid {
		o.ParentID = &parent.String
	}
	return &o, nil
}

func (s *Store) ChildOrganizationIDs(ctx context.Context, parentID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id
		from organizations
		where parent_id = $1
		order by id
	`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result = append(result, id)
	}
	return result, rows.Err()
}
