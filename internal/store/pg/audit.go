package pg

import (
	"context"

	"opsboard.dev/internal/audit"
)

func (s *Store) AppendAudit(ctx context.Context, e *audit.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		insert into audit_log (id, action, user_id, organization_id, allowed, resource, resource_id, details, created_at)
		values ($1, $2, $3, $4, $5, nullif($6, ''), nullif($7, ''), nullif($8, ''), $9)
	`, e.ID, e.Action, e.UserID, e.OrganizationID, e.Allowed, e.Resource, e.ResourceID, e.Details, e.CreatedAt)
	return err
}

func (s *Store) ListRecentAudit(ctx context.Context, limit int) ([]audit.Entry, error) {
	if limit <= 0 || limit > audit.ListLimit {
		limit = audit.ListLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, action, user_id, organization_id, allowed,
			coalesce(resource, ''), coalesce(resource_id, ''), coalesce(details, ''), created_at
		from audit_log
		order by created_at desc, id desc
		limit $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []audit.Entry
	for rows.Next() {
		var e audit.Entry
		if err := rows.Scan(&e.ID, &e.Action, &e.UserID, &e.OrganizationID, &e.Allowed,
			&e.Resource, &e.ResourceID, &e.Details, &e.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
