package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"opsboard.dev/internal/auth"
	"opsboard.dev/internal/task"
)

const taskColumns = `id, title, description, status, category, sort_order, organization_id, created_by_user_id, created_at, updated_at`

func (s *Store) CreateTask(ctx context.Context, t *task.Task) error {
	_, err := s.db.ExecContext(ctx, `
		insert into tasks (`+taskColumns+`)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, t.ID, t.Title, t.Description, string(t.Status), string(t.Category), t.SortOrder,
		t.OrganizationID, t.CreatedBy, t.CreatedAt, t.UpdatedAt)
	return err
}

func (s *Store) FindTask(ctx context.Context, id string) (*task.Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, `
		select `+taskColumns+`
		from tasks
		where id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	return t, err
}

func (s *Store) FindTasks(ctx context.Context, taskIDs []string) ([]*task.Task, error) {
	if len(taskIDs) == 0 {
		return nil, nil
	}
	placeholders, args := placeholderList(taskIDs)
	rows, err := s.db.QueryContext(ctx, `
		select `+taskColumns+`
		from tasks
		where id in (`+placeholders+`)
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

func (s *Store) ListTasksInScope(ctx context.Context, orgIDs []string) ([]*task.Task, error) {
	if len(orgIDs) == 0 {
		return nil, nil
	}
	placeholders, args := placeholderList(orgIDs)
	rows, err := s.db.QueryContext(ctx, `
		select `+taskColumns+`
		from tasks
		where organization_id in (`+placeholders+`)
		order by status asc, sort_order asc, id asc
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

func (s *Store) SaveTask(ctx context.Context, t *task.Task) error {
	res, err := s.db.ExecContext(ctx, `
		update tasks
		set title = $2, description = $3, status = $4, category = $5, sort_order = $6, updated_at = $7
		where id = $1
	`, t.ID, t.Title, t.Description, string(t.Status), string(t.Category), t.SortOrder, t.UpdatedAt)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from tasks where id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (s *Store) NextSortOrder(ctx context.Context, orgID string) (int, error) {
	var next int
	err := s.db.QueryRowContext(ctx, `
		select coalesce(max(sort_order), 0) + 1
		from tasks
		where organization_id = $1 and status = 'todo'
	`, orgID).Scan(&next)
	if err != nil {
		return 0, err
	}
	return next, nil
}

// ApplyReorder applies every change inside one transaction so a failure
// mid-batch cannot leave a partial reorder behind.
func (s *Store) ApplyReorder(ctx context.Context, changes []task.Change) error {
	if len(changes) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, c := range changes {
		if _, err := tx.ExecContext(ctx, `
			update tasks
			set status = $2, sort_order = $3, updated_at = now()
			where id = $1
		`, c.ID, string(c.Status), c.SortOrder); err != nil {
			return err
		}
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*task.Task, error) {
	var (
		t        task.Task
		status   string
		category string
	)
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &status, &category, &t.SortOrder,
		&t.OrganizationID, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	st, ok := task.ParseStatus(status)
	if !ok {
		return nil, fmt.Errorf("task %s has unknown status %q", t.ID, status)
	}
	cat, ok := task.ParseCategory(category)
	if !ok {
		return nil, fmt.Errorf("task %s has unknown category %q", t.ID, category)
	}
	t.Status = st
	t.Category = cat
	return &t, nil
}

func collectTasks(rows *sql.Rows) ([]*task.Task, error) {
	var result []*task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// placeholderList renders $1..$n for a string slice.
func placeholderList(values []string) (string, []any) {
	parts := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("$%d", i+1)
		args[i] = v
	}
	return strings.Join(parts, ", "), args
}
