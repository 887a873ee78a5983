package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"opsboard.dev/internal/audit"
	"opsboard.dev/internal/auth"
	"opsboard.dev/internal/task"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db), mock
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("insert into users").
		WithArgs(sqlmock.AnyArg(), "Dana", "dana@example.com", sqlmock.AnyArg(), "owner", "org-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	now := time.Now().UTC()
	err := store.CreateUser(context.Background(), &auth.User{
		ID:             "user-1",
		Name:           "Dana",
		Email:          "dana@example.com",
		PasswordHash:   "hash",
		Role:           auth.RoleOwner,
		OrganizationID: "org-1",
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if !errors.Is(err, auth.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFindUserByEmailNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select id, name, email, password_hash, role, organization_id.*from users").
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.FindUserByEmail(context.Background(), "nobody@example.com")
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNextSortOrderEmptyLane(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`select coalesce\(max\(sort_order\), 0\) \+ 1`).
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(1))

	next, err := store.NextSortOrder(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("NextSortOrder: %v", err)
	}
	if next != 1 {
		t.Fatalf("expected 1 for empty lane, got %d", next)
	}
}

func TestSaveTaskMissingRow(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("update tasks").
		WithArgs("task-1", "T", "", "todo", "ops", 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.SaveTask(context.Background(), &task.Task{
		ID:        "task-1",
		Title:     "T",
		Status:    task.StatusTodo,
		Category:  task.CategoryOps,
		SortOrder: 1,
		UpdatedAt: time.Now().UTC(),
	})
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestApplyReorderRunsInOneTransaction(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("update tasks").
		WithArgs("task-1", "in-progress", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("update tasks").
		WithArgs("task-2", "todo", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.ApplyReorder(context.Background(), []task.Change{
		{ID: "task-1", Status: task.StatusInProgress, SortOrder: 1},
		{ID: "task-2", Status: task.StatusTodo, SortOrder: 2},
	})
	if err != nil {
		t.Fatalf("ApplyReorder: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestApplyReorderRollsBackOnFailure(t *testing.T) {
	store, mock := newMockStore(t)

	boom := errors.New("write failed")
	mock.ExpectBegin()
	mock.ExpectExec("update tasks").
		WithArgs("task-1", "done", 1).
		WillReturnError(boom)
	mock.ExpectRollback()

	err := store.ApplyReorder(context.Background(), []task.Change{
		{ID: "task-1", Status: task.StatusDone, SortOrder: 1},
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected write error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListTasksInScope(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "title", "description", "status", "category", "sort_order",
		"organization_id", "created_by_user_id", "created_at", "updated_at",
	}).
		AddRow("task-1", "A", "", "todo", "ops", 1, "org-1", "user-1", now, now).
		AddRow("task-2", "B", "", "todo", "edu", 2, "org-2", "user-2", now, now)

	mock.ExpectQuery("select id, title, description, status, category, sort_order.*from tasks").
		WithArgs("org-1", "org-2").
		WillReturnRows(rows)

	tasks, err := store.ListTasksInScope(context.Background(), []string{"org-1", "org-2"})
	if err != nil {
		t.Fatalf("ListTasksInScope: %v", err)
	}
	if len(tasks) != 2 || tasks[0].ID != "task-1" || tasks[1].Category != task.CategoryEdu {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
}

func TestListTasksInScopeEmpty(t *testing.T) {
	store, _ := newMockStore(t)

	tasks, err := store.ListTasksInScope(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTasksInScope: %v", err)
	}
	if tasks != nil {
		t.Fatalf("expected no query for empty scope, got %+v", tasks)
	}
}

func TestListRecentAuditClampsLimit(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "action", "user_id", "organization_id", "allowed",
		"resource", "resource_id", "details", "created_at",
	}).AddRow("a-1", "TASK_CREATE", "user-1", "org-1", true, "task", "task-1", "Task task-1 created", now)

	mock.ExpectQuery("select id, action, user_id, organization_id, allowed.*from audit_log").
		WithArgs(audit.ListLimit).
		WillReturnRows(rows)

	entries, err := store.ListRecentAudit(context.Background(), 10000)
	if err != nil {
		t.Fatalf("ListRecentAudit: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != "TASK_CREATE" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}
