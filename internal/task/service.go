package task

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"opsboard.dev/internal/audit"
	"opsboard.dev/internal/auth"
	"opsboard.dev/internal/ids"
	"opsboard.dev/internal/org"
)

// Store describes persistence operations required by the task engine.
type Store interface {
	CreateTask(ctx context.Context, t *Task) error
	FindTask(ctx context.Context, id string) (*Task, error)
	FindTasks(ctx context.Context, taskIDs []string) ([]*Task, error)
	// ListTasksInScope returns tasks whose organization is in orgIDs,
	// ordered by status asc, sort order asc, id asc.
	ListTasksInScope(ctx context.Context, orgIDs []string) ([]*Task, error)
	SaveTask(ctx context.Context, t *Task) error
	DeleteTask(ctx context.Context, id string) error
	// NextSortOrder computes 1 + max(sort order of todo tasks in the
	// organization), or 1 when the backlog lane is empty.
	NextSortOrder(ctx context.Context, orgID string) (int, error)
	// ApplyReorder applies all changes atomically.
	ApplyReorder(ctx context.Context, changes []Change) error
}

// ScopeResolver computes the set of organizations a caller may act within.
type ScopeResolver interface {
	ResolveScope(ctx context.Context, user auth.Identity) (org.Scope, error)
}

// AuditSink records mutations to the audit trail.
type AuditSink interface {
	Record(ctx context.Context, e audit.Entry) (audit.Entry, error)
}

// Service enforces organization-scope visibility and role-gated mutation
// for tasks. Scope is recomputed on every call, never cached.
type Service struct {
	store Store
	orgs  ScopeResolver
	audit AuditSink
	now   func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the task engine.
func NewService(store Store, orgs ScopeResolver, sink AuditSink, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("task: store is required")
	}
	if orgs == nil {
		return nil, errors.New("task: scope resolver is required")
	}
	if sink == nil {
		return nil, errors.New("task: audit sink is required")
	}
	s := &Service{store: store, orgs: orgs, audit: sink, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Create adds a task to the caller's organization. New tasks always enter
// the todo lane and sort last within it.
func (s *Service) Create(ctx context.Context, in CreateInput, user auth.Identity) (*Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", auth.ErrForbidden)
	}

	// Create does not consult the legacy aliases; anything non-canonical
	// falls back to ops. Update is stricter, and the asymmetry is kept.
	category := CategoryOps
	if c, ok := ParseCategory(strings.TrimSpace(in.Category)); ok {
		category = c
	}

	nextSort, err := s.store.NextSortOrder(ctx, user.OrganizationID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	t := &Task{
		ID:             ids.New(),
		Title:          title,
		Description:    strings.TrimSpace(in.Description),
		Status:         StatusTodo,
		Category:       category,
		SortOrder:      nextSort,
		OrganizationID: user.OrganizationID,
		CreatedBy:      user.UserID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateTask(ctx, t); err != nil {
		return nil, err
	}

	if _, err := s.audit.Record(ctx, audit.Entry{
		Action:         "TASK_CREATE",
		UserID:         user.UserID,
		OrganizationID: user.OrganizationID,
		Allowed:        true,
		Resource:       "task",
		ResourceID:     t.ID,
		Details:        fmt.Sprintf("Task %s created", t.ID),
	}); err != nil {
		return nil, err
	}
	return t, nil
}

// List returns every task inside the caller's resolved scope. Reads are not
// audited.
func (s *Service) List(ctx context.Context, user auth.Identity) ([]*Task, error) {
	scope, err := s.orgs.ResolveScope(ctx, user)
	if err != nil {
		return nil, err
	}
	return s.store.ListTasksInScope(ctx, scope.IDs())
}

// Update applies a partial patch to a task inside the caller's scope.
func (s *Service) Update(ctx context.Context, taskID string, patch Patch, user auth.Identity) (*Task, error) {
	t, err := s.store.FindTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return nil, fmt.Errorf("%w: task not found", auth.ErrNotFound)
		}
		return nil, err
	}

	scope, err := s.orgs.ResolveScope(ctx, user)
	if err != nil {
		return nil, err
	}
	if !scope.Contains(t.OrganizationID) {
		return nil, fmt.Errorf("%w: task is outside your scope", auth.ErrForbidden)
	}

	applyPatch(t, patch)
	t.UpdatedAt = s.now().UTC()
	if err := s.store.SaveTask(ctx, t); err != nil {
		return nil, err
	}

	if _, err := s.audit.Record(ctx, audit.Entry{
		Action:         "TASK_UPDATE",
		UserID:         user.UserID,
		OrganizationID: user.OrganizationID,
		Allowed:        true,
		Resource:       "task",
		ResourceID:     t.ID,
		Details:        fmt.Sprintf("Task %s updated", t.ID),
	}); err != nil {
		return nil, err
	}
	return t, nil
}

// Reorder moves tasks between lanes and positions. The scope check is
// all-or-nothing: one out-of-scope task rejects the whole batch before any
// write happens. Entries referencing unknown tasks are skipped, matching
// single-row update semantics.
func (s *Service) Reorder(ctx context.Context, entries []ReorderEntry, user auth.Identity) error {
	if len(entries) == 0 {
		return nil
	}

	scope, err := s.orgs.ResolveScope(ctx, user)
	if err != nil {
		return err
	}

	taskIDs := make([]string, 0, len(entries))
	changes := make([]Change, 0, len(entries))
	for _, e := range entries {
		id := strings.TrimSpace(e.ID)
		if id == "" {
			continue
		}
		status, ok := ParseStatus(e.Status)
		if !ok {
			return fmt.Errorf("%w: unknown status %q", auth.ErrInvalidInput, e.Status)
		}
		if math.IsNaN(e.SortOrder) || math.IsInf(e.SortOrder, 0) {
			return fmt.Errorf("%w: sortOrder must be a finite number", auth.ErrInvalidInput)
		}
		taskIDs = append(taskIDs, id)
		changes = append(changes, Change{ID: id, Status: status, SortOrder: int(e.SortOrder)})
	}
	if len(changes) == 0 {
		return nil
	}

	tasks, err := s.store.FindTasks(ctx, taskIDs)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if !scope.Contains(t.OrganizationID) {
			return fmt.Errorf("%w: task %s is outside your scope", auth.ErrForbidden, t.ID)
		}
	}

	if err := s.store.ApplyReorder(ctx, changes); err != nil {
		return err
	}

	_, err = s.audit.Record(ctx, audit.Entry{
		Action:         "TASK_REORDER",
		UserID:         user.UserID,
		OrganizationID: user.OrganizationID,
		Allowed:        true,
		Resource:       "task",
		Details:        fmt.Sprintf("Reordered %d task(s)", len(changes)),
	})
	return err
}

// Remove deletes a task inside the caller's scope.
func (s *Service) Remove(ctx context.Context, taskID string, user auth.Identity) error {
	t, err := s.store.FindTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return fmt.Errorf("%w: task not found", auth.ErrNotFound)
		}
		return err
	}

	scope, err := s.orgs.ResolveScope(ctx, user)
	if err != nil {
		return err
	}
	if !scope.Contains(t.OrganizationID) {
		return fmt.Errorf("%w: task is outside your scope", auth.ErrForbidden)
	}

	if err := s.store.DeleteTask(ctx, t.ID); err != nil {
		return err
	}

	_, err = s.audit.Record(ctx, audit.Entry{
		Action:         "TASK_DELETE",
		UserID:         user.UserID,
		OrganizationID: user.OrganizationID,
		Allowed:        true,
		Resource:       "task",
		ResourceID:     t.ID,
		Details:        fmt.Sprintf("Task %s deleted", t.ID),
	})
	return err
}

func applyPatch(t *Task, p Patch) {
	if p.Title != nil {
		// An all-whitespace title falls back to the existing one.
		if trimmed := strings.TrimSpace(*p.Title); trimmed != "" {
			t.Title = trimmed
		}
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.Status != nil {
		if status, ok := ParseStatus(*p.Status); ok {
			t.Status = status
		}
	}
	if p.Category != nil {
		if category, ok := NormalizeCategory(*p.Category); ok {
			t.Category = category
		}
	}
	if p.SortOrder != nil && !math.IsNaN(*p.SortOrder) && !math.IsInf(*p.SortOrder, 0) {
		t.SortOrder = int(*p.SortOrder)
	}
}
