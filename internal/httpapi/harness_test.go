package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"opsboard.dev/internal/audit"
	"opsboard.dev/internal/auth"
	"opsboard.dev/internal/org"
	"opsboard.dev/internal/task"
)

// memBackend backs every store interface with maps so handler tests can
// exercise the full stack without a database.
type memBackend struct {
	mu    sync.Mutex
	users map[string]*auth.User
	orgs  map[string]*org.Organization
	tasks map[string]*task.Task
	trail []audit.Entry
}

func newMemBackend() *memBackend {
	return &memBackend{
		users: map[string]*auth.User{},
		orgs:  map[string]*org.Organization{},
		tasks: map[string]*task.Task{},
	}
}

func (m *memBackend) CreateUser(_ context.Context, u *auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return fmt.Errorf("%w: email already exists", auth.ErrConflict)
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memBackend) FindUser(_ context.Context, id string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memBackend) FindUserByEmail(_ context.Context, email string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (m *memBackend) CreateOrganization(_ context.Context, o *org.Organization) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orgs[o.ID] = &cp
	return nil
}

func (m *memBackend) FindOrganization(_ context.Context, id string) (*org.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orgs[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memBackend) ChildOrganizationIDs(_ context.Context, parentID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, o := range m.orgs {
		if o.ParentID != nil && *o.ParentID == parentID {
			out = append(out, o.ID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memBackend) CreateTask(_ context.Context, t *task.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *memBackend) FindTask(_ context.Context, id string) (*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memBackend) FindTasks(_ context.Context, taskIDs []string) ([]*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*task.Task
	for _, id := range taskIDs {
		if t, ok := m.tasks[id]; ok {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memBackend) ListTasksInScope(_ context.Context, orgIDs []string) ([]*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	allowed := map[string]bool{}
	for _, id := range orgIDs {
		allowed[id] = true
	}
	var out []*task.Task
	for _, t := range m.tasks {
		if allowed[t.OrganizationID] {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Status != out[j].Status {
			return out[i].Status < out[j].Status
		}
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memBackend) SaveTask(_ context.Context, t *task.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[t.ID]; !ok {
		return auth.ErrNotFound
	}
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *memBackend) DeleteTask(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return auth.ErrNotFound
	}
	delete(m.tasks, id)
	return nil
}

func (m *memBackend) NextSortOrder(_ context.Context, orgID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	max := 0
	for _, t := range m.tasks {
		if t.OrganizationID == orgID && t.Status == task.StatusTodo && t.SortOrder > max {
			max = t.SortOrder
		}
	}
	return max + 1, nil
}

func (m *memBackend) ApplyReorder(_ context.Context, changes []task.Change) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range changes {
		if t, ok := m.tasks[c.ID]; ok {
			t.Status = c.Status
			t.SortOrder = c.SortOrder
		}
	}
	return nil
}

func (m *memBackend) AppendAudit(_ context.Context, e *audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trail = append(m.trail, *e)
	return nil
}

func (m *memBackend) ListRecentAudit(_ context.Context, limit int) ([]audit.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]audit.Entry, len(m.trail))
	copy(out, m.trail)
	// most recent first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type testEnv struct {
	handler http.Handler
	backend *memBackend
	signer  *auth.TokenSigner
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	backend := newMemBackend()

	signer, err := auth.NewTokenSigner("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenSigner: %v", err)
	}
	directory, err := org.NewDirectory(backend)
	if err != nil {
		t.Fatalf("NewDirectory: %v", err)
	}
	recorder, err := audit.NewRecorder(backend)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}
	authSvc, err := auth.NewService(backend, directory, signer)
	if err != nil {
		t.Fatalf("auth.NewService: %v", err)
	}
	taskSvc, err := task.NewService(backend, directory, recorder)
	if err != nil {
		t.Fatalf("task.NewService: %v", err)
	}

	api := New(Config{
		Ready:   ReadyProbe{},
		Auth:    authSvc,
		Tokens:  signer,
		Tasks:   taskSvc,
		Audit:   recorder,
		Version: "test",
	})
	return &testEnv{handler: api.Handler(), backend: backend, signer: signer}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) register(t *testing.T, email, password, name string) sessionResponse {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    email,
		"password": password,
		"name":     name,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", email, rec.Code, rec.Body)
	}
	var session sessionResponse
	mustDecode(t, rec, &session)
	return session
}

func mustDecode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body, err)
	}
}
