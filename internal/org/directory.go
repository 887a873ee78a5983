// Package org implements the organization directory: a forest of
// organizations (roots have no parent) and the role-based scope resolution
// every other component uses to filter by organization.
package org

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"opsboard.dev/internal/auth"
	"opsboard.dev/internal/ids"
)

// Organization is a tenant node. ParentID is nil for roots.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  *string   `json:"parentId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store describes persistence operations required by the directory.
type Store interface {
	CreateOrganization(ctx context.Context, o *Organization) error
	FindOrganization(ctx context.Context, id string) (*Organization, error)
	ChildOrganizationIDs(ctx context.Context, parentID string) ([]string, error)
}

// Scope is the set of organization identifiers a caller may read or act
// within. It is recomputed per request and never cached.
type Scope map[string]struct{}

// Contains reports whether the organization is inside the scope.
func (s Scope) Contains(orgID string) bool {
	_, ok := s[orgID]
	return ok
}

// IDs returns the scope members in deterministic order.
func (s Scope) IDs() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

var _ auth.OrganizationDirectory = (*Directory)(nil)

// Directory provides organization CRUD and scope resolution.
type Directory struct {
	store Store
	now   func() time.Time
}

// DirectoryOption configures Directory behavior.
type DirectoryOption func(*Directory)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) DirectoryOption {
	return func(d *Directory) {
		if fn != nil {
			d.now = fn
		}
	}
}

// NewDirectory constructs a Directory.
func NewDirectory(store Store, opts ...DirectoryOption) (*Directory, error) {
	if store == nil {
		return nil, errors.New("org: store is required")
	}
	d := &Directory{store: store, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// CreateRoot creates an organization with no parent.
func (d *Directory) CreateRoot(ctx context.Context, name string) (Organization, error) {
	return d.create(ctx, name, nil)
}

// CreateChild creates an organization under an existing parent. A missing
// parent fails with not-found rather than leaving a dangling reference.
func (d *Directory) CreateChild(ctx context.Context, parentID, name string) (Organization, error) {
	parentID = strings.TrimSpace(parentID)
	if parentID == "" {
		return Organization{}, fmt.Errorf("%w: parent organization id is required", auth.ErrInvalidInput)
	}
	if _, err := d.store.FindOrganization(ctx, parentID); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return Organization{}, fmt.Errorf("%w: parent organization %s", auth.ErrNotFound, parentID)
		}
		return Organization{}, err
	}
	return d.create(ctx, name, &parentID)
}

func (d *Directory) create(ctx context.Context, name string, parentID *string) (Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Organization{}, fmt.Errorf("%w: organization name is required", auth.ErrInvalidInput)
	}
	o := Organization{
		ID:        ids.New(),
		Name:      name,
		ParentID:  parentID,
		CreatedAt: d.now().UTC(),
	}
	if err := d.store.CreateOrganization(ctx, &o); err != nil {
		return Organization{}, err
	}
	return o, nil
}

// Get loads one organization by id.
func (d *Directory) Get(ctx context.Context, id string) (Organization, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Organization{}, fmt.Errorf("%w: organization id is required", auth.ErrInvalidInput)
	}
	o, err := d.store.FindOrganization(ctx, id)
	if err != nil {
		return Organization{}, err
	}
	return *o, nil
}

// ChildIDs returns identifiers of direct children only (one level).
func (d *Directory) ChildIDs(ctx context.Context, parentID string) ([]string, error) {
	return d.store.ChildOrganizationIDs(ctx, parentID)
}

// ResolveScope computes the caller's visibility scope: owners and admins see
// their own organization plus its direct children, viewers see their own
// organization only. The walk deliberately stops at depth one.
func (d *Directory) ResolveScope(ctx context.Context, user auth.Identity) (Scope, error) {
	if strings.TrimSpace(user.OrganizationID) == "" {
		return nil, fmt.Errorf("%w: identity has no organization", auth.ErrForbidden)
	}
	scope := Scope{user.OrganizationID: {}}
	switch user.Role {
	case auth.RoleOwner, auth.RoleAdmin:
		children, err := d.store.ChildOrganizationIDs(ctx, user.OrganizationID)
		if err != nil {
			return nil, err
		}
		for _, id := range children {
			scope[id] = struct{}{}
		}
	case auth.RoleViewer:
		// own organization only
	default:
		return nil, fmt.Errorf("%w: unknown role %q", auth.ErrForbidden, user.Role)
	}
	return scope, nil
}

// CreateRootOrg satisfies auth.OrganizationDirectory.
func (d *Directory) CreateRootOrg(ctx context.Context, name string) (string, error) {
	o, err := d.CreateRoot(ctx, name)
	if err != nil {
		return "", err
	}
	return o.ID, nil
}

// OrgName satisfies auth.OrganizationDirectory.
func (d *Directory) OrgName(ctx context.Context, id string) (string, error) {
	o, err := d.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return o.Name, nil
}
