package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"opsboard.dev/internal/ids"
)

// UserStore describes persistence operations required by the session manager.
type UserStore interface {
	CreateUser(ctx context.Context, u *User) error
	FindUser(ctx context.Context, id string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
}

// OrganizationDirectory is the slice of the organization directory the
// session manager needs: provisioning a root organization at registration
// and resolving an organization name for the profile view.
type OrganizationDirectory interface {
	CreateRootOrg(ctx context.Context, name string) (string, error)
	OrgName(ctx context.Context, id string) (string, error)
}

// Service implements registration, login and current-user resolution.
type Service struct {
	users  UserStore
	orgs   OrganizationDirectory
	signer *TokenSigner
	now    func() time.Time
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

// NewService constructs the session manager.
func NewService(users UserStore, orgs OrganizationDirectory, signer *TokenSigner, opts ...ServiceOption) (*Service, error) {
	if users == nil {
		return nil, errors.New("auth: user store is required")
	}
	if orgs == nil {
		return nil, errors.New("auth: organization directory is required")
	}
	if signer == nil {
		return nil, errors.New("auth: token signer is required")
	}
	s := &Service{
		users:  users,
		orgs:   orgs,
		signer: signer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register creates a brand-new account: the user becomes the owner of a
// freshly provisioned root organization named "<name>'s Org".
func (s *Service) Register(ctx context.Context, email, password, name string) (Session, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return Session{}, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if strings.TrimSpace(password) == "" {
		return Session{}, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}

	if _, err := s.users.FindUserByEmail(ctx, email); err == nil {
		return Session{}, fmt.Errorf("%w: email already exists", ErrConflict)
	} else if !errors.Is(err, ErrNotFound) {
		return Session{}, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return Session{}, err
	}

	displayName := deriveDisplayName(name, email)
	orgID, err := s.orgs.CreateRootOrg(ctx, displayName+"'s Org")
	if err != nil {
		return Session{}, err
	}

	now := s.now().UTC()
	user := &User{
		ID:             ids.New(),
		Name:           displayName,
		Email:          email,
		PasswordHash:   hash,
		Role:           RoleOwner,
		OrganizationID: orgID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return Session{}, err
	}
	return s.openSession(user)
}

// Login authenticates credentials. Unknown email and wrong password return
// an identical error so callers cannot enumerate accounts.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.users.FindUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return Session{}, invalidCredentials()
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return Session{}, invalidCredentials()
	}
	return s.openSession(user)
}

// Me resolves the caller's profile joined with its organization name.
// A nil profile (with nil error) means the user no longer exists; callers
// must treat it as an invalid session.
func (s *Service) Me(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.users.FindUser(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	orgName, err := s.orgs.OrgName(ctx, user.OrganizationID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return &Profile{
		ID:      user.ID,
		Name:    user.Name,
		Email:   user.Email,
		Role:    user.Role,
		OrgID:   user.OrganizationID,
		OrgName: orgName,
	}, nil
}

func (s *Service) openSession(user *User) (Session, error) {
	token, expiresAt, err := s.signer.Issue(user)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		ExpiresAt: expiresAt,
		User: UserSummary{
			ID:             user.ID,
			Name:           user.Name,
			Email:          user.Email,
			Role:           user.Role,
			OrganizationID: user.OrganizationID,
		},
	}, nil
}

func invalidCredentials() error {
	return fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
}

func deriveDisplayName(name, email string) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}
	if local, _, _ := strings.Cut(email, "@"); local != "" {
		return local
	}
	return "User"
}
