package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"smartcampus/internal/logger"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRoleRequired       = errors.New("username exists for several roles, role is required")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidRole        = errors.New("invalid role")
	ErrUnknownStudent     = errors.New("unknown student")
)

// StudentDirectory checks that linked students exist.
type StudentDirectory interface {
	IdentityExists(ctx context.Context, key string) (bool, error)
}

// Session is the result of a successful login or refresh.
type Session struct {
	Tokens    TokenPair
	Principal Principal
}

// NewUser describes an account to create.
type NewUser struct {
	Username   string   `json:"username" binding:"required,max=64"`
	Password   string   `json:"password" binding:"required,min=4"`
	Role       string   `json:"role" binding:"required,oneof=admin teacher student parent"`
	Name       string   `json:"name" binding:"max=120"`
	StudentIDs []string `json:"student_ids" binding:"dive,studentid"`
}

// DefaultStudentPassword is the initial password of a student login: the
// last four characters of the id, or the whole id when it is shorter.
func DefaultStudentPassword(studentID string) string {
	if len(studentID) <= 4 {
		return studentID
	}
	return studentID[len(studentID)-4:]
}

// Service handles logins, token rotation and account creation.
type Service struct {
	repo     *Repository
	hasher   *Hasher
	students StudentDirectory
	tokens   TokenConfig
	now      func() time.Time
	log      *zap.Logger
}

// NewService creates an auth service.
func NewService(repo *Repository, hasher *Hasher, students StudentDirectory, tokens TokenConfig, log *zap.Logger) *Service {
	if hasher == nil {
		hasher = NewHasher()
	}
	return &Service{repo: repo, hasher: hasher, students: students, tokens: tokens, now: time.Now, log: logger.OrNop(log)}
}

// Tokens returns the signing configuration, used by the auth middleware.
func (s *Service) Tokens() TokenConfig { return s.tokens }

// Login checks credentials and issues a token pair. role may be empty when
// the password matches the username under a single role. The password is
// checked before anything about the account's roles is revealed.
func (s *Service) Login(ctx context.Context, username, password, role string) (Session, error) {
	users, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return Session{}, err
	}
	var matches []User
	for _, u := range users {
		if role != "" && u.Role != role {
			continue
		}
		if s.hasher.Verify(u.PasswordHash, password) {
			matches = append(matches, u)
		}
	}
	switch {
	case len(matches) == 0:
		s.log.Info("login failed", zap.String("username", username), zap.Int("accounts", len(users)))
		return Session{}, ErrInvalidCredentials
	case len(matches) > 1:
		return Session{}, ErrRoleRequired
	}
	return s.issue(ctx, matches[0])
}

// Refresh exchanges a live refresh token for a new pair. Each refresh token
// works once.
func (s *Service) Refresh(ctx context.Context, token string) (Session, error) {
	claims, err := parseTyped(token, tokenRefresh, s.tokens)
	if err != nil {
		return Session{}, err
	}
	rec, err := s.repo.getRefreshToken(ctx, token)
	if err != nil {
		return Session{}, err
	}
	if rec == nil || rec.Revoked || s.now().After(rec.ExpiresAt) {
		return Session{}, ErrInvalidToken
	}
	consumed, err := s.repo.ConsumeRefreshToken(ctx, token)
	if err != nil {
		return Session{}, err
	}
	if !consumed {
		return Session{}, ErrInvalidToken
	}
	u, err := s.repo.GetUser(ctx, claims.UserID())
	if err != nil {
		return Session{}, err
	}
	if u == nil {
		return Session{}, ErrInvalidToken
	}
	return s.issue(ctx, *u)
}

// Logout revokes a refresh token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	_, err := s.repo.ConsumeRefreshToken(ctx, token)
	return err
}

// CreateUser hashes the password and stores the account with its student links.
func (s *Service) CreateUser(ctx context.Context, in NewUser) (User, error) {
	u, _, err := s.createOrGet(ctx, in, false)
	return u, err
}

// EnsureUser creates the account unless it exists, then makes sure the
// requested student links are present. It reports whether it created one.
func (s *Service) EnsureUser(ctx context.Context, in NewUser) (User, bool, error) {
	return s.createOrGet(ctx, in, true)
}

func (s *Service) createOrGet(ctx context.Context, in NewUser, allowExisting bool) (User, bool, error) {
	if !ValidRole(in.Role) {
		return User{}, false, ErrInvalidRole
	}
	if in.Username == "" || in.Password == "" {
		return User{}, false, ErrInvalidCredentials
	}
	if (in.Role == RoleStudent || in.Role == RoleParent) && len(in.StudentIDs) == 0 {
		return User{}, false, fmt.Errorf("%w: %s accounts need a linked student", ErrUnknownStudent, in.Role)
	}
	for _, id := range in.StudentIDs {
		ok, err := s.students.IdentityExists(ctx, id)
		if err != nil {
			return User{}, false, err
		}
		if !ok {
			return User{}, false, fmt.Errorf("%w: %s", ErrUnknownStudent, id)
		}
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return User{}, false, fmt.Errorf("hash password: %w", err)
	}
	name := in.Name
	if name == "" {
		name = in.Username
	}
	u := User{Username: in.Username, PasswordHash: hash, Role: in.Role, Name: name}
	if in.Role == RoleStudent {
		u.LinkedStudentID = &in.StudentIDs[0]
	}

	created := true
	u, err = s.repo.CreateUser(ctx, u)
	if errors.Is(err, ErrUserExists) && allowExisting {
		existing, gerr := s.repo.GetByUsernameRole(ctx, in.Username, in.Role)
		if gerr != nil {
			return User{}, false, gerr
		}
		if existing == nil {
			return User{}, false, err
		}
		u, created = *existing, false
	} else if err != nil {
		return User{}, false, err
	}

	if in.Role == RoleParent {
		for _, id := range in.StudentIDs {
			if err := s.repo.LinkStudent(ctx, u.ID, id); err != nil {
				return User{}, false, fmt.Errorf("link %s: %w", id, err)
			}
		}
	}
	if created {
		s.log.Info("user created", zap.String("username", u.Username), zap.String("role", u.Role))
	}
	return u, created, nil
}

// PrincipalFor resolves the request-scoped identity for u.
func (s *Service) PrincipalFor(ctx context.Context, u User) (Principal, error) {
	p := Principal{UserID: u.ID, Username: u.Username, Role: u.Role}
	switch u.Role {
	case RoleStudent:
		if u.LinkedStudentID != nil {
			p.StudentIDs = []string{*u.LinkedStudentID}
		}
	case RoleParent:
		ids, err := s.repo.LinkedStudents(ctx, u.ID)
		if err != nil {
			return Principal{}, err
		}
		p.StudentIDs = ids
	}
	return p, nil
}

func (s *Service) issue(ctx context.Context, u User) (Session, error) {
	p, err := s.PrincipalFor(ctx, u)
	if err != nil {
		return Session{}, err
	}
	pair, err := Issue(p, s.tokens, s.now())
	if err != nil {
		return Session{}, fmt.Errorf("issue tokens: %w", err)
	}
	if err := s.repo.SaveRefreshToken(ctx, u.ID, pair.RefreshToken, pair.RefreshExp); err != nil {
		return Session{}, fmt.Errorf("save refresh token: %w", err)
	}
	return Session{Tokens: pair, Principal: p}, nil
}
