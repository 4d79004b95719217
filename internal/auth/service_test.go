package auth

import (
	"context"
	"errors"
	"testing"

	"smartcampus/internal/store/storetest"
)

type fakeStudents map[string]bool

func (f fakeStudents) IdentityExists(_ context.Context, key string) (bool, error) { return f[key], nil }

func newTestService(t *testing.T) *Service {
	t.Helper()
	db := storetest.OpenSQLite(t)
	for _, id := range []string{"S001", "S002"} {
		if _, err := db.Client.Exec(`INSERT INTO students (student_id, name, created_at) VALUES ($1, $2, CURRENT_TIMESTAMP)`, id, id); err != nil {
			t.Fatal(err)
		}
	}
	return NewService(NewRepository(db.Client), NewHasherWithConfig(LightConfig()),
		fakeStudents{"S001": true, "S002": true}, testTokens, nil)
}

func TestLoginFlow(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	if _, err := s.CreateUser(ctx, NewUser{Username: "asha", Password: "S001", Role: RoleStudent, StudentIDs: []string{"S001"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateUser(ctx, NewUser{Username: "asha", Password: "other", Role: RoleParent, StudentIDs: []string{"S001", "S002"}}); err != nil {
		t.Fatal(err)
	}

	sess, err := s.Login(ctx, "asha", "S001", "")
	if err != nil {
		t.Fatalf("password unique to the student login: %v", err)
	}
	if sess.Principal.Role != RoleStudent {
		t.Fatalf("role = %q, want student", sess.Principal.Role)
	}
	if _, err := s.Login(ctx, "asha", "wrong", RoleStudent); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := s.Login(ctx, "nobody", "x", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}

	sess, err = s.Login(ctx, "asha", "other", RoleParent)
	if err != nil {
		t.Fatal(err)
	}
	if len(sess.Principal.StudentIDs) != 2 || sess.Principal.StudentIDs[0] != "S001" {
		t.Fatalf("principal = %+v", sess.Principal)
	}

	next, err := s.Refresh(ctx, sess.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if _, err := s.Refresh(ctx, sess.Tokens.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("reused refresh err = %v, want ErrInvalidToken", err)
	}
	if err := s.Logout(ctx, next.Tokens.RefreshToken); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Refresh(ctx, next.Tokens.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("refresh after logout err = %v, want ErrInvalidToken", err)
	}
}

func TestLoginDoesNotRevealRolesWithoutPassword(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	for _, u := range []NewUser{
		{Username: "ravi", Password: "shared1", Role: RoleTeacher},
		{Username: "ravi", Password: "shared1", Role: RoleParent, StudentIDs: []string{"S002"}},
	} {
		if _, err := s.CreateUser(ctx, u); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := s.Login(ctx, "ravi", "guess", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := s.Login(ctx, "ravi", "shared1", ""); !errors.Is(err, ErrRoleRequired) {
		t.Fatalf("shared password err = %v, want ErrRoleRequired", err)
	}
	sess, err := s.Login(ctx, "ravi", "shared1", RoleParent)
	if err != nil {
		t.Fatal(err)
	}
	if sess.Principal.Role != RoleParent {
		t.Fatalf("role = %q, want parent", sess.Principal.Role)
	}
}

func TestCreateUserValidation(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   NewUser
		want error
	}{
		{"bad role", NewUser{Username: "x", Password: "pw", Role: "janitor"}, ErrInvalidRole},
		{"parent without child", NewUser{Username: "p", Password: "pw", Role: RoleParent}, ErrUnknownStudent},
		{"unknown child", NewUser{Username: "p", Password: "pw", Role: RoleParent, StudentIDs: []string{"S404"}}, ErrUnknownStudent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.CreateUser(ctx, tt.in); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := s.CreateUser(ctx, NewUser{Username: "admin", Password: "0010", Role: RoleAdmin}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateUser(ctx, NewUser{Username: "admin", Password: "0010", Role: RoleAdmin}); !errors.Is(err, ErrUserExists) {
		t.Fatalf("err = %v, want ErrUserExists", err)
	}
	_, created, err := s.EnsureUser(ctx, NewUser{Username: "admin", Password: "0010", Role: RoleAdmin})
	if err != nil || created {
		t.Fatalf("EnsureUser existing = created %v, err %v", created, err)
	}
}

func TestHasher(t *testing.T) {
	h := NewHasherWithConfig(LightConfig())
	enc, err := h.Hash("teach123")
	if err != nil {
		t.Fatal(err)
	}
	if !h.Verify(enc, "teach123") || h.Verify(enc, "teach124") || h.Verify("garbage", "teach123") {
		t.Fatal("hash verification mismatch")
	}
}
