package auth

import (
	"errors"
	"testing"
)

// fastParams keeps argon2 cheap in tests.
func fastParams() HashParams {
	return HashParams{Memory: 64, Iterations: 1, Parallelism: 1}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("hunter2", fastParams())
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !VerifyPassword("hunter2", hash) {
		t.Fatal("correct password must verify")
	}
	if VerifyPassword("hunter3", hash) {
		t.Fatal("wrong password must not verify")
	}
	if VerifyPassword("hunter2", hash[:10]) {
		t.Fatal("truncated hash must not verify")
	}
}

func TestHashesAreSalted(t *testing.T) {
	a, err := HashPassword("same", fastParams())
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	b, err := HashPassword("same", fastParams())
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if string(a) == string(b) {
		t.Fatal("two hashes of the same password must differ by salt")
	}
}

func TestStoreSeedsAdmin(t *testing.T) {
	s, err := NewStore()
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	token, role, err := s.Login("admin", "admin")
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
	if role != RoleAdmin {
		t.Errorf("admin role = %q, want %q", role, RoleAdmin)
	}
	if token != "demo-token-for-admin" {
		t.Errorf("token = %q", token)
	}
}

func TestCreateLoginAuthenticate(t *testing.T) {
	s, err := NewStore()
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	s.params = fastParams()

	if err := s.Create("alice", "secret"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Create("alice", "other"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("duplicate create: got %v, want ErrUserExists", err)
	}

	token, role, err := s.Login("alice", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if role != RoleUser {
		t.Errorf("role = %q, want %q", role, RoleUser)
	}

	acct := s.Authenticate(token)
	if acct == nil || acct.Username != "alice" {
		t.Fatal("token must resolve to the account")
	}
	if s.Authenticate("demo-token-for-ghost") != nil {
		t.Fatal("unknown token must not authenticate")
	}
	if s.Authenticate("not-a-token") != nil {
		t.Fatal("malformed token must not authenticate")
	}

	if _, _, err := s.Login("alice", "wrong"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("wrong password: got %v, want ErrBadCredentials", err)
	}
}
