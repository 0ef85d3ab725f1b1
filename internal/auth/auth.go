// Package auth holds the demo credential store: password verification for
// login and the bearer tokens the HTTP layer hands out. Tokens are the demo
// scheme the frontend expects, not a production session mechanism.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
)

// Roles.
const (
	RoleUser  = "user"
	RoleAdmin = "administrator"
)

const tokenPrefix = "demo-token-for-"

var (
	ErrBadCredentials = errors.New("invalid username or password")
	ErrUserExists     = errors.New("username already exists")
)

// Hashing constants.
const (
	saltSize = 32
	hashSize = 32
	// Hash format: [salt(32)][memory(4)][iterations(4)][parallelism(1)][hash(32)]
	headerSize = saltSize + 4 + 4 + 1
)

// HashParams holds Argon2id parameters.
type HashParams struct {
	Memory      uint32 // in KiB
	Iterations  uint32
	Parallelism uint8
}

// DefaultHashParams returns recommended Argon2id parameters.
func DefaultHashParams() HashParams {
	return HashParams{
		Memory:      64 * 1024, // 64 MB
		Iterations:  3,
		Parallelism: 4,
	}
}

// HashPassword derives an Argon2id hash with a random salt. The parameters
// travel inside the output so they can be tuned without invalidating stored
// hashes.
func HashPassword(password string, params HashParams) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt,
		params.Iterations, params.Memory, params.Parallelism, hashSize)

	out := make([]byte, 0, headerSize+hashSize)
	out = append(out, salt...)
	out = binary.LittleEndian.AppendUint32(out, params.Memory)
	out = binary.LittleEndian.AppendUint32(out, params.Iterations)
	out = append(out, params.Parallelism)
	out = append(out, hash...)
	return out, nil
}

// VerifyPassword re-derives the hash with the stored salt and parameters and
// compares in constant time.
func VerifyPassword(password string, stored []byte) bool {
	if len(stored) != headerSize+hashSize {
		return false
	}
	salt := stored[:saltSize]
	memory := binary.LittleEndian.Uint32(stored[saltSize:])
	iterations := binary.LittleEndian.Uint32(stored[saltSize+4:])
	parallelism := stored[saltSize+8]
	want := stored[headerSize:]

	got := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, hashSize)
	return subtle.ConstantTimeCompare(got, want) == 1
}

// Account is a login credential bound to a ledger handle.
type Account struct {
	Username     string
	PasswordHash []byte
	Role         string
}

// Store is the in-memory account table. A fresh store carries the stock
// admin/admin account the demo frontend logs in with.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]*Account
	params   HashParams
}

// NewStore creates an account store seeded with the default admin account.
func NewStore() (*Store, error) {
	s := &Store{
		accounts: make(map[string]*Account),
		params:   DefaultHashParams(),
	}
	if err := s.create("admin", "admin", RoleAdmin); err != nil {
		return nil, err
	}
	return s, nil
}

// Create registers a credential with the user role.
func (s *Store) Create(username, password string) error {
	return s.create(username, password, RoleUser)
}

func (s *Store) create(username, password, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[username]; exists {
		return ErrUserExists
	}
	hash, err := HashPassword(password, s.params)
	if err != nil {
		return err
	}
	s.accounts[username] = &Account{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
	}
	return nil
}

// Exists reports whether a username is taken.
func (s *Store) Exists(username string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.accounts[username]
	return ok
}

// Delete drops a credential. Used to roll back failed registrations.
func (s *Store) Delete(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.accounts, username)
}

// Login verifies a password and issues the bearer token for the account.
func (s *Store) Login(username, password string) (token, role string, err error) {
	s.mu.RLock()
	acct, ok := s.accounts[username]
	s.mu.RUnlock()
	if !ok || !VerifyPassword(password, acct.PasswordHash) {
		return "", "", ErrBadCredentials
	}
	return tokenPrefix + username, acct.Role, nil
}

// Authenticate resolves a bearer token to its account, or nil.
func (s *Store) Authenticate(token string) *Account {
	if !strings.HasPrefix(token, tokenPrefix) {
		return nil
	}
	username := strings.TrimPrefix(token, tokenPrefix)

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accounts[username]
}

// Count returns the number of accounts, the stock admin included.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}
