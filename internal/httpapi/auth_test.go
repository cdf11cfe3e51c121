package httpapi

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"titipjual/backend/internal/domain"
)

type userStoreStub struct {
	mu      sync.Mutex
	users   map[string]domain.UserAccount
	updates int
}

func (s *userStoreStub) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users == nil {
		s.users = make(map[string]domain.UserAccount)
	}
	s.users[user.Username] = user
	return nil
}

func (s *userStoreStub) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.UserAccount, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	return out, nil
}

func (s *userStoreStub) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.users[username]
	user.Password = password
	s.users[username] = user
	s.updates++
	return nil
}

func adminOnlyStore() *userStoreStub {
	return &userStoreStub{
		users: map[string]domain.UserAccount{
			"admin": {
				Username:  "admin",
				Password:  "admin123",
				Role:      "admin",
				Active:    true,
				CreatedAt: time.Now().UTC(),
			},
		},
	}
}

func TestTokenRoundTrip(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, "123456", adminOnlyStore())

	resp, err := manager.Login(domain.LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	actor, err := manager.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if actor.Username != "admin" || actor.Role != "admin" {
		t.Fatalf("unexpected actor %+v", actor)
	}
}

func TestParseTokenRejectsForgedToken(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, "123456", adminOnlyStore())
	other := NewAuthManager("other-secret", time.Hour, "123456", adminOnlyStore())

	resp, err := other.Login(domain.LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if _, err := manager.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}
	if _, err := manager.ParseToken("not-a-token"); err == nil {
		t.Fatalf("expected garbage token to be rejected")
	}
}

func TestAuthManagerUpgradesLegacyPlainPassword(t *testing.T) {
	store := adminOnlyStore()

	manager := NewAuthManager("test-secret", time.Hour, "123456", store)
	if _, err := manager.Login(domain.LoginRequest{Username: "admin", Password: "admin123"}); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	users, err := store.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(users))
	}
	if users[0].Password == "admin123" {
		t.Fatalf("expected password to be upgraded from plain-text")
	}
	if !strings.HasPrefix(users[0].Password, "$2") {
		t.Fatalf("expected bcrypt password hash, got %s", users[0].Password)
	}
}

func TestCreateStaffStoresPasswordHash(t *testing.T) {
	store := adminOnlyStore()
	manager := NewAuthManager("test-secret", time.Hour, "123456", store)

	staff, err := manager.CreateStaff(domain.StaffCreateRequest{
		Username: "penjagabaru",
		Password: "pass1234",
	})
	if err != nil {
		t.Fatalf("create staff failed: %v", err)
	}
	if staff.Username != "penjagabaru" || staff.Role != "staff" {
		t.Fatalf("unexpected staff account %+v", staff)
	}

	users, err := store.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	var found *domain.UserAccount
	for i := range users {
		if users[i].Username == "penjagabaru" {
			found = &users[i]
			break
		}
	}
	if found == nil {
		t.Fatalf("expected staff account to be saved")
	}
	if found.Password == "pass1234" || !strings.HasPrefix(found.Password, "$2") {
		t.Fatalf("expected bcrypt hash, got %s", found.Password)
	}

	if _, err := manager.Login(domain.LoginRequest{Username: "penjagabaru", Password: "pass1234"}); err != nil {
		t.Fatalf("login with new staff account failed: %v", err)
	}
}

func TestCreateStaffValidation(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, "123456", adminOnlyStore())

	if _, err := manager.CreateStaff(domain.StaffCreateRequest{Username: "ab", Password: "pass1234"}); err == nil {
		t.Fatalf("expected short username to be rejected")
	}
	if _, err := manager.CreateStaff(domain.StaffCreateRequest{Username: "has space", Password: "pass1234"}); err == nil {
		t.Fatalf("expected username with spaces to be rejected")
	}
	if _, err := manager.CreateStaff(domain.StaffCreateRequest{Username: "valid", Password: "123"}); err == nil {
		t.Fatalf("expected short password to be rejected")
	}
	if _, err := manager.CreateStaff(domain.StaffCreateRequest{Username: "admin", Password: "pass1234"}); err == nil {
		t.Fatalf("expected duplicate username to be rejected")
	}
}

func TestManagerPINIsHashedAndStillValidates(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, "654321", &userStoreStub{users: map[string]domain.UserAccount{}})

	if manager.managerPIN == "654321" {
		t.Fatalf("expected manager pin to be stored as hash, got plain-text")
	}
	if !manager.ValidateManagerPIN("654321") {
		t.Fatalf("expected manager pin validation to succeed")
	}
	if manager.ValidateManagerPIN("111111") {
		t.Fatalf("expected wrong manager pin to fail")
	}
	if manager.ValidateManagerPIN("") {
		t.Fatalf("expected empty pin to fail")
	}
}

func TestInactiveAccountCannotLogin(t *testing.T) {
	store := &userStoreStub{
		users: map[string]domain.UserAccount{
			"bekas": {
				Username:  "bekas",
				Password:  "rahasia1",
				Role:      "staff",
				Active:    false,
				CreatedAt: time.Now().UTC(),
			},
		},
	}
	manager := NewAuthManager("test-secret", time.Hour, "123456", store)

	if _, err := manager.Login(domain.LoginRequest{Username: "bekas", Password: "rahasia1"}); err == nil {
		t.Fatalf("expected inactive account login to fail")
	}
}
