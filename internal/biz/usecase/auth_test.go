package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/chatmate/chatmate/internal/biz/domain"
)

type mockTokenIssuer struct{}

func (mockTokenIssuer) Issue(userID string) (string, error) {
	return "tok-" + userID, nil
}

func (mockTokenIssuer) Verify(token string) (string, error) {
	if !strings.HasPrefix(token, "tok-") {
		return "", errors.New("bad signature")
	}
	return strings.TrimPrefix(token, "tok-"), nil
}

func validRegistration() RegisterRequest {
	return RegisterRequest{
		UserID:      "alice_01",
		PhoneNumber: "9876543210",
		Name:        "Alice Smith",
		Password:    "secret1",
	}
}

func TestRegister_Success(t *testing.T) {
	users := newMockUserRepo()
	uc := NewAuthUsecase(users, mockTokenIssuer{})

	res, err := uc.Register(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if res.Token != "tok-alice_01" {
		t.Errorf("Expected token 'tok-alice_01', got '%s'", res.Token)
	}
	if res.User.Avatar != "https://ui-avatars.com/api/?name=Alice+Smith&background=random" {
		t.Errorf("Unexpected avatar: %s", res.User.Avatar)
	}

	stored := users.users["alice_01"]
	if stored == nil || stored.PasswordHash == "secret1" || stored.PasswordHash == "" {
		t.Error("Expected hashed password to be stored")
	}
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RegisterRequest)
		want   string
	}{
		{"missing name", func(r *RegisterRequest) { r.Name = "" }, "All fields are required"},
		{"short password", func(r *RegisterRequest) { r.Password = "12345" }, "Password must be at least 6 characters"},
		{"short user id", func(r *RegisterRequest) { r.UserID = "ab" }, "User ID must be between 3-20 characters"},
		{"long user id", func(r *RegisterRequest) { r.UserID = strings.Repeat("a", 21) }, "User ID must be between 3-20 characters"},
		{"bad user id", func(r *RegisterRequest) { r.UserID = "alice-01" }, "User ID can only contain letters, numbers, and underscore"},
		{"bad phone", func(r *RegisterRequest) { r.PhoneNumber = "12345" }, "Phone number must be 10-15 digits"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := NewAuthUsecase(newMockUserRepo(), mockTokenIssuer{})
			req := validRegistration()
			tt.mutate(&req)

			_, err := uc.Register(context.Background(), req)
			if domain.KindOf(err) != domain.KindValidation {
				t.Fatalf("Expected validation error, got %v", err)
			}
			if domain.PublicMessage(err) != tt.want {
				t.Errorf("Expected '%s', got '%s'", tt.want, domain.PublicMessage(err))
			}
		})
	}
}

func TestRegister_Duplicates(t *testing.T) {
	users := newMockUserRepo(&domain.User{UserID: "alice_01", PhoneNumber: "1111111111"})
	uc := NewAuthUsecase(users, mockTokenIssuer{})

	_, err := uc.Register(context.Background(), validRegistration())
	if domain.PublicMessage(err) != "User ID already exists" {
		t.Errorf("Expected duplicate user ID, got %v", err)
	}

	req := validRegistration()
	req.UserID = "bob_01"
	req.PhoneNumber = "1111111111"
	_, err = uc.Register(context.Background(), req)
	if domain.PublicMessage(err) != "Phone number already exists" {
		t.Errorf("Expected duplicate phone, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	users := newMockUserRepo()
	uc := NewAuthUsecase(users, mockTokenIssuer{})
	ctx := context.Background()

	if _, err := uc.Register(ctx, validRegistration()); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	res, err := uc.Login(ctx, "9876543210", "secret1")
	if err != nil {
		t.Fatalf("Login by phone failed: %v", err)
	}
	if !res.User.IsOnline || !users.users["alice_01"].IsOnline {
		t.Error("Expected user to be online after login")
	}

	_, err = uc.Login(ctx, "alice_01", "wrong-pass")
	if domain.KindOf(err) != domain.KindAuth {
		t.Errorf("Expected auth error, got %v", err)
	}
	_, err = uc.Login(ctx, "nobody", "secret1")
	if domain.PublicMessage(err) != "Invalid credentials" {
		t.Errorf("Expected 'Invalid credentials', got %v", err)
	}

	if err := uc.Logout(ctx, "alice_01"); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if users.users["alice_01"].IsOnline {
		t.Error("Expected user to be offline after logout")
	}
}

func TestSearch(t *testing.T) {
	users := newMockUserRepo(
		&domain.User{UserID: "alice", PhoneNumber: "1111111111"},
		&domain.User{UserID: "bob", PhoneNumber: "2222222222", Name: "Bob"},
	)
	uc := NewAuthUsecase(users, mockTokenIssuer{})
	ctx := context.Background()

	p, err := uc.Search(ctx, "alice", "2222222222")
	if err != nil || p == nil || p.UserID != "bob" {
		t.Errorf("Expected bob, got %+v (%v)", p, err)
	}

	p, _ = uc.Search(ctx, "alice", "alice")
	if p != nil {
		t.Errorf("Expected caller to be excluded, got %+v", p)
	}

	p, _ = uc.Search(ctx, "alice", "zed")
	if p != nil {
		t.Errorf("Expected no match, got %+v", p)
	}

	_, err = uc.Search(ctx, "alice", " ")
	if domain.PublicMessage(err) != "User ID or phone number required" {
		t.Errorf("Expected validation message, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	uc := NewAuthUsecase(newMockUserRepo(), mockTokenIssuer{})

	id, err := uc.Authenticate("tok-alice")
	if err != nil || id != "alice" {
		t.Errorf("Expected alice, got '%s' (%v)", id, err)
	}
	if _, err := uc.Authenticate(""); domain.KindOf(err) != domain.KindAuth {
		t.Errorf("Expected auth error for empty token, got %v", err)
	}
	if _, err := uc.Authenticate("forged"); domain.KindOf(err) != domain.KindAuth {
		t.Errorf("Expected auth error for bad token, got %v", err)
	}
}
