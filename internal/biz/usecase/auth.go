package usecase

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/chatmate/chatmate/internal/biz/domain"
	"github.com/chatmate/chatmate/internal/biz/repo"
	"github.com/chatmate/chatmate/internal/logger"
)

// BcryptCost is the password hashing cost
const BcryptCost = 10

var (
	userIDRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	phoneRe  = regexp.MustCompile(`^[0-9]{10,15}$`)
)

// TokenIssuer issues and verifies access tokens
type TokenIssuer interface {
	Issue(userID string) (string, error)
	Verify(token string) (userID string, err error)
}

// AuthUsecase handles registration, login and the user directory
type AuthUsecase struct {
	userRepo repo.UserRepo
	tokens   TokenIssuer
	now      func() time.Time
	log      *zap.Logger
}

// NewAuthUsecase creates a new auth usecase
func NewAuthUsecase(userRepo repo.UserRepo, tokens TokenIssuer) *AuthUsecase {
	return &AuthUsecase{
		userRepo: userRepo,
		tokens:   tokens,
		now:      time.Now,
		log:      logger.Named("auth"),
	}
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	UserID      string
	PhoneNumber string
	Name        string
	Password    string
}

// AuthResult is returned on register and login
type AuthResult struct {
	Token string
	User  *domain.UserProfile
}

// Register validates and creates a new user, then issues a token
func (uc *AuthUsecase) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	req.Name = strings.TrimSpace(req.Name)

	if err := validateRegistration(req); err != nil {
		return nil, err
	}

	if existing, err := uc.userRepo.FindByUserID(ctx, req.UserID); err != nil {
		return nil, domain.NewStoreError("find user", err)
	} else if existing != nil {
		return nil, domain.NewValidationError("User ID already exists")
	}
	if existing, err := uc.userRepo.FindByIdentifier(ctx, req.PhoneNumber); err != nil {
		return nil, domain.NewStoreError("find user", err)
	} else if existing != nil {
		return nil, domain.NewValidationError("Phone number already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), BcryptCost)
	if err != nil {
		return nil, domain.NewStoreError("hash password", err)
	}

	now := uc.now()
	user := &domain.User{
		UserID:       req.UserID,
		PhoneNumber:  req.PhoneNumber,
		Name:         req.Name,
		PasswordHash: string(hash),
		Avatar:       "https://ui-avatars.com/api/?name=" + url.QueryEscape(req.Name) + "&background=random",
		LastSeen:     now,
		CreatedAt:    now,
	}
	if err := uc.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repo.ErrDuplicateUser) {
			return nil, domain.NewValidationError("User ID already exists")
		}
		return nil, domain.NewStoreError("create user", err)
	}

	token, err := uc.tokens.Issue(user.UserID)
	if err != nil {
		return nil, domain.NewStoreError("issue token", err)
	}
	uc.log.Info("user registered", zap.String("user_id", user.UserID))
	return &AuthResult{Token: token, User: user.Profile()}, nil
}

func validateRegistration(req RegisterRequest) error {
	if req.UserID == "" || req.PhoneNumber == "" || req.Name == "" || req.Password == "" {
		return domain.NewValidationError("All fields are required")
	}
	if len(req.Password) < 6 {
		return domain.NewValidationError("Password must be at least 6 characters")
	}
	if len(req.UserID) < 3 || len(req.UserID) > 20 {
		return domain.NewValidationError("User ID must be between 3-20 characters")
	}
	if !userIDRe.MatchString(req.UserID) {
		return domain.NewValidationError("User ID can only contain letters, numbers, and underscore")
	}
	if !phoneRe.MatchString(req.PhoneNumber) {
		return domain.NewValidationError("Phone number must be 10-15 digits")
	}
	return nil
}

// Login checks credentials by user ID or phone number and marks the user online
func (uc *AuthUsecase) Login(ctx context.Context, identifier, password string) (*AuthResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, domain.NewValidationError("All fields are required")
	}

	user, err := uc.userRepo.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, domain.NewStoreError("find user", err)
	}
	if user == nil {
		return nil, domain.NewAuthError("Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.NewAuthError("Invalid credentials")
	}

	now := uc.now()
	if err := uc.userRepo.SetOnline(ctx, user.UserID, true, now); err != nil {
		return nil, domain.NewStoreError("set online", err)
	}
	user.IsOnline = true
	user.LastSeen = now

	token, err := uc.tokens.Issue(user.UserID)
	if err != nil {
		return nil, domain.NewStoreError("issue token", err)
	}
	return &AuthResult{Token: token, User: user.Profile()}, nil
}

// Logout marks the user offline
func (uc *AuthUsecase) Logout(ctx context.Context, userID string) error {
	if err := uc.userRepo.SetOnline(ctx, userID, false, uc.now()); err != nil {
		return domain.NewStoreError("set offline", err)
	}
	return nil
}

// Search finds another user by user ID or phone number.
// Returns nil if nothing matches or the match is the caller.
func (uc *AuthUsecase) Search(ctx context.Context, caller, identifier string) (*domain.UserProfile, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, domain.NewValidationError("User ID or phone number required")
	}

	user, err := uc.userRepo.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, domain.NewStoreError("find user", err)
	}
	if user == nil || user.UserID == caller {
		return nil, nil
	}
	return user.Profile(), nil
}

// ResolvePartner finds a user by user ID or phone number, returns nil if not found
func (uc *AuthUsecase) ResolvePartner(ctx context.Context, identifier string) (*domain.User, error) {
	user, err := uc.userRepo.FindByIdentifier(ctx, strings.TrimSpace(identifier))
	if err != nil {
		return nil, domain.NewStoreError("find user", err)
	}
	return user, nil
}

// Authenticate verifies an access token and returns its user ID
func (uc *AuthUsecase) Authenticate(token string) (string, error) {
	if token == "" {
		return "", domain.NewAuthError("Access token required")
	}
	userID, err := uc.tokens.Verify(token)
	if err != nil {
		return "", &domain.Error{Kind: domain.KindAuth, Msg: "Invalid token", Err: err}
	}
	return userID, nil
}

// CurrentUser loads the user an access token was issued to
func (uc *AuthUsecase) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := uc.userRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, domain.NewStoreError("find user", err)
	}
	if user == nil {
		return nil, domain.NewAuthError("Invalid token")
	}
	return user, nil
}

// SetPresence updates the directory's online flag and last seen time
func (uc *AuthUsecase) SetPresence(ctx context.Context, userID string, online bool) error {
	if err := uc.userRepo.SetOnline(ctx, userID, online, uc.now()); err != nil {
		return domain.NewStoreError("set presence", err)
	}
	return nil
}
