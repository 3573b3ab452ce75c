package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eproba/eproba-api/internal/constants"
	"github.com/eproba/eproba-api/internal/models"
	"github.com/eproba/eproba-api/internal/repository"
	"github.com/eproba/eproba-api/internal/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken           = errors.New("email already registered")
	ErrEmailRequired        = errors.New("email is required")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrPasswordTooShort     = errors.New("password too short")
	ErrUserNotFound         = errors.New("user not found")
	ErrUserInactive         = errors.New("user account is deactivated")
	ErrFailedToHashPassword = errors.New("failed to hash password")
)

// AuthService handles authentication related business logic.
type AuthService struct {
	userRepo repository.UserRepository
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository) *AuthService {
	return &AuthService{
		userRepo: userRepo,
	}
}

// SignupInput represents the required information to create a new user.
type SignupInput struct {
	Email     string
	Password  string
	Nickname  string
	FirstName string
	LastName  string
	PatrolID  *uint64
}

// Signup registers a new user with member-level function.
func (s *AuthService) Signup(input SignupInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, ErrEmailRequired
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	if _, err := s.userRepo.FindByEmail(email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrFailedToHashPassword
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hashedPassword),
		Nickname:     input.Nickname,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		PatrolID:     input.PatrolID,
		Function:     models.FunctionMember,
		IsActive:     true,
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// Login verifies credentials and returns the authenticated user.
// Deactivated accounts cannot log in.
func (s *AuthService) Login(input LoginInput) (*models.User, error) {
	user, err := s.userRepo.FindByEmail(strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrUserInactive
	}

	return user, nil
}

// GetUser retrieves a user by ID with patrol and team loaded.
func (s *AuthService) GetUser(id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(id, "Patrol.Team")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

// IssueAccessToken creates a long-lived bearer token for API clients.
func (s *AuthService) IssueAccessToken(userID uint64) (*models.AccessToken, error) {
	token, err := utils.NewAccessToken()
	if err != nil {
		return nil, err
	}

	at := &models.AccessToken{
		UserID:    userID,
		Token:     token,
		ExpiresAt: time.Now().Add(constants.AccessTokenTTL),
	}
	if err := s.userRepo.CreateAccessToken(at); err != nil {
		return nil, fmt.Errorf("failed to store access token: %w", err)
	}
	return at, nil
}

// ResolveAccessToken returns the active user behind a bearer token.
func (s *AuthService) ResolveAccessToken(token string) (*models.User, error) {
	user, err := s.userRepo.FindByAccessToken(token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to resolve access token: %w", err)
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	return user, nil
}

// RegisterDevice stores a push notification registration for the user.
func (s *AuthService) RegisterDevice(userID uint64, registrationToken string) error {
	registrationToken = strings.TrimSpace(registrationToken)
	if registrationToken == "" {
		return errors.New("registration token is required")
	}
	device := &models.Device{
		UserID:            userID,
		RegistrationToken: registrationToken,
	}
	if err := s.userRepo.RegisterDevice(device); err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}
