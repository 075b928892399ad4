package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bakery_backend/internal/models"
	"bakery_backend/internal/repositories"
	"bakery_backend/pkg/utils"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// --- Data Transfer Objects (DTOs) ---

// LoginRequest DTO
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterUserRequest DTO
type RegisterUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"fullName"`
	Role     string `json:"role"` // Admin or Staff. Staff if empty.
}

// AuthResponse DTO
type AuthResponse struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"accessToken"`
	ExpiresIn   int64        `json:"expiresIn"`
}

// --- AuthService Interface ---
type AuthService interface {
	RegisterUser(ctx context.Context, req RegisterUserRequest) (*models.User, error)
	LoginUser(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	GetUserProfile(ctx context.Context, userID string) (*models.User, error)
	EnsureAdmin(ctx context.Context, username, password string) error
}

// --- authService Implementation ---
type authService struct {
	authRepo  repositories.AuthRepository
	tx        *repositories.TxRunner
	jwtSecret []byte
	tokenTTL  time.Duration
}

// NewAuthService creates a new instance of AuthService.
func NewAuthService(authRepo repositories.AuthRepository, tx *repositories.TxRunner, jwtSecret string, tokenTTL time.Duration) AuthService {
	return &authService{
		authRepo:  authRepo,
		tx:        tx,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
	}
}

func normalizeRole(role string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "", "staff":
		return models.RoleStaff, nil
	case "admin":
		return models.RoleAdmin, nil
	}
	return "", validationError("unknown role %q", role)
}

func (s *authService) createUser(ctx context.Context, executor repositories.SQLExecutor, username, password, fullName, role string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, validationError("username is required")
	}
	if len(password) < 8 {
		return nil, validationError("password must be at least 8 characters")
	}

	hashedPasswordBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := nowUTC()
	user := &models.User{
		ID:        uuid.NewString(),
		Username:  username,
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if fullName = strings.TrimSpace(fullName); fullName != "" {
		user.FullName = &fullName
	}

	if err := s.authRepo.CreateUser(ctx, executor, user, string(hashedPasswordBytes)); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrUsernameExists
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	return user, nil
}

// RegisterUser handles the business logic for user registration.
func (s *authService) RegisterUser(ctx context.Context, req RegisterUserRequest) (*models.User, error) {
	role, err := normalizeRole(req.Role)
	if err != nil {
		return nil, err
	}
	user, err := s.createUser(ctx, s.tx.DB(), req.Username, req.Password, req.FullName, role)
	if err != nil {
		return nil, err
	}
	utils.LogInfo("User registered", map[string]interface{}{"user_id": user.ID, "username": user.Username, "role": user.Role})
	return user, nil
}

// LoginUser handles user login and token generation.
func (s *authService) LoginUser(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	user, storedHashedPassword, err := s.authRepo.FindUserByUsername(ctx, s.tx.DB(), strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login attempt failed: %w", err)
	}

	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(storedHashedPassword), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	accessToken, err := utils.GenerateAccessToken(s.jwtSecret, s.tokenTTL, user.ID, user.Username, user.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}

	return &AuthResponse{
		User:        user,
		AccessToken: accessToken,
		ExpiresIn:   int64(s.tokenTTL.Seconds()),
	}, nil
}

// GetUserProfile retrieves a user's profile by their ID.
func (s *authService) GetUserProfile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.authRepo.FindUserByID(ctx, s.tx.DB(), userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to retrieve user profile: %w", err)
	}
	return user, nil
}

// EnsureAdmin creates the first admin account when the users table is empty.
// It does nothing when users already exist or no credentials are given.
func (s *authService) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		utils.LogDebug("No bootstrap admin credentials configured")
		return nil
	}
	count, err := s.authRepo.CountUsers(ctx, s.tx.DB())
	if err != nil {
		return fmt.Errorf("counting users: %w", err)
	}
	if count > 0 {
		return nil
	}
	user, err := s.createUser(ctx, s.tx.DB(), username, password, "Administrator", models.RoleAdmin)
	if err != nil {
		return fmt.Errorf("creating bootstrap admin: %w", err)
	}
	utils.LogInfo("Bootstrap admin created", map[string]interface{}{"username": user.Username})
	return nil
}
