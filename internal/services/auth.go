package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"task-tracker/backend/internal/config"
	"task-tracker/backend/internal/models"
	"task-tracker/backend/internal/repositories"
)

type RegisterInput struct {
	Email           string
	Password        string
	ConfirmPassword string
	Name            string
}

// AuthResult is returned by every operation that issues tokens.
type AuthResult struct {
	Session      Session `json:"user"`
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	TokenType    string  `json:"token_type"`
	ExpiresIn    int64   `json:"expires_in"`
}

type Claims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

type AuthService struct {
	users  repositories.UserStore
	tokens repositories.TokenStore
	config config.AuthConfig
	logger zerolog.Logger
	now    func() time.Time
}

func NewAuthService(users repositories.UserStore, tokens repositories.TokenStore, cfg config.AuthConfig, logger zerolog.Logger) *AuthService {
	if cfg.BCryptCost == 0 {
		cfg.BCryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		users:  users,
		tokens: tokens,
		config: cfg,
		logger: logger.With().Str("component", "auth").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *AuthService) validateRegistration(input RegisterInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return invalid("name", "name is required")
	}
	email := strings.TrimSpace(input.Email)
	if email == "" {
		return invalid("email", "email is required")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return invalid("email", "email is not a valid address")
	}
	if utf8.RuneCountInString(input.Password) < s.config.MinPasswordLength {
		return invalid("password", fmt.Sprintf("password must be at least %d characters", s.config.MinPasswordLength))
	}
	if input.ConfirmPassword != "" && input.ConfirmPassword != input.Password {
		return invalid("confirm_password", "passwords do not match")
	}
	return nil
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	if err := s.validateRegistration(input); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.config.BCryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        strings.TrimSpace(input.Email),
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(input.Name),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateEmail) {
			return nil, ErrEmailAlreadyRegistered
		}
		return nil, err
	}

	s.logger.Info().Uint("user_id", user.ID).Msg("user registered")
	return s.issue(ctx, user)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, invalid("", "email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(ctx, user)
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	token, err := s.tokens.FindActive(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, ErrInvalidToken
	}

	user, err := s.users.FindByID(ctx, token.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidToken
	}

	if err := s.tokens.Delete(ctx, refreshToken); err != nil {
		return nil, err
	}
	return s.issue(ctx, user)
}

// Logout revokes the refresh token. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.tokens.Delete(ctx, refreshToken)
}

func (s *AuthService) CurrentUser(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// DeleteAccount removes the user together with their tasks and tokens.
func (s *AuthService) DeleteAccount(ctx context.Context, userID uint) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}
	s.logger.Info().Uint("user_id", userID).Msg("account deleted")
	return nil
}

func (s *AuthService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return s.tokens.DeleteExpired(ctx)
}

func (s *AuthService) ParseAccessToken(tokenString string) (Session, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.config.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.config.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid || claims.UserID == 0 {
		return Session{}, ErrInvalidToken
	}
	return Session{UserID: claims.UserID, Email: claims.Email, Name: claims.Name}, nil
}

func (s *AuthService) issue(ctx context.Context, user *models.User) (*AuthResult, error) {
	now := s.now()
	session := Session{UserID: user.ID, Email: user.Email, Name: user.Name}

	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   fmt.Sprint(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.AccessTokenTTL)),
		},
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshUUID, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	token := &models.Token{
		UserID:       user.ID,
		RefreshToken: refreshUUID.String(),
		ExpiresAt:    now.Add(s.config.RefreshTokenTTL),
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return nil, err
	}

	return &AuthResult{
		Session:      session,
		AccessToken:  accessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.config.AccessTokenTTL.Seconds()),
	}, nil
}
