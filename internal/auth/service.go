package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/opencivic/caseflow/internal/domain"
)

var (
	// ErrInvalidCredentials signals a wrong username or password.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrInvalidToken signals a token that failed verification.
	ErrInvalidToken = errors.New("auth: invalid token")
)

const tokenTTL = 24 * time.Hour

// Service resolves credentials and bearer tokens to identities and roles.
// The engine consumes it; it never mutates case state.
type Service struct {
	users  domain.UserRepository
	secret []byte
}

// NewService creates an identity provider backed by the user repository.
func NewService(users domain.UserRepository, secret string) *Service {
	return &Service{users: users, secret: []byte(secret)}
}

// LoginResult bundles the token and the user returned after a successful
// login.
type LoginResult struct {
	Token string
	User  domain.User
}

// Login verifies credentials and issues a signed bearer token.
func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("auth: lookup user: %w", err)
	}
	if !user.Active {
		return LoginResult{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	token, err := s.generateToken(user)
	if err != nil {
		return LoginResult{}, fmt.Errorf("auth: generate token: %w", err)
	}

	return LoginResult{Token: token, User: user}, nil
}

// VerifyToken validates a bearer token and resolves the current actor.
// The role is read from the user record, not the token, so a role change
// takes effect without waiting for the token to expire.
func (s *Service) VerifyToken(ctx context.Context, tokenString string) (domain.Actor, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return domain.Actor{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Actor{}, ErrInvalidToken
	}
	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		return domain.Actor{}, ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.Actor{}, ErrInvalidToken
		}
		return domain.Actor{}, fmt.Errorf("auth: lookup user: %w", err)
	}
	if !user.Active {
		return domain.Actor{}, ErrInvalidToken
	}

	return domain.Actor{ID: user.ID, Name: user.FullName, Role: user.Role}, nil
}

func (s *Service) generateToken(user domain.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": string(user.Role),
		"exp":  now.Add(tokenTTL).Unix(),
		"iat":  now.Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
