package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/opencivic/caseflow/internal/domain"
)

// seedUser describes one default account created at startup when absent.
type seedUser struct {
	username string
	password string
	fullName string
	email    string
	role     domain.Role
}

var defaultUsers = []seedUser{
	{"admin", "admin123", "Administrator", "admin@registry.local", domain.RoleAdmin},
	{"registrar1", "reg123", "Main Registrar", "registrar@registry.local", domain.RoleRegistrar},
	{"supervisor1", "sup123", "Office Supervisor", "supervisor@registry.local", domain.RoleSupervisor},
	{"assistant1", "ass123", "Registrar Assistant", "assistant@registry.local", domain.RoleAssistant},
}

// SeedDefaultUsers creates the default accounts if they do not exist yet.
// Idempotent across restarts.
func SeedDefaultUsers(ctx context.Context, users domain.UserRepository) error {
	for _, s := range defaultUsers {
		_, err := users.GetByUsername(ctx, s.username)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrUserNotFound) {
			return fmt.Errorf("auth: checking for user %q: %w", s.username, err)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(s.password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("auth: hashing password for %q: %w", s.username, err)
		}

		user := domain.User{
			ID:           uuid.NewString(),
			Username:     s.username,
			FullName:     s.fullName,
			Email:        s.email,
			Role:         s.role,
			PasswordHash: string(hash),
			Active:       true,
			CreatedAt:    time.Now().UTC(),
		}
		if err := users.Create(ctx, user); err != nil {
			return fmt.Errorf("auth: creating user %q: %w", s.username, err)
		}
		slog.InfoContext(ctx, "created default user", "username", s.username, "role", s.role)
	}
	return nil
}
