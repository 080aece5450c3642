package auth

import (
	"context"
	"errors"
	"fmt"
)

// SeedAdmin creates an Admin account for email on first boot. It returns
// false when an account with that email already exists, whatever its role.
func (s *Service) SeedAdmin(ctx context.Context, name, email, password string) (bool, error) {
	if name == "" {
		name = "Administrator"
	}

	existing, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	switch {
	case err == nil:
		s.logger.Info("admin account exists, skipping seed", "user_id", existing.ID, "role", existing.Role)
		return false, nil
	case !errors.Is(err, ErrUserNotFound):
		return false, fmt.Errorf("checking admin account: %w", err)
	}

	admin, err := s.newUser(name, email, password, RoleAdmin)
	if err != nil {
		return false, fmt.Errorf("seeding admin: %w", err)
	}

	if err := s.users.Create(ctx, admin); err != nil {
		if errors.Is(err, ErrEmailExists) {
			return false, nil
		}
		return false, fmt.Errorf("creating seed admin: %w", err)
	}

	s.logger.Warn("seed admin account created", "user_id", admin.ID, "email", admin.Email)
	s.record(ctx, Event{Type: EventAdminSeeded, UserID: admin.ID, Role: admin.Role})
	return true, nil
}
