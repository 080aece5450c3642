package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"
)

// DefaultMinPasswordLength applies when ServiceConfig.MinPasswordLength is zero.
const DefaultMinPasswordLength = 6

// dummyPassword is hashed once at construction so logins for unknown
// emails spend the same time in Argon2id as logins with a wrong password.
const dummyPassword = "inbotiq-timing-equaliser"

// ServiceConfig configures a Service.
type ServiceConfig struct {
	Secret            string
	TokenTTL          time.Duration
	Password          PasswordParams
	MinPasswordLength int

	// Now overrides the clock used for token issuance and validation.
	Now func() time.Time
}

// Service implements signup, login, token verification and logout.
//
// Thread Safety:
//   - All methods are safe for concurrent use. Email uniqueness under
//     concurrent signups is enforced by the repository.
type Service struct {
	users     UserRepository
	revoked   *RevocationList
	signer    *TokenSigner
	hasher    *Hasher
	minLength int
	dummyHash string
	now       func() time.Time
	sink      atomic.Pointer[EventSink]
	logger    *slog.Logger
}

// NewService creates a Service. revoked must not be nil.
func NewService(cfg ServiceConfig, users UserRepository, revoked *RevocationList, logger *slog.Logger) (*Service, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token secret is required")
	}
	if cfg.TokenTTL <= 0 {
		return nil, errors.New("token TTL must be positive")
	}
	if users == nil || revoked == nil {
		return nil, errors.New("user repository and revocation list are required")
	}
	if cfg.MinPasswordLength <= 0 {
		cfg.MinPasswordLength = DefaultMinPasswordLength
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}

	hasher := NewHasher(cfg.Password)
	dummy, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("preparing dummy hash: %w", err)
	}

	s := &Service{
		users:     users,
		revoked:   revoked,
		signer:    NewTokenSigner(cfg.Secret, cfg.TokenTTL, cfg.Now),
		hasher:    hasher,
		minLength: cfg.MinPasswordLength,
		dummyHash: dummy,
		now:       cfg.Now,
		logger:    logger,
	}
	s.SetEventSink(nil)
	return s, nil
}

// SetEventSink replaces the sink that receives authentication events.
// A nil sink discards events.
func (s *Service) SetEventSink(sink EventSink) {
	if sink == nil {
		sink = nopSink{}
	}
	s.sink.Store(&sink)
}

func (s *Service) record(ctx context.Context, e Event) {
	e.Timestamp = s.now().UTC()
	(*s.sink.Load()).Record(ctx, e)
}

// Signup registers a new account with role User.
func (s *Service) Signup(ctx context.Context, name, email, password string) (*User, error) {
	user, err := s.newUser(name, email, password, RoleUser)
	if err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrEmailExists) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("signup: %w", err)
	}

	s.record(ctx, Event{Type: EventSignup, UserID: user.ID, Role: user.Role})
	return user, nil
}

// newUser validates input and returns an unsaved user with a hashed password.
func (s *Service) newUser(name, email, password string, role Role) (*User, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)

	if name == "" || email == "" || password == "" {
		return nil, &ValidationError{Message: "Please provide name, email and password"}
	}
	if !isValidEmail(email) {
		return nil, &ValidationError{Message: "Please provide a valid email"}
	}
	if utf8.RuneCountInString(password) < s.minLength {
		return nil, &ValidationError{
			Message: fmt.Sprintf("Password must be at least %d characters", s.minLength),
		}
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	return &User{Name: name, Email: email, PasswordHash: hash, Role: role}, nil
}

// Login verifies credentials and issues a session token. Unknown email and
// wrong password both return ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*User, string, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, "", &ValidationError{Message: "Please provide email and password"}
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		_, _ = VerifyPassword(password, s.dummyHash) //nolint:errcheck // timing only
		s.record(ctx, Event{Type: EventLoginFailed, Reason: "unknown_email"})
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", fmt.Errorf("login: %w", err)
	}

	ok, err := VerifyPassword(password, user.PasswordHash)
	if err != nil {
		s.logger.Error("stored password hash is unreadable", "user_id", user.ID, "error", err)
		return nil, "", fmt.Errorf("login: %w", err)
	}
	if !ok {
		s.record(ctx, Event{Type: EventLoginFailed, UserID: user.ID, Role: user.Role, Reason: "bad_password"})
		return nil, "", ErrInvalidCredentials
	}

	token, _, err := s.signer.Issue(user)
	if err != nil {
		return nil, "", fmt.Errorf("login: %w", err)
	}

	s.record(ctx, Event{Type: EventLogin, UserID: user.ID, Role: user.Role})
	return user, token, nil
}

// VerifyToken checks signature, expiry and revocation. It never touches
// the user store.
func (s *Service) VerifyToken(token string) (*Claims, error) {
	claims, err := s.signer.Parse(token)
	if err != nil {
		return nil, err
	}
	if s.revoked.Contains(claims.ID) {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Authenticate is VerifyToken plus a token_denied event on failure.
func (s *Service) Authenticate(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.VerifyToken(token)
	if err != nil {
		s.record(ctx, Event{Type: EventTokenDenied, Reason: denialReason(err)})
		return nil, err
	}
	return claims, nil
}

// Me returns the account identified by token.
func (s *Service) Me(ctx context.Context, token string) (*User, error) {
	claims, err := s.VerifyToken(token)
	if err != nil {
		return nil, err
	}
	return s.UserByID(ctx, claims.Subject)
}

// UserByID fetches an account for an already verified subject.
func (s *Service) UserByID(ctx context.Context, id string) (*User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}
	return user, nil
}

// Logout revokes token until its own expiry. Revoking an already revoked
// token succeeds; malformed or expired tokens are rejected.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.signer.Parse(token)
	if err != nil {
		return err
	}

	if err := s.revoked.Add(ctx, claims.ID, claims.Expiry()); err != nil {
		return fmt.Errorf("logout: %w", err)
	}

	s.record(ctx, Event{Type: EventLogout, UserID: claims.Subject, Role: claims.Role})
	return nil
}

func isValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndexByte(email, '@')
	return at > 0 && strings.Contains(email[at+1:], ".")
}

func denialReason(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenRevoked):
		return "revoked"
	default:
		return "invalid"
	}
}
