package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenSigner_IssueAndParse(t *testing.T) {
	clock := newTestClock()
	s := NewTokenSigner(testSecret, time.Hour, clock.Now)

	token, issued, err := s.Issue(&User{ID: "usr-001", Role: RoleAdmin})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if token == "" {
		t.Fatal("Issue() returned empty token")
	}

	claims, err := s.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.Subject != "usr-001" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "usr-001")
	}
	if claims.Role != RoleAdmin {
		t.Errorf("Role = %q, want %q", claims.Role, RoleAdmin)
	}
	if claims.ID == "" || claims.ID != issued.ID {
		t.Errorf("ID = %q, want issued jti %q", claims.ID, issued.ID)
	}
	if want := clock.Now().Add(time.Hour); !claims.Expiry().Equal(want) {
		t.Errorf("Expiry() = %v, want %v", claims.Expiry(), want)
	}
}

func TestTokenSigner_FreshJTIPerIssue(t *testing.T) {
	s := NewTokenSigner(testSecret, time.Hour, nil)
	user := &User{ID: "usr-001", Role: RoleUser}

	_, a, err := s.Issue(user)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	_, b, err := s.Issue(user)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if a.ID == b.ID {
		t.Error("two tokens share a jti")
	}
}

func TestTokenSigner_Expiry(t *testing.T) {
	clock := newTestClock()
	s := NewTokenSigner(testSecret, time.Hour, clock.Now)

	token, _, err := s.Issue(&User{ID: "usr-001", Role: RoleUser})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	clock.Advance(time.Hour - time.Second)
	if _, err := s.Parse(token); err != nil {
		t.Errorf("Parse() one second before expiry error = %v", err)
	}

	clock.Advance(time.Second)
	if _, err := s.Parse(token); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Parse() at expiry error = %v, want ErrTokenExpired", err)
	}
}

func TestTokenSigner_Rejects(t *testing.T) {
	clock := newTestClock()
	s := NewTokenSigner(testSecret, time.Hour, clock.Now)
	exp := jwt.NewNumericDate(clock.Now().Add(time.Hour))

	sign := func(t *testing.T, method jwt.SigningMethod, key any, claims jwt.Claims) string {
		t.Helper()
		tok, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatalf("signing test token: %v", err)
		}
		return tok
	}

	valid := func() *Claims {
		return &Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "usr-001", ID: "jti-1", ExpiresAt: exp},
			Role:             RoleUser,
		}
	}

	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{"garbage", func(*testing.T) string { return "not-a-jwt" }},
		{"empty", func(*testing.T) string { return "" }},
		{"wrong secret", func(t *testing.T) string {
			return sign(t, jwt.SigningMethodHS256, []byte("another-secret-another-secret-xx"), valid())
		}},
		{"HS512 algorithm", func(t *testing.T) string {
			return sign(t, jwt.SigningMethodHS512, []byte(testSecret), valid())
		}},
		{"none algorithm", func(t *testing.T) string {
			return sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, valid())
		}},
		{"missing exp", func(t *testing.T) string {
			c := valid()
			c.ExpiresAt = nil
			return sign(t, jwt.SigningMethodHS256, []byte(testSecret), c)
		}},
		{"missing subject", func(t *testing.T) string {
			c := valid()
			c.Subject = ""
			return sign(t, jwt.SigningMethodHS256, []byte(testSecret), c)
		}},
		{"missing jti", func(t *testing.T) string {
			c := valid()
			c.ID = ""
			return sign(t, jwt.SigningMethodHS256, []byte(testSecret), c)
		}},
		{"unknown role", func(t *testing.T) string {
			c := valid()
			c.Role = "owner"
			return sign(t, jwt.SigningMethodHS256, []byte(testSecret), c)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Parse(tt.token(t))
			if !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("Parse() error = %v, want ErrTokenInvalid", err)
			}
		})
	}
}

func TestClaims_HasRole(t *testing.T) {
	c := &Claims{Role: RoleUser}

	if !c.HasRole(RoleUser) {
		t.Error("HasRole(User) = false for User")
	}
	if c.HasRole(RoleAdmin) {
		t.Error("HasRole(Admin) = true for User")
	}
	if !c.HasRole(RoleAdmin, RoleUser) {
		t.Error("HasRole(Admin, User) = false for User")
	}
	if c.HasRole() {
		t.Error("HasRole() with no roles = true")
	}
}
