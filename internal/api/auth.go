package api

import (
	"net/http"
)

// signupRequest is the request body for POST /api/auth/signup.
type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginRequest is the request body for POST /api/auth/login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleSignup registers a new account with role User.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := s.auth.Signup(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.logger.Info("user signed up", "user_id", user.ID, "role", user.Role)
	writeJSON(w, http.StatusCreated, envelope{
		Success: true,
		Message: msgSignupSuccess,
		Data:    user.Public(),
	})
}

// handleLogin verifies credentials and returns a session token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, token, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Message: msgLoginSuccess,
		Data:    user.Public(),
		Token:   token,
	})
}

// handleMe returns the authenticated account.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, msgNoToken)
		return
	}

	user, err := s.auth.UserByID(r.Context(), p.UserID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Data: user.Public()})
}

// handleAdmin is an Admin-only probe used by the dashboard to confirm the
// caller's role server-side.
func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	s.handleMe(w, r)
}

// handleLogout revokes the presented token. Logging out twice succeeds;
// a malformed or expired token is a 401.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		writeUnauthorized(w, msgNoToken)
		return
	}

	if err := s.auth.Logout(r.Context(), token); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Message: msgLogoutSuccess})
}
