package http

import (
	"errors"
	"net/http"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if _, err := s.sessions.Parse(r); err == nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "register.html", "Register", nil)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWithFlash(w, r, auth.FlashDanger, "Invalid request", "/register")
		return
	}
	username := formValue(r.PostForm, "username")
	password := r.PostForm.Get("password")

	_, err := s.finance.Register(r.Context(), username, password)
	switch {
	case err == nil:
		redirectWithFlash(w, r, auth.FlashSuccess, "Registration successful", "/login")
	case errors.Is(err, core.ErrUsernameTaken):
		redirectWithFlash(w, r, auth.FlashDanger, "Username already exists", "/register")
	case errors.Is(err, core.ErrEmptyUsername), errors.Is(err, core.ErrEmptyPassword):
		redirectWithFlash(w, r, auth.FlashDanger, "Username and password are required", "/register")
	case errors.Is(err, core.ErrUsernameTooLong):
		redirectWithFlash(w, r, auth.FlashDanger, "Username must be at most 150 characters", "/register")
	case errors.Is(err, core.ErrPasswordTooLong):
		redirectWithFlash(w, r, auth.FlashDanger, "Password must be at most 72 bytes", "/register")
	default:
		s.serverError(w, r, "Registration failed", err, applog.ComponentAuth, applog.OpCreate)
	}
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "login.html", "Login", nil)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWithFlash(w, r, auth.FlashDanger, "Invalid request", "/login")
		return
	}
	username := formValue(r.PostForm, "username")

	u, err := s.finance.Authenticate(r.Context(), username, r.PostForm.Get("password"))
	if errors.Is(err, core.ErrInvalidCredentials) {
		applog.FromContext(r.Context()).WithComponent(applog.ComponentAuth).WarnContext(r.Context(), "Login failed",
			applog.FieldUsername, username,
			applog.FieldClientIP, s.detector.ExtractClientIP(r))
		redirectWithFlash(w, r, auth.FlashDanger, "Invalid username or password", "/login")
		return
	}
	if err != nil {
		s.serverError(w, r, "Login failed", err, applog.ComponentAuth, applog.OpRead)
		return
	}

	if err := s.sessions.Issue(w, u); err != nil {
		s.serverError(w, r, "Session issue failed", err, applog.ComponentAuth, applog.OpCreate)
		return
	}
	applog.FromContext(r.Context()).WithComponent(applog.ComponentAuth).InfoContext(r.Context(), "User logged in",
		applog.FieldUserID, u.ID)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Clear(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
