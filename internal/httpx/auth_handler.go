package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/greenmarket/storefront/internal/auth"
)

type UserStore interface {
	Create(ctx context.Context, name, email, passwordHash string) (auth.User, error)
	Authenticate(ctx context.Context, email, password string) (auth.User, error)
	Get(ctx context.Context, id int64) (auth.User, error)
}

type SessionManager interface {
	Create(ctx context.Context, id auth.Identity) (string, error)
	Get(ctx context.Context, token string) (auth.Identity, error)
	Delete(ctx context.Context, token string) error
}

type AuthHandler struct {
	Users    UserStore
	Sessions SessionManager
}

func (h *AuthHandler) Register(r *chi.Mux) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Post("/logout", h.logout)
		r.Get("/session", h.session)
	})
}

type userJSON struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func toUserJSON(u auth.User) userJSON {
	return userJSON{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

func validEmail(s string) bool {
	a, err := mail.ParseAddress(s)
	return err == nil && a.Address == s
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name            string `json:"name"`
		Email           string `json:"email"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}
	req.Name = strings.TrimSpace(req.Name)

	switch {
	case req.Name == "" || req.Email == "" || req.Password == "":
		respondError(w, http.StatusBadRequest, "name, email and password are required")
		return
	case !validEmail(req.Email):
		respondError(w, http.StatusBadRequest, "invalid email")
		return
	case len(req.Password) < 8:
		respondError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	case req.Password != req.ConfirmPassword:
		respondError(w, http.StatusBadRequest, "passwords do not match")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	u, err := h.Users.Create(r.Context(), req.Name, req.Email, hash)
	if errors.Is(err, auth.ErrEmailTaken) {
		respondError(w, http.StatusBadRequest, "email already registered")
		return
	}
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	if err := h.startSession(w, r, u); err != nil {
		respondInternal(w, r, err)
		return
	}
	respondMessage(w, "registration successful", toUserJSON(u))
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	if !validEmail(req.Email) {
		respondError(w, http.StatusBadRequest, "invalid email")
		return
	}

	u, err := h.Users.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		respondError(w, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
		return
	}
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	if err := h.startSession(w, r, u); err != nil {
		respondInternal(w, r, err)
		return
	}
	respondMessage(w, "login successful", toUserJSON(u))
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, u auth.User) error {
	token, err := h.Sessions.Create(r.Context(), auth.Identity{
		UserID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role,
	})
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		_ = h.Sessions.Delete(r.Context(), c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	respondMessage(w, "logout successful", nil)
}

// session reports the caller's identity, refreshed from storage so a deleted
// or demoted account does not keep a stale session alive.
func (h *AuthHandler) session(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, map[string]bool{"authenticated": false})
		return
	}
	u, err := h.Users.Get(r.Context(), id.UserID)
	if errors.Is(err, auth.ErrUserNotFound) {
		writeJSON(w, http.StatusOK, map[string]bool{"authenticated": false})
		return
	}
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	respondData(w, toUserJSON(u))
}
