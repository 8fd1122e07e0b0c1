package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"tenderportal/db"
	"tenderportal/internal/auth"
	"tenderportal/models"
)

const sessionCookie = "session"

// Handler wraps the storage and session secret shared by all endpoints.
type Handler struct {
	Store  StorageInterface
	Secret []byte
}

func NewHandler(store StorageInterface, secret []byte) *Handler {
	return &Handler{Store: store, Secret: secret}
}

func (h *Handler) PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type ctxKey int

const userKey ctxKey = 0

// CurrentUser returns the authenticated user set by RequireUser.
func CurrentUser(r *http.Request) *models.User {
	u, _ := r.Context().Value(userKey).(*models.User)
	return u
}

// WithUser returns a request carrying the user, as RequireUser would set it.
func WithUser(r *http.Request, u *models.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userKey, u))
}

// RequireUser validates the session cookie and loads the user into the
// request context. Unauthenticated requests get 401.
func (h *Handler) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookie)
		if err != nil {
			http.Error(w, "not authenticated", http.StatusUnauthorized)
			return
		}
		claims, err := auth.ParseToken(h.Secret, cookie.Value)
		if err != nil {
			http.Error(w, "not authenticated", http.StatusUnauthorized)
			return
		}
		user, err := h.Store.GetUserByUsername(r.Context(), claims.Username)
		if err != nil {
			http.Error(w, "not authenticated", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// checkArea writes 403 and returns false when the user may not act on the
// given area.
func (h *Handler) checkArea(w http.ResponseWriter, r *http.Request, area string) bool {
	if err := models.CheckPermission(CurrentUser(r), area); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return false
	}
	return true
}

type userPayload struct {
	ID          int      `json:"id"`
	Username    string   `json:"username"`
	Role        string   `json:"role"`
	Language    string   `json:"language"`
	FullName    string   `json:"full_name"`
	Permissions []string `json:"permissions"`
}

func serializeUser(u *models.User) userPayload {
	perms := append([]string{}, models.RolePermissions[u.Role]...)
	sort.Strings(perms)
	return userPayload{
		ID:       u.ID,
		Username: u.Username,
		Role:     u.Role,
		Language: u.Language,
		FullName: u.FullName, Permissions: perms,
	}
}

// LoginHandler handles POST /api/login.
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	if creds.Username == "" || creds.Password == "" {
		http.Error(w, "username and password are required", http.StatusBadRequest)
		return
	}
	user, err := h.Store.GetUserByUsername(r.Context(), creds.Username)
	if errors.Is(err, db.ErrNotFound) || (err == nil && !auth.VerifyPassword(creds.Password, user.PasswordHash)) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if err != nil {
		http.Error(w, "Failed to authenticate", http.StatusInternalServerError)
		return
	}
	token, err := auth.NewToken(h.Secret, user, time.Now().UTC())
	if err != nil {
		http.Error(w, "Failed to authenticate", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(auth.SessionDuration.Seconds()),
	})
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]userPayload{"user": serializeUser(user)})
}

// LogoutHandler clears the session cookie.
func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	w.WriteHeader(http.StatusNoContent)
}

// MeHandler returns the authenticated user.
func (h *Handler) MeHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]userPayload{"user": serializeUser(CurrentUser(r))})
}
