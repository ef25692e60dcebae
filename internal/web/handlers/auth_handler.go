package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"VideoCoach-admin/internal/models"
	"VideoCoach-admin/internal/services"
)

const stateCookieName = "vc_oauth_state"

// Authenticator は OAuth ログインフローとセッション発行。
type Authenticator interface {
	LoginURL(state string) string
	HandleCallback(ctx context.Context, code string) (*models.User, string, error)
	VerifySession(token string) (int64, error)
}

// AuthHandler はログイン・コールバック・ログアウトを担当する。
type AuthHandler struct {
	auth   Authenticator
	users  services.UserStore
	secure bool
}

// NewAuthHandler は AuthHandler を生成する。secure は Cookie の Secure 属性。
func NewAuthHandler(auth Authenticator, users services.UserStore, secure bool) *AuthHandler {
	return &AuthHandler{auth: auth, users: users, secure: secure}
}

// Login は GET /auth/login。CSRF 対策の state を焼き込んで同意画面へ転送する。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := randomState()
	if err != nil {
		writeError(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/auth",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.auth.LoginURL(state), http.StatusFound)
}

// Callback は GET /auth/callback。state を突合し、セッション Cookie を発行する。
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		writeError(w, &models.AuthError{Message: "state が一致しません。最初からやり直してください"})
		return
	}
	h.clearCookie(w, stateCookieName, "/auth")

	_, session, err := h.auth.HandleCallback(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    session,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusFound)
}

// Logout は POST /auth/logout。セッション Cookie を破棄する。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearCookie(w, SessionCookieName, "/")
	w.WriteHeader(http.StatusNoContent)
}

// Me は GET /auth/me。ログイン中のユーザー情報を返す。
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	user, err := h.users.GetUserByID(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter, name, path string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
