package handlers

import (
	"context"
	"net/http"

	"VideoCoach-admin/internal/models"
)

// SessionCookieName はセッショントークンを載せる Cookie 名。
const SessionCookieName = "vc_session"

// SessionVerifier はセッショントークンの検証。
type SessionVerifier interface {
	VerifySession(token string) (int64, error)
}

type contextKey string

const userIDKey contextKey = "userID"

// RequireSession はセッション Cookie を検証し、ユーザー ID をリクエスト
// コンテキストに載せるミドルウェア。未認証は 401。
func RequireSession(verifier SessionVerifier, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil {
			writeError(w, &models.AuthError{Message: "ログインが必要です"})
			return
		}
		userID, err := verifier.VerifySession(cookie.Value)
		if err != nil {
			writeError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserIDFromContext はミドルウェアが設定したユーザー ID を取り出す。
func UserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(userIDKey).(int64)
	return userID, ok
}

// mustUserID はコンテキストからユーザー ID を取得し、無ければ 401 を書いて false。
func mustUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, &models.AuthError{Message: "ログインが必要です"})
		return 0, false
	}
	return userID, true
}
