package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"VideoCoach-admin/internal/config"
	"VideoCoach-admin/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauthapi "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
	youtubeapi "google.golang.org/api/youtube/v3"
)

const providerGoogle = "google"

// sessionClaims はセッション Cookie に載せる JWT クレーム。
type sessionClaims struct {
	UserID int64  `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// AuthService は Google OAuth によるログインとセッション管理を担当する。
type AuthService struct {
	users         UserStore
	oauthCfg      *oauth2.Config
	sessionSecret []byte
	sessionTTL    time.Duration
	now           func() time.Time
}

// NewAuthService は AuthService を生成する。
func NewAuthService(cfg *config.Config, users UserStore) (*AuthService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("AuthService：設定が空です")
	}
	if users == nil {
		return nil, fmt.Errorf("AuthService：UserStore が空です")
	}
	ttl := time.Duration(cfg.Session.ExpireHours) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.OAuth.ClientID,
		ClientSecret: cfg.OAuth.ClientSecret,
		RedirectURL:  cfg.OAuth.PublicBaseURL + "/auth/callback",
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
			youtubeapi.YoutubeUploadScope,
		},
		Endpoint: google.Endpoint,
	}
	log.Println("情報：AuthService を初期化しました。")
	return &AuthService{
		users:         users,
		oauthCfg:      oauthCfg,
		sessionSecret: []byte(cfg.Session.Secret),
		sessionTTL:    ttl,
		now:           time.Now,
	}, nil
}

// OAuthConfig は YouTube クライアント生成用に OAuth 設定を公開する。
func (s *AuthService) OAuthConfig() *oauth2.Config {
	return s.oauthCfg
}

// LoginURL は Google の同意画面 URL を返す。
// リフレッシュトークンを確実に得るため offline + 明示的な同意を要求する。
func (s *AuthService) LoginURL(state string) string {
	return s.oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// HandleCallback は認可コードを交換し、ユーザーとアカウントを永続化して
// セッショントークンを発行する。
func (s *AuthService) HandleCallback(ctx context.Context, code string) (*models.User, string, error) {
	if code == "" {
		return nil, "", &models.AuthError{Message: "認可コードがありません"}
	}
	token, err := s.oauthCfg.Exchange(ctx, code)
	if err != nil {
		return nil, "", &models.AuthError{Message: fmt.Sprintf("認可コードの交換に失敗しました: %v", err)}
	}
	if token.RefreshToken == "" {
		// 再同意なしの再ログインではリフレッシュトークンが省略されるが、
		// ApprovalForce を付けている以上ここに来るのは異常系
		return nil, "", &models.AuthError{Message: "リフレッシュトークンが発行されませんでした。再度ログインしてください"}
	}

	info, err := s.fetchUserInfo(ctx, token)
	if err != nil {
		return nil, "", err
	}

	user, err := s.users.FindOrCreateUserByEmail(info.Email, info.Name, info.Picture)
	if err != nil {
		return nil, "", fmt.Errorf("ユーザーを保存できません: %w", err)
	}

	account := &models.Account{
		UserID:            user.ID,
		Provider:          providerGoogle,
		ProviderAccountID: info.Id,
		AccessToken:       sql.NullString{String: token.AccessToken, Valid: true},
		RefreshToken:      sql.NullString{String: token.RefreshToken, Valid: true},
		ExpiresAt:         sql.NullTime{Time: token.Expiry, Valid: !token.Expiry.IsZero()},
		Scope:             sql.NullString{String: youtubeapi.YoutubeUploadScope, Valid: true},
	}
	if err := s.users.UpsertAccount(account); err != nil {
		return nil, "", fmt.Errorf("アカウント連携を保存できません: %w", err)
	}

	session, err := s.issueSession(user)
	if err != nil {
		return nil, "", err
	}
	log.Printf("情報：[AuthService] ユーザー %s がログインしました (ID: %d)。\n", user.Email, user.ID)
	return user, session, nil
}

func (s *AuthService) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*oauthapi.Userinfo, error) {
	service, err := oauthapi.NewService(ctx, option.WithTokenSource(s.oauthCfg.TokenSource(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("userinfo サービスを初期化できません: %w", err)
	}
	info, err := service.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, &models.AuthError{Message: fmt.Sprintf("ユーザー情報を取得できません: %v", err)}
	}
	if info.Email == "" {
		return nil, &models.AuthError{Message: "Google アカウントからメールアドレスを取得できません"}
	}
	return info, nil
}

// issueSession は HS256 署名のセッショントークンを発行する。
func (s *AuthService) issueSession(user *models.User) (string, error) {
	now := s.now()
	claims := sessionClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.sessionTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.sessionSecret)
	if err != nil {
		return "", fmt.Errorf("セッショントークンを署名できません: %w", err)
	}
	return signed, nil
}

// VerifySession はセッショントークンを検証しユーザー ID を返す。
func (s *AuthService) VerifySession(tokenString string) (int64, error) {
	if tokenString == "" {
		return 0, &models.AuthError{Message: "セッションがありません"}
	}
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("想定外の署名方式です: %v", t.Header["alg"])
		}
		return s.sessionSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return 0, &models.AuthError{Message: "セッションが無効です"}
	}
	return claims.UserID, nil
}

// AccessToken はユーザーの有効なアクセストークンを返す。
// 期限切れが近い場合はリフレッシュして永続化する。
func (s *AuthService) AccessToken(ctx context.Context, userID int64) (*oauth2.Token, error) {
	account, err := s.users.GetAccount(userID, providerGoogle)
	if err != nil {
		return nil, err
	}
	if !account.RefreshToken.Valid || account.RefreshToken.String == "" {
		return nil, &models.AuthError{Message: "YouTube 連携のリフレッシュトークンがありません。再度ログインしてください"}
	}

	current := &oauth2.Token{
		AccessToken:  account.AccessToken.String,
		RefreshToken: account.RefreshToken.String,
	}
	if account.ExpiresAt.Valid {
		current.Expiry = account.ExpiresAt.Time
	}

	fresh, err := s.oauthCfg.TokenSource(ctx, current).Token()
	if err != nil {
		return nil, &models.AuthError{Message: fmt.Sprintf("アクセストークンを更新できません: %v", err)}
	}
	if fresh.AccessToken != current.AccessToken {
		if err := s.users.UpdateAccountToken(account.ID, fresh.AccessToken, fresh.Expiry); err != nil {
			log.Printf("警告：[AuthService] 更新後トークンの保存に失敗しました (accountID: %d): %v\n", account.ID, err)
		} else {
			log.Printf("情報：[AuthService] アクセストークンを更新しました (userID: %d)。\n", userID)
		}
	}
	return fresh, nil
}
