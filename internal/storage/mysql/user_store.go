package mysql

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"VideoCoach-admin/internal/models"
)

// FindOrCreateUserByEmail はメールアドレスでユーザーを検索し、なければ作成する。
func (s *Store) FindOrCreateUserByEmail(email, name, image string) (*models.User, error) {
	if email == "" {
		return nil, models.NewValidationError("メールアドレスは必須です")
	}
	u, err := s.getUserBy("email = ?", email)
	if err == nil {
		return u, nil
	}
	if _, ok := err.(*models.NotFoundError); !ok {
		return nil, err
	}

	now := time.Now()
	res, insertErr := s.db.Exec(
		`INSERT INTO users (email, name, image, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		email, nullString(name), nullString(image), now, now,
	)
	if insertErr != nil {
		return nil, fmt.Errorf("ユーザーの作成に失敗しました (email: %s): %w", email, insertErr)
	}
	id, insertErr := res.LastInsertId()
	if insertErr != nil {
		return nil, fmt.Errorf("作成したユーザーの ID 取得に失敗しました: %w", insertErr)
	}
	log.Printf("情報：新規ユーザーを作成しました (ID: %d, email: %s)\n", id, email)
	return s.GetUserByID(id)
}

// GetUserByID は ID で 1 件取得する。
func (s *Store) GetUserByID(id int64) (*models.User, error) {
	return s.getUserBy("id = ?", id)
}

func (s *Store) getUserBy(where string, arg any) (*models.User, error) {
	var u models.User
	query := fmt.Sprintf(`SELECT id, email, name, image, created_at, updated_at FROM users WHERE %s`, where)
	err := s.db.QueryRow(query, arg).Scan(&u.ID, &u.Email, &u.Name, &u.Image, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Resource: "ユーザー"}
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	return &u, nil
}

// UpsertAccount は (provider, provider_account_id) で OAuth アカウント情報を
// 作成または更新する。サインインのたびにトークンを上書きする。
func (s *Store) UpsertAccount(a *models.Account) error {
	if a == nil || a.UserID == 0 || a.Provider == "" || a.ProviderAccountID == "" {
		return models.NewValidationError("アカウント情報が不足しています")
	}
	now := time.Now()
	_, err := s.db.Exec(
		`INSERT INTO accounts
			(user_id, provider, provider_account_id, access_token, refresh_token, expires_at, scope, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE
			user_id = VALUES(user_id), access_token = VALUES(access_token),
			refresh_token = VALUES(refresh_token), expires_at = VALUES(expires_at),
			scope = VALUES(scope), updated_at = VALUES(updated_at)`,
		a.UserID, a.Provider, a.ProviderAccountID,
		a.AccessToken, a.RefreshToken, a.ExpiresAt, a.Scope, now, now,
	)
	if err != nil {
		return fmt.Errorf("アカウント情報の保存に失敗しました (provider: %s): %w", a.Provider, err)
	}
	log.Printf("情報：アカウント情報を保存しました (UserID: %d, provider: %s)\n", a.UserID, a.Provider)
	return nil
}

// GetAccount はユーザーとプロバイダでアカウントを取得する。
func (s *Store) GetAccount(userID int64, provider string) (*models.Account, error) {
	var a models.Account
	err := s.db.QueryRow(
		`SELECT id, user_id, provider, provider_account_id, access_token, refresh_token, expires_at, scope, created_at, updated_at
		 FROM accounts WHERE user_id = ? AND provider = ?`,
		userID, provider,
	).Scan(&a.ID, &a.UserID, &a.Provider, &a.ProviderAccountID,
		&a.AccessToken, &a.RefreshToken, &a.ExpiresAt, &a.Scope, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Resource: "アカウント", ID: userID}
	}
	if err != nil {
		return nil, fmt.Errorf("アカウント情報の取得に失敗しました (UserID: %d): %w", userID, err)
	}
	return &a, nil
}

// UpdateAccountToken は更新後のアクセストークンと有効期限を永続化する。
func (s *Store) UpdateAccountToken(accountID int64, accessToken string, expiresAt time.Time) error {
	_, err := s.db.Exec(
		`UPDATE accounts SET access_token = ?, expires_at = ?, updated_at = ? WHERE id = ?`,
		accessToken, expiresAt, time.Now(), accountID,
	)
	if err != nil {
		return fmt.Errorf("アクセストークンの更新に失敗しました (AccountID: %d): %w", accountID, err)
	}
	log.Printf("情報：アクセストークンを更新しました (AccountID: %d)\n", accountID)
	return nil
}
