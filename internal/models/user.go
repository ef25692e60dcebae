package models

import (
	"database/sql"
	"time"
)

// User はメールアドレスで一意に識別されるローカルユーザー。
type User struct {
	ID        int64          `json:"id"`
	Email     string         `json:"email"`
	Name      sql.NullString `json:"name"`
	Image     sql.NullString `json:"image"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Account は OAuth プロバイダとの連携情報。(provider, providerAccountID) で一意。
// アクセストークンはプロバイダ API 呼び出しの直前に必要に応じて更新される。
type Account struct {
	ID                int64          `json:"id"`
	UserID            int64          `json:"userId"`
	Provider          string         `json:"provider"`
	ProviderAccountID string         `json:"providerAccountId"`
	AccessToken       sql.NullString `json:"-"`
	RefreshToken      sql.NullString `json:"-"`
	ExpiresAt         sql.NullTime   `json:"-"`
	Scope             sql.NullString `json:"scope"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}
