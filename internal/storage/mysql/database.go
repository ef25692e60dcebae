package mysql

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"VideoCoach-admin/internal/config"

	_ "github.com/go-sql-driver/mysql"
)

// Store は MySQL 上の全ストア (videos / rubric / users) を束ねる。
type Store struct {
	db *sql.DB
}

// NewStore は MySQL への接続を確立し Store を返す。
func NewStore(dbCfg config.DatabaseConfig) (*Store, error) {
	if dbCfg.Driver != "mysql" {
		return nil, fmt.Errorf("サポートされていないデータベースドライバ: %s", dbCfg.Driver)
	}
	db, err := sql.Open("mysql", dbCfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("データベース接続のオープンに失敗しました: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("データベースに接続できません (ping 失敗): %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	log.Println("情報：MySQL データベースへの接続に成功しました。")
	return &Store{db: db}, nil
}

// Close は接続を閉じる。
func (s *Store) Close() error {
	if s.db != nil {
		log.Println("情報：MySQL データベース接続をクローズしています...")
		return s.db.Close()
	}
	return nil
}
