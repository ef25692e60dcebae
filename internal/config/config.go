package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// GeminiClientConfig は生成モデル呼び出しの設定。
type GeminiClientConfig struct {
	APIKey          string `mapstructure:"apiKey"`
	Model           string `mapstructure:"model"`
	TimeoutMinutes  int    `mapstructure:"timeoutMinutes"`
	MaxOutputTokens int32  `mapstructure:"maxOutputTokens"`
}

// OAuthConfig は Google OAuth クライアントの設定。
type OAuthConfig struct {
	ClientID     string `mapstructure:"clientID"`
	ClientSecret string `mapstructure:"clientSecret"`
	// PublicBaseURL はコールバック URL の組み立てに使う外部公開 URL。
	PublicBaseURL string `mapstructure:"publicBaseURL"`
}

// SessionConfig はセッション Cookie の設定。
type SessionConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expireHours"`
}

// PublishConfig は YouTube 公開のリトライ設定。
type PublishConfig struct {
	MaxAttempts     int `mapstructure:"maxAttempts"`
	BaseDelayMillis int `mapstructure:"baseDelayMillis"`
}

// AnalysisConfig は分析パイプラインの挙動設定。
type AnalysisConfig struct {
	// GraceSeconds は YouTube 公開直後にトランスコード完了を待つ秒数。
	GraceSeconds int `mapstructure:"graceSeconds"`
}

// SchedulerConfig は滞留レコード再投入ジョブの設定。
type SchedulerConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	AnalyzeCronSpec string `mapstructure:"analyzeCronSpec"`
}

// DatabaseConfig は MySQL 接続設定。
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbName"`
}

// BlobConfig はローカルブロブ保存の設定。
type BlobConfig struct {
	UploadPath string `mapstructure:"uploadPath"`
}

// Config はアプリケーション全体の設定。
type Config struct {
	AppName      string             `mapstructure:"appName"`
	ListenAddr   string             `mapstructure:"listenAddr"`
	GeminiClient GeminiClientConfig `mapstructure:"geminiClient"`
	OAuth        OAuthConfig        `mapstructure:"oauth"`
	Session      SessionConfig      `mapstructure:"session"`
	Publish      PublishConfig      `mapstructure:"publish"`
	Analysis     AnalysisConfig     `mapstructure:"analysis"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Blob         BlobConfig         `mapstructure:"blob"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
}

// Load は設定ファイルと環境変数から Config を構築する。
// 必須項目の欠落はリクエスト処理の奥で失敗させず、ここで即座にエラーにする。
func Load(configPath string, configName string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(configPath)
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("appName", "VideoCoach-admin")
	v.SetDefault("listenAddr", ":8080")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", 3306)
	v.SetDefault("blob.uploadPath", "./uploads")
	v.SetDefault("geminiClient.model", "gemini-1.5-pro-002")
	v.SetDefault("geminiClient.timeoutMinutes", 5)
	v.SetDefault("geminiClient.maxOutputTokens", 2048)
	v.SetDefault("session.expireHours", 24)
	v.SetDefault("publish.maxAttempts", 3)
	v.SetDefault("publish.baseDelayMillis", 1000)
	v.SetDefault("analysis.graceSeconds", 10)
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.analyzeCronSpec", "0 */5 * * * *")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("警告：設定ファイルが見つからないため、デフォルト値と環境変数を使用します。")
		} else {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗しました: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("設定を構造体に変換できません: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗しました: %w", err)
	}

	fmt.Println("情報：設定の読み込みに成功しました。")
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.GeminiClient.APIKey == "" {
		return fmt.Errorf("Gemini API Key が未設定です (GEMINICLIENT_APIKEY または geminiClient.apiKey)")
	}
	if c.OAuth.ClientID == "" {
		return fmt.Errorf("OAuth Client ID が未設定です (OAUTH_CLIENTID または oauth.clientID)")
	}
	if c.OAuth.ClientSecret == "" {
		return fmt.Errorf("OAuth Client Secret が未設定です (OAUTH_CLIENTSECRET または oauth.clientSecret)")
	}
	if c.OAuth.PublicBaseURL == "" {
		return fmt.Errorf("公開ベース URL が未設定です (OAUTH_PUBLICBASEURL または oauth.publicBaseURL)")
	}
	if c.Session.Secret == "" {
		return fmt.Errorf("セッションシークレットが未設定です (SESSION_SECRET または session.secret)")
	}
	if c.Database.User == "" || c.Database.DBName == "" {
		return fmt.Errorf("データベース接続情報が不足しています (database.user / database.dbName)")
	}
	return nil
}

// DSN は database/sql 用の接続文字列を返す。
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}
