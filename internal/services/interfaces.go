package services

import (
	"context"
	"time"

	"VideoCoach-admin/internal/clients/youtube"
	"VideoCoach-admin/internal/models"

	"golang.org/x/oauth2"
)

// VideoStore は分析・公開パイプラインが必要とする動画レコード操作。
type VideoStore interface {
	FindOrCreateVideo(userID int64, videoURL string) (*models.Video, error)
	GetVideoByID(videoID int64) (*models.Video, error)
	ListVideosByUser(userID int64) ([]models.Video, error)
	UpdateVideo(videoID int64, update models.VideoUpdate) (*models.Video, error)
	FindStuckPendingVideos(olderThan time.Duration, limit int) ([]models.Video, error)
}

// RubricStore は評価項目の読み出し。
type RubricStore interface {
	ListCriteria() ([]models.RubricCriterion, error)
}

// UserStore は認証とトークン永続化に必要なユーザー操作。
type UserStore interface {
	FindOrCreateUserByEmail(email, name, image string) (*models.User, error)
	GetUserByID(id int64) (*models.User, error)
	UpsertAccount(a *models.Account) error
	GetAccount(userID int64, provider string) (*models.Account, error)
	UpdateAccountToken(accountID int64, accessToken string, expiresAt time.Time) error
}

// BlobStorage はアップロードされた動画の一時保存先。
type BlobStorage interface {
	Store(data []byte, filename string) (string, error)
	Read(blobURL string) ([]byte, error)
	Delete(blobURL string) error
}

// VideoAnalyzer は生成モデルによる評価の実行。
type VideoAnalyzer interface {
	AnalyzeVideoURL(ctx context.Context, prompt string) (*models.EvaluationData, error)
	AnalyzeVideoData(ctx context.Context, prompt string, data []byte, filename string) (*models.EvaluationData, error)
}

// VideoPublisher は YouTube への限定公開アップロード。
type VideoPublisher interface {
	Publish(ctx context.Context, token *oauth2.Token, req youtube.PublishRequest) (string, error)
}

// TokenProvider はユーザーの有効なアクセストークンの取得。
type TokenProvider interface {
	AccessToken(ctx context.Context, userID int64) (*oauth2.Token, error)
}

// AnalysisStarter は分析の非同期起動。
type AnalysisStarter interface {
	StartAnalysis(videoID int64) error
}
