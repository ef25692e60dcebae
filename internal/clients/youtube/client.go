// Package youtube は YouTube Data API v3 への限定公開アップロードを担当する。
package youtube

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"VideoCoach-admin/internal/config"
	"VideoCoach-admin/internal/models"
	"VideoCoach-admin/pkg/retry"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	youtubeapi "google.golang.org/api/youtube/v3"
)

// UploadScope はアップロードに必要な OAuth スコープ。
const UploadScope = youtubeapi.YoutubeUploadScope

// PublishRequest は 1 本の動画のアップロード指示。
type PublishRequest struct {
	Title       string
	Description string
	Data        []byte
	Filename    string
}

// Client はユーザーごとの OAuth トークンで YouTube へ動画を公開する。
type Client struct {
	oauthCfg *oauth2.Config
	policy   retry.Policy
	// opts は追加のサービスオプション。テストでエンドポイントと
	// HTTP クライアントを差し替えるために使う。
	opts []option.ClientOption
}

// NewClient はアップロードクライアントを生成する。
func NewClient(oauthCfg *oauth2.Config, pubCfg config.PublishConfig, opts ...option.ClientOption) *Client {
	maxAttempts := pubCfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	baseDelay := time.Duration(pubCfg.BaseDelayMillis) * time.Millisecond
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &Client{
		oauthCfg: oauthCfg,
		policy: retry.Policy{
			MaxAttempts: maxAttempts,
			BaseDelay:   baseDelay,
			Retriable:   isRetriable,
		},
		opts: opts,
	}
}

// Publish は動画を限定公開でアップロードし、動画 ID を返す。
// 一時的な失敗は指数バックオフで再試行し、認可エラーは即座に打ち切る。
func (c *Client) Publish(ctx context.Context, token *oauth2.Token, req PublishRequest) (string, error) {
	if len(req.Data) == 0 {
		return "", &models.PublishError{Message: "アップロードする動画データが空です"}
	}
	if req.Title == "" {
		req.Title = req.Filename
	}

	// TokenSource にしておくと長いアップロード中でも期限切れ時に再取得できる
	serviceOpts := append([]option.ClientOption{
		option.WithTokenSource(c.oauthCfg.TokenSource(ctx, token)),
	}, c.opts...)
	service, err := youtubeapi.NewService(ctx, serviceOpts...)
	if err != nil {
		return "", &models.PublishError{Message: "YouTube サービスを初期化できません", Cause: err}
	}

	upload := &youtubeapi.Video{
		Snippet: &youtubeapi.VideoSnippet{
			Title:       req.Title,
			Description: req.Description,
			CategoryId:  "22",
		},
		Status: &youtubeapi.VideoStatus{
			PrivacyStatus:           "unlisted",
			SelfDeclaredMadeForKids: false,
		},
	}

	var videoID string
	attempts := 0
	err = c.policy.Do(ctx, func() error {
		attempts++
		log.Printf("情報：[YouTube Client] 動画をアップロードしています (試行 %d/%d): %s\n", attempts, c.policy.MaxAttempts, req.Title)
		call := service.Videos.Insert([]string{"snippet", "status"}, upload)
		resp, insertErr := call.Media(bytes.NewReader(req.Data)).Context(ctx).Do()
		if insertErr != nil {
			log.Printf("警告：[YouTube Client] アップロードに失敗しました (試行 %d): %v\n", attempts, insertErr)
			return insertErr
		}
		videoID = resp.Id
		return nil
	})
	if err != nil {
		return "", &models.PublishError{
			Message:  fmt.Sprintf("YouTube へのアップロードに失敗しました: %s", req.Title),
			Attempts: attempts,
			Cause:    err,
		}
	}

	log.Printf("情報：[YouTube Client] アップロード完了: videoId=%s\n", videoID)
	return videoID, nil
}

// WatchURL は動画 ID から視聴用 URL を組み立てる。
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// isRetriable はサーバ側の一時的エラーのみ再試行対象とする。
// 401/403 はトークン再取得が必要なため再試行しても無駄に終わる。
func isRetriable(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code >= 500 || apiErr.Code == 429
	}
	// ネットワーク断などの非 API エラーは再試行する
	return true
}
