package services

import (
	"context"
	"fmt"
	"log"
	"path"

	"VideoCoach-admin/internal/clients/youtube"
	"VideoCoach-admin/internal/models"
)

// PublishService はローカル保存された動画の YouTube 公開と、
// 公開後の分析起動を担当する。
type PublishService struct {
	db        VideoStore
	blob      BlobStorage
	tokens    TokenProvider
	publisher VideoPublisher
	starter   AnalysisStarter
}

// NewPublishService は PublishService を生成する。
func NewPublishService(db VideoStore, blob BlobStorage, tokens TokenProvider, publisher VideoPublisher, starter AnalysisStarter) (*PublishService, error) {
	if db == nil {
		return nil, fmt.Errorf("PublishService：VideoStore が空です")
	}
	if blob == nil {
		return nil, fmt.Errorf("PublishService：BlobStorage が空です")
	}
	if tokens == nil {
		return nil, fmt.Errorf("PublishService：TokenProvider が空です")
	}
	if publisher == nil {
		return nil, fmt.Errorf("PublishService：VideoPublisher が空です")
	}
	log.Println("情報：PublishService を初期化しました。")
	return &PublishService{db: db, blob: blob, tokens: tokens, publisher: publisher, starter: starter}, nil
}

// Publish は動画を YouTube へ限定公開でアップロードし、レコードを更新して
// 分析を起動する。失敗はレコードへ error として永続化する。
func (s *PublishService) Publish(ctx context.Context, userID, videoID int64, title, description string) (*models.Video, error) {
	video, err := s.db.GetVideoByID(videoID)
	if err != nil {
		return nil, err
	}
	if video.UserID != userID {
		return nil, &models.PermissionError{Message: "この動画を公開する権限がありません"}
	}
	if video.YouTubeURL.Valid && video.YouTubeURL.String != "" {
		return nil, models.NewValidationError("動画 (ID: %d) は既に YouTube へ公開済みです", videoID)
	}
	if !video.VideoURL.Valid || video.VideoURL.String == "" {
		return nil, models.NewValidationError("動画 (ID: %d) にアップロード済みのファイルがありません", videoID)
	}

	token, err := s.tokens.AccessToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	data, err := s.blob.Read(video.VideoURL.String)
	if err != nil {
		return nil, fmt.Errorf("動画ファイルを読み込めません: %w", err)
	}

	uploading := models.StatusUploadingYouTube
	if _, err := s.db.UpdateVideo(videoID, models.VideoUpdate{Status: &uploading}); err != nil {
		return nil, fmt.Errorf("ステータスを更新できません: %w", err)
	}

	filename := path.Base(video.VideoURL.String)
	youtubeID, err := s.publisher.Publish(ctx, token, youtube.PublishRequest{
		Title:       title,
		Description: description,
		Data:        data,
		Filename:    filename,
	})
	if err != nil {
		return nil, s.fail(videoID, err)
	}

	watchURL := youtube.WatchURL(youtubeID)
	pending := models.StatusPending
	updated, err := s.db.UpdateVideo(videoID, models.VideoUpdate{
		Status:             &pending,
		YouTubeURL:         &watchURL,
		YouTubeTitle:       &title,
		YouTubeDescription: &description,
	})
	if err != nil {
		return nil, fmt.Errorf("公開結果を保存できません: %w", err)
	}

	// ローカルのブロブは公開後は不要。削除失敗は致命的ではない
	if err := s.blob.Delete(video.VideoURL.String); err != nil {
		log.Printf("警告：[PublishService] ブロブの削除に失敗しました (%s): %v\n", video.VideoURL.String, err)
	}

	if s.starter != nil {
		if err := s.starter.StartAnalysis(videoID); err != nil {
			log.Printf("警告：[PublishService] 分析の起動に失敗しました (ID: %d): %v\n", videoID, err)
		}
	}

	log.Printf("情報：[PublishService] 動画 (ID: %d) を公開しました: %s\n", videoID, watchURL)
	return updated, nil
}

func (s *PublishService) fail(videoID int64, cause error) error {
	errStatus := models.StatusError
	message := cause.Error()
	if _, updateErr := s.db.UpdateVideo(videoID, models.VideoUpdate{
		Status:       &errStatus,
		ErrorMessage: &message,
	}); updateErr != nil {
		log.Printf("エラー：[PublishService] 失敗状態の保存にも失敗しました (ID: %d): %v\n", videoID, updateErr)
	}
	return cause
}
