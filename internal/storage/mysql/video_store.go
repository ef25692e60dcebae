package mysql

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"VideoCoach-admin/internal/models"
)

const videoColumns = `id, user_id, video_url, youtube_url, youtube_title, youtube_description,
	status, evaluation_data, analysis_date, error_message, created_at, updated_at`

func scanVideo(row interface{ Scan(...any) error }) (*models.Video, error) {
	var v models.Video
	var evaluationData []byte
	var errorMessage sql.NullString
	err := row.Scan(
		&v.ID, &v.UserID, &v.VideoURL, &v.YouTubeURL, &v.YouTubeTitle, &v.YouTubeDescription,
		&v.Status, &evaluationData, &v.AnalysisDate, &errorMessage, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if evaluationData != nil {
		v.EvaluationData = append([]byte(nil), evaluationData...)
	}
	v.ErrorMessage = models.JsonNullString{NullString: errorMessage}
	return &v, nil
}

// FindOrCreateVideo は (user_id, video_url) で既存レコードを探し、
// なければ pending で新規作成する。同じ URL の重複登録は既存レコードを返す。
func (s *Store) FindOrCreateVideo(userID int64, videoURL string) (*models.Video, error) {
	if userID == 0 {
		return nil, fmt.Errorf("userID が不正です")
	}
	if videoURL != "" {
		query := fmt.Sprintf("SELECT %s FROM videos WHERE user_id = ? AND video_url = ?", videoColumns)
		v, err := scanVideo(s.db.QueryRow(query, userID, videoURL))
		if err == nil {
			log.Printf("情報：同一 URL の動画レコードが既に存在します (ID: %d)。新規作成をスキップします。\n", v.ID)
			return v, nil
		}
		if err != sql.ErrNoRows {
			return nil, fmt.Errorf("動画レコードの検索に失敗しました: %w", err)
		}
	}
	return s.CreateVideo(userID, videoURL)
}

// CreateVideo は status=pending の新しい動画レコードを挿入する。
func (s *Store) CreateVideo(userID int64, videoURL string) (*models.Video, error) {
	now := time.Now()
	url := sql.NullString{String: videoURL, Valid: videoURL != ""}
	res, err := s.db.Exec(
		`INSERT INTO videos (user_id, video_url, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		userID, url, models.StatusPending, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("動画レコードの作成に失敗しました: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("作成した動画レコードの ID 取得に失敗しました: %w", err)
	}
	log.Printf("情報：動画レコードを作成しました (ID: %d, UserID: %d)\n", id, userID)
	return s.GetVideoByID(id)
}

// GetVideoByID は ID で 1 件取得する。存在しなければ NotFoundError。
func (s *Store) GetVideoByID(videoID int64) (*models.Video, error) {
	query := fmt.Sprintf("SELECT %s FROM videos WHERE id = ?", videoColumns)
	v, err := scanVideo(s.db.QueryRow(query, videoID))
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Resource: "動画", ID: videoID}
	}
	if err != nil {
		return nil, fmt.Errorf("動画レコード (ID: %d) の取得に失敗しました: %w", videoID, err)
	}
	return v, nil
}

// ListVideosByUser は所有ユーザーの動画を新しい順に返す。
func (s *Store) ListVideosByUser(userID int64) ([]models.Video, error) {
	query := fmt.Sprintf("SELECT %s FROM videos WHERE user_id = ? ORDER BY created_at DESC, id DESC", videoColumns)
	rows, err := s.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("動画一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()
	var videos []models.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			log.Printf("エラー：動画一覧の行スキャンに失敗しました: %v", err)
			continue
		}
		videos = append(videos, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("動画一覧の結果処理中にエラーが発生しました: %w", err)
	}
	return videos, nil
}

// UpdateVideo は部分更新を適用する。更新後の状態が整合性条件 (completed には
// 評価データ、error にはメッセージ) を満たさない場合は拒否する。
func (s *Store) UpdateVideo(videoID int64, update models.VideoUpdate) (*models.Video, error) {
	current, err := s.GetVideoByID(videoID)
	if err != nil {
		return nil, err
	}

	status := current.Status
	if update.Status != nil {
		status = *update.Status
	}
	evaluationData := current.EvaluationData
	if update.EvaluationData != nil {
		evaluationData = update.EvaluationData
	}
	errorMessage := ""
	if current.ErrorMessage.Valid {
		errorMessage = current.ErrorMessage.String
	}
	if update.ErrorMessage != nil {
		errorMessage = *update.ErrorMessage
	}
	// error → 他ステータスへの明示的な再実行時は前回のエラーを引き継がない
	if update.Status != nil && *update.Status != models.StatusError && update.ErrorMessage == nil {
		errorMessage = ""
	}
	if update.Status != nil && *update.Status != models.StatusCompleted && update.EvaluationData == nil {
		evaluationData = nil
	}
	if err := models.ValidateConsistency(status, evaluationData, errorMessage); err != nil {
		return nil, err
	}

	sets := []string{"status = ?", "evaluation_data = ?", "error_message = ?", "updated_at = ?"}
	args := []any{status, nullBytes(evaluationData), nullString(errorMessage), time.Now()}
	if update.VideoURL != nil {
		sets = append(sets, "video_url = ?")
		args = append(args, nullString(*update.VideoURL))
	}
	if update.YouTubeURL != nil {
		sets = append(sets, "youtube_url = ?")
		args = append(args, nullString(*update.YouTubeURL))
	}
	if update.YouTubeTitle != nil {
		sets = append(sets, "youtube_title = ?")
		args = append(args, nullString(*update.YouTubeTitle))
	}
	if update.YouTubeDescription != nil {
		sets = append(sets, "youtube_description = ?")
		args = append(args, nullString(*update.YouTubeDescription))
	}
	if update.AnalysisDate != nil {
		sets = append(sets, "analysis_date = ?")
		args = append(args, *update.AnalysisDate)
	}
	args = append(args, videoID)

	query := fmt.Sprintf("UPDATE videos SET %s WHERE id = ?", strings.Join(sets, ", "))
	if _, err := s.db.Exec(query, args...); err != nil {
		return nil, fmt.Errorf("動画レコード (ID: %d) の更新に失敗しました: %w", videoID, err)
	}
	log.Printf("情報：動画レコードを更新しました (ID: %d, Status: %s)\n", videoID, status)
	return s.GetVideoByID(videoID)
}

// FindStuckPendingVideos は一定時間 pending のまま滞留しているレコードを返す。
// スケジューラが再投入に使う。
func (s *Store) FindStuckPendingVideos(olderThan time.Duration, limit int) ([]models.Video, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM videos WHERE status = ? AND youtube_url IS NOT NULL AND updated_at < ? ORDER BY updated_at ASC LIMIT ?",
		videoColumns,
	)
	rows, err := s.db.Query(query, models.StatusPending, time.Now().Add(-olderThan), limit)
	if err != nil {
		return nil, fmt.Errorf("滞留中の動画の検索に失敗しました: %w", err)
	}
	defer rows.Close()
	var videos []models.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			log.Printf("エラー：滞留動画の行スキャンに失敗しました: %v", err)
			continue
		}
		videos = append(videos, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("滞留動画の結果処理中にエラーが発生しました: %w", err)
	}
	return videos, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return []byte(b)
}
