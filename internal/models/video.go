package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// VideoStatus は動画レコードのライフサイクル状態。
type VideoStatus string

const (
	StatusPending          VideoStatus = "pending"           // アップロード直後、分析待ち
	StatusUploadingYouTube VideoStatus = "uploading_youtube" // YouTube へ公開中
	StatusAnalyzing        VideoStatus = "analyzing"         // モデルによる分析中
	StatusCompleted        VideoStatus = "completed"         // 分析完了 (終端)
	StatusError            VideoStatus = "error"             // 分析失敗 (終端)
)

// IsTerminal は自動遷移がこれ以上発生しない状態かどうかを返す。
func (s VideoStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Video は videos テーブルに対応する。
type Video struct {
	ID                 int64           `json:"id"`
	UserID             int64           `json:"userId"`
	VideoURL           sql.NullString  `json:"videoUrl"`
	YouTubeURL         sql.NullString  `json:"youtubeUrl"`
	YouTubeTitle       sql.NullString  `json:"youtubeTitle"`
	YouTubeDescription sql.NullString  `json:"youtubeDescription"`
	Status             VideoStatus     `json:"status"`
	EvaluationData     json.RawMessage `json:"evaluationData"`
	AnalysisDate       sql.NullTime    `json:"analysisDate"`
	ErrorMessage       JsonNullString  `json:"errorMessage"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// VideoUpdate は videos への部分更新。nil のフィールドは変更しない。
type VideoUpdate struct {
	Status             *VideoStatus
	VideoURL           *string
	YouTubeURL         *string
	YouTubeTitle       *string
	YouTubeDescription *string
	EvaluationData     json.RawMessage
	AnalysisDate       *time.Time
	ErrorMessage       *string
}

// ValidateConsistency はステータスと評価データ・エラーメッセージの整合性を検証する。
// completed は評価データ必須、error はエラーメッセージ必須。逆方向も禁止する。
func ValidateConsistency(status VideoStatus, evaluationData json.RawMessage, errorMessage string) error {
	hasPayload := len(evaluationData) > 0 && string(evaluationData) != "null"
	switch status {
	case StatusCompleted:
		if !hasPayload {
			return NewValidationError("ステータス completed には評価データが必要です")
		}
		if errorMessage != "" {
			return NewValidationError("ステータス completed にエラーメッセージは設定できません")
		}
	case StatusError:
		if errorMessage == "" {
			return NewValidationError("ステータス error にはエラーメッセージが必要です")
		}
	default:
		if hasPayload {
			return NewValidationError("ステータス %s に評価データは設定できません", status)
		}
		if errorMessage != "" {
			return NewValidationError("ステータス %s にエラーメッセージは設定できません", status)
		}
	}
	return nil
}
