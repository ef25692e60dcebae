package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"VideoCoach-admin/internal/models"
)

// VideoPublishService は YouTube への公開処理。
type VideoPublishService interface {
	Publish(ctx context.Context, userID, videoID int64, title, description string) (*models.Video, error)
}

// PublishHandler は動画の YouTube 公開を担当する。
type PublishHandler struct {
	publish VideoPublishService
}

// NewPublishHandler は PublishHandler を生成する。
func NewPublishHandler(publish VideoPublishService) *PublishHandler {
	return &PublishHandler{publish: publish}
}

type publishRequest struct {
	VideoID     int64  `json:"videoId"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Publish は POST /publish。ブロブ保存済みの動画を限定公開でアップロードする。
func (h *PublishHandler) Publish(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.NewValidationError("リクエストボディを解析できません"))
		return
	}
	if req.VideoID == 0 {
		writeError(w, models.NewValidationError("videoId が必要です"))
		return
	}
	if req.Title == "" {
		writeError(w, models.NewValidationError("title が必要です"))
		return
	}

	video, err := h.publish.Publish(r.Context(), userID, req.VideoID, req.Title, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, video)
}
