package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"VideoCoach-admin/internal/models"
	"VideoCoach-admin/internal/services"
)

// VideoHandler は動画レコードの CRUD と分析トリガを担当する。
type VideoHandler struct {
	db      services.VideoStore
	starter services.AnalysisStarter
}

// NewVideoHandler は VideoHandler を生成する。
func NewVideoHandler(db services.VideoStore, starter services.AnalysisStarter) *VideoHandler {
	return &VideoHandler{db: db, starter: starter}
}

type createVideoRequest struct {
	YouTubeURL string `json:"youtubeUrl"`
	VideoURL   string `json:"videoUrl"`
}

// Create は POST /videos。YouTube URL の登録またはアップロード済み
// ブロブ URL の登録を受け付け、YouTube URL の場合は分析を起動する。
func (h *VideoHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	var req createVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.NewValidationError("リクエストボディを解析できません"))
		return
	}
	if req.YouTubeURL == "" && req.VideoURL == "" {
		writeError(w, models.NewValidationError("youtubeUrl または videoUrl のいずれかが必要です"))
		return
	}

	if req.YouTubeURL != "" {
		h.createFromYouTubeURL(w, userID, req.YouTubeURL)
		return
	}

	video, err := h.db.FindOrCreateVideo(userID, req.VideoURL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, video)
}

func (h *VideoHandler) createFromYouTubeURL(w http.ResponseWriter, userID int64, youtubeURL string) {
	if !isValidYouTubeURL(youtubeURL) {
		writeError(w, models.NewValidationError("YouTube の動画 URL ではありません: %s", youtubeURL))
		return
	}

	// 同じ URL の再登録は既存レコードを返す
	existing, err := h.db.ListVideosByUser(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	for i := range existing {
		if existing[i].YouTubeURL.Valid && existing[i].YouTubeURL.String == youtubeURL {
			writeJSON(w, http.StatusOK, &existing[i])
			return
		}
	}

	video, err := h.db.FindOrCreateVideo(userID, "")
	if err != nil {
		writeError(w, err)
		return
	}
	video, err = h.db.UpdateVideo(video.ID, models.VideoUpdate{YouTubeURL: &youtubeURL})
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.starter.StartAnalysis(video.ID); err != nil {
		log.Printf("警告：[VideoHandler] 分析の起動に失敗しました (ID: %d): %v\n", video.ID, err)
	}
	writeJSON(w, http.StatusCreated, video)
}

// List は GET /videos。ログイン中ユーザーの動画を新しい順に返す。
func (h *VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	videos, err := h.db.ListVideosByUser(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if videos == nil {
		videos = []models.Video{}
	}
	writeJSON(w, http.StatusOK, videos)
}

// Get は GET /videos/{id}。所有者以外には 403。
func (h *VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	video, ok := h.ownedVideo(w, r, userID)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, video)
}

type updateVideoRequest struct {
	Reanalyze bool `json:"reanalyze"`
}

// Update は PATCH /videos/{id}。現時点では再分析トリガのみを受け付ける。
func (h *VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	video, ok := h.ownedVideo(w, r, userID)
	if !ok {
		return
	}

	var req updateVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.NewValidationError("リクエストボディを解析できません"))
		return
	}
	if !req.Reanalyze {
		writeError(w, models.NewValidationError("reanalyze 以外の更新は受け付けていません"))
		return
	}

	if err := h.starter.StartAnalysis(video.ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, video)
}

func (h *VideoHandler) ownedVideo(w http.ResponseWriter, r *http.Request, userID int64) (*models.Video, bool) {
	videoID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, models.NewValidationError("動画 ID が不正です"))
		return nil, false
	}
	video, err := h.db.GetVideoByID(videoID)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	if video.UserID != userID {
		writeError(w, &models.PermissionError{Message: "この動画へのアクセス権がありません"})
		return nil, false
	}
	return video, true
}

// isValidYouTubeURL は YouTube の視聴 URL かどうかを判定する。
func isValidYouTubeURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return false
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	switch host {
	case "youtube.com", "m.youtube.com":
		return u.Path == "/watch" && u.Query().Get("v") != "" ||
			strings.HasPrefix(u.Path, "/shorts/") || strings.HasPrefix(u.Path, "/live/")
	case "youtu.be":
		return len(strings.Trim(u.Path, "/")) > 0
	default:
		return false
	}
}
