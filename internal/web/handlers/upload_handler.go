package handlers

import (
	"io"
	"log"
	"net/http"

	"VideoCoach-admin/internal/models"
	"VideoCoach-admin/internal/services"
)

// maxUploadBytes はアップロードの上限 (512MB)。
const maxUploadBytes = 512 << 20

// UploadHandler は動画ファイルのブロブ保存とレコード作成を担当する。
type UploadHandler struct {
	db   services.VideoStore
	blob services.BlobStorage
}

// NewUploadHandler は UploadHandler を生成する。
func NewUploadHandler(db services.VideoStore, blob services.BlobStorage) *UploadHandler {
	return &UploadHandler{db: db, blob: blob}
}

// Upload は POST /upload?filename=xxx。リクエストボディをそのままブロブとして
// 保存し、pending の動画レコードを作成して返す。
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	filename := r.URL.Query().Get("filename")
	if filename == "" {
		writeError(w, models.NewValidationError("filename クエリパラメータが必要です"))
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes+1))
	if err != nil {
		writeError(w, models.NewValidationError("リクエストボディを読み込めません"))
		return
	}
	if len(data) == 0 {
		writeError(w, models.NewValidationError("アップロードするデータが空です"))
		return
	}
	if len(data) > maxUploadBytes {
		writeError(w, models.NewValidationError("ファイルサイズが上限を超えています"))
		return
	}

	blobURL, err := h.blob.Store(data, filename)
	if err != nil {
		writeError(w, err)
		return
	}
	log.Printf("情報：[UploadHandler] ファイルを保存しました: %s (%d bytes)\n", blobURL, len(data))

	video, err := h.db.FindOrCreateVideo(userID, blobURL)
	if err != nil {
		// レコードを作れなかったブロブは掃除する
		if delErr := h.blob.Delete(blobURL); delErr != nil {
			log.Printf("警告：[UploadHandler] ブロブの削除に失敗しました (%s): %v\n", blobURL, delErr)
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, video)
}
