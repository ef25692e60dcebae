package handlers

import (
	"net/http"
)

// BlobResolver はブロブ相対パスをローカルの絶対パスへ解決する。
type BlobResolver interface {
	ServePath(relativePath string) (string, error)
}

// MediaHandler はアップロード済み動画の配信を担当する。
type MediaHandler struct {
	blob BlobResolver
}

// NewMediaHandler は MediaHandler を生成する。
func NewMediaHandler(blob BlobResolver) *MediaHandler {
	return &MediaHandler{blob: blob}
}

// Serve は GET /media/{path...}。ストレージ外へのパスは解決段階で拒否される。
func (h *MediaHandler) Serve(w http.ResponseWriter, r *http.Request) {
	if _, ok := mustUserID(w, r); !ok {
		return
	}
	absPath, err := h.blob.ServePath(r.PathValue("path"))
	if err != nil {
		writeError(w, err)
		return
	}
	http.ServeFile(w, r, absPath)
}
