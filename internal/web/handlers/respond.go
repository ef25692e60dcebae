package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"VideoCoach-admin/internal/models"
)

// writeJSON は JSON レスポンスを書き出す。
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("エラー：レスポンスの書き込みに失敗しました: %v\n", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError はエラー型を HTTP ステータスへ対応付けて返す。
func writeError(w http.ResponseWriter, err error) {
	var (
		validationErr *models.ValidationError
		authErr       *models.AuthError
		permErr       *models.PermissionError
		notFoundErr   *models.NotFoundError
		conflictErr   *models.ConflictError
		uploadErr     *models.UploadError
		publishErr    *models.PublishError
	)
	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: validationErr.Error()})
	case errors.As(err, &authErr):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: authErr.Error()})
	case errors.As(err, &permErr):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: permErr.Error()})
	case errors.As(err, &notFoundErr):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: notFoundErr.Error()})
	case errors.As(err, &conflictErr):
		writeJSON(w, http.StatusConflict, errorResponse{Error: conflictErr.Error()})
	case errors.As(err, &uploadErr):
		// ストレージやプロバイダ側の失敗は 502
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: uploadErr.Error()})
	case errors.As(err, &publishErr):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: publishErr.Error()})
	default:
		log.Printf("エラー：内部エラー: %v\n", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "内部エラーが発生しました"})
	}
}
