package models

import "fmt"

// ValidationError は呼び出し側の入力不正を表す (HTTP 400)。
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidationError は ValidationError を生成する。
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// AuthError は未認証・トークン不備を表す (HTTP 401)。
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// PermissionError は他ユーザーのリソースへのアクセスを表す (HTTP 403)。
type PermissionError struct {
	Message string
}

func (e *PermissionError) Error() string { return e.Message }

// NotFoundError は対象リソースの不在を表す (HTTP 404)。
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s (ID: %d) が見つかりません", e.Resource, e.ID)
}

// ConflictError は同一レコードへの分析の多重実行を表す (HTTP 409)。
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// ResponseFormatError はモデル応答が JSON として解釈できないことを表す。
// 解析エラーの詳細をメッセージに含める。
type ResponseFormatError struct {
	Cause error
}

func (e *ResponseFormatError) Error() string {
	return fmt.Sprintf("モデル応答を JSON として解析できません: %v", e.Cause)
}

func (e *ResponseFormatError) Unwrap() error { return e.Cause }

// EmptyResultError は評価結果マップが空であることを表す。
type EmptyResultError struct{}

func (e *EmptyResultError) Error() string {
	return "評価結果が正しく生成されませんでした"
}

// MissingCriterionError は評価対象の項目が応答に含まれないことを表す。
type MissingCriterionError struct {
	Criterion string
}

func (e *MissingCriterionError) Error() string {
	return fmt.Sprintf("評価項目「%s」が評価結果に含まれていません", e.Criterion)
}

// ScoreRangeError は点数が 1〜3 の整数でないことを表す。
// Raw には応答に含まれていた生の値を保持する。
type ScoreRangeError struct {
	Criterion string
	Raw       string
}

func (e *ScoreRangeError) Error() string {
	return fmt.Sprintf("評価項目「%s」の点数 %s は 1〜3 の整数ではありません", e.Criterion, e.Raw)
}

// UploadError はブロブ保存の失敗を表す。
type UploadError struct {
	Message string
	Cause   error
}

func (e *UploadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *UploadError) Unwrap() error { return e.Cause }

// PublishError はホスティングプロバイダへのアップロード失敗
// (リトライ上限到達を含む) を表す。
type PublishError struct {
	Message  string
	Attempts int
	Cause    error
}

func (e *PublishError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("%s (試行回数: %d): %v", e.Message, e.Attempts, e.Cause)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *PublishError) Unwrap() error { return e.Cause }
