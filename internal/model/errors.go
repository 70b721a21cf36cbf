// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, note, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeNoteNotFound   = "NOTE_NOT_FOUND"
	ErrCodeInvalidNote    = "INVALID_NOTE"
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeUserNotFound   = "USER_NOT_FOUND"
	ErrCodeInternal       = "INTERNAL_ERROR"
	ErrCodeCSRFInvalid    = "CSRF_TOKEN_INVALID"
	ErrCodeRateLimited    = "rate_limit_exceeded"
)

// NewNoteNotFoundError はノート未検出エラーを生成する。
// 他ユーザーが所有するノートもこのエラーとして扱う。
func NewNoteNotFoundError(noteID string) *APIError {
	return &APIError{
		Code:     ErrCodeNoteNotFound,
		Message:  fmt.Sprintf("Note not found: %s", noteID),
		Category: "note",
		Action:   "ノートIDを確認してください。",
	}
}

// NewInvalidNoteError はノート内容のバリデーションエラーを生成する。
func NewInvalidNoteError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidNote,
		Message:  reason,
		Category: "validation",
		Action:   "タイトルは255文字以内で入力してください。",
	}
}

// NewInvalidRequestError はリクエストボディ不正エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  reason,
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Unauthorized",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "User not found",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewCSRFError はCSRFトークン検証失敗エラーを生成する。
func NewCSRFError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFInvalid,
		Message:  "CSRF token validation failed",
		Category: "auth",
		Action:   "ページを再読み込みしてから再度お試しください。",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "Too many requests. Please try again later.",
		Category: "system",
		Action:   "Please wait and retry after the specified time.",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// IsNotFound はerrがノートまたはユーザーの未検出を表すかを判定する。
// クライアント側ではこれ以外の失敗をすべてRequestFailedとして扱う。
func IsNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == ErrCodeNoteNotFound || apiErr.Code == ErrCodeUserNotFound
}

// ValidationErrors はサインアップ等で返されるフィールドエラーの順序付きリスト。
// 各要素はそのまま画面に表示できる文字列。
type ValidationErrors []string

// Error はerrorインターフェースを実装する。
func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", v[0])
}
