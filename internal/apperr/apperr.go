// Package apperr 定義整個系統共用的錯誤分類。
//
// 服務層回傳帶有分類的錯誤，HTTP 層再依分類對應到狀態碼，
// 避免每個 handler 各自判斷錯誤字串。
package apperr

import (
	"errors"
	"fmt"
)

// Kind 表示錯誤的分類
type Kind int

const (
	// NotFound 找不到指定的辯論或參與者
	NotFound Kind = iota
	// Forbidden 非主持人嘗試執行主持人限定的操作
	Forbidden
	// Conflict 操作與目前狀態衝突（人數已滿、重複加入、辯論已結束等）
	Conflict
	// Validation 請求缺少必要欄位或欄位無效
	Validation
	// Upstream 外部翻譯服務失敗，不影響訊息發布
	Upstream
	// Channel 推播通道傳遞失敗，由訂閱端重連補救
	Channel
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case Forbidden:
		return "forbidden"
	case Conflict:
		return "conflict"
	case Validation:
		return "validation"
	case Upstream:
		return "upstream"
	case Channel:
		return "channel"
	default:
		return "unknown"
	}
}

// Error 是帶分類的錯誤
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New 建立指定分類的錯誤
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap 包裝底層錯誤並附上分類
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf 取出錯誤的分類；無法辨識時回傳 false
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Is 判斷錯誤是否屬於指定分類
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
