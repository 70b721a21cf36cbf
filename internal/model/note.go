// Package model はドメインモデルを定義する。
package model

import (
	"time"
	"unicode/utf16"
)

// MaxTitleLength はノートタイトルの最大長（UTF-16コードユニット数）。
const MaxTitleLength = 255

// Note はユーザーが作成したノートを表す。
// Contentはリッチテキストエディタが出力したHTMLで、エディタ側では解釈しない。
type Note struct {
	ID        string
	OwnerID   string
	Title     string
	Content   string // サニタイズ済みHTML
	Trash     bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NoteDraft はノート更新リクエストの本文。差分ではなく常に全体を送る。
type NoteDraft struct {
	Title   string
	Content string
}

// TitleLength はブラウザのmaxLengthと同じくUTF-16コードユニット数でタイトル長を数える。
func TitleLength(title string) int {
	return len(utf16.Encode([]rune(title)))
}
