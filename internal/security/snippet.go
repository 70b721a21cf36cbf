package security

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// MaxSnippetRunes は一覧表示用スニペットの最大文字数。
const MaxSnippetRunes = 100

// Snippet はHTML本文からテキストだけを取り出し、空白を詰めて
// 最大MaxSnippetRunes文字に切り詰める。
func Snippet(content string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(content))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		switch tt {
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			// ブロック境界で単語が連結しないように区切る
			b.WriteByte(' ')
		}
	}

	text := strings.Join(strings.Fields(b.String()), " ")
	if utf8.RuneCountInString(text) <= MaxSnippetRunes {
		return text
	}
	return string([]rune(text)[:MaxSnippetRunes])
}
