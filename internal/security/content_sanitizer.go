// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService はリッチテキストエディタが出力したノート本文のHTMLを
// 保存前にサニタイズする。bluemondayの許可リストで、エディタが生成する
// 書式タグだけを通過させる。
package security

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はHTMLコンテンツのサニタイズ機能のインターフェースを定義する。
type ContentSanitizerService interface {
	// Sanitize はHTMLコンテンツをサニタイズして安全なHTMLを返す。
	// 空文字列の入力には空文字列を返す。同一入力に対して常に同一出力を返す。
	Sanitize(rawHTML string) string
}

// editorClassPattern はエディタが付与する書式クラス（ql-align-center, ql-indent-2 等）。
var editorClassPattern = regexp.MustCompile(`^(ql-[a-z0-9-]+)( ql-[a-z0-9-]+)*$`)

type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// ポリシーの内容:
//   - 許可タグ: p, br, h1-h3, strong, em, u, s, a, ul, ol, li, blockquote, pre, code
//   - class属性: ql-で始まる書式クラスのみ
//   - aタグ: http, https, mailtoのみ。target="_blank" と rel="noopener noreferrer" を付与
//   - script, iframe, style, img および on*イベント属性は除去
func NewContentSanitizer() *contentSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "h1", "h2", "h3",
		"strong", "em", "u", "s",
		"ul", "ol", "li",
		"blockquote", "pre", "code",
	)
	p.AllowAttrs("class").Matching(editorClassPattern).OnElements(
		"p", "h1", "h2", "h3", "li", "blockquote", "pre",
	)
	p.AllowAttrs("spellcheck").Matching(regexp.MustCompile(`^false$`)).OnElements("pre")

	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https", "mailto")
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	return &contentSanitizer{
		policy: p,
	}
}

// Sanitize はHTMLコンテンツをサニタイズして安全なHTMLを返す。
func (s *contentSanitizer) Sanitize(rawHTML string) string {
	return s.policy.Sanitize(rawHTML)
}
