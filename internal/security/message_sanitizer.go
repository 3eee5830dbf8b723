// Package security はアプリケーションのセキュリティ機能を提供する。
//
// MessageSanitizer は上流サービスから受け取ったメッセージをクライアントへ中継する前に
// マークアップを除去する。bluemondayのStrictPolicyで全タグを落とし、
// プレーンテキストとして返す。
package security

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// maxMessageLength は中継するメッセージの最大文字数（rune単位）。
const maxMessageLength = 500

// MessageSanitizer は上流メッセージのサニタイズ機能のインターフェース。
type MessageSanitizer interface {
	// Sanitize は全てのHTMLタグを除去し、前後の空白を取り除いたテキストを返す。
	// maxMessageLength を超える部分は切り詰める。
	// 空文字列の入力には空文字列を返す。
	Sanitize(raw string) string
}

// messageSanitizer はMessageSanitizerの実装。
// bluemondayのポリシーはスレッドセーフに共有できる。
type messageSanitizer struct {
	policy *bluemonday.Policy
}

// NewMessageSanitizer はMessageSanitizerの新しいインスタンスを生成する。
func NewMessageSanitizer() *messageSanitizer {
	return &messageSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はメッセージからマークアップを除去する。
// StrictPolicyはエンティティをエスケープするため、テキストとして表示できるよう戻す。
func (s *messageSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}

	text := html.UnescapeString(s.policy.Sanitize(raw))
	text = strings.Join(strings.Fields(text), " ")

	if utf8.RuneCountInString(text) > maxMessageLength {
		runes := []rune(text)
		text = string(runes[:maxMessageLength])
	}
	return text
}
