package view

import (
	"context"
	"strings"
)

// ErrPasswordMismatch はパスワード確認が一致しない場合に表示するメッセージ。
const ErrPasswordMismatch = "Confirm Password field must be the same as the Password field"

// SignupForm はサインアップ画面の入力値。
type SignupForm struct {
	Email           string
	Username        string
	Password        string
	ConfirmPassword string
}

// CanSubmit は送信ボタンを有効にできるかを返す。
func (f SignupForm) CanSubmit() bool {
	return f.Password == f.ConfirmPassword &&
		strings.Contains(f.Email, "@") &&
		f.Username != ""
}

// Signer はサインアップを行う。store.Storeが実装する。
type Signer interface {
	SignUp(ctx context.Context, username, email, password string) ([]string, error)
}

// Signup はサインアップ画面。
type Signup struct {
	signer Signer
	errors []string
}

// NewSignup はSignupを生成する。
func NewSignup(signer Signer) *Signup {
	return &Signup{signer: signer}
}

// Submit はフォームを送信し、表示するエラー一覧を返す。
// パスワード確認が一致しない場合はリモートを呼ばずに固定メッセージのみを返す。
// errはリクエスト自体の失敗を表す。
func (s *Signup) Submit(ctx context.Context, form SignupForm) ([]string, error) {
	if form.Password != form.ConfirmPassword {
		s.errors = []string{ErrPasswordMismatch}
		return s.Errors(), nil
	}

	errs, err := s.signer.SignUp(ctx, form.Username, form.Email, form.Password)
	if err != nil {
		s.errors = nil
		return nil, err
	}
	s.errors = errs
	return s.Errors(), nil
}

// Errors は直前の送信で得たエラー一覧を返す。
func (s *Signup) Errors() []string {
	if len(s.errors) == 0 {
		return nil
	}
	return append([]string(nil), s.errors...)
}
