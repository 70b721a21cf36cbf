package client

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// User はログイン中のユーザー情報。
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type signupBody struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginBody struct {
	Credential string `json:"credential"`
	Password   string `json:"password"`
}

// SignUp はユーザーを登録する。成功するとセッションCookieが保持される。
// 入力不備はmodel.ValidationErrorsとしてサーバーの順序のまま返す。
func (c *Client) SignUp(ctx context.Context, username, email, password string) (*User, error) {
	var user User
	in := signupBody{Username: username, Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/signup", in, &user); err != nil {
		return nil, fmt.Errorf("failed to sign up: %w", err)
	}
	return &user, nil
}

// Login はメールアドレスまたはユーザー名でログインする。
func (c *Client) Login(ctx context.Context, credential, password string) (*User, error) {
	var user User
	in := loginBody{Credential: credential, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", in, &user); err != nil {
		return nil, fmt.Errorf("failed to log in: %w", err)
	}
	return &user, nil
}

// Logout はサーバー側のセッションを破棄する。CookieJarのセッションも削除される。
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil); err != nil {
		return fmt.Errorf("failed to log out: %w", err)
	}
	return nil
}

// Me は現在のユーザーを取得する。
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &user); err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return &user, nil
}

// Withdraw はアカウントとすべてのノートを削除する。
func (c *Client) Withdraw(ctx context.Context) error {
	if err := c.do(ctx, http.MethodDelete, "/api/users/me", nil, nil); err != nil {
		return fmt.Errorf("failed to withdraw: %w", err)
	}
	return nil
}
