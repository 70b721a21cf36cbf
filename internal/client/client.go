// Package client はMindPalace APIのHTTPクライアントを提供する。
// セッションCookieはCookieJarで保持し、状態変更リクエストにはCSRFトークンを付与する。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/mindpalace/internal/middleware"
	"github.com/hitoshi/mindpalace/internal/model"
	"golang.org/x/net/publicsuffix"
)

const defaultTimeout = 15 * time.Second

// Client はMindPalace APIのクライアント。複数のgoroutineから同時に使用できる。
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	jar        http.CookieJar
	logger     *slog.Logger

	mu        sync.Mutex
	csrfToken string
}

// Option はClientの設定を変更する。
type Option func(*Client)

// WithHTTPClient は使用するhttp.Clientを差し替える。CookieJarは上書きされる。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger はリクエストログの出力先を設定する。
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New はbaseURLを接続先とするClientを生成する。
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported server URL scheme: %q", u.Scheme)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.jar = jar
	c.httpClient.Jar = jar
	return c, nil
}

// SessionID はCookieJarが保持しているセッションIDを返す。未ログインなら空文字列。
func (c *Client) SessionID() string {
	return c.cookieValue(middleware.SessionCookieName)
}

// CSRFToken は保持しているCSRFトークンを返す。
func (c *Client) CSRFToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.csrfToken
}

// Restore は保存済みのセッションIDとCSRFトークンをCookieJarに復元する。
// 空の値は無視する。
func (c *Client) Restore(sessionID, csrfToken string) {
	var cookies []*http.Cookie
	if sessionID != "" {
		cookies = append(cookies, &http.Cookie{Name: middleware.SessionCookieName, Value: sessionID, Path: "/"})
	}
	if csrfToken != "" {
		cookies = append(cookies, &http.Cookie{Name: middleware.CSRFCookieName, Value: csrfToken, Path: "/"})
		c.mu.Lock()
		c.csrfToken = csrfToken
		c.mu.Unlock()
	}
	if len(cookies) > 0 {
		c.jar.SetCookies(c.baseURL, cookies)
	}
}

func (c *Client) cookieValue(name string) string {
	for _, cookie := range c.jar.Cookies(c.baseURL) {
		if cookie.Name == name {
			return cookie.Value
		}
	}
	return ""
}

// FetchCSRFToken はGET /api/csrf-tokenでトークンを取得して保持する。
func (c *Client) FetchCSRFToken(ctx context.Context) (string, error) {
	var body struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/csrf-token", nil, &body); err != nil {
		return "", fmt.Errorf("failed to fetch CSRF token: %w", err)
	}
	c.mu.Lock()
	c.csrfToken = body.Token
	c.mu.Unlock()
	return body.Token, nil
}

// ensureCSRFToken はCSRFトークンを未取得の場合のみ取得する。
func (c *Client) ensureCSRFToken(ctx context.Context) error {
	if c.CSRFToken() != "" && c.cookieValue(middleware.CSRFCookieName) != "" {
		return nil
	}
	_, err := c.FetchCSRFToken(ctx)
	return err
}

// do はリクエストを送信し、2xxの場合はレスポンスをoutにデコードする。
// 2xx以外は*Errorまたはmodel.ValidationErrorsを返す。
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if method != http.MethodGet {
		if err := c.ensureCSRFToken(ctx); err != nil {
			return err
		}
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set(middleware.CSRFHeaderName, c.CSRFToken())
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("api request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeError は失敗レスポンスをエラーに変換する。
// {"errors":[...]}形式はmodel.ValidationErrorsとして返す。
func decodeError(resp *http.Response) error {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &Error{Status: resp.StatusCode}
	}

	var verrs middleware.ValidationErrorBody
	if json.Unmarshal(data, &verrs) == nil && len(verrs.Errors) > 0 {
		return model.ValidationErrors(verrs.Errors)
	}

	var body middleware.ErrorResponseBody
	if json.Unmarshal(data, &body) != nil || body.Code == "" {
		return &Error{Status: resp.StatusCode}
	}
	return &Error{
		Status: resp.StatusCode,
		APIError: &model.APIError{
			Code:     body.Code,
			Message:  body.Message,
			Category: body.Category,
			Action:   body.Action,
		},
	}
}

// Error はAPIが返した失敗レスポンスを表す。
type Error struct {
	Status   int
	APIError *model.APIError // ボディが統一エラーフォーマットでない場合はnil
}

// Error はerrorインターフェースを実装する。
func (e *Error) Error() string {
	if e.APIError == nil {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.APIError.Error())
}

// Unwrap はmodel.IsNotFoundなどでAPIErrorを判定できるようにする。
func (e *Error) Unwrap() error {
	if e.APIError == nil {
		return nil
	}
	return e.APIError
}

// IsUnauthorized はerrが未認証（401）を表すかを判定する。
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}
