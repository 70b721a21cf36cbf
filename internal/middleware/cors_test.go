package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func corsOKHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORSMiddleware_AllowedOrigin(t *testing.T) {
	handler := NewCORSMiddleware("http://localhost:3000")(corsOKHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/notes", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	tests := []struct {
		header string
		want   string
	}{
		{"Access-Control-Allow-Origin", "http://localhost:3000"},
		{"Access-Control-Allow-Credentials", "true"},
		{"Vary", "Origin"},
	}
	for _, tt := range tests {
		if got := w.Header().Get(tt.header); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestCORSMiddleware_MultipleOrigins(t *testing.T) {
	handler := NewCORSMiddleware("http://localhost:3000, https://notes.example.com/")(corsOKHandler())

	for _, origin := range []string{"http://localhost:3000", "https://notes.example.com"} {
		req := httptest.NewRequest(http.MethodGet, "/api/notes", nil)
		req.Header.Set("Origin", origin)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != origin {
			t.Errorf("Origin %s: Access-Control-Allow-Origin = %q", origin, got)
		}
	}
}

func TestCORSMiddleware_UnknownOrigin_NoAllowHeaders(t *testing.T) {
	handler := NewCORSMiddleware("http://localhost:3000")(corsOKHandler())

	for _, origin := range []string{"https://evil.example.com", ""} {
		req := httptest.NewRequest(http.MethodGet, "/api/notes", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Origin %q: status = %d, want %d", origin, w.Code, http.StatusOK)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Origin %q: 許可されていないオリジンにヘッダーが付いた: %q", origin, got)
		}
	}
}

func TestCORSMiddleware_WildcardIgnored(t *testing.T) {
	handler := NewCORSMiddleware("*")(corsOKHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/notes", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("ワイルドカードが許可された: %q", got)
	}
}

func TestCORSMiddleware_Preflight_Returns204(t *testing.T) {
	handler := NewCORSMiddleware("http://localhost:3000")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("プリフライトでハンドラーが呼ばれてはならない")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/notes/abc", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, PUT, DELETE, OPTIONS" {
		t.Errorf("Access-Control-Allow-Methods = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type, X-CSRF-Token" {
		t.Errorf("Access-Control-Allow-Headers = %q", got)
	}
}
