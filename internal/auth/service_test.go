package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/mindpalace/internal/model"
	"github.com/hitoshi/mindpalace/internal/repository"
	"github.com/hitoshi/mindpalace/internal/security"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn         func(ctx context.Context, id string) (*model.User, error)
	findByCredentialFn func(ctx context.Context, credential string) (*model.User, error)
	existsByEmailFn    func(ctx context.Context, email string) (bool, error)
	existsByUsernameFn func(ctx context.Context, username string) (bool, error)
	createFn           func(ctx context.Context, user *model.User) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByCredential(ctx context.Context, credential string) (*model.User, error) {
	if m.findByCredentialFn != nil {
		return m.findByCredentialFn(ctx, credential)
	}
	return nil, nil
}

func (m *mockUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if m.existsByEmailFn != nil {
		return m.existsByEmailFn(ctx, email)
	}
	return false, nil
}

func (m *mockUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	if m.existsByUsernameFn != nil {
		return m.existsByUsernameFn(ctx, username)
	}
	return false, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) DeleteByID(_ context.Context, _ string) error {
	return nil
}

type mockSessionRepo struct {
	createFn     func(ctx context.Context, session *model.Session) error
	deleteByIDFn func(ctx context.Context, id string) error
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}

func (m *mockSessionRepo) FindByID(_ context.Context, _ string) (*model.Session, error) {
	return nil, nil
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

func (m *mockSessionRepo) DeleteByUserID(_ context.Context, _ string) error {
	return nil
}

// plainHasher はテスト用にハッシュ化せず"hashed:"を付けるだけのPasswordHasher。
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (plainHasher) Compare(hash, password string) error {
	if hash != "hashed:"+password {
		return security.ErrPasswordMismatch
	}
	return nil
}

// --- compile-time interface checks ---
var _ repository.UserRepository = (*mockUserRepo)(nil)
var _ repository.SessionRepository = (*mockSessionRepo)(nil)
var _ security.PasswordHasher = plainHasher{}

type countingRecorder struct {
	signups       int
	loginFailures int
}

func (c *countingRecorder) RecordSignup() { c.signups++ }
func (c *countingRecorder) RecordLoginFailure() { c.loginFailures++ }

func newTestService(userRepo *mockUserRepo, sessionRepo *mockSessionRepo) *Service {
	return NewService(userRepo, sessionRepo, plainHasher{}, ServiceConfig{SessionMaxAge: 86400}, nil)
}

// --- テスト ---

func TestSignup_CreatesUserAndSession(t *testing.T) {
	var createdUser *model.User
	var createdSession *model.Session

	userRepo := &mockUserRepo{
		createFn: func(_ context.Context, user *model.User) error {
			createdUser = user
			return nil
		},
	}
	sessionRepo := &mockSessionRepo{
		createFn: func(_ context.Context, session *model.Session) error {
			createdSession = session
			return nil
		},
	}
	recorder := &countingRecorder{}
	svc := NewService(userRepo, sessionRepo, plainHasher{}, ServiceConfig{SessionMaxAge: 86400}, recorder)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	user, session, err := svc.Signup(context.Background(), SignupInput{
		Username: " marnie ",
		Email:    "marnie@aa.io",
		Password: "password",
	})
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	if createdUser == nil || createdUser != user {
		t.Fatal("ユーザーが作成されていない")
	}
	if user.Username != "marnie" {
		t.Errorf("Username = %q, want %q（前後の空白は除去される）", user.Username, "marnie")
	}
	if user.PasswordHash != "hashed:password" {
		t.Errorf("PasswordHash = %q, want hashed value", user.PasswordHash)
	}
	if user.ID == "" {
		t.Error("IDが採番されていない")
	}

	if createdSession == nil || createdSession != session {
		t.Fatal("セッションが作成されていない")
	}
	if session.UserID != user.ID {
		t.Errorf("session.UserID = %q, want %q", session.UserID, user.ID)
	}
	if len(session.ID) != 64 {
		t.Errorf("len(session.ID) = %d, want 64", len(session.ID))
	}
	if want := fixed.Add(24 * time.Hour); !session.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", session.ExpiresAt, want)
	}
	if recorder.signups != 1 {
		t.Errorf("RecordSignup calls = %d, want 1", recorder.signups)
	}
}

func TestSignup_ValidationErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    SignupInput
		emailDup bool
		userDup  bool
		want     []string
	}{
		{
			name:  "全項目未入力",
			input: SignupInput{},
			want: []string{
				"email : This field is required.",
				"username : This field is required.",
				"password : This field is required.",
			},
		},
		{
			name:  "不正なメールアドレス",
			input: SignupInput{Username: "u", Email: "not-an-email", Password: "password"},
			want:  []string{"email : Invalid email address."},
		},
		{
			name:  "表示名付きメールアドレスは不正",
			input: SignupInput{Username: "u", Email: "Demo <demo@aa.io>", Password: "password"},
			want:  []string{"email : Invalid email address."},
		},
		{
			name:  "長すぎるユーザー名",
			input: SignupInput{Username: strings.Repeat("a", 41), Email: "a@aa.io", Password: "password"},
			want:  []string{"username : Username must be at most 40 characters."},
		},
		{
			name:  "短すぎるパスワード",
			input: SignupInput{Username: "u", Email: "a@aa.io", Password: "12345"},
			want:  []string{"password : Password must be at least 6 characters."},
		},
		{
			name:     "重複したメールアドレスとユーザー名",
			input:    SignupInput{Username: "u", Email: "a@aa.io", Password: "password"},
			emailDup: true,
			userDup:  true,
			want: []string{
				"email : Email address is already in use.",
				"username : Username is already in use.",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			created := false
			userRepo := &mockUserRepo{
				existsByEmailFn:    func(context.Context, string) (bool, error) { return tt.emailDup, nil },
				existsByUsernameFn: func(context.Context, string) (bool, error) { return tt.userDup, nil },
				createFn: func(context.Context, *model.User) error {
					created = true
					return nil
				},
			}
			svc := newTestService(userRepo, &mockSessionRepo{})

			_, _, err := svc.Signup(context.Background(), tt.input)

			var verrs model.ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("error = %v, want ValidationErrors", err)
			}
			if len(verrs) != len(tt.want) {
				t.Fatalf("errors = %q, want %q", verrs, tt.want)
			}
			for i := range tt.want {
				if verrs[i] != tt.want[i] {
					t.Errorf("errors[%d] = %q, want %q", i, verrs[i], tt.want[i])
				}
			}
			if created {
				t.Error("バリデーションエラー時にユーザーが作成された")
			}
		})
	}
}

func TestSignup_RepositoryError_ReturnsWrappedError(t *testing.T) {
	userRepo := &mockUserRepo{
		existsByEmailFn: func(context.Context, string) (bool, error) {
			return false, errors.New("db down")
		},
	}
	svc := newTestService(userRepo, &mockSessionRepo{})

	_, _, err := svc.Signup(context.Background(), SignupInput{Username: "u", Email: "a@aa.io", Password: "password"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var verrs model.ValidationErrors
	if errors.As(err, &verrs) {
		t.Error("DBエラーはValidationErrorsであってはならない")
	}
}

func TestLogin_WithValidCredential_CreatesSession(t *testing.T) {
	var lookedUp string
	userRepo := &mockUserRepo{
		findByCredentialFn: func(_ context.Context, credential string) (*model.User, error) {
			lookedUp = credential
			return &model.User{ID: "user-1", Username: "Demo", PasswordHash: "hashed:password"}, nil
		},
	}
	sessionCreated := false
	sessionRepo := &mockSessionRepo{
		createFn: func(context.Context, *model.Session) error {
			sessionCreated = true
			return nil
		},
	}
	svc := newTestService(userRepo, sessionRepo)

	user, session, err := svc.Login(context.Background(), " demo@aa.io ", "password")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if lookedUp != "demo@aa.io" {
		t.Errorf("credential = %q, want trimmed value", lookedUp)
	}
	if user.ID != "user-1" || session.UserID != "user-1" {
		t.Errorf("user=%+v session=%+v", user, session)
	}
	if !sessionCreated {
		t.Error("セッションが永続化されていない")
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	tests := []struct {
		name       string
		credential string
		password   string
		user       *model.User
	}{
		{name: "未入力", credential: "", password: ""},
		{name: "ユーザーが存在しない", credential: "nobody", password: "password"},
		{name: "パスワード不一致", credential: "demo", password: "wrong", user: &model.User{ID: "u", PasswordHash: "hashed:password"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userRepo := &mockUserRepo{
				findByCredentialFn: func(context.Context, string) (*model.User, error) { return tt.user, nil },
			}
			recorder := &countingRecorder{}
			svc := NewService(userRepo, &mockSessionRepo{}, plainHasher{}, ServiceConfig{SessionMaxAge: 86400}, recorder)

			_, _, err := svc.Login(context.Background(), tt.credential, tt.password)
			if recorder.loginFailures != 1 {
				t.Errorf("RecordLoginFailure calls = %d, want 1", recorder.loginFailures)
			}

			var verrs model.ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("error = %v, want ValidationErrors", err)
			}
			if len(verrs) != 1 || verrs[0] != "credential : Invalid credentials." {
				t.Errorf("errors = %q", verrs)
			}
		})
	}
}

func TestLogout_DeletesSession(t *testing.T) {
	var deletedID string
	sessionRepo := &mockSessionRepo{
		deleteByIDFn: func(_ context.Context, id string) error {
			deletedID = id
			return nil
		},
	}
	svc := newTestService(&mockUserRepo{}, sessionRepo)

	if err := svc.Logout(context.Background(), "session-123"); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if deletedID != "session-123" {
		t.Errorf("deleted session = %q, want %q", deletedID, "session-123")
	}
}

func TestLogout_EmptySessionID_ReturnsError(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockSessionRepo{})

	if err := svc.Logout(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty session ID")
	}
}

func TestGetCurrentUser(t *testing.T) {
	t.Run("ユーザーが存在する場合は返す", func(t *testing.T) {
		userRepo := &mockUserRepo{
			findByIDFn: func(_ context.Context, id string) (*model.User, error) {
				return &model.User{ID: id, Username: "demo"}, nil
			},
		}
		svc := newTestService(userRepo, &mockSessionRepo{})

		user, err := svc.GetCurrentUser(context.Background(), "user-1")
		if err != nil {
			t.Fatalf("GetCurrentUser() error = %v", err)
		}
		if user.Username != "demo" {
			t.Errorf("Username = %q, want demo", user.Username)
		}
	})

	t.Run("ユーザーが存在しない場合はUserNotFound", func(t *testing.T) {
		svc := newTestService(&mockUserRepo{}, &mockSessionRepo{})

		_, err := svc.GetCurrentUser(context.Background(), "user-1")
		if !model.IsNotFound(err) {
			t.Errorf("error = %v, want not found", err)
		}
	})
}
