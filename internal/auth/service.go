// Package auth はパスワード認証とセッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hitoshi/mindpalace/internal/model"
	"github.com/hitoshi/mindpalace/internal/repository"
	"github.com/hitoshi/mindpalace/internal/security"
)

const (
	maxUsernameLength = 40
	maxEmailLength    = 255
	minPasswordLength = 6
)

// SignupInput はサインアップリクエストの入力値。
type SignupInput struct {
	Username string
	Email    string
	Password string
}

// Recorder は認証イベントの計測を受け取るインターフェース。
type Recorder interface {
	RecordSignup()
	RecordLoginFailure()
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	hasher      security.PasswordHasher
	config      ServiceConfig
	recorder    Recorder
	now         func() time.Time
}

// NewService はServiceを生成する。recorderはnilでもよい。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	hasher security.PasswordHasher,
	config ServiceConfig,
	recorder Recorder,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		hasher:      hasher,
		config:      config,
		recorder:    recorder,
		now:         time.Now,
	}
}

// Signup はユーザーを登録し、セッションを発行する。
// 入力不備はmodel.ValidationErrors（email, username, passwordの順）として返す。
func (s *Service) Signup(ctx context.Context, in SignupInput) (*model.User, *model.Session, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	verrs, err := s.validateSignup(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	if len(verrs) > 0 {
		return nil, nil, verrs
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &model.User{
		ID:           uuid.New().String(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	if s.recorder != nil {
		s.recorder.RecordSignup()
	}
	slog.Info("new user created",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}
	return user, session, nil
}

func (s *Service) validateSignup(ctx context.Context, in SignupInput) (model.ValidationErrors, error) {
	var verrs model.ValidationErrors

	switch {
	case in.Email == "":
		verrs = append(verrs, "email : This field is required.")
	case utf8.RuneCountInString(in.Email) > maxEmailLength:
		verrs = append(verrs, fmt.Sprintf("email : Email must be at most %d characters.", maxEmailLength))
	case !isValidEmail(in.Email):
		verrs = append(verrs, "email : Invalid email address.")
	default:
		exists, err := s.userRepo.ExistsByEmail(ctx, in.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
		if exists {
			verrs = append(verrs, "email : Email address is already in use.")
		}
	}

	switch {
	case in.Username == "":
		verrs = append(verrs, "username : This field is required.")
	case utf8.RuneCountInString(in.Username) > maxUsernameLength:
		verrs = append(verrs, fmt.Sprintf("username : Username must be at most %d characters.", maxUsernameLength))
	default:
		exists, err := s.userRepo.ExistsByUsername(ctx, in.Username)
		if err != nil {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
		if exists {
			verrs = append(verrs, "username : Username is already in use.")
		}
	}

	switch {
	case in.Password == "":
		verrs = append(verrs, "password : This field is required.")
	case utf8.RuneCountInString(in.Password) < minPasswordLength:
		verrs = append(verrs, fmt.Sprintf("password : Password must be at least %d characters.", minPasswordLength))
	}

	return verrs, nil
}

// isValidEmail は表示名なしの単一アドレスかどうかを判定する。
func isValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// Login はメールアドレスまたはユーザー名とパスワードで認証し、セッションを発行する。
// 認証失敗はどちらの項目が誤りかを区別せずValidationErrorsで返す。
func (s *Service) Login(ctx context.Context, credential, password string) (*model.User, *model.Session, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" || password == "" {
		return nil, nil, s.loginFailed()
	}

	user, err := s.userRepo.FindByCredential(ctx, credential)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, nil, s.loginFailed()
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		if errors.Is(err, security.ErrPasswordMismatch) {
			return nil, nil, s.loginFailed()
		}
		return nil, nil, fmt.Errorf("failed to verify password: %w", err)
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))
	return user, session, nil
}

func (s *Service) loginFailed() error {
	if s.recorder != nil {
		s.recorder.RecordLoginFailure()
	}
	return model.ValidationErrors{"credential : Invalid credentials."}
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out")
	return nil
}

// GetCurrentUser はユーザーIDから現在のユーザーを取得する。
func (s *Service) GetCurrentUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := s.now()
	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
