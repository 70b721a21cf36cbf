// Package store はクライアント側のアプリケーション状態を保持する。
//
// Storeはログイン中のユーザーとノートのキャッシュを所有する。
// ビューとエディタはStore経由でゲートウェイを呼び出し、結果はStoreに反映される。
// エディタの下書きはエディタ自身が所有し、Storeには置かない。
package store

import (
	"context"
	"errors"
	"sync"

	"github.com/hitoshi/mindpalace/internal/client"
	"github.com/hitoshi/mindpalace/internal/model"
)

// NoteGateway はノートの取得・更新を行うリモートAPI。
type NoteGateway interface {
	ReadOne(ctx context.Context, noteID string) (*model.Note, error)
	ReadAll(ctx context.Context) ([]client.NoteSummary, error)
	Update(ctx context.Context, noteID string, draft model.NoteDraft) (*model.Note, error)
}

// SessionGateway はサインアップを行うリモートAPI。
type SessionGateway interface {
	SignUp(ctx context.Context, username, email, password string) (*client.User, error)
}

// Store はアプリケーション状態。ゼロ値ではなくNewで生成する。
type Store struct {
	notesGW   NoteGateway
	sessionGW SessionGateway

	mu      sync.RWMutex
	user    *client.User
	list    []client.NoteSummary
	current map[string]model.Note
}

// New はStoreを生成する。
func New(notes NoteGateway, session SessionGateway) *Store {
	return &Store{
		notesGW:   notes,
		sessionGW: session,
		current:   make(map[string]model.Note),
	}
}

// User はログイン中のユーザーを返す。未ログインならnil。
func (s *Store) User() *client.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// SetUser はログイン中のユーザーを設定する。nilでセッションを破棄する。
func (s *Store) SetUser(user *client.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
	if user == nil {
		s.list = nil
		s.current = make(map[string]model.Note)
	}
}

// SignUp はユーザーを登録し、成功時にセッションを保持する。
// 入力不備はサーバーの順序のままのエラーメッセージ一覧として返す。
// それ以外の失敗はerrとして返す。
func (s *Store) SignUp(ctx context.Context, username, email, password string) ([]string, error) {
	user, err := s.sessionGW.SignUp(ctx, username, email, password)
	if err != nil {
		var verrs model.ValidationErrors
		if errors.As(err, &verrs) {
			return []string(verrs), nil
		}
		return nil, err
	}
	s.SetUser(user)
	return nil, nil
}

// LoadNotes はノート一覧を取得してキャッシュする。
func (s *Store) LoadNotes(ctx context.Context) error {
	notes, err := s.notesGW.ReadAll(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.list = notes
	s.mu.Unlock()
	return nil
}

// Notes はキャッシュ済みのノート一覧のコピーを返す。未取得ならnil。
func (s *Store) Notes() []client.NoteSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.list == nil {
		return nil
	}
	return append([]client.NoteSummary(nil), s.list...)
}

// ReadNote はノートを1件取得してキャッシュする。
func (s *Store) ReadNote(ctx context.Context, noteID string) (*model.Note, error) {
	note, err := s.notesGW.ReadOne(ctx, noteID)
	if err != nil {
		return nil, err
	}
	s.putNote(*note)
	return note, nil
}

// UpdateNote はノートを下書きで置き換え、応答をキャッシュに反映する。
func (s *Store) UpdateNote(ctx context.Context, noteID string, draft model.NoteDraft) (*model.Note, error) {
	note, err := s.notesGW.Update(ctx, noteID, draft)
	if err != nil {
		return nil, err
	}
	s.putNote(*note)
	return note, nil
}

// Note はキャッシュ済みのノートを返す。
func (s *Store) Note(noteID string) (model.Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	note, ok := s.current[noteID]
	return note, ok
}

func (s *Store) putNote(note model.Note) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current[note.ID] = note
	for i := range s.list {
		if s.list[i].ID == note.ID {
			s.list[i].Title = note.Title
			s.list[i].UpdatedAt = note.UpdatedAt
		}
	}
}
