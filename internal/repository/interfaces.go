// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/mindpalace/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByCredential はメールアドレスまたはユーザー名でユーザーを検索する。
	// 大文字小文字は区別しない。見つからない場合はnilを返す。
	FindByCredential(ctx context.Context, credential string) (*model.User, error)

	// ExistsByEmail は同じメールアドレスのユーザーが存在するかを返す。
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// ExistsByUsername は同じユーザー名のユーザーが存在するかを返す。
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するsessions、notesはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// NoteRepository はノートデータの永続化インターフェース。
// 所有者の絞り込みは呼び出し側（note.Service）が行う。
type NoteRepository interface {
	// Create はノートを作成する。IDとタイムスタンプはnoteに書き戻される。
	Create(ctx context.Context, note *model.Note) error

	// FindByID は指定IDのノートを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Note, error)

	// ListByUser はユーザーのゴミ箱以外のノートをupdated_at降順で返す。
	// limitが0以下の場合は全件を返す。
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.Note, error)

	// ListTrash はユーザーのゴミ箱内のノートをupdated_at降順で返す。
	ListTrash(ctx context.Context, userID string) ([]*model.Note, error)

	// Update はタイトルと本文を上書きし、updated_atを更新する。
	// 対象が存在しない場合はnilを返す。
	Update(ctx context.Context, id string, draft model.NoteDraft) (*model.Note, error)

	// SetTrash はゴミ箱フラグを設定する。対象が存在しない場合はnilを返す。
	SetTrash(ctx context.Context, id string, trash bool) (*model.Note, error)

	// Delete は指定IDのノートを削除する。削除した場合trueを返す。
	Delete(ctx context.Context, id string) (bool, error)

	// DeleteByUserID はユーザーの全ノートを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}
