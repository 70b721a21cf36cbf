package handler

import (
	"context"

	"github.com/hitoshi/mindpalace/internal/model"
	"github.com/hitoshi/mindpalace/internal/note"
	"github.com/hitoshi/mindpalace/internal/security"
	"github.com/hitoshi/mindpalace/internal/user"
)

// NoteServiceAdapter は note.Service を NoteServiceInterface に適合させるアダプタ。
type NoteServiceAdapter struct {
	svc *note.Service
}

// NewNoteServiceAdapter はNoteServiceAdapterを生成する。
func NewNoteServiceAdapter(svc *note.Service) *NoteServiceAdapter {
	return &NoteServiceAdapter{svc: svc}
}

// CreateNote は空のノートを作成しhandlerレスポンス型で返す。
func (a *NoteServiceAdapter) CreateNote(ctx context.Context, userID string) (*noteResponse, error) {
	n, err := a.svc.Create(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := toNoteResponse(n)
	return &resp, nil
}

// GetNote はノート詳細をhandlerレスポンス型で返す。
func (a *NoteServiceAdapter) GetNote(ctx context.Context, userID, noteID string) (*noteResponse, error) {
	n, err := a.svc.Get(ctx, userID, noteID)
	if err != nil {
		return nil, err
	}
	resp := toNoteResponse(n)
	return &resp, nil
}

// ListNotes はゴミ箱以外のノート一覧を返す。
func (a *NoteServiceAdapter) ListNotes(ctx context.Context, userID string) ([]noteSummaryResponse, error) {
	return toSummaries(a.svc.List(ctx, userID))
}

// RecentNotes は最近更新されたノート一覧を返す。
func (a *NoteServiceAdapter) RecentNotes(ctx context.Context, userID string) ([]noteSummaryResponse, error) {
	return toSummaries(a.svc.Recent(ctx, userID))
}

// TrashNotes はゴミ箱内のノート一覧を返す。
func (a *NoteServiceAdapter) TrashNotes(ctx context.Context, userID string) ([]noteSummaryResponse, error) {
	return toSummaries(a.svc.Trash(ctx, userID))
}

// UpdateNote はノートを更新しhandlerレスポンス型で返す。
func (a *NoteServiceAdapter) UpdateNote(ctx context.Context, userID, noteID string, draft model.NoteDraft) (*noteResponse, error) {
	n, err := a.svc.Update(ctx, userID, noteID, draft)
	if err != nil {
		return nil, err
	}
	resp := toNoteResponse(n)
	return &resp, nil
}

// ToggleTrash はゴミ箱フラグを反転しhandlerレスポンス型で返す。
func (a *NoteServiceAdapter) ToggleTrash(ctx context.Context, userID, noteID string) (*noteResponse, error) {
	n, err := a.svc.ToggleTrash(ctx, userID, noteID)
	if err != nil {
		return nil, err
	}
	resp := toNoteResponse(n)
	return &resp, nil
}

// DeleteNote はノートを削除する。
func (a *NoteServiceAdapter) DeleteNote(ctx context.Context, userID, noteID string) error {
	return a.svc.Delete(ctx, userID, noteID)
}

// toNoteResponse はドメインのNoteをhandlerのレスポンス型に変換する。
func toNoteResponse(n *model.Note) noteResponse {
	return noteResponse{
		ID:        n.ID,
		OwnerID:   n.OwnerID,
		Title:     n.Title,
		Content:   n.Content,
		Trash:     n.Trash,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

// toSummaries はノート一覧を抜粋付きの要約に変換する。
func toSummaries(notes []*model.Note, err error) ([]noteSummaryResponse, error) {
	if err != nil {
		return nil, err
	}
	results := make([]noteSummaryResponse, len(notes))
	for i, n := range notes {
		results[i] = noteSummaryResponse{
			ID:        n.ID,
			Title:     n.Title,
			Snippet:   security.Snippet(n.Content),
			Trash:     n.Trash,
			UpdatedAt: n.UpdatedAt,
		}
	}
	return results, nil
}

// UserServiceAdapter は user.Service を UserServiceInterface に適合させるアダプタ。
type UserServiceAdapter struct {
	svc *user.Service
}

// NewUserServiceAdapter はUserServiceAdapterを生成する。
func NewUserServiceAdapter(svc *user.Service) *UserServiceAdapter {
	return &UserServiceAdapter{svc: svc}
}

// Withdraw はユーザーの退会処理を実行する。
func (a *UserServiceAdapter) Withdraw(ctx context.Context, userID string) error {
	return a.svc.Withdraw(ctx, userID)
}

// --- compile-time interface checks ---

var _ NoteServiceInterface = (*NoteServiceAdapter)(nil)
var _ UserServiceInterface = (*UserServiceAdapter)(nil)
