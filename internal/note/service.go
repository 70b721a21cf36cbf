// Package note はノートのユースケースを提供する。
// 他ユーザーのノートは存在しないノートと同じくNOTE_NOT_FOUNDとして扱う。
package note

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hitoshi/mindpalace/internal/model"
	"github.com/hitoshi/mindpalace/internal/repository"
	"github.com/hitoshi/mindpalace/internal/security"
)

// RecentLimit は最近のノート一覧で返す件数。
const RecentLimit = 5

// SaveRecorder はノート保存の計測を受け取るインターフェース。
type SaveRecorder interface {
	RecordNoteSaved()
}

// Service はノート操作のサービス層。
type Service struct {
	repo      repository.NoteRepository
	sanitizer security.ContentSanitizerService
	recorder  SaveRecorder
}

// NewService はServiceを生成する。recorderはnilでもよい。
func NewService(repo repository.NoteRepository, sanitizer security.ContentSanitizerService, recorder SaveRecorder) *Service {
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		recorder:  recorder,
	}
}

// Create は空のノートを作成する。
func (s *Service) Create(ctx context.Context, userID string) (*model.Note, error) {
	note := &model.Note{OwnerID: userID}
	if err := s.repo.Create(ctx, note); err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}

	slog.Info("note created",
		slog.String("user_id", userID),
		slog.String("note_id", note.ID),
	)
	return note, nil
}

// Get は所有者のノートを1件返す。
func (s *Service) Get(ctx context.Context, userID, noteID string) (*model.Note, error) {
	return s.findOwned(ctx, userID, noteID)
}

// List はゴミ箱以外の全ノートを最近更新された順に返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.Note, error) {
	notes, err := s.repo.ListByUser(ctx, userID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	return notes, nil
}

// Recent は最近更新されたRecentLimit件のノートを返す。
func (s *Service) Recent(ctx context.Context, userID string) ([]*model.Note, error) {
	notes, err := s.repo.ListByUser(ctx, userID, RecentLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent notes: %w", err)
	}
	return notes, nil
}

// Trash はゴミ箱内のノートを返す。
func (s *Service) Trash(ctx context.Context, userID string) ([]*model.Note, error) {
	notes, err := s.repo.ListTrash(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trashed notes: %w", err)
	}
	return notes, nil
}

// Update はタイトルと本文を丸ごと置き換える。本文は保存前にサニタイズする。
func (s *Service) Update(ctx context.Context, userID, noteID string, draft model.NoteDraft) (*model.Note, error) {
	if model.TitleLength(draft.Title) > model.MaxTitleLength {
		return nil, model.NewInvalidNoteError(
			fmt.Sprintf("title must be at most %d characters", model.MaxTitleLength),
		)
	}

	if _, err := s.findOwned(ctx, userID, noteID); err != nil {
		return nil, err
	}

	draft.Content = s.sanitizer.Sanitize(draft.Content)
	note, err := s.repo.Update(ctx, noteID, draft)
	if err != nil {
		return nil, fmt.Errorf("failed to update note: %w", err)
	}
	if note == nil {
		return nil, model.NewNoteNotFoundError(noteID)
	}

	if s.recorder != nil {
		s.recorder.RecordNoteSaved()
	}
	slog.Debug("note saved",
		slog.String("note_id", noteID),
		slog.Int("title_length", model.TitleLength(note.Title)),
	)
	return note, nil
}

// ToggleTrash はゴミ箱フラグを反転する。
func (s *Service) ToggleTrash(ctx context.Context, userID, noteID string) (*model.Note, error) {
	current, err := s.findOwned(ctx, userID, noteID)
	if err != nil {
		return nil, err
	}

	note, err := s.repo.SetTrash(ctx, noteID, !current.Trash)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle trash: %w", err)
	}
	if note == nil {
		return nil, model.NewNoteNotFoundError(noteID)
	}
	return note, nil
}

// Delete はノートを完全に削除する。
func (s *Service) Delete(ctx context.Context, userID, noteID string) error {
	if _, err := s.findOwned(ctx, userID, noteID); err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, noteID)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	if !deleted {
		return model.NewNoteNotFoundError(noteID)
	}

	slog.Info("note deleted",
		slog.String("user_id", userID),
		slog.String("note_id", noteID),
	)
	return nil
}

// findOwned はノートを取得し所有者を確認する。
// UUIDとして不正なIDもNOT_FOUNDとする。
func (s *Service) findOwned(ctx context.Context, userID, noteID string) (*model.Note, error) {
	if _, err := uuid.Parse(noteID); err != nil {
		return nil, model.NewNoteNotFoundError(noteID)
	}

	note, err := s.repo.FindByID(ctx, noteID)
	if err != nil {
		return nil, fmt.Errorf("failed to find note: %w", err)
	}
	if note == nil || note.OwnerID != userID {
		return nil, model.NewNoteNotFoundError(noteID)
	}
	return note, nil
}
