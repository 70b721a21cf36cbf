package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/mindpalace/internal/model"
)

// NoteSummary はノート一覧の1件分。
type NoteSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Snippet   string    `json:"snippet"`
	Trash     bool      `json:"trash"`
	UpdatedAt time.Time `json:"updated_at"`
}

type noteBody struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Trash     bool      `json:"trash"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *noteBody) toModel() *model.Note {
	return &model.Note{
		ID:        b.ID,
		OwnerID:   b.OwnerID,
		Title:     b.Title,
		Content:   b.Content,
		Trash:     b.Trash,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

type noteListBody struct {
	Notes []NoteSummary `json:"notes"`
}

type noteDraftBody struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func notePath(noteID string) string {
	return "/api/notes/" + url.PathEscape(noteID)
}

// errNoteNotFound はサーバーが404を返した場合と同じ形のエラーを作る。
func errNoteNotFound(noteID string) error {
	return &Error{Status: http.StatusNotFound, APIError: model.NewNoteNotFoundError(noteID)}
}

// noteRequest は1件のノートに対するリクエストを送り、応答が同じIDのノートであることを確認する。
// 空IDや "recent" のような一覧ルートと衝突するIDは、一覧のボディが返るためNotFoundとして扱う。
func (c *Client) noteRequest(ctx context.Context, method, path, noteID string, in any) (*model.Note, error) {
	if noteID == "" {
		return nil, errNoteNotFound(noteID)
	}
	var body noteBody
	if err := c.do(ctx, method, path, in, &body); err != nil {
		return nil, err
	}
	// サーバーはUUIDを小文字の正規形で返す。
	if !strings.EqualFold(body.ID, noteID) {
		c.logger.Debug("response is not the requested note",
			slog.String("note_id", noteID),
			slog.String("got_id", body.ID),
		)
		return nil, errNoteNotFound(noteID)
	}
	return body.toModel(), nil
}

// CreateNote は空のノートを作成する。
func (c *Client) CreateNote(ctx context.Context) (*model.Note, error) {
	var body noteBody
	if err := c.do(ctx, http.MethodPost, "/api/notes", nil, &body); err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}
	return body.toModel(), nil
}

// ReadOne はノートを1件取得する。存在しない場合はmodel.IsNotFoundが真になるエラーを返す。
func (c *Client) ReadOne(ctx context.Context, noteID string) (*model.Note, error) {
	note, err := c.noteRequest(ctx, http.MethodGet, notePath(noteID), noteID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read note: %w", err)
	}
	return note, nil
}

// ReadAll はゴミ箱以外の全ノートを更新日時の新しい順で取得する。
func (c *Client) ReadAll(ctx context.Context) ([]NoteSummary, error) {
	return c.listNotes(ctx, "/api/notes")
}

// Recent は最近更新されたノートを取得する。
func (c *Client) Recent(ctx context.Context) ([]NoteSummary, error) {
	return c.listNotes(ctx, "/api/notes/recent")
}

// Trash はゴミ箱のノートを取得する。
func (c *Client) Trash(ctx context.Context) ([]NoteSummary, error) {
	return c.listNotes(ctx, "/api/notes/trash")
}

func (c *Client) listNotes(ctx context.Context, path string) ([]NoteSummary, error) {
	var body noteListBody
	if err := c.do(ctx, http.MethodGet, path, nil, &body); err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	if body.Notes == nil {
		return []NoteSummary{}, nil
	}
	return body.Notes, nil
}

// Update はノートのタイトルと本文を下書き全体で置き換える。
func (c *Client) Update(ctx context.Context, noteID string, draft model.NoteDraft) (*model.Note, error) {
	in := noteDraftBody{Title: draft.Title, Content: draft.Content}
	note, err := c.noteRequest(ctx, http.MethodPut, notePath(noteID), noteID, in)
	if err != nil {
		return nil, fmt.Errorf("failed to update note: %w", err)
	}
	return note, nil
}

// ToggleTrash はノートのゴミ箱フラグを反転する。
func (c *Client) ToggleTrash(ctx context.Context, noteID string) (*model.Note, error) {
	note, err := c.noteRequest(ctx, http.MethodPut, notePath(noteID)+"/trash", noteID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle trash: %w", err)
	}
	return note, nil
}

// Delete はノートを完全に削除する。
func (c *Client) Delete(ctx context.Context, noteID string) error {
	if noteID == "" {
		return fmt.Errorf("failed to delete note: %w", errNoteNotFound(noteID))
	}
	if err := c.do(ctx, http.MethodDelete, notePath(noteID), nil, nil); err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	return nil
}
