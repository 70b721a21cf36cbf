package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/mindpalace/internal/middleware"
	"github.com/hitoshi/mindpalace/internal/model"
)

// NoteServiceInterface はノートハンドラーが必要とするサービスインターフェース。
// 所有者以外のノートはNOTE_NOT_FOUNDとして返される。
type NoteServiceInterface interface {
	CreateNote(ctx context.Context, userID string) (*noteResponse, error)
	GetNote(ctx context.Context, userID, noteID string) (*noteResponse, error)
	ListNotes(ctx context.Context, userID string) ([]noteSummaryResponse, error)
	RecentNotes(ctx context.Context, userID string) ([]noteSummaryResponse, error)
	TrashNotes(ctx context.Context, userID string) ([]noteSummaryResponse, error)
	UpdateNote(ctx context.Context, userID, noteID string, draft model.NoteDraft) (*noteResponse, error)
	ToggleTrash(ctx context.Context, userID, noteID string) (*noteResponse, error)
	DeleteNote(ctx context.Context, userID, noteID string) error
}

// NoteHandler はノート管理のHTTPハンドラー。
type NoteHandler struct {
	service NoteServiceInterface
}

// NewNoteHandler はNoteHandlerを生成する。
func NewNoteHandler(service NoteServiceInterface) *NoteHandler {
	return &NoteHandler{service: service}
}

// noteResponse はノート詳細のAPIレスポンス。
type noteResponse struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Trash     bool      `json:"trash"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// noteSummaryResponse は一覧表示用のノート要約。本文の代わりにプレーンテキストの抜粋を持つ。
type noteSummaryResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Snippet   string    `json:"snippet"`
	Trash     bool      `json:"trash"`
	UpdatedAt time.Time `json:"updated_at"`
}

// noteListResponse はノート一覧のAPIレスポンス。
type noteListResponse struct {
	Notes []noteSummaryResponse `json:"notes"`
}

// updateNoteRequest はノート更新リクエスト。差分ではなく常に全体を受け取る。
type updateNoteRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

// CreateNote は空のノートを作成する。
// POST /api/notes
func (h *NoteHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	note, err := h.service.CreateNote(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, note)
}

// ListNotes はゴミ箱以外の全ノートを更新日時の新しい順で返す。
// GET /api/notes
func (h *NoteHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	h.writeList(w, r, h.service.ListNotes)
}

// RecentNotes は最近更新されたノートを返す。
// GET /api/notes/recent
func (h *NoteHandler) RecentNotes(w http.ResponseWriter, r *http.Request) {
	h.writeList(w, r, h.service.RecentNotes)
}

// TrashNotes はゴミ箱内のノートを返す。
// GET /api/notes/trash
func (h *NoteHandler) TrashNotes(w http.ResponseWriter, r *http.Request) {
	h.writeList(w, r, h.service.TrashNotes)
}

func (h *NoteHandler) writeList(w http.ResponseWriter, r *http.Request, list func(context.Context, string) ([]noteSummaryResponse, error)) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	notes, err := list(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if notes == nil {
		notes = []noteSummaryResponse{}
	}

	writeJSON(w, http.StatusOK, noteListResponse{Notes: notes})
}

// GetNote はノート詳細を返す。
// GET /api/notes/{id}
func (h *NoteHandler) GetNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	note, err := h.service.GetNote(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, note)
}

// UpdateNote はノートのタイトルと本文を置き換える。
// PUT /api/notes/{id}
func (h *NoteHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req updateNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Title == nil || req.Content == nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("title and content are required"))
		return
	}

	note, err := h.service.UpdateNote(r.Context(), userID, chi.URLParam(r, "id"), model.NoteDraft{
		Title:   *req.Title,
		Content: *req.Content,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, note)
}

// ToggleTrash はノートのゴミ箱フラグを反転する。
// PUT /api/notes/{id}/trash
func (h *NoteHandler) ToggleTrash(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	note, err := h.service.ToggleTrash(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, note)
}

// DeleteNote はノートを完全に削除する。
// DELETE /api/notes/{id}
func (h *NoteHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteNote(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
