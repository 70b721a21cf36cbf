package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/mindpalace/internal/model"
)

// PostgresNoteRepo はPostgreSQLを使用したノートリポジトリ。
type PostgresNoteRepo struct {
	db *sql.DB
}

// NewPostgresNoteRepo はPostgresNoteRepoを生成する。
func NewPostgresNoteRepo(db *sql.DB) *PostgresNoteRepo {
	return &PostgresNoteRepo{db: db}
}

const noteColumns = `id, user_id, title, content, trash, created_at, updated_at`

// rowScanner は*sql.Rowと*sql.Rowsの共通部分。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(s rowScanner) (*model.Note, error) {
	note := &model.Note{}
	err := s.Scan(
		&note.ID, &note.OwnerID, &note.Title, &note.Content,
		&note.Trash, &note.CreatedAt, &note.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return note, nil
}

// Create はノートを作成する。IDとタイムスタンプはnoteに書き戻される。
func (r *PostgresNoteRepo) Create(ctx context.Context, note *model.Note) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO notes (user_id, title, content)
		 VALUES ($1, $2, $3)
		 RETURNING id, trash, created_at, updated_at`,
		note.OwnerID, note.Title, note.Content,
	).Scan(&note.ID, &note.Trash, &note.CreatedAt, &note.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert note: %w", err)
	}
	return nil
}

// FindByID は指定IDのノートを取得する。見つからない場合はnilを返す。
func (r *PostgresNoteRepo) FindByID(ctx context.Context, id string) (*model.Note, error) {
	note, err := scanNote(r.db.QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find note by ID: %w", err)
	}
	return note, nil
}

// ListByUser はユーザーのゴミ箱以外のノートをupdated_at降順で返す。
func (r *PostgresNoteRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*model.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes
		 WHERE user_id = $1 AND trash = false
		 ORDER BY updated_at DESC, id`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	return r.list(ctx, query, args...)
}

// ListTrash はユーザーのゴミ箱内のノートをupdated_at降順で返す。
func (r *PostgresNoteRepo) ListTrash(ctx context.Context, userID string) ([]*model.Note, error) {
	return r.list(ctx,
		`SELECT `+noteColumns+` FROM notes
		 WHERE user_id = $1 AND trash = true
		 ORDER BY updated_at DESC, id`,
		userID,
	)
}

func (r *PostgresNoteRepo) list(ctx context.Context, query string, args ...any) ([]*model.Note, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	notes := make([]*model.Note, 0)
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notes: %w", err)
	}
	return notes, nil
}

// Update はタイトルと本文を上書きし、updated_atを更新する。
// 対象が存在しない場合はnilを返す。
func (r *PostgresNoteRepo) Update(ctx context.Context, id string, draft model.NoteDraft) (*model.Note, error) {
	note, err := scanNote(r.db.QueryRowContext(ctx,
		`UPDATE notes SET title = $2, content = $3, updated_at = now()
		 WHERE id = $1
		 RETURNING `+noteColumns,
		id, draft.Title, draft.Content,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update note: %w", err)
	}
	return note, nil
}

// SetTrash はゴミ箱フラグを設定する。対象が存在しない場合はnilを返す。
func (r *PostgresNoteRepo) SetTrash(ctx context.Context, id string, trash bool) (*model.Note, error) {
	note, err := scanNote(r.db.QueryRowContext(ctx,
		`UPDATE notes SET trash = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING `+noteColumns,
		id, trash,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update note trash flag: %w", err)
	}
	return note, nil
}

// Delete は指定IDのノートを削除する。削除した場合trueを返す。
func (r *PostgresNoteRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM notes WHERE id = $1`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete note: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// DeleteByUserID はユーザーの全ノートを削除する。
func (r *PostgresNoteRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM notes WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete user notes: %w", err)
	}
	return nil
}

// compile-time interface check
var _ NoteRepository = (*PostgresNoteRepo)(nil)
