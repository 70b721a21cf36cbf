// Package cleanup は期限切れデータの自動削除ジョブを提供する。
// 有効期限を過ぎたセッションと、保持期間を超えてゴミ箱に残っているノートを
// 定期バッチで削除する。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Recorder は削除件数の計測を受け取るインターフェース。
type Recorder interface {
	RecordCleanup(target string, deleted int64)
}

const (
	targetSessions = "sessions"
	targetTrash    = "trash"

	deleteExpiredSessionsQuery = `DELETE FROM sessions WHERE expires_at < now()`
	deleteOldTrashQuery        = `DELETE FROM notes WHERE trash = TRUE AND updated_at < now() - $1::interval`
)

// CleanupJob は期限切れデータの削除ジョブ。
// 削除は冪等で、対象がない場合もエラーにならない。
type CleanupJob struct {
	db                 Executor
	logger             *slog.Logger
	recorder           Recorder
	TrashRetentionDays int // ゴミ箱内ノートの保持日数（デフォルト: 30）
}

// NewCleanupJob は新しいCleanupJobを生成する。recorderはnilでもよい。
func NewCleanupJob(db Executor, logger *slog.Logger, recorder Recorder) *CleanupJob {
	return &CleanupJob{
		db:                 db,
		logger:             logger,
		recorder:           recorder,
		TrashRetentionDays: 30,
	}
}

// Run は期限切れセッションと古いゴミ箱ノートを削除する。
// セッション削除に失敗した場合もゴミ箱の削除は試みる。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	sessions, sessErr := j.exec(ctx, targetSessions, deleteExpiredSessionsQuery)

	interval := fmt.Sprintf("%d days", j.TrashRetentionDays)
	trash, trashErr := j.exec(ctx, targetTrash, deleteOldTrashQuery, interval)

	if sessErr != nil {
		return sessErr
	}
	if trashErr != nil {
		return trashErr
	}

	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("deleted_sessions", sessions),
		slog.Int64("deleted_trash_notes", trash),
		slog.Int("trash_retention_days", j.TrashRetentionDays),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// Start は起動直後に1回、その後intervalごとにRunを実行する。
// ctxがキャンセルされるまでブロックする。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	j.runLogged(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.runLogged(ctx)
		}
	}
}

func (j *CleanupJob) runLogged(ctx context.Context) {
	if err := j.Run(ctx); err != nil {
		j.logger.Error("cleanup job failed", slog.String("error", err.Error()))
	}
}

// exec は削除クエリを1つ実行し、削除件数を記録する。
func (j *CleanupJob) exec(ctx context.Context, target, query string, args ...interface{}) (int64, error) {
	result, err := j.db.ExecContext(ctx, query, args...)
	if err != nil {
		j.logger.Error("クリーンアップの実行に失敗しました",
			slog.String("target", target),
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("%sのクリーンアップに失敗: %w", target, err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%sの削除件数の取得に失敗: %w", target, err)
	}

	if j.recorder != nil {
		j.recorder.RecordCleanup(target, deleted)
	}
	return deleted, nil
}
