// Package editor はノート編集のワークフローを提供する。
//
// Mountでノートを読み込み、タイトルや本文の変更ごとに下書き全体を保存する。
// 保存はエディタごとの保存ループが発行順に送信する。
// インジケーターは最後に発行した保存が成功した時点で「All changes saved」に戻り、
// 失敗した場合は「Saving...」のまま残る。
package editor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"unicode/utf16"

	"github.com/hitoshi/mindpalace/internal/model"
)

// インジケーターの表示文字列。
const (
	IndicatorSaving = "Saving..."
	IndicatorSaved  = "All changes saved"
)

var (
	// ErrNotEditable はノートの読み込み前に編集しようとした場合のエラー。
	ErrNotEditable = errors.New("editor: note is not loaded")
	// ErrUnmounted はアンマウント後に編集しようとした場合のエラー。
	ErrUnmounted = errors.New("editor: unmounted")
)

// Gateway はエディタが使用するノートの取得・更新操作。store.Storeが実装する。
type Gateway interface {
	ReadNote(ctx context.Context, noteID string) (*model.Note, error)
	UpdateNote(ctx context.Context, noteID string, draft model.NoteDraft) (*model.Note, error)
}

// LoadState はノートの読み込み状態。NotLoaded, Loaded, NotFoundのいずれか。
type LoadState interface {
	loadState()
}

// NotLoaded は読み込みが完了していない状態。取得に失敗した場合もこの状態のまま。
type NotLoaded struct{}

// Loaded は読み込み済みの状態。
type Loaded struct {
	Note model.Note
}

// NotFound はノートが存在しないか、他のユーザーのノートである状態。
type NotFound struct{}

func (NotLoaded) loadState() {}
func (Loaded) loadState()    {}
func (NotFound) loadState()  {}

// Option はEditorの設定を変更する。
type Option func(*Editor)

// WithLogger は保存失敗などのログ出力先を設定する。
func WithLogger(logger *slog.Logger) Option {
	return func(e *Editor) {
		e.logger = logger
	}
}

type saveRequest struct {
	seq   uint64
	draft model.NoteDraft
}

// Editor は1つのノートの編集セッション。
type Editor struct {
	ctx    context.Context
	gw     Gateway
	noteID string
	logger *slog.Logger

	mu      sync.Mutex
	state   LoadState
	draft   model.NoteDraft
	saving  bool
	issued  uint64
	pending []saveRequest
	closed  bool

	wake     chan struct{}
	changes  chan struct{}
	loadDone chan struct{}
	loopDone chan struct{}
}

// Mount はnoteIDのノートを非同期に読み込み、保存ループを開始する。
// ctxは読み込みと保存のリクエストに使われる。
func Mount(ctx context.Context, gw Gateway, noteID string, opts ...Option) *Editor {
	e := &Editor{
		ctx:      ctx,
		gw:       gw,
		noteID:   noteID,
		logger:   slog.Default(),
		state:    NotLoaded{},
		wake:     make(chan struct{}, 1),
		changes:  make(chan struct{}, 1),
		loadDone: make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	go e.load()
	go e.saveLoop()
	return e
}

// NoteID は編集中のノートIDを返す。
func (e *Editor) NoteID() string {
	return e.noteID
}

func (e *Editor) load() {
	defer close(e.loadDone)

	note, err := e.gw.ReadNote(e.ctx, e.noteID)

	e.mu.Lock()
	switch {
	case err == nil:
		e.state = Loaded{Note: *note}
		e.draft = model.NoteDraft{Title: note.Title, Content: note.Content}
	case model.IsNotFound(err):
		e.state = NotFound{}
	default:
		e.logger.Warn("failed to load note",
			slog.String("note_id", e.noteID),
			slog.String("error", err.Error()),
		)
	}
	e.mu.Unlock()
	e.notify()
}

// AwaitLoad は読み込みの完了を待ち、その時点の状態を返す。
func (e *Editor) AwaitLoad(ctx context.Context) (LoadState, error) {
	select {
	case <-e.loadDone:
		return e.State(), nil
	case <-ctx.Done():
		return e.State(), ctx.Err()
	}
}

// State は読み込み状態を返す。
func (e *Editor) State() LoadState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Renderable は編集画面を表示できるかを返す。読み込み済みの場合のみ真。
func (e *Editor) Renderable() bool {
	_, ok := e.State().(Loaded)
	return ok
}

// Draft は現在の下書きを返す。
func (e *Editor) Draft() model.NoteDraft {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft
}

// Saving は未完了の保存があるかを返す。
func (e *Editor) Saving() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saving
}

// Indicator は保存状態の表示文字列を返す。
func (e *Editor) Indicator() string {
	if e.Saving() {
		return IndicatorSaving
	}
	return IndicatorSaved
}

// Changes は状態が変化したときに通知されるチャネルを返す。
// 通知はまとめられることがあるため、受信後に最新の状態を読み直すこと。
func (e *Editor) Changes() <-chan struct{} {
	return e.changes
}

// SetTitle はタイトルを変更して保存を発行する。
// タイトルはMaxTitleLength（UTF-16コードユニット）で切り詰める。
func (e *Editor) SetTitle(title string) error {
	return e.edit(func(d *model.NoteDraft) {
		d.Title = truncateTitle(title)
	})
}

// SetContent は本文を変更して保存を発行する。
func (e *Editor) SetContent(content string) error {
	return e.edit(func(d *model.NoteDraft) {
		d.Content = content
	})
}

func (e *Editor) edit(apply func(*model.NoteDraft)) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrUnmounted
	}
	if _, ok := e.state.(Loaded); !ok {
		e.mu.Unlock()
		return ErrNotEditable
	}

	apply(&e.draft)
	e.saving = true
	e.issued++
	e.pending = append(e.pending, saveRequest{seq: e.issued, draft: e.draft})
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
	e.notify()
	return nil
}

func (e *Editor) saveLoop() {
	defer close(e.loopDone)
	for {
		req, ok := e.next()
		if !ok {
			return
		}
		e.save(req)
	}
}

// next は次の保存リクエストを返す。アンマウント済みでキューが空ならfalse。
func (e *Editor) next() (saveRequest, bool) {
	for {
		e.mu.Lock()
		if len(e.pending) > 0 {
			req := e.pending[0]
			e.pending = e.pending[1:]
			e.mu.Unlock()
			return req, true
		}
		closed := e.closed
		e.mu.Unlock()

		if closed {
			return saveRequest{}, false
		}
		<-e.wake
	}
}

func (e *Editor) save(req saveRequest) {
	_, err := e.gw.UpdateNote(e.ctx, e.noteID, req.draft)

	e.mu.Lock()
	if err != nil {
		e.logger.Warn("failed to save note",
			slog.String("note_id", e.noteID),
			slog.Uint64("seq", req.seq),
			slog.String("error", err.Error()),
		)
	} else if req.seq == e.issued {
		e.saving = false
	}
	e.mu.Unlock()
	e.notify()
}

// Unmount は編集の受け付けを停止する。発行済みの保存は取り消さずに送信される。
func (e *Editor) Unmount() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// Wait はアンマウント後に保存ループが終了するまで待つ。
func (e *Editor) Wait(ctx context.Context) error {
	select {
	case <-e.loopDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Editor) notify() {
	select {
	case e.changes <- struct{}{}:
	default:
	}
}

// truncateTitle はタイトルをMaxTitleLength以下に切り詰める。
// サロゲートペアは分割しない。
func truncateTitle(title string) string {
	if model.TitleLength(title) <= model.MaxTitleLength {
		return title
	}
	units := 0
	for i, r := range title {
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		if units+n > model.MaxTitleLength {
			return title[:i]
		}
		units += n
	}
	return title
}
