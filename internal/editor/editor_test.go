package editor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/mindpalace/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 2 * time.Second

// fakeGateway はエディタ用のゲートウェイ。
// blockがnilでなければ更新はblockが閉じられるまで返らない。
type fakeGateway struct {
	mu      sync.Mutex
	notes   map[string]model.Note
	readErr error
	updates []model.NoteDraft
	fail    func(n int, draft model.NoteDraft) error
	block   chan struct{}
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{notes: map[string]model.Note{
		"abc123": {ID: "abc123", Title: "Hi", Content: "<p>x</p>"},
	}}
}

func (g *fakeGateway) ReadNote(ctx context.Context, noteID string) (*model.Note, error) {
	if g.readErr != nil {
		return nil, g.readErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	note, ok := g.notes[noteID]
	if !ok {
		return nil, fmt.Errorf("failed to read note: %w", model.NewNoteNotFoundError(noteID))
	}
	return &note, nil
}

func (g *fakeGateway) UpdateNote(ctx context.Context, noteID string, draft model.NoteDraft) (*model.Note, error) {
	if g.block != nil {
		<-g.block
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.updates = append(g.updates, draft)
	if g.fail != nil {
		if err := g.fail(len(g.updates), draft); err != nil {
			return nil, err
		}
	}
	note := g.notes[noteID]
	note.Title, note.Content = draft.Title, draft.Content
	g.notes[noteID] = note
	return &note, nil
}

func (g *fakeGateway) Updates() []model.NoteDraft {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]model.NoteDraft(nil), g.updates...)
}

func mountLoaded(t *testing.T, gw Gateway, opts ...Option) *Editor {
	t.Helper()
	e := Mount(context.Background(), gw, "abc123", opts...)
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	state, err := e.AwaitLoad(ctx)
	require.NoError(t, err)
	require.IsType(t, Loaded{}, state)
	return e
}

// drain はアンマウントして保存キューが空になるまで待つ。
func drain(t *testing.T, e *Editor) {
	t.Helper()
	e.Unmount()
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	require.NoError(t, e.Wait(ctx))
}

func TestEditor_InitialDraftEqualsNote(t *testing.T) {
	e := mountLoaded(t, newFakeGateway())
	defer drain(t, e)

	assert.Equal(t, model.NoteDraft{Title: "Hi", Content: "<p>x</p>"}, e.Draft())
	assert.Equal(t, IndicatorSaved, e.Indicator())
	assert.True(t, e.Renderable())
}

func TestEditor_NotLoadedBeforeRead(t *testing.T) {
	gw := newFakeGateway()
	release := make(chan struct{})
	blocking := &blockingReader{fakeGateway: gw, release: release}

	e := Mount(context.Background(), blocking, "abc123")
	defer func() {
		close(release)
		drain(t, e)
	}()

	assert.IsType(t, NotLoaded{}, e.State())
	assert.Equal(t, model.NoteDraft{}, e.Draft(), "読み込み前は下書きが空")
	assert.False(t, e.Renderable())
	assert.ErrorIs(t, e.SetTitle("x"), ErrNotEditable)
	assert.Empty(t, gw.Updates())
}

type blockingReader struct {
	*fakeGateway
	release chan struct{}
}

func (b *blockingReader) ReadNote(ctx context.Context, noteID string) (*model.Note, error) {
	<-b.release
	return b.fakeGateway.ReadNote(ctx, noteID)
}

func TestEditor_NotFound(t *testing.T) {
	e := Mount(context.Background(), newFakeGateway(), "missing")
	defer drain(t, e)

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	state, err := e.AwaitLoad(ctx)
	require.NoError(t, err)

	assert.IsType(t, NotFound{}, state)
	assert.False(t, e.Renderable())
	assert.ErrorIs(t, e.SetContent("x"), ErrNotEditable)
}

func TestEditor_LoadRequestFailedStaysNotLoaded(t *testing.T) {
	var buf bytes.Buffer
	gw := newFakeGateway()
	gw.readErr = errors.New("connection refused")

	e := Mount(context.Background(), gw, "abc123", WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))))
	defer drain(t, e)

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	state, err := e.AwaitLoad(ctx)
	require.NoError(t, err)

	assert.IsType(t, NotLoaded{}, state)
	assert.Contains(t, buf.String(), "failed to load note")
}

func TestEditor_TitleChangeVisibleImmediately(t *testing.T) {
	gw := newFakeGateway()
	gw.block = make(chan struct{})
	e := mountLoaded(t, gw)
	defer func() {
		close(gw.block)
		drain(t, e)
	}()

	require.NoError(t, e.SetTitle("Hi!"))

	assert.Equal(t, "Hi!", e.Draft().Title)
	assert.Equal(t, IndicatorSaving, e.Indicator())
}

func TestEditor_SaveScenario(t *testing.T) {
	gw := newFakeGateway()
	e := mountLoaded(t, gw)

	require.NoError(t, e.SetTitle("Hi!"))
	drain(t, e)

	assert.Equal(t, []model.NoteDraft{{Title: "Hi!", Content: "<p>x</p>"}}, gw.Updates())
	assert.Equal(t, IndicatorSaved, e.Indicator())
}

func TestEditor_HangingSaveStaysSaving(t *testing.T) {
	gw := newFakeGateway()
	gw.block = make(chan struct{})
	e := mountLoaded(t, gw)
	t.Cleanup(func() { close(gw.block) })

	require.NoError(t, e.SetContent("<p>y</p>"))

	// 応答が返らない限り表示は変わらない
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, IndicatorSaving, e.Indicator())

	e.Unmount()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, e.Wait(ctx), context.DeadlineExceeded)
	assert.Equal(t, IndicatorSaving, e.Indicator())
}

func TestEditor_EachChangeSendsFullDraftInOrder(t *testing.T) {
	gw := newFakeGateway()
	e := mountLoaded(t, gw)

	require.NoError(t, e.SetTitle("H"))
	require.NoError(t, e.SetTitle("Ho"))
	require.NoError(t, e.SetContent("<p>z</p>"))
	drain(t, e)

	assert.Equal(t, []model.NoteDraft{
		{Title: "H", Content: "<p>x</p>"},
		{Title: "Ho", Content: "<p>x</p>"},
		{Title: "Ho", Content: "<p>z</p>"},
	}, gw.Updates())
	assert.Equal(t, IndicatorSaved, e.Indicator())
}

func TestEditor_FailedLatestSaveKeepsSaving(t *testing.T) {
	var buf bytes.Buffer
	gw := newFakeGateway()
	gw.fail = func(n int, draft model.NoteDraft) error {
		if n == 2 {
			return errors.New("status 500")
		}
		return nil
	}
	e := mountLoaded(t, gw, WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))))

	require.NoError(t, e.SetTitle("a"))
	require.NoError(t, e.SetTitle("ab"))
	drain(t, e)

	assert.Equal(t, IndicatorSaving, e.Indicator())
	assert.Contains(t, buf.String(), `"level":"WARN"`)
	assert.Contains(t, buf.String(), "failed to save note")
}

func TestEditor_EarlierFailureClearedByLaterSuccess(t *testing.T) {
	gw := newFakeGateway()
	gw.fail = func(n int, draft model.NoteDraft) error {
		if n == 1 {
			return errors.New("status 500")
		}
		return nil
	}
	e := mountLoaded(t, gw, WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))

	require.NoError(t, e.SetTitle("a"))
	require.NoError(t, e.SetTitle("ab"))
	drain(t, e)

	assert.Equal(t, IndicatorSaved, e.Indicator())
	assert.Len(t, gw.Updates(), 2)
}

func TestEditor_UnmountRejectsEditsButDrainsQueue(t *testing.T) {
	gw := newFakeGateway()
	gw.block = make(chan struct{})
	e := mountLoaded(t, gw)

	require.NoError(t, e.SetTitle("one"))
	require.NoError(t, e.SetTitle("two"))
	e.Unmount()
	assert.ErrorIs(t, e.SetTitle("three"), ErrUnmounted)

	close(gw.block)
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	require.NoError(t, e.Wait(ctx))

	updates := gw.Updates()
	require.Len(t, updates, 2)
	assert.Equal(t, "two", updates[1].Title)
}

func TestEditor_ChangesNotified(t *testing.T) {
	gw := newFakeGateway()
	e := mountLoaded(t, gw)
	defer drain(t, e)

	require.NoError(t, e.SetTitle("Hi!"))

	deadline := time.After(waitTimeout)
	for e.Indicator() != IndicatorSaved {
		select {
		case <-e.Changes():
		case <-deadline:
			t.Fatal("保存完了の通知が届かない")
		}
	}
}

func TestTruncateTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  int
	}{
		{"短いタイトル", "Hi", 2},
		{"上限ちょうど", strings.Repeat("a", model.MaxTitleLength), model.MaxTitleLength},
		{"上限超過", strings.Repeat("a", model.MaxTitleLength+10), model.MaxTitleLength},
		{"サロゲートペアを分割しない", strings.Repeat("a", model.MaxTitleLength-1) + "😀", model.MaxTitleLength - 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, model.TitleLength(truncateTitle(tt.title)))
		})
	}
}
