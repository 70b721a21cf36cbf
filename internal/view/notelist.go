// Package view はノート一覧とサインアップの画面ロジックを提供する。
// 描画はテキストで行い、CLIから利用する。
package view

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/hitoshi/mindpalace/internal/client"
)

const untitled = "Untitled"

// NoteSource はノート一覧の取得元。store.Storeが実装する。
type NoteSource interface {
	LoadNotes(ctx context.Context) error
	Notes() []client.NoteSummary
}

// ListItem は一覧の1行。
type ListItem struct {
	Title     string
	Link      string
	Snippet   string
	UpdatedAt time.Time
}

// NoteList はノート一覧画面。
type NoteList struct {
	src NoteSource
}

// NewNoteList はNoteListを生成する。
func NewNoteList(src NoteSource) *NoteList {
	return &NoteList{src: src}
}

// Mount はノート一覧を読み込む。
func (l *NoteList) Mount(ctx context.Context) error {
	if err := l.src.LoadNotes(ctx); err != nil {
		return fmt.Errorf("failed to load notes: %w", err)
	}
	return nil
}

// CountLabel は件数表示を返す。
func (l *NoteList) CountLabel() string {
	return CountLabel(len(l.src.Notes()))
}

// Items は表示用の行をAPIの順序のまま返す。
func (l *NoteList) Items() []ListItem {
	notes := l.src.Notes()
	items := make([]ListItem, 0, len(notes))
	for _, n := range notes {
		items = append(items, ListItem{
			Title:     DisplayTitle(n.Title),
			Link:      NoteLink(n.ID),
			Snippet:   n.Snippet,
			UpdatedAt: n.UpdatedAt,
		})
	}
	return items
}

// Render は件数と一覧をwに書き出す。
func (l *NoteList) Render(w io.Writer) error {
	if _, err := fmt.Fprintln(w, l.CountLabel()); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, item := range l.Items() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			item.Link, item.Title, item.UpdatedAt.Local().Format("2006-01-02 15:04"), item.Snippet)
	}
	return tw.Flush()
}

// CountLabel は件数nの表示文字列を返す。1件のみ単数形。
func CountLabel(n int) string {
	if n == 1 {
		return "1 note"
	}
	return fmt.Sprintf("%d notes", n)
}

// DisplayTitle は空のタイトルを"Untitled"に置き換える。
func DisplayTitle(title string) string {
	if title == "" {
		return untitled
	}
	return title
}

// NoteLink はノートの編集画面へのリンクを返す。
func NoteLink(noteID string) string {
	return "/notes/" + noteID
}
