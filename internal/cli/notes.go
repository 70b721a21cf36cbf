package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/mindpalace/internal/client"
	"github.com/hitoshi/mindpalace/internal/editor"
	"github.com/hitoshi/mindpalace/internal/model"
	"github.com/hitoshi/mindpalace/internal/view"
	"github.com/spf13/cobra"
)

func newNotesCommand(a *cliApp) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Manage notes",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd, args); err != nil {
				return err
			}
			return a.requireSession()
		},
	}
	cmd.AddCommand(
		newNotesListCommand(a),
		newNotesNewCommand(a),
		newNotesShowCommand(a),
		newNotesEditCommand(a),
		newNotesTrashCommand(a),
		newNotesDeleteCommand(a),
	)
	return cmd
}

// fetchSource はStore以外の一覧（最近・ゴミ箱）をNoteListで描画するためのアダプター。
type fetchSource struct {
	fetch func(ctx context.Context) ([]client.NoteSummary, error)
	notes []client.NoteSummary
}

func (s *fetchSource) LoadNotes(ctx context.Context) error {
	notes, err := s.fetch(ctx)
	if err != nil {
		return err
	}
	s.notes = notes
	return nil
}

func (s *fetchSource) Notes() []client.NoteSummary {
	return s.notes
}

func newNotesListCommand(a *cliApp) *cobra.Command {
	var recent, trash bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var src view.NoteSource = a.store
			switch {
			case recent && trash:
				return fmt.Errorf("--recent and --trash cannot be combined")
			case recent:
				src = &fetchSource{fetch: a.client.Recent}
			case trash:
				src = &fetchSource{fetch: a.client.Trash}
			}

			list := view.NewNoteList(src)
			if err := list.Mount(cmd.Context()); err != nil {
				return err
			}
			return list.Render(a.out)
		},
	}
	cmd.Flags().BoolVar(&recent, "recent", false, "Show only the five most recently updated notes")
	cmd.Flags().BoolVar(&trash, "trash", false, "Show notes in the trash")
	return cmd
}

func newNotesNewCommand(a *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Create an empty note",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			note, err := a.client.CreateNote(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Created %s\n", view.NoteLink(note.ID))
			return nil
		},
	}
}

// mountEditor はエディタをマウントして読み込み完了を待つ。
// ノートが無い場合は何も表示せずにエラーを返す。
func mountEditor(ctx context.Context, a *cliApp, noteID string, timeout time.Duration) (*editor.Editor, error) {
	e := editor.Mount(ctx, a.store, noteID, editor.WithLogger(a.logger))

	loadCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	state, err := e.AwaitLoad(loadCtx)
	if err != nil {
		e.Unmount()
		return nil, fmt.Errorf("timed out loading note %s", noteID)
	}

	switch state.(type) {
	case editor.Loaded:
		return e, nil
	case editor.NotFound:
		e.Unmount()
		return nil, fmt.Errorf("note %s not found", noteID)
	default:
		e.Unmount()
		return nil, fmt.Errorf("failed to load note %s", noteID)
	}
}

func newNotesShowCommand(a *cliApp) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := mountEditor(cmd.Context(), a, args[0], timeout)
			if err != nil {
				return err
			}
			defer e.Unmount()

			draft := e.Draft()
			fmt.Fprintln(a.out, view.DisplayTitle(draft.Title))
			fmt.Fprintln(a.out, strings.Repeat("-", 40))
			fmt.Fprintln(a.out, draft.Content)
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "How long to wait for the server")
	return cmd
}

// change はeditコマンドの1回の変更イベント。
type change struct {
	field string
	value string
}

// changeFlag はフラグの出現ごとに変更イベントを記録する。
// 異なるフラグの間でもコマンドラインでの順序を保つ。
type changeFlag struct {
	field   string
	changes *[]change
}

func (f *changeFlag) String() string { return "" }
func (f *changeFlag) Type() string   { return "string" }

func (f *changeFlag) Set(v string) error {
	*f.changes = append(*f.changes, change{field: f.field, value: v})
	return nil
}

func newNotesEditCommand(a *cliApp) *cobra.Command {
	var (
		changes []change
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Edit a note; every --title or --content is saved as one change",
		Example: `  mindpalace-cli notes edit abc123 --title "Hi!"
  mindpalace-cli notes edit abc123 --title Plan --content "<p>step 1</p>"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(changes) == 0 {
				return fmt.Errorf("nothing to change: pass --title or --content")
			}

			e, err := mountEditor(cmd.Context(), a, args[0], timeout)
			if err != nil {
				return err
			}

			for _, c := range changes {
				switch c.field {
				case "title":
					err = e.SetTitle(c.value)
				case "content":
					err = e.SetContent(c.value)
				}
				if err != nil {
					e.Unmount()
					return err
				}
			}

			e.Unmount()
			waitCtx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			waitErr := e.Wait(waitCtx)

			fmt.Fprintln(a.out, e.Indicator())
			if waitErr != nil {
				return fmt.Errorf("saves still pending after %s", timeout)
			}
			if e.Saving() {
				return fmt.Errorf("the last change was not saved")
			}
			return nil
		},
	}
	cmd.Flags().Var(&changeFlag{field: "title", changes: &changes}, "title", "New title (repeatable)")
	cmd.Flags().Var(&changeFlag{field: "content", changes: &changes}, "content", "New content HTML (repeatable)")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "How long to wait for the server")
	return cmd
}

func newNotesTrashCommand(a *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "trash ID",
		Short: "Move a note to the trash, or restore it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			note, err := a.client.ToggleTrash(cmd.Context(), args[0])
			if err != nil {
				return notFoundOr(err, args[0])
			}
			if note.Trash {
				fmt.Fprintf(a.out, "Moved %s to the trash\n", note.ID)
			} else {
				fmt.Fprintf(a.out, "Restored %s\n", note.ID)
			}
			return nil
		},
	}
}

func newNotesDeleteCommand(a *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a note permanently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.Delete(cmd.Context(), args[0]); err != nil {
				return notFoundOr(err, args[0])
			}
			fmt.Fprintf(a.out, "Deleted %s\n", args[0])
			return nil
		},
	}
}

func notFoundOr(err error, noteID string) error {
	if model.IsNotFound(err) {
		return fmt.Errorf("note %s not found", noteID)
	}
	var apiErr *client.Error
	if errors.As(err, &apiErr) && apiErr.APIError != nil {
		return errors.New(apiErr.APIError.Message)
	}
	return err
}
