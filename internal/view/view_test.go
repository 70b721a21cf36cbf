package view

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/mindpalace/internal/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	notes []client.NoteSummary
	err   error
	loads int
}

func (f *fakeSource) LoadNotes(ctx context.Context) error {
	f.loads++
	return f.err
}

func (f *fakeSource) Notes() []client.NoteSummary {
	return f.notes
}

type fakeSigner struct {
	calls int
	errs  []string
	err   error
}

func (f *fakeSigner) SignUp(ctx context.Context, username, email, password string) ([]string, error) {
	f.calls++
	return f.errs, f.err
}

func TestCountLabel(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0 notes"},
		{1, "1 note"},
		{2, "2 notes"},
		{42, "42 notes"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CountLabel(tt.n))
	}
}

func TestDisplayTitle(t *testing.T) {
	assert.Equal(t, "Untitled", DisplayTitle(""))
	assert.Equal(t, "Groceries", DisplayTitle("Groceries"))
	assert.Equal(t, " ", DisplayTitle(" "), "空白のみはそのまま表示する")
}

func TestNoteList_Mount(t *testing.T) {
	src := &fakeSource{notes: []client.NoteSummary{{ID: "n1", Title: ""}}}
	l := NewNoteList(src)

	require.NoError(t, l.Mount(context.Background()))
	assert.Equal(t, 1, src.loads)
	assert.Equal(t, "1 note", l.CountLabel())
}

func TestNoteList_MountError(t *testing.T) {
	l := NewNoteList(&fakeSource{err: errors.New("timeout")})

	err := l.Mount(context.Background())
	assert.ErrorContains(t, err, "timeout")
}

func TestNoteList_Items(t *testing.T) {
	updated := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	src := &fakeSource{notes: []client.NoteSummary{
		{ID: "n2", Title: "", Snippet: "body", UpdatedAt: updated},
		{ID: "n1", Title: "Groceries"},
	}}

	items := NewNoteList(src).Items()

	require.Len(t, items, 2)
	assert.Equal(t, ListItem{Title: "Untitled", Link: "/notes/n2", Snippet: "body", UpdatedAt: updated}, items[0])
	assert.Equal(t, "Groceries", items[1].Title)
	assert.Equal(t, "/notes/n1", items[1].Link)
}

func TestNoteList_RenderEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewNoteList(&fakeSource{}).Render(&buf))
	assert.Equal(t, "0 notes\n", buf.String())
}

func TestNoteList_Render(t *testing.T) {
	var buf bytes.Buffer
	src := &fakeSource{notes: []client.NoteSummary{{ID: "n1"}, {ID: "n2", Title: "Plan"}}}

	require.NoError(t, NewNoteList(src).Render(&buf))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "2 notes", lines[0])
	assert.Contains(t, lines[1], "/notes/n1")
	assert.Contains(t, lines[1], "Untitled")
	assert.Contains(t, lines[2], "Plan")
}

func TestSignupForm_CanSubmit(t *testing.T) {
	valid := SignupForm{Email: "a@example.com", Username: "alice", Password: "secret", ConfirmPassword: "secret"}
	tests := []struct {
		name   string
		modify func(f *SignupForm)
		want   bool
	}{
		{"有効", func(f *SignupForm) {}, true},
		{"確認不一致", func(f *SignupForm) { f.ConfirmPassword = "other" }, false},
		{"@なし", func(f *SignupForm) { f.Email = "example.com" }, false},
		{"ユーザー名なし", func(f *SignupForm) { f.Username = "" }, false},
		{"パスワード空でも一致していればよい", func(f *SignupForm) { f.Password, f.ConfirmPassword = "", "" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := valid
			tt.modify(&f)
			assert.Equal(t, tt.want, f.CanSubmit())
		})
	}
}

func TestSignup_MismatchSkipsRemoteCall(t *testing.T) {
	signer := &fakeSigner{}
	v := NewSignup(signer)

	errs, err := v.Submit(context.Background(), SignupForm{
		Email: "a@example.com", Username: "alice", Password: "secret1", ConfirmPassword: "secret2",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Confirm Password field must be the same as the Password field"}, errs)
	assert.Zero(t, signer.calls)
	assert.Equal(t, errs, v.Errors())
}

func TestSignup_ServerErrorsInOrder(t *testing.T) {
	signer := &fakeSigner{errs: []string{"email : Invalid email address.", "username : Username is already in use."}}
	v := NewSignup(signer)

	errs, err := v.Submit(context.Background(), SignupForm{Email: "x@", Username: "bob", Password: "p", ConfirmPassword: "p"})
	require.NoError(t, err)

	assert.Equal(t, signer.errs, errs)
	assert.Equal(t, 1, signer.calls)
}

func TestSignup_Success(t *testing.T) {
	v := NewSignup(&fakeSigner{})

	errs, err := v.Submit(context.Background(), SignupForm{Email: "a@b", Username: "bob", Password: "p", ConfirmPassword: "p"})
	require.NoError(t, err)
	assert.Empty(t, errs)
	assert.Nil(t, v.Errors())
}

func TestSignup_RequestFailed(t *testing.T) {
	v := NewSignup(&fakeSigner{err: errors.New("connection refused")})

	errs, err := v.Submit(context.Background(), SignupForm{Email: "a@b", Username: "bob", Password: "p", ConfirmPassword: "p"})
	assert.Error(t, err)
	assert.Nil(t, errs)
}
