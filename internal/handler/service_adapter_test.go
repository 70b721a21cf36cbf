package handler

import (
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/mindpalace/internal/model"
)

func TestToSummaries_ExtractsSnippet(t *testing.T) {
	updated := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	notes := []*model.Note{
		{ID: "n1", Title: "Hi", Content: "<h1>Title</h1><p>first <strong>line</strong></p>", UpdatedAt: updated},
		{ID: "n2", Title: "", Content: "", Trash: true},
	}

	got, err := toSummaries(notes, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Snippet != "Title first line" {
		t.Errorf("snippet = %q, want %q", got[0].Snippet, "Title first line")
	}
	if !got[0].UpdatedAt.Equal(updated) {
		t.Errorf("updated_at = %v", got[0].UpdatedAt)
	}
	if got[1].Snippet != "" || !got[1].Trash {
		t.Errorf("second = %+v", got[1])
	}
}

func TestToSummaries_PropagatesError(t *testing.T) {
	wantErr := errors.New("boom")
	if _, err := toSummaries(nil, wantErr); !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
}

func TestToNoteResponse_CopiesAllFields(t *testing.T) {
	n := &model.Note{ID: "n1", OwnerID: "u1", Title: "t", Content: "<p>c</p>", Trash: true}
	resp := toNoteResponse(n)
	if resp.ID != "n1" || resp.OwnerID != "u1" || resp.Title != "t" || resp.Content != "<p>c</p>" || !resp.Trash {
		t.Errorf("response = %+v", resp)
	}
}
