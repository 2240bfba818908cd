package post

import (
	"testing"
	"time"
)

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total, limit, want int
	}{
		{0, 15, 0},
		{1, 15, 1},
		{15, 15, 1},
		{16, 15, 2},
		{31, 15, 3},
		{10, 0, 0},
	}

	for _, tt := range tests {
		if got := TotalPages(tt.total, tt.limit); got != tt.want {
			t.Fatalf("TotalPages(%d, %d) = %d, want %d", tt.total, tt.limit, got, tt.want)
		}
	}
}

func TestFilterDefaultsAndOffset(t *testing.T) {
	f := Filter{}.WithDefaults()

	if f.Page != DefaultPage || f.Limit != DefaultLimit || f.Order != SortAsc {
		t.Fatalf("unexpected defaults %+v", f)
	}
	if f.Offset() != 0 {
		t.Fatalf("got offset %d, want 0", f.Offset())
	}

	f = Filter{Page: 3, Limit: 10}.WithDefaults()
	if f.Offset() != 20 {
		t.Fatalf("got offset %d, want 20", f.Offset())
	}
}

func TestParseSortOrder(t *testing.T) {
	if ParseSortOrder("DESC") != SortDesc {
		t.Fatalf("DESC should sort descending")
	}
	for _, s := range []string{"", "ASC", "desc", "bogus"} {
		if ParseSortOrder(s) != SortAsc {
			t.Fatalf("%q should sort ascending", s)
		}
	}
}

func TestFactoriesAssignServerFields(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 123456789, time.FixedZone("x", 3600))

	p := NewPost("u1", CreatePostRequest{Title: "T", Content: "C"}, now)
	if p.ID == "" || p.Author.ID != "u1" || p.Comments == nil {
		t.Fatalf("unexpected post %+v", p)
	}
	if p.CreatedAt.Location() != time.UTC || p.CreatedAt.Nanosecond()%1000 != 0 {
		t.Fatalf("createdAt not normalized: %v", p.CreatedAt)
	}

	c := NewComment("u2", CreateCommentRequest{PostID: p.ID, Content: "hi"}, now)
	if c.ID == "" || c.ID == p.ID || c.PostID != p.ID || c.Author.ID != "u2" {
		t.Fatalf("unexpected comment %+v", c)
	}
}
