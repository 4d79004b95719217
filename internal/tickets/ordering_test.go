package tickets

import (
	"reflect"
	"testing"
)

func TestOrderClause(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "created_at DESC, id DESC"},
		{"priority", priorityRank + " ASC, id DESC"},
		{"-priority", priorityRank + " DESC, id DESC"},
		{"-priority,created_at", priorityRank + " DESC, created_at ASC, id DESC"},
		{"title,-created_at", "created_at DESC, id DESC"},
		{"priority,priority", priorityRank + " ASC, id DESC"},
		{"bogus", "created_at DESC, id DESC"},
	}
	for _, tt := range tests {
		if got := orderClause(tt.in); got != tt.want {
			t.Errorf("orderClause(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSearchTerms(t *testing.T) {
	got := searchTerms(" wifi,  hostel\tblock ")
	want := []string{"wifi", "hostel", "block"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("searchTerms = %v, want %v", got, want)
	}
	if len(searchTerms("  , ")) != 0 {
		t.Fatal("blank search produced terms")
	}
}

func TestLikePattern(t *testing.T) {
	if got := likePattern("50%_OFF"); got != `%50\%\_off%` {
		t.Fatalf("likePattern = %q", got)
	}
}
