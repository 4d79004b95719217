package tickets

import (
	"context"
	"errors"
	"math"
	"testing"

	"smartcampus/internal/store/storetest"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(NewRepository(storetest.OpenSQLite(t).Client), nil)
}

func seed(t *testing.T, s *Service, inputs ...Input) []Ticket {
	t.Helper()
	out := make([]Ticket, 0, len(inputs))
	for _, in := range inputs {
		tk, err := s.Create(context.Background(), in)
		if err != nil {
			t.Fatalf("Create(%+v): %v", in, err)
		}
		out = append(out, tk)
	}
	return out
}

func TestCreateDefaultsAndValidation(t *testing.T) {
	s := newTestService(t)
	tk, err := s.Create(context.Background(), Input{Title: "Projector", Description: "Broken", Category: CategoryClassroom, Priority: PriorityHigh})
	if err != nil {
		t.Fatal(err)
	}
	if tk.ID == 0 || tk.Status != StatusOpen {
		t.Fatalf("ticket = %+v", tk)
	}

	_, err = s.Create(context.Background(), Input{Title: "x", Description: "y", Category: "library", Priority: "urgent"})
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestListFilterSearchOrder(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	seed(t, s,
		Input{Title: "WiFi down", Description: "Hostel block A has no WiFi", Category: CategoryNetwork, Priority: PriorityLow},
		Input{Title: "Leaking tap", Description: "Bathroom in hostel", Category: CategoryHostel, Priority: PriorityHigh},
		Input{Title: "Slow network", Description: "Lab wifi is slow", Category: CategoryNetwork, Priority: PriorityMedium, Status: StatusInProgress},
		Input{Title: "Broken bench", Description: "Room 101", Category: CategoryClassroom, Priority: PriorityHigh, Status: StatusClosed},
	)

	tests := []struct {
		name   string
		q      Query
		titles []string
		count  int
	}{
		{"default newest first", Query{}, []string{"Broken bench", "Slow network", "Leaking tap", "WiFi down"}, 4},
		{"category filter", Query{Category: CategoryNetwork}, []string{"Slow network", "WiFi down"}, 2},
		{"status filter", Query{Status: StatusClosed}, []string{"Broken bench"}, 1},
		{"search case-insensitive", Query{Search: "WIFI"}, []string{"Slow network", "WiFi down"}, 2},
		{"search all terms", Query{Search: "wifi hostel"}, []string{"WiFi down"}, 1},
		{"priority ascending ties newest", Query{Ordering: "priority"}, []string{"Broken bench", "Leaking tap", "Slow network", "WiFi down"}, 4},
		{"priority descending", Query{Ordering: "-priority"}, []string{"WiFi down", "Slow network", "Broken bench", "Leaking tap"}, 4},
		{"page size", Query{PageSize: 3, Page: 2}, []string{"WiFi down"}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := s.List(ctx, tt.q)
			if err != nil {
				t.Fatal(err)
			}
			if page.Count != tt.count {
				t.Errorf("Count = %d, want %d", page.Count, tt.count)
			}
			if len(page.Results) != len(tt.titles) {
				t.Fatalf("results = %d, want %d", len(page.Results), len(tt.titles))
			}
			for i, title := range tt.titles {
				if page.Results[i].Title != title {
					t.Errorf("results[%d] = %q, want %q", i, page.Results[i].Title, title)
				}
			}
		})
	}
}

func TestListInvalidPage(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	if _, err := s.List(ctx, Query{Page: 1}); err != nil {
		t.Fatalf("empty first page err = %v", err)
	}
	if _, err := s.List(ctx, Query{Page: 2}); !errors.Is(err, ErrInvalidPage) {
		t.Fatalf("err = %v, want ErrInvalidPage", err)
	}
	for _, q := range []Query{
		{Page: math.MaxInt},
		{Page: math.MaxInt/DefaultPageSize + 1},
		{Page: math.MaxInt/50 + 1, PageSize: 50},
	} {
		if _, err := s.List(ctx, q); !errors.Is(err, ErrInvalidPage) {
			t.Fatalf("List(%+v) err = %v, want ErrInvalidPage", q, err)
		}
	}
}

func TestUpdatePatchDelete(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	tk := seed(t, s, Input{Title: "Fan", Description: "Noisy", Category: CategoryClassroom, Priority: PriorityLow})[0]

	status := StatusClosed
	patched, err := s.Patch(ctx, tk.ID, Patch{Status: &status})
	if err != nil {
		t.Fatal(err)
	}
	if patched.Status != StatusClosed || patched.Title != "Fan" {
		t.Fatalf("patched = %+v", patched)
	}

	updated, err := s.Update(ctx, tk.ID, Input{Title: "Fan 2", Description: "Still noisy", Category: CategoryHostel, Priority: PriorityMedium})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != StatusClosed || updated.Category != CategoryHostel {
		t.Fatalf("updated = %+v", updated)
	}

	bad := "urgent"
	if _, err := s.Patch(ctx, tk.ID, Patch{Priority: &bad}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}

	if err := s.Delete(ctx, tk.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, tk.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, tk.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestPageLinks(t *testing.T) {
	p := Page{Count: 25, Page: 2, PageSize: 10}
	if !p.HasNext() || !p.HasPrevious() {
		t.Fatal("page 2 of 3 should have both links")
	}
	p.Page = 3
	if p.HasNext() {
		t.Fatal("last page has no next")
	}
}
