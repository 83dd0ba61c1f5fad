package projects

import (
	"errors"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)

	want := &Project{
		ID:   "valve_block",
		Name: "Valve Block",
		Sequence: []Step{
			{Label: "Fit base plate", Component: "base-plate"},
			{Label: "Mount solenoid", Component: "solenoid", Image: "step1.png"},
		},
	}
	if err := store.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load("valve_block")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Name != want.Name {
		t.Errorf("name = %q, want %q", got.Name, want.Name)
	}
	if len(got.Sequence) != 2 {
		t.Fatalf("sequence length = %d, want 2", len(got.Sequence))
	}
	if got.Sequence[1].Component != "solenoid" {
		t.Errorf("step component = %q, want solenoid", got.Sequence[1].Component)
	}
}

func TestLoadUnknownProject(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Load("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSequenceEmptyForUnknownProject(t *testing.T) {
	store := newTestStore(t)

	if seq := store.Sequence("gone"); len(seq) != 0 {
		t.Fatalf("expected empty sequence for unknown project, got %v", seq)
	}
}

func TestListCaseInsensitiveOrder(t *testing.T) {
	store := newTestStore(t)

	for _, id := range []string{"Zeta", "alpha", "Beta"} {
		if err := store.Save(&Project{ID: id, Name: id}); err != nil {
			t.Fatalf("Save %s: %v", id, err)
		}
	}

	items, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	got := make([]string, len(items))
	for i, p := range items {
		got[i] = p.ID
	}
	want := []string{"alpha", "Beta", "Zeta"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestSlug(t *testing.T) {
	if got := Slug("Nice Name"); got != "nice_name" {
		t.Errorf("Slug(Nice Name) = %q", got)
	}
	if got := Slug(""); len(got) != 6 {
		t.Errorf("empty name should produce a 6-char fallback, got %q", got)
	}
}
