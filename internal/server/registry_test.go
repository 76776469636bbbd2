package server

import (
	"context"
	"errors"
	"testing"

	"github.com/plonkgame/plonk/internal/game"
	"github.com/plonkgame/plonk/internal/plonk"
	"github.com/plonkgame/plonk/internal/reference"
)

func testEngine(t *testing.T, id string) *game.Engine {
	t.Helper()
	items := []plonk.Item{{ID: "a", True: paris, Best: paris, Baseline: london}}
	table, err := reference.Build(context.Background(), items, mapSearcher{})
	if err != nil {
		t.Fatal(err)
	}
	e, err := game.NewEngine(id, items, table)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestRegistryEvictsOldest(t *testing.T) {
	reg, err := NewRegistry(2)
	if err != nil {
		t.Fatal(err)
	}
	reg.Add(testEngine(t, "s1"))
	reg.Add(testEngine(t, "s2"))

	// Touch s1 so s2 becomes the oldest.
	if _, err := reg.Get("s1"); err != nil {
		t.Fatal(err)
	}
	reg.Add(testEngine(t, "s3"))

	if reg.Len() != 2 {
		t.Errorf("Len = %d, want 2", reg.Len())
	}
	if _, err := reg.Get("s2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("s2: err = %v, want ErrNotFound", err)
	}
	for _, id := range []string{"s1", "s3"} {
		s, err := reg.Get(id)
		if err != nil || s.engine.ID() != id {
			t.Errorf("Get(%s) = %v, %v", id, s, err)
		}
	}
}

func TestNewSessionID(t *testing.T) {
	a, b := newSessionID(), newSessionID()
	if len(a) != 32 || a == b {
		t.Errorf("ids %q, %q", a, b)
	}
}
