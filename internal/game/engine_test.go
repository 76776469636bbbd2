package game

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/plonkgame/plonk/internal/geomath"
	"github.com/plonkgame/plonk/internal/plonk"
	"github.com/plonkgame/plonk/internal/reference"
)

var (
	paris  = plonk.Coord{Lat: 48.8566, Lon: 2.3522}
	london = plonk.Coord{Lat: 51.5074, Lon: -0.1278}
	tokyo  = plonk.Coord{Lat: 35.6762, Lon: 139.6503}
	sydney = plonk.Coord{Lat: -33.8688, Lon: 151.2093}
)

var places = map[plonk.Coord]plonk.Place{
	paris:  {Name: "Paris", Admin1: "Ile-de-France", Admin2: "Paris", CountryCode: "FR"},
	london: {Name: "London", Admin1: "England", Admin2: "Greater London", CountryCode: "GB"},
	tokyo:  {Name: "Tokyo", Admin1: "Tokyo", Admin2: "Tokyo", CountryCode: "JP"},
	sydney: {Name: "Sydney", Admin1: "New South Wales", Admin2: "Sydney", CountryCode: "AU"},
}

type mapSearcher struct {
	err error
}

func (m mapSearcher) Search(_ context.Context, coords []plonk.Coord) ([]plonk.Place, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]plonk.Place, len(coords))
	for i, c := range coords {
		out[i] = places[c]
	}
	return out, nil
}

func testItems() []plonk.Item {
	return []plonk.Item{
		{ID: "1", True: paris, Best: paris, Baseline: london},
		{ID: "2", True: tokyo, Best: tokyo, Baseline: sydney},
		{ID: "3", True: sydney, Best: tokyo, Baseline: sydney},
	}
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestEngine(t *testing.T) (*Engine, *fakeClock) {
	t.Helper()
	items := testItems()
	table, err := reference.Build(context.Background(), items, mapSearcher{})
	if err != nil {
		t.Fatalf("building table: %v", err)
	}
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	e, err := NewEngine("s1", items, table, WithClock(clock.now))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e, clock
}

func TestNewEngine(t *testing.T) {
	e, _ := newTestEngine(t)
	if e.Status() != StatusInProgress {
		t.Errorf("status = %q, want in_progress", e.Status())
	}
	if e.Index() != 0 || e.Total() != 3 || e.Answered() {
		t.Errorf("index=%d total=%d answered=%v", e.Index(), e.Total(), e.Answered())
	}

	if _, err := NewEngine("x", nil, nil); !errors.Is(err, ErrNoItems) {
		t.Errorf("no items: err = %v, want ErrNoItems", err)
	}
	table := reference.FromEntries(nil)
	if _, err := NewEngine("x", testItems(), table); err == nil {
		t.Error("mismatched table accepted")
	}
}

func TestPerfectGame(t *testing.T) {
	e, clock := newTestEngine(t)
	codes := []string{"FR", "jp", "AU"}

	for i, it := range testItems() {
		clock.t = clock.t.Add(time.Duration(i+1) * time.Second)
		out, err := e.Submit(it.True.Lat, it.True.Lon, codes[i])
		if err != nil {
			t.Fatalf("round %d: Submit: %v", i, err)
		}
		if out.Round.Score != geomath.MaxScore || out.Round.Distance != 0 || !out.Round.CountryHit {
			t.Errorf("round %d: %+v", i, out.Round)
		}
		if out.Round.ElapsedSeconds != float64(i+1) || out.Round.Elapsed() != time.Duration(i+1)*time.Second {
			t.Errorf("round %d: elapsed = %v", i, out.Round.ElapsedSeconds)
		}
		if out.Last != (i == 2) {
			t.Errorf("round %d: Last = %v", i, out.Last)
		}
		human := out.Comparison[0]
		if human.Who != plonk.WhoHuman || human.GeoScore != 5000 || human.CountryAccuracy != 1 {
			t.Errorf("round %d: human row = %+v", i, human)
		}

		if i < 2 {
			if err := e.Advance(); err != nil {
				t.Fatalf("round %d: Advance: %v", i, err)
			}
		}
	}

	sum, err := e.Finish(context.Background(), mapSearcher{})
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if e.Status() != StatusFinished {
		t.Errorf("status = %q, want finished", e.Status())
	}
	if sum.Rounds != 3 || len(sum.Rows) != 3 {
		t.Fatalf("summary = %+v", sum)
	}
	h := sum.Rows[0]
	if h.GeoScore != 5000 || h.Distance != 0 {
		t.Errorf("human averages = %v / %v", h.GeoScore, h.Distance)
	}
	if h.Accuracy != [4]float64{1, 1, 1, 1} {
		t.Errorf("human accuracy = %v, want all 1", h.Accuracy)
	}

	best := sum.Rows[1]
	if best.Who != plonk.WhoBest || math.Abs(best.Accuracy[plonk.Country]-2.0/3) > 1e-12 {
		t.Errorf("best row = %+v", best)
	}
	base := sum.Rows[2]
	if base.Who != plonk.WhoBaseline || math.Abs(base.Accuracy[plonk.Country]-1.0/3) > 1e-12 {
		t.Errorf("baseline row = %+v", base)
	}

	snap := e.Snapshot()
	if len(snap.Times) != 3 || snap.Times[2] != 3 {
		t.Errorf("times = %v", snap.Times)
	}
	if snap.Summary == nil || snap.Summary.Rounds != 3 {
		t.Errorf("snapshot summary = %+v", snap.Summary)
	}
}

func TestDuplicateSubmitIsNoOp(t *testing.T) {
	e, _ := newTestEngine(t)
	if _, err := e.Submit(london.Lat, london.Lon, "GB"); err != nil {
		t.Fatal(err)
	}
	before := e.Snapshot()

	_, err := e.Submit(paris.Lat, paris.Lon, "FR")
	if !errors.Is(err, ErrDuplicateSubmission) {
		t.Fatalf("err = %v, want ErrDuplicateSubmission", err)
	}
	after := e.Snapshot()
	if len(after.Rounds) != 1 || after.Rounds[0] != before.Rounds[0] {
		t.Errorf("round log changed: %+v", after.Rounds)
	}
}

func TestAdvance(t *testing.T) {
	e, _ := newTestEngine(t)

	if err := e.Advance(); !errors.Is(err, ErrNotAnswered) {
		t.Fatalf("advance before guess: err = %v, want ErrNotAnswered", err)
	}
	if e.Index() != 0 {
		t.Fatalf("index moved to %d", e.Index())
	}

	for i := 0; i < 3; i++ {
		if _, err := e.Submit(0, 0, ""); err != nil {
			t.Fatal(err)
		}
		err := e.Advance()
		if i < 2 && err != nil {
			t.Fatalf("Advance %d: %v", i, err)
		}
		if i == 2 && !errors.Is(err, ErrOutOfRange) {
			t.Fatalf("Advance at last item: err = %v, want ErrOutOfRange", err)
		}
	}
	if e.Index() != 2 {
		t.Errorf("index = %d, want 2", e.Index())
	}
}

func TestSubmitComparisonUsesInclusivePrefix(t *testing.T) {
	e, _ := newTestEngine(t)

	// Item 0: best is exact, baseline is London.
	out, err := e.Submit(london.Lat, london.Lon, "GB")
	if err != nil {
		t.Fatal(err)
	}
	best, base := out.Comparison[1], out.Comparison[2]
	if best.GeoScore != 5000 || best.CountryAccuracy != 1 {
		t.Errorf("best row = %+v, want the item 0 result included", best)
	}
	if base.CountryAccuracy != 0 {
		t.Errorf("baseline row = %+v", base)
	}
	human := out.Comparison[0]
	if human.CountryAccuracy != 0 || human.Distance != base.Distance {
		t.Errorf("human row = %+v, baseline = %+v", human, base)
	}
}

func TestCountryHit(t *testing.T) {
	labels := plonk.Labels{plonk.Country: "FR"}
	tests := []struct {
		code string
		want bool
	}{
		{"FR", true},
		{"fr", true},
		{" FR ", true},
		{"DE", false},
		{"", false},
		{"nan", false},
	}
	for _, tt := range tests {
		if got := countryHit(labels, tt.code); got != tt.want {
			t.Errorf("countryHit(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
	if countryHit(plonk.Labels{}, "nan") || countryHit(plonk.Labels{}, "") {
		t.Error("missing country label matched")
	}
}

func TestSubmitRejectsNonFinite(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.Submit(math.NaN(), 2, "FR")
	if !errors.Is(err, ErrInvalidCoordinate) {
		t.Fatalf("err = %v, want ErrInvalidCoordinate", err)
	}
	if e.Answered() {
		t.Error("rejected guess marked the item answered")
	}
	if _, err := e.Submit(paris.Lat, paris.Lon, "FR"); err != nil {
		t.Errorf("retry after rejected guess: %v", err)
	}
}

func TestFinishEarly(t *testing.T) {
	e, _ := newTestEngine(t)
	if _, err := e.Submit(tokyo.Lat, tokyo.Lon, "JP"); err != nil {
		t.Fatal(err)
	}

	sum, err := e.Finish(context.Background(), mapSearcher{})
	if err != nil {
		t.Fatal(err)
	}
	if sum.Rounds != 1 {
		t.Fatalf("rounds = %d, want 1", sum.Rounds)
	}
	// Only item 0 counts, and Tokyo is not Paris.
	if sum.Rows[0].Accuracy != [4]float64{} {
		t.Errorf("human accuracy = %v, want zeros", sum.Rows[0].Accuracy)
	}
	if sum.Rows[1].Accuracy != [4]float64{1, 1, 1, 1} {
		t.Errorf("best accuracy over item 0 = %v", sum.Rows[1].Accuracy)
	}

	if _, err := e.Submit(0, 0, ""); !errors.Is(err, ErrFinished) {
		t.Errorf("submit after finish: err = %v", err)
	}
	if err := e.Advance(); !errors.Is(err, ErrFinished) {
		t.Errorf("advance after finish: err = %v", err)
	}

	again, err := e.Finish(context.Background(), nil)
	if err != nil || again.Rounds != sum.Rounds || again.Rows[0] != sum.Rows[0] {
		t.Errorf("second Finish = %+v, %v", again, err)
	}
}

func TestFinishWithoutRounds(t *testing.T) {
	e, _ := newTestEngine(t)
	sum, err := e.Finish(context.Background(), mapSearcher{})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range sum.Rows {
		if r.GeoScore != 0 || r.Distance != 0 || r.Accuracy != [4]float64{} {
			t.Errorf("row %s = %+v, want zeros", r.Who, r)
		}
	}
}

func TestFinishGeocodeFailure(t *testing.T) {
	e, _ := newTestEngine(t)
	if _, err := e.Submit(paris.Lat, paris.Lon, "FR"); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("geocoder down")
	sum, err := e.Finish(context.Background(), mapSearcher{err: boom})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want geocoder error", err)
	}
	if e.Status() != StatusFinished {
		t.Error("session not finished after geocode failure")
	}
	want := [4]float64{0, 0, 0, 1}
	if sum.Rows[0].Accuracy != want {
		t.Errorf("human accuracy = %v, want %v", sum.Rows[0].Accuracy, want)
	}
}
