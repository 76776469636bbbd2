// Package reference builds the per-item accuracy table of the two
// reference models (best and baseline) that players are compared against.
//
// Row i of the table summarises items [0, i): the row at index 0 is always
// zero, and Cumulative(i+1) is the first view that includes item i.
package reference

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/plonkgame/plonk/internal/geomath"
	"github.com/plonkgame/plonk/internal/plonk"
)

// Searcher reverse-geocodes a batch of coordinates, preserving order.
type Searcher interface {
	Search(ctx context.Context, coords []plonk.Coord) ([]plonk.Place, error)
}

// Prediction is one model's outcome on one item.
type Prediction struct {
	Distance float64 `json:"distance"`
	Score    float64 `json:"score"`
	Hits     [4]bool `json:"hits"`
}

// Entry is the per-item raw material of the table. Entries are what gets
// persisted; cumulative rows are derived from them.
type Entry struct {
	ID       string       `json:"id"`
	Labels   plonk.Labels `json:"labels"`
	Best     Prediction   `json:"best"`
	Baseline Prediction   `json:"baseline"`
}

// Stats are one predictor's cumulative results over a prefix of items.
type Stats struct {
	Hits         [4]int     `json:"hits"`
	Rate         [4]float64 `json:"rate"`
	MeanScore    float64    `json:"meanScore"`
	MeanDistance float64    `json:"meanDistance"`
}

// AccuracyRow summarises items [0, Index).
type AccuracyRow struct {
	Index    int    `json:"index"`
	Valid    [4]int `json:"valid"`
	Best     Stats  `json:"best"`
	Baseline Stats  `json:"baseline"`
}

// Of returns the stats for the best or baseline predictor.
func (r AccuracyRow) Of(who plonk.Who) Stats {
	if who == plonk.WhoBaseline {
		return r.Baseline
	}
	return r.Best
}

// Table is immutable once built.
type Table struct {
	entries []Entry
	cum     []AccuracyRow // len(entries)+1
}

// Build geocodes the true and predicted coordinates of items and derives the
// table. The three geocoding batches run concurrently.
func Build(ctx context.Context, items []plonk.Item, geo Searcher) (*Table, error) {
	n := len(items)
	truth := make([]plonk.Coord, n)
	best := make([]plonk.Coord, n)
	base := make([]plonk.Coord, n)
	for i, it := range items {
		truth[i], best[i], base[i] = it.True, it.Best, it.Baseline
	}

	var truePlaces, bestPlaces, basePlaces []plonk.Place
	g, gctx := errgroup.WithContext(ctx)
	search := func(dst *[]plonk.Place, coords []plonk.Coord, what string) {
		g.Go(func() error {
			places, err := geo.Search(gctx, coords)
			if err != nil {
				return fmt.Errorf("geocoding %s coordinates: %w", what, err)
			}
			if len(places) != len(coords) {
				return fmt.Errorf("geocoding %s coordinates: got %d places for %d points", what, len(places), len(coords))
			}
			*dst = places
			return nil
		})
	}
	search(&truePlaces, truth, "true")
	search(&bestPlaces, best, "best")
	search(&basePlaces, base, "baseline")
	if err := g.Wait(); err != nil {
		return nil, err
	}

	entries := make([]Entry, n)
	for i, it := range items {
		labels := plonk.LabelsOf(truePlaces[i])
		entries[i] = Entry{
			ID:       it.ID,
			Labels:   labels,
			Best:     predict(it.True, it.Best, labels, plonk.LabelsOf(bestPlaces[i])),
			Baseline: predict(it.True, it.Baseline, labels, plonk.LabelsOf(basePlaces[i])),
		}
	}
	return FromEntries(entries), nil
}

func predict(truth, guess plonk.Coord, want, got plonk.Labels) Prediction {
	d := geomath.Distance(truth.Lat, truth.Lon, guess.Lat, guess.Lon)
	p := Prediction{Distance: d, Score: geomath.Score(d)}
	for _, g := range plonk.Granularities {
		p.Hits[g] = want.Hit(g, got)
	}
	return p
}

// FromEntries derives the cumulative rows from per-item entries in order.
func FromEntries(entries []Entry) *Table {
	cum := make([]AccuracyRow, len(entries)+1)

	var valid [4]int
	var best, base running
	for i := 0; i <= len(entries); i++ {
		cum[i] = AccuracyRow{
			Index:    i,
			Valid:    valid,
			Best:     best.stats(valid, i),
			Baseline: base.stats(valid, i),
		}
		if i == len(entries) {
			break
		}
		e := entries[i]
		for _, g := range plonk.Granularities {
			if e.Labels.Valid(g) {
				valid[g]++
			}
		}
		best.add(e.Best)
		base.add(e.Baseline)
	}

	return &Table{entries: entries, cum: cum}
}

type running struct {
	hits     [4]int
	score    float64
	distance float64
}

func (r *running) add(p Prediction) {
	for g, hit := range p.Hits {
		if hit {
			r.hits[g]++
		}
	}
	r.score += p.Score
	r.distance += p.Distance
}

func (r *running) stats(valid [4]int, n int) Stats {
	s := Stats{Hits: r.hits}
	for g := range s.Rate {
		s.Rate[g] = Ratio(r.hits[g], valid[g])
	}
	if n > 0 {
		s.MeanScore = r.score / float64(n)
		s.MeanDistance = r.distance / float64(n)
	}
	return s
}

// Ratio is num/den, or 0 when den is 0.
func Ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// Len is the number of items.
func (t *Table) Len() int { return len(t.entries) }

// Entries returns a copy of the per-item entries.
func (t *Table) Entries() []Entry {
	return append([]Entry(nil), t.entries...)
}

// Entry returns item i's entry.
func (t *Table) Entry(i int) Entry { return t.entries[i] }

// Labels returns item i's true administrative labels.
func (t *Table) Labels(i int) plonk.Labels { return t.entries[i].Labels }

// Rows returns one row per item; row i summarises items [0, i).
func (t *Table) Rows() []AccuracyRow {
	return append([]AccuracyRow(nil), t.cum[:len(t.entries)]...)
}

// Cumulative summarises items [0, i) for 0 <= i <= Len(). Values of i
// outside that range are clamped.
func (t *Table) Cumulative(i int) AccuracyRow {
	if i < 0 {
		i = 0
	}
	if i > len(t.entries) {
		i = len(t.entries)
	}
	return t.cum[i]
}
