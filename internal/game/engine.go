// Package game runs a single playthrough: one guess per item, scored with
// geomath and compared against the reference models after every round.
//
// An Engine is not safe for concurrent use; callers serialize access.
package game

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/plonkgame/plonk/internal/geomath"
	"github.com/plonkgame/plonk/internal/plonk"
	"github.com/plonkgame/plonk/internal/reference"
)

type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
)

// ComparisonRow is one line of the per-round comparison table.
type ComparisonRow struct {
	Who             plonk.Who `json:"who"`
	GeoScore        float64   `json:"geoScore"`
	Distance        float64   `json:"distance"`
	CountryAccuracy float64   `json:"countryAccuracy"`
}

// SummaryRow is one line of the end-of-session table.
type SummaryRow struct {
	Who      plonk.Who  `json:"who"`
	GeoScore float64    `json:"geoScore"`
	Distance float64    `json:"distance"`
	Accuracy [4]float64 `json:"accuracy"` // indexed by plonk.Granularity
}

// Summary is the final table, always ordered human, best, baseline.
type Summary struct {
	Rounds int          `json:"rounds"`
	Rows   []SummaryRow `json:"rows"`
}

// Outcome is the result of a successful Submit.
type Outcome struct {
	Round      Round           `json:"round"`
	Comparison []ComparisonRow `json:"comparison"`
	Last       bool            `json:"last"`
}

// Snapshot is a serializable view of a session.
type Snapshot struct {
	SessionID       string    `json:"sessionId"`
	Status          Status    `json:"status"`
	Index           int       `json:"index"`
	Total           int       `json:"total"`
	Answered        bool      `json:"answered"`
	Rounds          []Round   `json:"rounds"`
	AverageScore    float64   `json:"averageScore"`
	AverageDistance float64   `json:"averageDistance"`
	Times           []float64 `json:"times"`
	Summary         *Summary  `json:"summary,omitempty"`
}

type Engine struct {
	id      string
	items   []plonk.Item
	table   *reference.Table
	now     func() time.Time
	tracker RoundTracker

	status   Status
	index    int
	answered bool
	shownAt  time.Time
	summary  *Summary
}

type Option func(*Engine)

// WithClock overrides time.Now, for elapsed-time measurement.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine starts a session over items; table must describe the same items
// in the same order.
func NewEngine(id string, items []plonk.Item, table *reference.Table, opts ...Option) (*Engine, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	if table == nil || table.Len() != len(items) {
		return nil, fmt.Errorf("reference table does not match %d items", len(items))
	}

	e := &Engine{
		id:     id,
		items:  items,
		table:  table,
		now:    time.Now,
		status: StatusNotStarted,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.status = StatusInProgress
	e.shownAt = e.now()
	return e, nil
}

func (e *Engine) ID() string     { return e.id }
func (e *Engine) Status() Status { return e.status }
func (e *Engine) Index() int     { return e.index }
func (e *Engine) Total() int     { return len(e.items) }
func (e *Engine) Answered() bool { return e.answered }

// Current returns the item being guessed.
func (e *Engine) Current() plonk.Item { return e.items[e.index] }

// IsLast reports whether the current item is the final one.
func (e *Engine) IsLast() bool { return e.index == len(e.items)-1 }

// Submit records the player's guess for the current item. countryCode is
// the ISO 3166-1 alpha-2 code of the clicked point as determined by the
// client; "" or "nan" means none.
func (e *Engine) Submit(clickLat, clickLon float64, countryCode string) (Outcome, error) {
	if e.status == StatusFinished {
		return Outcome{}, ErrFinished
	}
	if e.answered {
		return Outcome{}, ErrDuplicateSubmission
	}

	item := e.items[e.index]
	labels := e.table.Labels(e.index)

	distance := geomath.Distance(item.True.Lat, item.True.Lon, clickLat, clickLon)
	r := Round{
		Index:          e.index,
		ElapsedSeconds: e.now().Sub(e.shownAt).Seconds(),
		Click:          plonk.Coord{Lat: clickLat, Lon: clickLon},
		Score:          geomath.Score(distance),
		Distance:       distance,
		CountryHit:     countryHit(labels, countryCode),
	}
	if err := e.tracker.Record(r); err != nil {
		return Outcome{}, err
	}
	e.answered = true

	return Outcome{
		Round:      r,
		Comparison: e.comparison(),
		Last:       e.IsLast(),
	}, nil
}

func countryHit(labels plonk.Labels, code string) bool {
	code = strings.TrimSpace(code)
	if code == "" || strings.EqualFold(code, "nan") {
		return false
	}
	return labels.Valid(plonk.Country) && strings.EqualFold(code, labels[plonk.Country])
}

// comparison covers items [0, index] for all three rows.
func (e *Engine) comparison() []ComparisonRow {
	cum := e.table.Cumulative(e.index + 1)
	rows := []ComparisonRow{{
		Who:             plonk.WhoHuman,
		GeoScore:        e.tracker.AverageScore(),
		Distance:        e.tracker.AverageDistance(),
		CountryAccuracy: e.tracker.CountryAccuracy(cum.Valid[plonk.Country]),
	}}
	for _, who := range []plonk.Who{plonk.WhoBest, plonk.WhoBaseline} {
		s := cum.Of(who)
		rows = append(rows, ComparisonRow{
			Who:             who,
			GeoScore:        s.MeanScore,
			Distance:        s.MeanDistance,
			CountryAccuracy: s.Rate[plonk.Country],
		})
	}
	return rows
}

// Advance moves to the next item. It returns ErrOutOfRange on the last
// item and ErrNotAnswered before a guess; the session is unchanged in both
// cases.
func (e *Engine) Advance() error {
	if e.status == StatusFinished {
		return ErrFinished
	}
	if e.index+1 >= len(e.items) {
		return ErrOutOfRange
	}
	if !e.answered {
		return ErrNotAnswered
	}
	e.index++
	e.answered = false
	e.shownAt = e.now()
	return nil
}

// Finish ends the session and returns the final summary over the answered
// items. City, area and region accuracy for the player come from
// reverse-geocoding the clicks with geo; a nil geo leaves them at 0.
//
// If geocoding fails the session is still finished and the returned summary
// is usable; the error only reports the missing admin-level accuracy.
// Calling Finish again returns the stored summary.
func (e *Engine) Finish(ctx context.Context, geo reference.Searcher) (Summary, error) {
	if e.summary != nil {
		return *e.summary, nil
	}

	rounds := e.tracker.Rounds()
	n := len(rounds)
	cum := e.table.Cumulative(n)

	var hits [4]int
	hits[plonk.Country] = e.tracker.CountryHits()

	var geoErr error
	if geo != nil && n > 0 {
		clicks := make([]plonk.Coord, n)
		for i, r := range rounds {
			clicks[i] = r.Click
		}
		places, err := geo.Search(ctx, clicks)
		switch {
		case err != nil:
			geoErr = fmt.Errorf("geocoding clicks: %w", err)
		case len(places) != n:
			geoErr = fmt.Errorf("geocoding clicks: got %d places for %d points", len(places), n)
		default:
			for i, r := range rounds {
				want := e.table.Labels(r.Index)
				got := plonk.LabelsOf(places[i])
				for _, g := range []plonk.Granularity{plonk.City, plonk.Area, plonk.Region} {
					if want.Hit(g, got) {
						hits[g]++
					}
				}
			}
		}
	}

	human := SummaryRow{
		Who:      plonk.WhoHuman,
		GeoScore: e.tracker.AverageScore(),
		Distance: e.tracker.AverageDistance(),
	}
	for _, g := range plonk.Granularities {
		human.Accuracy[g] = reference.Ratio(hits[g], cum.Valid[g])
	}

	rows := []SummaryRow{human}
	for _, who := range []plonk.Who{plonk.WhoBest, plonk.WhoBaseline} {
		s := cum.Of(who)
		rows = append(rows, SummaryRow{
			Who:      who,
			GeoScore: s.MeanScore,
			Distance: s.MeanDistance,
			Accuracy: s.Rate,
		})
	}

	e.summary = &Summary{Rounds: n, Rows: rows}
	e.status = StatusFinished
	return *e.summary, geoErr
}

// Snapshot returns a copy of the session state.
func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{
		SessionID:       e.id,
		Status:          e.status,
		Index:           e.index,
		Total:           len(e.items),
		Answered:        e.answered,
		Rounds:          e.tracker.Rounds(),
		AverageScore:    e.tracker.AverageScore(),
		AverageDistance: e.tracker.AverageDistance(),
		Times:           e.tracker.Times(),
	}
	if s.Rounds == nil {
		s.Rounds = []Round{}
	}
	if e.summary != nil {
		sum := *e.summary
		s.Summary = &sum
	}
	return s
}
