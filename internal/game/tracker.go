package game

import (
	"fmt"
	"math"
	"time"

	"github.com/plonkgame/plonk/internal/plonk"
	"github.com/plonkgame/plonk/internal/reference"
)

// Round is one submitted guess.
type Round struct {
	Index          int         `json:"index"`
	ElapsedSeconds float64     `json:"elapsedSeconds"`
	Click          plonk.Coord `json:"click"`
	Score          float64     `json:"score"`
	Distance       float64     `json:"distance"`
	CountryHit     bool        `json:"countryHit"`
}

// Elapsed is ElapsedSeconds as a time.Duration.
func (r Round) Elapsed() time.Duration {
	return time.Duration(r.ElapsedSeconds * float64(time.Second))
}

// RoundTracker is the append-only log of a session's rounds.
type RoundTracker struct {
	rounds []Round
}

// Record appends r. Non-finite numbers are rejected with ErrInvalidCoordinate.
func (t *RoundTracker) Record(r Round) error {
	for _, v := range []float64{r.Click.Lat, r.Click.Lon, r.Score, r.Distance, r.ElapsedSeconds} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("recording round %d: %w", r.Index, ErrInvalidCoordinate)
		}
	}
	t.rounds = append(t.rounds, r)
	return nil
}

// Len is the number of recorded rounds.
func (t *RoundTracker) Len() int { return len(t.rounds) }

// Rounds returns a copy of the log.
func (t *RoundTracker) Rounds() []Round {
	return append([]Round(nil), t.rounds...)
}

// Times returns the elapsed seconds of every round in order.
func (t *RoundTracker) Times() []float64 {
	out := make([]float64, len(t.rounds))
	for i, r := range t.rounds {
		out[i] = r.ElapsedSeconds
	}
	return out
}

// AverageScore is the mean score, 0 for an empty log.
func (t *RoundTracker) AverageScore() float64 {
	return t.average(func(r Round) float64 { return r.Score })
}

// AverageDistance is the mean distance in km, 0 for an empty log.
func (t *RoundTracker) AverageDistance() float64 {
	return t.average(func(r Round) float64 { return r.Distance })
}

func (t *RoundTracker) average(field func(Round) float64) float64 {
	if len(t.rounds) == 0 {
		return 0
	}
	var sum float64
	for _, r := range t.rounds {
		sum += field(r)
	}
	return sum / float64(len(t.rounds))
}

// CountryHits counts rounds whose country matched.
func (t *RoundTracker) CountryHits() int {
	n := 0
	for _, r := range t.rounds {
		if r.CountryHit {
			n++
		}
	}
	return n
}

// CountryAccuracy is CountryHits / validCountryLabels, 0 when the
// denominator is 0.
func (t *RoundTracker) CountryAccuracy(validCountryLabels int) float64 {
	return reference.Ratio(t.CountryHits(), validCountryLabels)
}
