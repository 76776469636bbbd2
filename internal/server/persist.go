package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/plonkgame/plonk/internal/game"
	"github.com/plonkgame/plonk/internal/metrics"
	"github.com/plonkgame/plonk/internal/plonk"
	"github.com/plonkgame/plonk/internal/reference"
	"github.com/plonkgame/plonk/internal/results"
)

// recorder fans session results out to the store, the flat files and the
// archive uploader. Persistence failures are logged and never fail the
// request; the in-memory session stays authoritative.
type recorder struct {
	logger   *slog.Logger
	store    SessionStore
	files    *results.FileRecorder
	archiver *results.Archiver
}

func (p *recorder) started(ctx context.Context, sessionID, fingerprint string) {
	if p.store == nil {
		return
	}
	if err := p.store.CreateSession(ctx, sessionID, fingerprint); err != nil {
		p.logger.Error("persisting session", "session", sessionID, "error", err)
	}
}

func (p *recorder) round(ctx context.Context, sessionID, itemID string, r game.Round) {
	if p.store != nil {
		if err := p.store.RecordRound(ctx, sessionID, itemID, r); err != nil {
			p.logger.Error("persisting round", "session", sessionID, "index", r.Index, "error", err)
		}
	}
	if p.files != nil {
		if err := p.files.RecordRound(sessionID, r); err != nil {
			p.logger.Error("writing round file", "session", sessionID, "index", r.Index, "error", err)
		}
	}
}

// summary returns one warning per failed step.
func (p *recorder) summary(ctx context.Context, sessionID string, sum game.Summary, times []float64) []string {
	var warnings []string
	if p.store != nil {
		if err := p.store.RecordSummary(ctx, sessionID, sum); err != nil {
			p.logger.Error("persisting summary", "session", sessionID, "error", err)
			warnings = append(warnings, "summary not saved")
		}
	}
	if p.files != nil {
		if err := p.files.RecordSummary(sessionID, sum, times); err != nil {
			p.logger.Error("writing summary file", "session", sessionID, "error", err)
			warnings = append(warnings, "summary file not written")
		}
	}
	if p.archiver != nil {
		if err := p.archiver.Archive(ctx, sessionID); err != nil {
			metrics.UploadFailures.Inc()
			if errors.Is(err, results.ErrUpload) {
				p.logger.Warn("results upload failed", "session", sessionID, "error", err)
			} else {
				p.logger.Error("archiving results", "session", sessionID, "error", err)
			}
			warnings = append(warnings, "results not uploaded")
		}
	}
	return warnings
}

// timedSearcher records geocoding latency.
type timedSearcher struct {
	next reference.Searcher
}

func (t timedSearcher) Search(ctx context.Context, coords []plonk.Coord) ([]plonk.Place, error) {
	if t.next == nil {
		return nil, errors.New("no geocoder configured")
	}
	start := time.Now()
	defer func() {
		metrics.GeocodeDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	}()
	return t.next.Search(ctx, coords)
}
