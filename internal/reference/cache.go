package reference

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/plonkgame/plonk/internal/plonk"
)

// Repository persists table entries keyed by a dataset fingerprint.
type Repository interface {
	ReferenceEntries(ctx context.Context, fingerprint string) ([]Entry, bool, error)
	SaveReferenceEntries(ctx context.Context, fingerprint string, entries []Entry) error
}

// LoadOrBuild returns the stored table for fingerprint, building and storing
// it only when none is stored.
func LoadOrBuild(ctx context.Context, logger *slog.Logger, repo Repository, fingerprint string, items []plonk.Item, geo Searcher) (*Table, error) {
	entries, ok, err := repo.ReferenceEntries(ctx, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("loading reference table: %w", err)
	}
	if ok && len(entries) == len(items) {
		logger.Info("reference table loaded", "fingerprint", fingerprint, "items", len(entries))
		return FromEntries(entries), nil
	}
	if ok {
		logger.Warn("stored reference table does not match dataset, rebuilding",
			"fingerprint", fingerprint, "stored", len(entries), "items", len(items))
	}

	logger.Info("computing reference table", "items", len(items))
	start := time.Now()
	t, err := Build(ctx, items, geo)
	if err != nil {
		return nil, err
	}
	if err := repo.SaveReferenceEntries(ctx, fingerprint, t.Entries()); err != nil {
		return nil, fmt.Errorf("saving reference table: %w", err)
	}
	logger.Info("reference table stored",
		"fingerprint", fingerprint,
		"items", t.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return t, nil
}
