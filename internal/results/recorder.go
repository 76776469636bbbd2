// Package results writes finished rounds and sessions to disk and ships the
// archived session directory to an Uploader.
package results

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/plonkgame/plonk/internal/game"
	"github.com/plonkgame/plonk/internal/plonk"
)

// SummaryFile is the name of the end-of-session file.
const SummaryFile = "full.txt"

// FileRecorder writes one directory per session under Root.
type FileRecorder struct {
	Root string
}

func NewFileRecorder(root string) *FileRecorder {
	return &FileRecorder{Root: root}
}

// Dir is the directory holding sessionID's files.
func (f *FileRecorder) Dir(sessionID string) string {
	return filepath.Join(f.Root, sessionID)
}

// RoundFile is the file name for the round at index: the 1-based index
// zero-padded to two digits.
func RoundFile(index int) string {
	return fmt.Sprintf("%02d.txt", index+1)
}

// RecordRound writes "score, distance, lat, lon, elapsed" for r.
func (f *FileRecorder) RecordRound(sessionID string, r game.Round) error {
	dir := f.Dir(sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating results dir: %w", err)
	}
	line := strings.Join([]string{
		formatFloat(r.Score),
		formatFloat(r.Distance),
		formatFloat(r.Click.Lat),
		formatFloat(r.Click.Lon),
		formatFloat(r.ElapsedSeconds),
	}, ", ") + "\n"
	if err := os.WriteFile(filepath.Join(dir, RoundFile(r.Index)), []byte(line), 0o644); err != nil {
		return fmt.Errorf("writing round %d: %w", r.Index, err)
	}
	return nil
}

// RecordSummary writes the final table followed by the Times line.
func (f *FileRecorder) RecordSummary(sessionID string, sum game.Summary, times []float64) error {
	dir := f.Dir(sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating results dir: %w", err)
	}

	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprint(tw, "who\tGeoScore\tDistance")
	for _, g := range plonk.Granularities {
		fmt.Fprintf(tw, "\t%s", g)
	}
	fmt.Fprintln(tw)
	for _, row := range sum.Rows {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f", row.Who, row.GeoScore, row.Distance)
		for _, g := range plonk.Granularities {
			fmt.Fprintf(tw, "\t%.2f", row.Accuracy[g])
		}
		fmt.Fprintln(tw)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	ts := make([]string, len(times))
	for i, t := range times {
		ts[i] = formatFloat(t)
	}
	b.WriteString("Times: " + strings.Join(ts, ", ") + "\n")

	if err := os.WriteFile(filepath.Join(dir, SummaryFile), []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
