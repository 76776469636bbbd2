// Package dataset loads the game's item list from CSV.
package dataset

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/plonkgame/plonk/internal/plonk"
)

// Required column names.
const (
	ColID          = "id"
	ColTrueLat     = "true_lat"
	ColTrueLon     = "true_lon"
	ColPredLat     = "pred_lat"
	ColPredLon     = "pred_lon"
	ColPredLatBase = "pred_lat_base"
	ColPredLonBase = "pred_lon_base"
)

var requiredColumns = []string{
	ColID, ColTrueLat, ColTrueLon, ColPredLat, ColPredLon, ColPredLatBase, ColPredLonBase,
}

// ErrEmpty is returned when the file has a header but no rows.
var ErrEmpty = errors.New("dataset has no rows")

// LoadError describes a malformed dataset. Line is 1-based and counts the
// header; it is 0 when the problem is not tied to a line.
type LoadError struct {
	Path   string
	Line   int
	Column string
	Err    error
}

func (e *LoadError) Error() string {
	var b strings.Builder
	b.WriteString("loading dataset")
	if e.Path != "" {
		fmt.Fprintf(&b, " %s", e.Path)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, " line %d", e.Line)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, " column %q", e.Column)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *LoadError) Unwrap() error { return e.Err }

// Dataset is the loaded item list plus a fingerprint of the source bytes.
type Dataset struct {
	Items       []plonk.Item
	Fingerprint string
}

// Load reads and parses the CSV file at path.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer f.Close()

	ds, err := Read(f)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Path = path
			return nil, le
		}
		return nil, &LoadError{Path: path, Err: err}
	}
	return ds, nil
}

// Read parses a dataset from r. Extra columns are ignored.
func Read(r io.Reader) (*Dataset, error) {
	h := sha256.New()
	cr := csv.NewReader(io.TeeReader(r, h))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &LoadError{Line: 1, Err: errors.New("missing header")}
	}
	if err != nil {
		return nil, &LoadError{Line: 1, Err: err}
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, &LoadError{Line: 1, Column: col, Err: errors.New("missing column")}
		}
	}

	var items []plonk.Item
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &LoadError{Line: line, Err: err}
		}

		it, err := parseRow(rec, idx, line)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if len(items) == 0 {
		return nil, &LoadError{Err: ErrEmpty}
	}

	return &Dataset{
		Items:       items,
		Fingerprint: hex.EncodeToString(h.Sum(nil)),
	}, nil
}

func parseRow(rec []string, idx map[string]int, line int) (plonk.Item, error) {
	field := func(col string) (string, error) {
		i := idx[col]
		if i >= len(rec) {
			return "", &LoadError{Line: line, Column: col, Err: errors.New("short row")}
		}
		return strings.TrimSpace(rec[i]), nil
	}

	coord := func(latCol, lonCol string) (plonk.Coord, error) {
		var c plonk.Coord
		var err error
		if c.Lat, err = number(field, latCol, line, 90); err != nil {
			return c, err
		}
		if c.Lon, err = number(field, lonCol, line, 180); err != nil {
			return c, err
		}
		return c, nil
	}

	id, err := field(ColID)
	if err != nil {
		return plonk.Item{}, err
	}
	if id == "" {
		return plonk.Item{}, &LoadError{Line: line, Column: ColID, Err: errors.New("empty id")}
	}

	it := plonk.Item{ID: id}
	if it.True, err = coord(ColTrueLat, ColTrueLon); err != nil {
		return it, err
	}
	if it.Best, err = coord(ColPredLat, ColPredLon); err != nil {
		return it, err
	}
	if it.Baseline, err = coord(ColPredLatBase, ColPredLonBase); err != nil {
		return it, err
	}
	return it, nil
}

func number(field func(string) (string, error), col string, line int, limit float64) (float64, error) {
	s, err := field(col)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &LoadError{Line: line, Column: col, Err: fmt.Errorf("not a number: %q", s)}
	}
	if !(v >= -limit && v <= limit) {
		return 0, &LoadError{Line: line, Column: col, Err: fmt.Errorf("out of range: %v", v)}
	}
	return v, nil
}
