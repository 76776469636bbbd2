package revgeo

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/plonkgame/plonk/internal/plonk"
)

// City is one populated place in the lookup table.
type City struct {
	Lat   float64
	Lon   float64
	Place plonk.Place
}

// LoadCities reads a cities file with columns lat,lon,name,admin1,admin2,cc.
// A header row is detected and skipped.
func LoadCities(path string) ([]City, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening cities file: %w", err)
	}
	defer f.Close()

	cities, err := ReadCities(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return cities, nil
}

// ReadCities parses cities from r.
func ReadCities(r io.Reader) ([]City, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var cities []City
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(rec) < 6 {
			return nil, fmt.Errorf("line %d: want 6 fields, got %d", line, len(rec))
		}

		lat, errLat := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
		lon, errLon := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if errLat != nil || errLon != nil {
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("line %d: bad coordinate %q,%q", line, rec[0], rec[1])
		}

		cities = append(cities, City{
			Lat: lat,
			Lon: lon,
			Place: plonk.Place{
				Name:        label(rec[2]),
				Admin1:      label(rec[3]),
				Admin2:      label(rec[4]),
				CountryCode: label(rec[5]),
			},
		})
	}
	return cities, nil
}

// label normalises the spellings of a missing value to "".
func label(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "nan", "null", "none":
		return ""
	}
	return s
}
