// Package plonk defines the core domain types shared by the game packages.
package plonk

import "math"

// Coord is a WGS84 position in degrees.
type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether both components are finite numbers.
func (c Coord) Valid() bool {
	return !math.IsNaN(c.Lat) && !math.IsNaN(c.Lon) &&
		!math.IsInf(c.Lat, 0) && !math.IsInf(c.Lon, 0)
}

// Item is one dataset row: a photograph, where it was taken and where the
// two reference models placed it.
type Item struct {
	ID       string `json:"id"`
	True     Coord  `json:"true"`
	Best     Coord  `json:"best"`
	Baseline Coord  `json:"baseline"`
}

// Place is a reverse-geocoding result. Empty fields are missing labels.
type Place struct {
	Name        string `json:"name"`
	Admin1      string `json:"admin1"`
	Admin2      string `json:"admin2"`
	CountryCode string `json:"cc"`
}

// Granularity is an administrative level at which two places are compared.
type Granularity int

const (
	City Granularity = iota
	Area
	Region
	Country
)

// Granularities lists every level in table order.
var Granularities = [...]Granularity{City, Area, Region, Country}

func (g Granularity) String() string {
	switch g {
	case City:
		return "city"
	case Area:
		return "area"
	case Region:
		return "region"
	case Country:
		return "country"
	}
	return "unknown"
}

// Labels holds one label per granularity, indexed by Granularity.
type Labels [4]string

// LabelsOf maps a Place onto the city/area/region/country levels.
func LabelsOf(p Place) Labels {
	return Labels{
		City:    p.Name,
		Area:    p.Admin2,
		Region:  p.Admin1,
		Country: p.CountryCode,
	}
}

// Valid reports whether the label at g is present.
func (l Labels) Valid(g Granularity) bool {
	return l[g] != ""
}

// Hit reports whether guess matches l at g. A missing true label is never hit.
func (l Labels) Hit(g Granularity, guess Labels) bool {
	return l.Valid(g) && guess[g] == l[g]
}

// Who identifies a row in a comparison table.
type Who string

const (
	WhoHuman    Who = "human"
	WhoBest     Who = "best"
	WhoBaseline Who = "baseline"
)
