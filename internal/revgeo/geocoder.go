// Package revgeo maps coordinates to the nearest populated place.
//
// Lookups go through a k-d tree over the cities table and an LRU cache keyed
// by the coordinate rounded to 1e-5 degrees (about a metre).
package revgeo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/plonkgame/plonk/internal/plonk"
)

// DefaultCacheSize is used when NewGeocoder is given a non-positive size.
const DefaultCacheSize = 4096

var ErrNoCities = errors.New("revgeo: empty cities table")

type Geocoder struct {
	cities []City
	root   *kdNode
	cache  *lru.Cache[string, plonk.Place]
}

func NewGeocoder(cities []City, cacheSize int) (*Geocoder, error) {
	if len(cities) == 0 {
		return nil, ErrNoCities
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, plonk.Place](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating geocode cache: %w", err)
	}

	es := make([]entry, len(cities))
	for i, c := range cities {
		es[i] = entry{p: toVec(c.Lat, c.Lon), idx: i}
	}

	return &Geocoder{
		cities: cities,
		root:   buildKD(es, 0),
		cache:  cache,
	}, nil
}

// Lookup returns the place nearest to c. Invalid coordinates map to an
// empty Place.
func (g *Geocoder) Lookup(c plonk.Coord) plonk.Place {
	if !c.Valid() {
		return plonk.Place{}
	}
	key := cacheKey(c)
	if p, ok := g.cache.Get(key); ok {
		return p
	}
	i := nearest(g.root, toVec(c.Lat, c.Lon))
	if i < 0 {
		return plonk.Place{}
	}
	p := g.cities[i].Place
	g.cache.Add(key, p)
	return p
}

// Search resolves a batch of coordinates; the result has the same length
// and order as coords.
func (g *Geocoder) Search(ctx context.Context, coords []plonk.Coord) ([]plonk.Place, error) {
	out := make([]plonk.Place, len(coords))
	for i, c := range coords {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		out[i] = g.Lookup(c)
	}
	return out, nil
}

func cacheKey(c plonk.Coord) string {
	return strconv.FormatFloat(math.Round(c.Lat*1e5)/1e5, 'f', 5, 64) + "," +
		strconv.FormatFloat(math.Round(c.Lon*1e5)/1e5, 'f', 5, 64)
}
