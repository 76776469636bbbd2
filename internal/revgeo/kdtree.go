package revgeo

import (
	"math"
	"sort"
)

// Points are indexed as unit vectors so that Euclidean chord length orders
// neighbours exactly like great-circle distance, with no seam at ±180°.
type vec [3]float64

func toVec(lat, lon float64) vec {
	φ := lat * math.Pi / 180
	λ := lon * math.Pi / 180
	return vec{math.Cos(φ) * math.Cos(λ), math.Cos(φ) * math.Sin(λ), math.Sin(φ)}
}

func dist2(a, b vec) float64 {
	dx, dy, dz := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return dx*dx + dy*dy + dz*dz
}

type kdNode struct {
	p     vec
	idx   int
	axis  int
	left  *kdNode
	right *kdNode
}

type entry struct {
	p   vec
	idx int
}

func buildKD(es []entry, depth int) *kdNode {
	if len(es) == 0 {
		return nil
	}
	axis := depth % 3
	sort.Slice(es, func(i, j int) bool { return es[i].p[axis] < es[j].p[axis] })
	mid := len(es) / 2
	return &kdNode{
		p:     es[mid].p,
		idx:   es[mid].idx,
		axis:  axis,
		left:  buildKD(es[:mid], depth+1),
		right: buildKD(es[mid+1:], depth+1),
	}
}

// nearest returns the index of the closest point to q, or -1 for an empty tree.
func nearest(root *kdNode, q vec) int {
	best := -1
	bestD := math.MaxFloat64

	var walk func(n *kdNode)
	walk = func(n *kdNode) {
		if n == nil {
			return
		}
		if d := dist2(n.p, q); d < bestD {
			bestD = d
			best = n.idx
		}
		diff := q[n.axis] - n.p[n.axis]
		first, second := n.left, n.right
		if diff > 0 {
			first, second = n.right, n.left
		}
		walk(first)
		if diff*diff < bestD {
			walk(second)
		}
	}
	walk(root)
	return best
}
