// Package index implements the quad index proximity search of the geocoder.
// Entities are grouped into quad cells (see CellKey); the search descends
// the cell hierarchy, prunes cells that cannot contain anything within the
// search radius and resolves the surviving cells through a loader callback
// so that geometry is only decoded for cells that can actually match.
package index

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/project"

	"revgeo/proj"
)

// PointConverter converts a point into the coordinate frame the search works
// in. It is handed through to the loader so decoded geometry arrives in a
// query independent frame and stays cacheable.
type PointConverter func(point orb.Point) orb.Point

// GeometryInfo is the decoded geometry of one encoded entity key. The
// geometry is a possibly empty collection in global projected meters.
type GeometryInfo struct {
	Key      uint64
	Geometry orb.Collection
}

// Result is one entity within the search radius.
type Result struct {
	Key      uint64
	Distance float64
}

// Loader resolves a batch of quad cell keys into decoded geometry. Errors
// fail the whole search, no partial results are returned.
type Loader func(quadIndices []uint64, converter PointConverter) ([]GeometryInfo, error)

// QuadIndex performs proximity searches through a loader callback. It is
// constructed per query.
type QuadIndex struct {
	loader Loader
}

func NewQuadIndex(loader Loader) *QuadIndex {
	return &QuadIndex{loader: loader}
}

// FindGeometries returns every entity within radius meters around the given
// coordinate, at most one result per key (the minimum distance wins when a
// geometry spans multiple cells). Results keep the traversal order of the
// loader output.
func (q *QuadIndex) FindGeometries(lng float64, lat float64, radius float64) ([]Result, error) {
	if radius <= 0 {
		return nil, nil
	}

	queryPoint := project.Point(orb.Point{lng, lat}, project.WGS84.ToMercator)
	scale := proj.MercatorScale(lat)

	batch := q.collectCells(queryPoint, scale, radius)
	if len(batch) == 0 {
		return nil, nil
	}

	identity := func(point orb.Point) orb.Point { return point }
	geomInfos, err := q.loader(batch, identity)
	if err != nil {
		return nil, err
	}

	var results []Result
	resultIndex := map[uint64]int{}
	for _, geomInfo := range geomInfos {
		if len(geomInfo.Geometry) == 0 {
			continue
		}

		distance := planar.DistanceFrom(geomInfo.Geometry, queryPoint) * scale
		if distance > radius {
			continue
		}

		if i, ok := resultIndex[geomInfo.Key]; ok {
			if distance < results[i].Distance {
				results[i].Distance = distance
			}
			continue
		}

		resultIndex[geomInfo.Key] = len(results)
		results = append(results, Result{Key: geomInfo.Key, Distance: distance})
	}

	return results, nil
}

// collectCells walks the cell hierarchy from the root down to MaxLevel and
// keeps every cell whose extent is within radius of the query point. The
// children of a pruned cell are never visited.
func (q *QuadIndex) collectCells(queryPoint orb.Point, scale float64, radius float64) []uint64 {
	var batch []uint64

	cells := []CellKey{NewCellKey(0, 0, 0)}
	for level := 0; level <= MaxLevel && len(cells) > 0; level++ {
		var kept []CellKey
		for _, cell := range cells {
			if cellDistance(cell, queryPoint)*scale > radius {
				continue
			}
			kept = append(kept, cell)
			batch = append(batch, uint64(cell))
		}

		if level == MaxLevel {
			break
		}

		cells = cells[:0]
		for _, cell := range kept {
			children := cell.Children()
			cells = append(cells, children[:]...)
		}
	}

	return batch
}

// cellDistance returns the projected distance from the query point to the
// extent of the cell, 0 when the point lies inside it.
func cellDistance(cell CellKey, queryPoint orb.Point) float64 {
	bound := cell.Bound()

	// The poles project to infinity, clamp before converting.
	minPoint := project.Point(orb.Point{bound.Min[0], math.Max(bound.Min[1], -89.9999)}, project.WGS84.ToMercator)
	maxPoint := project.Point(orb.Point{bound.Max[0], math.Min(bound.Max[1], 89.9999)}, project.WGS84.ToMercator)

	return proj.DistanceToBound(orb.Bound{Min: minPoint, Max: maxPoint}, queryPoint)
}
