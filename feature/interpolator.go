package feature

import (
	"strings"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"

	"revgeo/proj"
)

// HouseNumberResult is one synthetic address produced by interpolation: the
// house-number label and the features (here always a single point feature)
// representing its position.
type HouseNumberResult struct {
	Label    string
	Features []Feature
}

// EnumerateHouseNumbers expands a house-number specification into one
// labelled point per house number, placed along the entity's geometry.
//
// The specification is a pipe-separated list of labels ("2|4|6"). Positions
// are derived from the decoded features: when a multipoint with exactly one
// point per label exists, its points are used verbatim; otherwise the labels
// are spread evenly along the first line geometry. A lone point geometry is
// used for all labels.
func EnumerateHouseNumbers(spec string, features []Feature) ([]HouseNumberResult, error) {
	labels := strings.Split(spec, "|")
	if spec == "" || len(labels) == 0 {
		return nil, errors.Errorf("Empty house-number specification")
	}

	positions, err := houseNumberPositions(labels, features)
	if err != nil {
		return nil, err
	}

	results := make([]HouseNumberResult, 0, len(labels))
	for i, label := range labels {
		results = append(results, HouseNumberResult{
			Label:    label,
			Features: []Feature{{Geometry: positions[i]}},
		})
	}
	return results, nil
}

func houseNumberPositions(labels []string, features []Feature) ([]orb.Point, error) {
	// A multipoint matching the label count pins every house number exactly.
	for _, f := range features {
		if multiPoint, ok := f.Geometry.(orb.MultiPoint); ok && len(multiPoint) == len(labels) {
			return multiPoint, nil
		}
	}

	for _, f := range features {
		if line, ok := f.Geometry.(orb.LineString); ok && len(line) > 0 {
			return spreadAlongLine(line, len(labels)), nil
		}
	}

	for _, f := range features {
		if point, ok := f.Geometry.(orb.Point); ok {
			positions := make([]orb.Point, len(labels))
			for i := range positions {
				positions[i] = point
			}
			return positions, nil
		}
	}

	return nil, errors.Errorf("No feature geometry to interpolate %d house numbers on", len(labels))
}

func spreadAlongLine(line orb.LineString, count int) []orb.Point {
	positions := make([]orb.Point, count)
	if count == 1 {
		positions[0] = proj.PointAlongLine(line, 0.5)
		return positions
	}

	for i := 0; i < count; i++ {
		positions[i] = proj.PointAlongLine(line, float64(i)/float64(count-1))
	}
	return positions
}
