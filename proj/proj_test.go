package proj

import (
	"testing"

	"github.com/paulmach/orb"

	"revgeo/util"
)

func TestMetersPerDegree(t *testing.T) {
	atEquator := MetersPerDegree(0)
	util.AssertApprox(t, 111319.5, atEquator[0], 1.0)
	util.AssertApprox(t, 111319.5, atEquator[1], 1.0)

	atSixty := MetersPerDegree(60)
	util.AssertApprox(t, 111319.5*0.5, atSixty[0], 1.0)
	util.AssertApprox(t, 111319.5, atSixty[1], 1.0)
}

func TestMercatorScale(t *testing.T) {
	util.AssertApprox(t, 1.0, MercatorScale(0), 0.0001)
	util.AssertApprox(t, 0.5, MercatorScale(60), 0.0001)
}

func TestNearestPointOnBound(t *testing.T) {
	bound := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 10}}

	// Inside stays put
	util.AssertEqual(t, orb.Point{5, 5}, NearestPointOnBound(bound, orb.Point{5, 5}))
	// Left of the bound
	util.AssertEqual(t, orb.Point{0, 5}, NearestPointOnBound(bound, orb.Point{-3, 5}))
	// Above and right
	util.AssertEqual(t, orb.Point{10, 10}, NearestPointOnBound(bound, orb.Point{20, 30}))
}

func TestDistanceToBound(t *testing.T) {
	bound := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 10}}

	util.AssertApprox(t, 0.0, DistanceToBound(bound, orb.Point{5, 5}), 0.0001)
	util.AssertApprox(t, 5.0, DistanceToBound(bound, orb.Point{15, 5}), 0.0001)
	util.AssertApprox(t, 5.0, DistanceToBound(bound, orb.Point{13, 14}), 0.0001)
}

func TestPointAlongLine(t *testing.T) {
	line := orb.LineString{{0, 0}, {10, 0}, {10, 10}}

	util.AssertEqual(t, orb.Point{0, 0}, PointAlongLine(line, 0))
	util.AssertEqual(t, orb.Point{10, 10}, PointAlongLine(line, 1))

	half := PointAlongLine(line, 0.5)
	util.AssertApprox(t, 10.0, half[0], 0.0001)
	util.AssertApprox(t, 0.0, half[1], 0.0001)

	threeQuarters := PointAlongLine(line, 0.75)
	util.AssertApprox(t, 10.0, threeQuarters[0], 0.0001)
	util.AssertApprox(t, 5.0, threeQuarters[1], 0.0001)
}

func TestPointAlongLine_degenerate(t *testing.T) {
	util.AssertEqual(t, orb.Point{}, PointAlongLine(orb.LineString{}, 0.5))
	util.AssertEqual(t, orb.Point{3, 4}, PointAlongLine(orb.LineString{{3, 4}}, 0.5))
	util.AssertEqual(t, orb.Point{1, 1}, PointAlongLine(orb.LineString{{1, 1}, {2, 2}}, -0.5))
	util.AssertEqual(t, orb.Point{2, 2}, PointAlongLine(orb.LineString{{1, 1}, {2, 2}}, 1.5))
}
