package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"revgeo/address"
	"revgeo/feature"
	"revgeo/geocoder"
	"revgeo/index"
	"revgeo/store"
	"revgeo/util"
)

func newTestGeocoder(t *testing.T) *geocoder.RevGeocoder {
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	util.AssertNil(t, err)
	util.AssertNil(t, s.Initialize())
	t.Cleanup(func() {
		util.AssertNil(t, s.Close())
	})

	blob, err := feature.EncodeCollection([]feature.Feature{{Geometry: orb.Point{10, 20}}})
	util.AssertNil(t, err)

	geographic := project.Point(orb.Point{10, 20}, project.Mercator.ToWGS84)
	cell := index.CellAt(geographic[0], geographic[1], 14)
	err = s.Exec(
		"INSERT INTO entities (id, quadindex, type, features, street, locality) VALUES (1, ?, ?, ?, 'Main Street', 'Springfield')",
		int64(cell), int(address.TypeStreet), blob,
	)
	util.AssertNil(t, err)

	g := geocoder.New()
	g.SetRadius(50)
	util.AssertTrue(t, g.Import(s))
	return g
}

func TestReverseEndpoint(t *testing.T) {
	router := InitRouter(newTestGeocoder(t))

	queryPoint := project.Point(orb.Point{10, 20}, project.Mercator.ToWGS84)
	request := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/reverse?lng=%f&lat=%f", queryPoint[0], queryPoint[1]), nil)
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, request)

	util.AssertEqual(t, http.StatusOK, recorder.Code)
	util.AssertEqual(t, "application/json", recorder.Header().Get("Content-Type"))

	var response []AddressResponse
	err := json.Unmarshal(recorder.Body.Bytes(), &response)
	util.AssertNil(t, err)

	util.AssertEqual(t, 1, len(response))
	util.AssertEqual(t, "street", response[0].Type)
	util.AssertEqual(t, "Main Street", response[0].Street)
	util.AssertEqual(t, "Springfield", response[0].Locality)
	util.AssertApprox(t, float32(1.0), response[0].Rank, 0.01)
	util.AssertApprox(t, queryPoint[0], response[0].Lng, 0.0001)
	util.AssertApprox(t, queryPoint[1], response[0].Lat, 0.0001)
}

func TestReverseEndpoint_noResults(t *testing.T) {
	router := InitRouter(newTestGeocoder(t))

	// Far away from the fixture entity.
	request := httptest.NewRequest(http.MethodGet, "/reverse?lng=100&lat=45", nil)
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, request)

	util.AssertEqual(t, http.StatusOK, recorder.Code)
	var response []AddressResponse
	err := json.Unmarshal(recorder.Body.Bytes(), &response)
	util.AssertNil(t, err)
	util.AssertEqual(t, 0, len(response))
}

func TestReverseEndpoint_badCoordinates(t *testing.T) {
	router := InitRouter(newTestGeocoder(t))

	for _, url := range []string{"/reverse", "/reverse?lng=abc&lat=1", "/reverse?lng=1"} {
		request := httptest.NewRequest(http.MethodGet, url, nil)
		recorder := httptest.NewRecorder()

		router.ServeHTTP(recorder, request)

		util.AssertEqual(t, http.StatusBadRequest, recorder.Code)
	}
}
