// Package geocoder implements the reverse geocoding engine: a registry of
// imported geocoding databases, process wide query configuration, two LRU
// caches and the point query orchestration on top of the quad index search.
package geocoder

import (
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"

	"revgeo/address"
	"revgeo/feature"
	"revgeo/index"
	"revgeo/proj"
	"revgeo/store"
)

const (
	// DefaultRadius is the search radius in meters used until SetRadius is
	// called.
	DefaultRadius = 100.0

	queryCacheSize   = 64
	addressCacheSize = 512
)

// Database is one imported geocoding database. The ID is assigned
// sequentially at import time and prefixes all cache keys referencing this
// database. Origin is the store-local offset in projected meters, Bounds the
// optional geographic extent in degrees used for cheap pre-filtering.
type Database struct {
	ID     string
	Store  *store.Store
	Bounds *orb.Bound
	Origin orb.Point
}

// RankedAddress is one query result: an address and its proximity rank in
// (0, 1], 1 meaning coincident with the query point.
type RankedAddress struct {
	Address address.Address
	Rank    float32
}

// RevGeocoder answers "what addresses are near this coordinate" queries
// against the imported databases. All state is guarded by a single mutex,
// queries against one instance are serialized. The mutex is taken by the
// exported methods only, every unexported helper expects it to be held.
type RevGeocoder struct {
	mutex sync.Mutex

	databases      []Database
	radius         float64
	language       string
	enabledFilters []address.Type

	queryCache   *lruCache[[]index.GeometryInfo]
	addressCache *lruCache[address.Address]

	entityDecodeCounter         int
	previousEntityDecodeCounter int
}

func New() *RevGeocoder {
	return &RevGeocoder{
		radius:       DefaultRadius,
		queryCache:   newLruCache[[]index.GeometryInfo](queryCacheSize),
		addressCache: newLruCache[address.Address](addressCacheSize),
	}
}

// Import registers a geocoding store under the next sequential database id.
// Missing or unparseable origin/bounds metadata degrades to an origin of
// (0,0) and no bounds instead of failing the import. Returns false only when
// the store handle itself is unusable.
func (g *RevGeocoder) Import(s *store.Store) bool {
	if s == nil {
		return false
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	database := Database{
		ID:     "db" + strconv.Itoa(len(g.databases)),
		Store:  s,
		Bounds: readBounds(s),
		Origin: readOrigin(s),
	}
	g.databases = append(g.databases, database)

	sigolo.Infof("Imported geocoding database %s from %s", database.ID, s.Path())
	return true
}

func (g *RevGeocoder) Radius() float64 {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return g.radius
}

func (g *RevGeocoder) SetRadius(radius float64) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.radius = radius
}

func (g *RevGeocoder) Language() string {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return g.language
}

// SetLanguage sets the language addresses are materialized in. Addresses are
// language specific text, so the address cache is cleared; decoded geometry
// is language independent and stays cached.
func (g *RevGeocoder) SetLanguage(language string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.language = language
	g.addressCache.clear()
}

func (g *RevGeocoder) IsFilterEnabled(addressType address.Type) bool {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	for _, t := range g.enabledFilters {
		if t == addressType {
			return true
		}
	}
	return false
}

// SetFilterEnabled adds or removes an address type from the filter set. With
// a non-empty filter set only entities of the enabled types are returned.
func (g *RevGeocoder) SetFilterEnabled(addressType address.Type, enabled bool) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	for i, t := range g.enabledFilters {
		if t == addressType {
			if !enabled {
				g.enabledFilters = append(g.enabledFilters[:i], g.enabledFilters[i+1:]...)
			}
			return
		}
	}
	if enabled {
		g.enabledFilters = append(g.enabledFilters, addressType)
	}
}

// FreshDecodeCount returns how many entity rows were decoded (not served
// from the geometry cache) for the most recent database searched. A zero
// delta after a repeated query means it was answered from cache entirely.
func (g *RevGeocoder) FreshDecodeCount() int {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return g.entityDecodeCounter - g.previousEntityDecodeCounter
}

// FindAddresses returns the ranked addresses within the configured radius
// around the given coordinate. Results keep the index traversal order per
// database, databases in import order; no rank sorting happens.
func (g *RevGeocoder) FindAddresses(lng float64, lat float64) ([]RankedAddress, error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	var addresses []RankedAddress
	for _, database := range g.databases {
		if database.Bounds != nil && g.boundsDistance(*database.Bounds, lng, lat) > g.radius {
			sigolo.Tracef("Database %s is out of range of lng=%f, lat=%f", database.ID, lng, lat)
			continue
		}

		g.previousEntityDecodeCounter = g.entityDecodeCounter

		quadIndex := index.NewQuadIndex(func(quadIndices []uint64, converter index.PointConverter) ([]index.GeometryInfo, error) {
			return g.findGeometryInfo(database, quadIndices, converter)
		})
		results, err := quadIndex.FindGeometries(lng, lat, g.radius)
		if err != nil {
			return nil, errors.Wrapf(err, "Unable to search database %s", database.ID)
		}

		for _, result := range results {
			rank := 1.0 - float32(result.Distance/g.radius)
			if rank <= 0 {
				continue
			}

			resolvedAddress, err := g.loadAddress(database, result.Key)
			if err != nil {
				return nil, err
			}
			addresses = append(addresses, RankedAddress{Address: resolvedAddress, Rank: rank})
		}
	}

	return addresses, nil
}

// boundsDistance is the cheap pre-filter: the distance in meters from the
// query point to the database bounds, using the local meters-per-degree
// scale at the query point.
func (g *RevGeocoder) boundsDistance(bounds orb.Bound, lng float64, lat float64) float64 {
	metersPerDegree := proj.MetersPerDegree(lat)
	nearest := proj.NearestPointOnBound(bounds, orb.Point{lng, lat})
	return math.Hypot((nearest[0]-lng)*metersPerDegree[0], (nearest[1]-lat)*metersPerDegree[1])
}

// findGeometryInfo resolves a batch of quad cell keys into decoded geometry
// for one database. The full SQL text doubles as the geometry cache key, so
// a different filter set or cell batch naturally produces a different cache
// entry. A malformed feature blob or house-number spec fails the whole
// query.
func (g *RevGeocoder) findGeometryInfo(database Database, quadIndices []uint64, converter index.PointConverter) ([]index.GeometryInfo, error) {
	var sqlBuilder strings.Builder
	sqlBuilder.WriteString("SELECT id, features, housenumbers FROM entities WHERE quadindex IN (")
	for i, quadIndex := range quadIndices {
		if i > 0 {
			sqlBuilder.WriteString(",")
		}
		sqlBuilder.WriteString(strconv.FormatUint(quadIndex, 10))
	}
	sqlBuilder.WriteString(")")
	if len(g.enabledFilters) > 0 {
		sqlBuilder.WriteString(" AND (" + address.BuildTypeFilter(g.enabledFilters) + ")")
	}
	sqlText := sqlBuilder.String()

	queryKey := database.ID + "_" + sqlText
	if geomInfos, ok := g.queryCache.read(queryKey); ok {
		sigolo.Tracef("Geometry cache hit for database %s", database.ID)
		return geomInfos, nil
	}

	rows, err := database.Store.QueryEntities(sqlText)
	if err != nil {
		return nil, err
	}

	// Origin shift first, caller conversion second.
	origin := database.Origin
	decodeConverter := func(point orb.Point) orb.Point {
		return converter(orb.Point{point[0] + origin[0], point[1] + origin[1]})
	}

	geomInfos := make([]index.GeometryInfo, 0, len(rows))
	for _, row := range rows {
		features, err := feature.DecodeCollection(row.Features, decodeConverter)
		if err != nil {
			return nil, errors.Wrapf(err, "Unable to decode features of entity %d in database %s", row.ID, database.ID)
		}
		g.entityDecodeCounter++

		if row.HouseNumbers != nil {
			houseNumbers, err := feature.EnumerateHouseNumbers(*row.HouseNumbers, features)
			if err != nil {
				return nil, errors.Wrapf(err, "Unable to interpolate house numbers of entity %d in database %s", row.ID, database.ID)
			}
			for i, houseNumber := range houseNumbers {
				geomInfos = append(geomInfos, index.GeometryInfo{
					Key:      uint64(i+1)<<32 | uint64(row.ID),
					Geometry: collectGeometries(houseNumber.Features),
				})
			}
		} else {
			geomInfos = append(geomInfos, index.GeometryInfo{
				Key:      uint64(row.ID),
				Geometry: collectGeometries(features),
			})
		}
	}

	g.queryCache.put(queryKey, geomInfos)
	return geomInfos, nil
}

// loadAddress materializes the address behind an encoded entity key, served
// from the address cache when possible.
func (g *RevGeocoder) loadAddress(database Database, encodedKey uint64) (address.Address, error) {
	addressKey := database.ID + "_" + strconv.FormatUint(encodedKey, 10)
	if cachedAddress, ok := g.addressCache.read(addressKey); ok {
		return cachedAddress, nil
	}

	origin := database.Origin
	loadedAddress, err := address.LoadFromStore(database.Store, encodedKey, g.language, func(point orb.Point) orb.Point {
		return orb.Point{point[0] + origin[0], point[1] + origin[1]}
	})
	if err != nil {
		return address.Address{}, errors.Wrapf(err, "Unable to materialize address %d from database %s", encodedKey, database.ID)
	}

	g.addressCache.put(addressKey, loadedAddress)
	return loadedAddress, nil
}

// collectGeometries gathers the non-empty geometries of a feature list into
// one multi-geometry.
func collectGeometries(features []feature.Feature) orb.Collection {
	var geometries orb.Collection
	for _, f := range features {
		if f.Geometry != nil {
			geometries = append(geometries, f.Geometry)
		}
	}
	return geometries
}

// readOrigin parses the "origin" metadata value (two comma separated
// numbers). Missing or malformed values degrade to (0,0).
func readOrigin(s *store.Store) orb.Point {
	values, ok := readMetadataNumbers(s, "origin", 2)
	if !ok {
		return orb.Point{}
	}
	return orb.Point{values[0], values[1]}
}

// readBounds parses the "bounds" metadata value (minLng,minLat,maxLng,maxLat
// in degrees). Missing or malformed values disable pre-filtering for the
// database.
func readBounds(s *store.Store) *orb.Bound {
	values, ok := readMetadataNumbers(s, "bounds", 4)
	if !ok {
		return nil
	}
	return &orb.Bound{
		Min: orb.Point{values[0], values[1]},
		Max: orb.Point{values[2], values[3]},
	}
}

func readMetadataNumbers(s *store.Store, name string, count int) ([]float64, bool) {
	value, ok, err := s.Metadata(name)
	if err != nil {
		sigolo.Warnf("Unable to read metadata key '%s', using defaults: %+v", name, err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	parts := strings.Split(value, ",")
	if len(parts) != count {
		sigolo.Warnf("Metadata key '%s' has %d values instead of %d, using defaults", name, len(parts), count)
		return nil, false
	}

	values := make([]float64, count)
	for i, part := range parts {
		values[i], err = strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			sigolo.Warnf("Metadata key '%s' has a malformed number '%s', using defaults", name, part)
			return nil, false
		}
	}
	return values, true
}
