// Package address defines the address taxonomy and materializes language
// specific addresses from a geocoding store.
package address

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"

	"revgeo/feature"
	"revgeo/store"
)

// Type classifies an address entity.
type Type int

const (
	TypeNone Type = iota
	TypeCountry
	TypeRegion
	TypeCounty
	TypeLocality
	TypeNeighbourhood
	TypeBlock
	TypeStreet
	TypeHouseNumber
	TypePOI
)

var typeNames = map[Type]string{
	TypeNone:          "none",
	TypeCountry:       "country",
	TypeRegion:        "region",
	TypeCounty:        "county",
	TypeLocality:      "locality",
	TypeNeighbourhood: "neighbourhood",
	TypeBlock:         "block",
	TypeStreet:        "street",
	TypeHouseNumber:   "housenumber",
	TypePOI:           "poi",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// ParseType returns the Type for its textual name.
func ParseType(name string) (Type, error) {
	for t, typeName := range typeNames {
		if typeName == name {
			return t, nil
		}
	}
	return TypeNone, errors.Errorf("Unknown address type '%s'", name)
}

// BuildTypeFilter returns the SQL predicate restricting entity rows to the
// given types.
func BuildTypeFilter(types []Type) string {
	values := make([]string, 0, len(types))
	for _, t := range types {
		values = append(values, strconv.Itoa(int(t)))
	}
	return "type IN (" + strings.Join(values, ",") + ")"
}

// Address is the materialized, language specific representation of one
// encoded entity key. Position is in global projected meters.
type Address struct {
	Type          Type
	Country       string
	Region        string
	County        string
	Locality      string
	Neighbourhood string
	Street        string
	Postcode      string
	HouseNumber   string
	Name          string
	Position      orb.Point
}

// LoadFromStore materializes the address behind an encoded entity key. The
// lower 32 bits name the entity row, a non-zero upper half selects the n-th
// (1-based) interpolated house number. The converter shifts decoded
// coordinates into the global frame (the store-local origin correction) and
// the language selects name overrides from the names table; an empty
// language keeps the base columns.
func LoadFromStore(s *store.Store, encodedKey uint64, language string, converter feature.PointConverter) (Address, error) {
	entityId := uint32(encodedKey)
	elevatedIndex := int(encodedKey >> 32)

	details, err := s.GetEntity(entityId)
	if err != nil {
		return Address{}, err
	}

	address := Address{
		Type:          Type(details.Type),
		Country:       details.Country,
		Region:        details.Region,
		County:        details.County,
		Locality:      details.Locality,
		Neighbourhood: details.Neighbourhood,
		Street:        details.Street,
		Postcode:      details.Postcode,
		Name:          details.Name,
	}

	if language != "" {
		overrides, err := s.NameOverrides(entityId, language)
		if err != nil {
			return Address{}, err
		}
		applyOverrides(&address, overrides)
	}

	features, err := feature.DecodeCollection(details.Features, converter)
	if err != nil {
		return Address{}, errors.Wrapf(err, "Unable to decode features of entity %d", entityId)
	}

	if elevatedIndex > 0 {
		if details.HouseNumbers == nil {
			return Address{}, errors.Errorf("Entity %d has no house numbers but key %d selects one", entityId, encodedKey)
		}
		results, err := feature.EnumerateHouseNumbers(*details.HouseNumbers, features)
		if err != nil {
			return Address{}, errors.Wrapf(err, "Unable to interpolate house numbers of entity %d", entityId)
		}
		if elevatedIndex > len(results) {
			return Address{}, errors.Errorf("Entity %d has %d house numbers but key %d selects number %d", entityId, len(results), encodedKey, elevatedIndex)
		}

		result := results[elevatedIndex-1]
		address.Type = TypeHouseNumber
		address.HouseNumber = result.Label
		address.Position = anchorPoint(result.Features)
		return address, nil
	}

	address.Position = anchorPoint(features)
	return address, nil
}

// anchorPoint picks the representative position of a feature list: the first
// coordinate of the first non-nil geometry.
func anchorPoint(features []feature.Feature) orb.Point {
	for _, f := range features {
		switch geometry := f.Geometry.(type) {
		case orb.Point:
			return geometry
		case orb.MultiPoint:
			if len(geometry) > 0 {
				return geometry[0]
			}
		case orb.LineString:
			if len(geometry) > 0 {
				return geometry[0]
			}
		case orb.Polygon:
			if len(geometry) > 0 && len(geometry[0]) > 0 {
				return geometry[0][0]
			}
		}
	}
	return orb.Point{}
}

func applyOverrides(address *Address, overrides map[string]string) {
	for field, value := range overrides {
		switch field {
		case "country":
			address.Country = value
		case "region":
			address.Region = value
		case "county":
			address.County = value
		case "locality":
			address.Locality = value
		case "neighbourhood":
			address.Neighbourhood = value
		case "street":
			address.Street = value
		case "postcode":
			address.Postcode = value
		case "name":
			address.Name = value
		}
	}
}
