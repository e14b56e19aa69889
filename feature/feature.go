// Package feature contains the binary feature-collection codec and the
// house-number interpolation used by the geocoder. Entities store their
// geometry as one encoded feature collection; the codec decodes it on demand
// through a caller supplied point converter, so the same blob can be decoded
// into different coordinate frames.
package feature

import (
	"encoding/binary"
	"math"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// PointConverter converts a decoded point into the coordinate frame the
// caller wants to work in. Converters compose: the store-local origin shift
// is applied before any caller supplied conversion.
type PointConverter func(point orb.Point) orb.Point

// Feature is one entry of a decoded feature collection. The geometry may be
// nil for features that only carry attributes.
type Feature struct {
	Geometry orb.Geometry
}

// Geometry kind markers in the encoded stream.
const (
	geometryNone       = 0
	geometryPoint      = 1
	geometryMultiPoint = 2
	geometryLineString = 3
	geometryPolygon    = 4
)

// Coordinates are quantized to centimeters before being varint-encoded.
const coordinatePrecision = 0.01

// EncodeCollection encodes the given features into the binary collection
// format. Coordinates are delta-encoded per feature as zigzag varints of
// centimeter units.
func EncodeCollection(features []Feature) ([]byte, error) {
	data := binary.AppendUvarint(nil, uint64(len(features)))

	for _, f := range features {
		encoder := coordinateEncoder{}

		switch geometry := f.Geometry.(type) {
		case nil:
			data = append(data, geometryNone)
		case orb.Point:
			data = append(data, geometryPoint)
			data = encoder.appendPoint(data, geometry)
		case orb.MultiPoint:
			data = append(data, geometryMultiPoint)
			data = encoder.appendPoints(data, geometry)
		case orb.LineString:
			data = append(data, geometryLineString)
			data = encoder.appendPoints(data, orb.MultiPoint(geometry))
		case orb.Polygon:
			data = append(data, geometryPolygon)
			data = binary.AppendUvarint(data, uint64(len(geometry)))
			for _, ring := range geometry {
				data = encoder.appendPoints(data, orb.MultiPoint(ring))
			}
		default:
			return nil, errors.Errorf("Unsupported geometry type '%s' in feature collection", geometry.GeoJSONType())
		}
	}

	return data, nil
}

// DecodeCollection decodes an encoded feature collection. The converter is
// applied to every decoded point and may be nil for no conversion.
func DecodeCollection(data []byte, converter PointConverter) ([]Feature, error) {
	stream := decodeStream{data: data}

	count, err := stream.readCount()
	if err != nil {
		return nil, errors.Wrap(err, "Unable to read feature count")
	}

	features := make([]Feature, 0, count)
	for i := 0; i < count; i++ {
		kind, err := stream.readByte()
		if err != nil {
			return nil, errors.Wrapf(err, "Unable to read geometry kind of feature %d", i)
		}

		decoder := coordinateDecoder{stream: &stream, converter: converter}

		var geometry orb.Geometry
		switch kind {
		case geometryNone:
			geometry = nil
		case geometryPoint:
			point, err := decoder.readPoint()
			if err != nil {
				return nil, errors.Wrapf(err, "Unable to decode point of feature %d", i)
			}
			geometry = point
		case geometryMultiPoint:
			points, err := decoder.readPoints()
			if err != nil {
				return nil, errors.Wrapf(err, "Unable to decode multipoint of feature %d", i)
			}
			geometry = orb.MultiPoint(points)
		case geometryLineString:
			points, err := decoder.readPoints()
			if err != nil {
				return nil, errors.Wrapf(err, "Unable to decode linestring of feature %d", i)
			}
			geometry = orb.LineString(points)
		case geometryPolygon:
			ringCount, err := stream.readCount()
			if err != nil {
				return nil, errors.Wrapf(err, "Unable to read ring count of feature %d", i)
			}
			polygon := make(orb.Polygon, 0, ringCount)
			for r := 0; r < ringCount; r++ {
				points, err := decoder.readPoints()
				if err != nil {
					return nil, errors.Wrapf(err, "Unable to decode ring %d of feature %d", r, i)
				}
				polygon = append(polygon, orb.Ring(points))
			}
			geometry = polygon
		default:
			return nil, errors.Errorf("Unknown geometry kind %d of feature %d", kind, i)
		}

		features = append(features, Feature{Geometry: geometry})
	}

	return features, nil
}

type decodeStream struct {
	data []byte
	pos  int
}

func (s *decodeStream) readByte() (byte, error) {
	if s.pos >= len(s.data) {
		return 0, errors.Errorf("Unexpected end of feature data at position %d", s.pos)
	}
	b := s.data[s.pos]
	s.pos++
	return b, nil
}

func (s *decodeStream) readCount() (int, error) {
	value, n := binary.Uvarint(s.data[s.pos:])
	if n <= 0 {
		return 0, errors.Errorf("Malformed varint at position %d", s.pos)
	}
	s.pos += n
	// Every counted element occupies at least one byte, so a count larger
	// than the remaining stream cannot come from a valid encoding.
	if value > uint64(len(s.data)-s.pos) {
		return 0, errors.Errorf("Implausible element count %d at position %d", value, s.pos)
	}
	return int(value), nil
}

func (s *decodeStream) readSigned() (int64, error) {
	value, n := binary.Varint(s.data[s.pos:])
	if n <= 0 {
		return 0, errors.Errorf("Malformed varint at position %d", s.pos)
	}
	s.pos += n
	return value, nil
}

// coordinateEncoder delta-encodes coordinates within one feature. The first
// point is stored absolute, all following points relative to their
// predecessor.
type coordinateEncoder struct {
	previousX int64
	previousY int64
}

func (e *coordinateEncoder) appendPoint(data []byte, point orb.Point) []byte {
	x := int64(math.Round(point[0] / coordinatePrecision))
	y := int64(math.Round(point[1] / coordinatePrecision))

	data = binary.AppendVarint(data, x-e.previousX)
	data = binary.AppendVarint(data, y-e.previousY)

	e.previousX = x
	e.previousY = y
	return data
}

func (e *coordinateEncoder) appendPoints(data []byte, points orb.MultiPoint) []byte {
	data = binary.AppendUvarint(data, uint64(len(points)))
	for _, point := range points {
		data = e.appendPoint(data, point)
	}
	return data
}

type coordinateDecoder struct {
	stream    *decodeStream
	converter PointConverter
	previousX int64
	previousY int64
}

func (d *coordinateDecoder) readPoint() (orb.Point, error) {
	deltaX, err := d.stream.readSigned()
	if err != nil {
		return orb.Point{}, err
	}
	deltaY, err := d.stream.readSigned()
	if err != nil {
		return orb.Point{}, err
	}

	d.previousX += deltaX
	d.previousY += deltaY

	point := orb.Point{
		float64(d.previousX) * coordinatePrecision,
		float64(d.previousY) * coordinatePrecision,
	}
	if d.converter != nil {
		point = d.converter(point)
	}
	return point, nil
}

func (d *coordinateDecoder) readPoints() ([]orb.Point, error) {
	count, err := d.stream.readCount()
	if err != nil {
		return nil, err
	}

	points := make([]orb.Point, 0, count)
	for i := 0; i < count; i++ {
		point, err := d.readPoint()
		if err != nil {
			return nil, err
		}
		points = append(points, point)
	}
	return points, nil
}
