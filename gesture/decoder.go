package gesture

import (
	"bytes"
	"compress/zlib"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/kwv/strokemesh/trajectory"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// MaxInflatedBytes bounds the decompressed size of a zlib stroke payload.
const MaxInflatedBytes = 4 << 20

// ErrPayloadTooLarge is returned when a compressed payload inflates past
// MaxInflatedBytes.
var ErrPayloadTooLarge = errors.New("decompressed payload too large")

// DecodeStroke decodes a stroke payload from any of the accepted formats:
//   - JSON array of {"x": .., "y": ..} objects
//   - JSON array of [x, y] pairs (the two forms may be mixed)
//   - JSON envelope {"id": "..", "points": [...]}
//   - GeoJSON LineString or MultiPoint, bare or wrapped in a Feature
//   - zlib-compressed bytes of any of the above
func DecodeStroke(data []byte) (*Stroke, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty data")
	}

	if data[0] != '[' && data[0] != '{' {
		inflated, err := inflateZlib(data)
		if errors.Is(err, ErrPayloadTooLarge) {
			return nil, err
		}
		if err != nil {
			return nil, fmt.Errorf("unknown format: not JSON or zlib-compressed JSON")
		}
		data = bytes.TrimSpace(inflated)
		if len(data) == 0 {
			return nil, fmt.Errorf("decompressed payload is empty")
		}
	}

	switch data[0] {
	case '[':
		points, err := parsePoints(data)
		if err != nil {
			return nil, err
		}
		return &Stroke{Points: points}, nil
	case '{':
		return parseObject(data)
	default:
		return nil, fmt.Errorf("unknown format: payload is not a JSON array or object")
	}
}

// DecodeStrokeFile reads and decodes a stroke file
func DecodeStrokeFile(path string) (*Stroke, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return DecodeStroke(data)
}

func parseObject(data []byte) (*Stroke, error) {
	var probe struct {
		Type   string          `json:"type"`
		ID     json.RawMessage `json:"id"`
		Points json.RawMessage `json:"points"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parsing stroke JSON: %w", err)
	}

	switch probe.Type {
	case "":
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("parsing GeoJSON feature: %w", err)
		}
		points, err := geometryPoints(f.Geometry)
		if err != nil {
			return nil, err
		}
		id, _ := f.ID.(string)
		return &Stroke{ID: id, Points: points}, nil
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("parsing GeoJSON geometry: %w", err)
		}
		points, err := geometryPoints(g.Geometry())
		if err != nil {
			return nil, err
		}
		return &Stroke{Points: points}, nil
	}

	if len(probe.Points) == 0 {
		return nil, fmt.Errorf("stroke envelope has no points field")
	}
	var id string
	if len(probe.ID) > 0 {
		if err := json.Unmarshal(probe.ID, &id); err != nil {
			return nil, fmt.Errorf("stroke id must be a string: %w", err)
		}
	}
	points, err := parsePoints(probe.Points)
	if err != nil {
		return nil, err
	}
	return &Stroke{ID: id, Points: points}, nil
}

// parsePoints decodes a JSON array whose elements are point objects or
// coordinate pairs.
func parsePoints(data []byte) ([]trajectory.Point, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing points: %w", err)
	}

	points := make([]trajectory.Point, 0, len(raw))
	for i, elem := range raw {
		elem = bytes.TrimSpace(elem)
		if len(elem) == 0 {
			return nil, fmt.Errorf("points[%d]: empty element", i)
		}
		switch elem[0] {
		case '{':
			var p trajectory.Point
			if err := json.Unmarshal(elem, &p); err != nil {
				return nil, fmt.Errorf("points[%d]: %w", i, err)
			}
			points = append(points, p)
		case '[':
			var pair []float64
			if err := json.Unmarshal(elem, &pair); err != nil {
				return nil, fmt.Errorf("points[%d]: %w", i, err)
			}
			if len(pair) != 2 {
				return nil, fmt.Errorf("points[%d]: want [x, y], got %d values", i, len(pair))
			}
			points = append(points, trajectory.Point{X: pair[0], Y: pair[1]})
		default:
			return nil, fmt.Errorf("points[%d]: expected object or pair", i)
		}
	}
	return points, nil
}

func geometryPoints(g orb.Geometry) ([]trajectory.Point, error) {
	var src []orb.Point
	switch geom := g.(type) {
	case orb.LineString:
		src = geom
	case orb.MultiPoint:
		src = geom
	default:
		if g == nil {
			return nil, fmt.Errorf("GeoJSON stroke has no geometry")
		}
		return nil, fmt.Errorf("unsupported GeoJSON geometry %s, want LineString or MultiPoint", g.GeoJSONType())
	}

	points := make([]trajectory.Point, len(src))
	for i, p := range src {
		points[i] = trajectory.FromOrb(p)
	}
	return points, nil
}

// inflateZlib decompresses zlib-compressed data, failing once the output
// grows past MaxInflatedBytes.
func inflateZlib(data []byte) ([]byte, error) {
	reader, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating zlib reader: %w", err)
	}
	defer func() { _ = reader.Close() }()

	decompressed, err := io.ReadAll(io.LimitReader(reader, MaxInflatedBytes+1))
	if err != nil {
		return nil, fmt.Errorf("decompressing zlib data: %w", err)
	}
	if len(decompressed) > MaxInflatedBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrPayloadTooLarge, MaxInflatedBytes)
	}

	return decompressed, nil
}
