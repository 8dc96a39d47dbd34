package gesture

import (
	"github.com/kwv/strokemesh/trajectory"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Feature roles, stored in each feature's "role" property.
const (
	RoleStroke     = "stroke"
	RoleNormalized = "normalized"
	RoleKeyPoint   = "keypoint"
)

// FeaturesGeoJSON describes a stroke's extracted features as GeoJSON:
//   - the raw stroke as a LineString
//   - the normalized key-point path as a LineString carrying the turn count,
//     headings, relative angles and direction description
//   - one Point per key point (in input coordinates) with its index and the
//     direction of the segment leaving it
func FeaturesGeoJSON(points []trajectory.Point, opts trajectory.KeyPointOptions) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	f := trajectory.ExtractFeatures(points, opts)

	stroke := geojson.NewFeature(trajectory.LineString(points))
	stroke.Properties["role"] = RoleStroke
	stroke.Properties["pointCount"] = len(points)
	stroke.Properties["pathLength"] = trajectory.PathLength(points)
	fc.Append(stroke)

	normalized := geojson.NewFeature(trajectory.LineString(f.Normalized))
	normalized.Properties["role"] = RoleNormalized
	normalized.Properties["turnCount"] = f.TurnCount
	normalized.Properties["directions"] = f.Directions
	normalized.Properties["relativeAngles"] = f.RelativeAngles
	normalized.Properties["description"] = trajectory.Describe(points, opts)
	fc.Append(normalized)

	for i, kp := range f.KeyPoints {
		feature := geojson.NewFeature(orb.Point{kp.X, kp.Y})
		feature.Properties["role"] = RoleKeyPoint
		feature.Properties["index"] = i
		if i < len(f.Directions) {
			feature.Properties["direction"] = string(trajectory.DirectionLabel(f.Directions[i]))
		}
		fc.Append(feature)
	}

	return fc
}
