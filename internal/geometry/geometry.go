// Package geometry implements pure, side-effect-free measurements over a
// per-request building drawing: plot area, extension depth, building
// height, and the full set of derivable dimensions. Coordinates are
// assumed to be in millimeters, matching the convention of the drawing
// tool that produces them; figures are converted to meters/square meters
// on output.
package geometry

import "math"

// Point is a single drawing coordinate in millimeters. Z is present only
// on 3-D geometry (an extrusion height or a true 3-D vertex); most
// drawing elements are flat and leave it at zero.
type Point struct {
	X float64
	Y float64
	Z float64
}

// Polyline is one drawn element: a named layer plus its vertex list.
// Type mirrors the drawing tool's element kind (e.g. "POLYLINE").
type Polyline struct {
	Type   string
	Layer  string
	Points []Point
	Closed bool
}

// Object is a single non-polyline drawing element, carrying free-form
// properties such as "height" or "area".
type Object struct {
	Type       string
	Properties map[string]any
}

// Drawing is the normalized in-memory form of the per-request drawing,
// built from either the array-of-elements or object-with-properties wire
// shapes the client may send.
type Drawing struct {
	Polylines []Polyline
	Objects   []Object
}

// Measurement is the result of a single dimension calculation. When
// Determinable is false, the value is not meaningful and callers must use
// the sentinel text "not determinable" rather than Value.
type Measurement struct {
	Value        float64
	Determinable bool
}

const notDeterminableText = "not determinable"

// NotDeterminableText is the sentinel string reported for measurements
// that cannot be computed from the supplied drawing.
func NotDeterminableText() string { return notDeterminableText }

// firstByLayer returns the first polyline on the given layer, if any.
func firstByLayer(polys []Polyline, layer string) (Polyline, bool) {
	for _, p := range polys {
		if p.Layer == layer {
			return p, true
		}
	}
	return Polyline{}, false
}

// byLayer returns all polylines on the given layer, in drawing order.
func byLayer(polys []Polyline, layer string) []Polyline {
	var out []Polyline
	for _, p := range polys {
		if p.Layer == layer {
			out = append(out, p)
		}
	}
	return out
}

// shoelaceArea computes the absolute area enclosed by a polygon using the
// shoelace formula. Degenerate polygons (fewer than 3 points) return 0.
// The result is invariant under cyclic rotation of the point list.
func shoelaceArea(points []Point) float64 {
	n := len(points)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += points[i].X*points[j].Y - points[j].X*points[i].Y
	}
	return math.Abs(sum) / 2
}

// PlotArea returns the area in square meters of the "Plot Boundary"
// polyline. When multiple "Plot Boundary" polylines are present, the one
// with the largest absolute shoelace area is used. Coordinates are in
// millimeters, so the raw shoelace result (mm^2) is divided by 1e6.
func PlotArea(d Drawing) Measurement {
	candidates := byLayer(d.Polylines, "Plot Boundary")
	if len(candidates) == 0 {
		return Measurement{}
	}

	var best float64
	found := false
	for _, c := range candidates {
		area := shoelaceArea(c.Points)
		if !found || area > best {
			best = area
			found = true
		}
	}
	if !found {
		return Measurement{}
	}
	return Measurement{Value: best / 1_000_000, Determinable: true}
}

// ExtensionDepth returns the depth in meters of a building extension,
// computed as the difference between the y-extents of the second "Walls"
// polyline (the extension) and the first (the main structure). Requires
// at least two "Walls" polylines; otherwise not determinable.
func ExtensionDepth(d Drawing) Measurement {
	walls := byLayer(d.Polylines, "Walls")
	if len(walls) < 2 {
		return Measurement{}
	}

	mainMaxY := maxY(walls[0].Points)
	extMaxY := maxY(walls[1].Points)
	if math.IsNaN(mainMaxY) || math.IsNaN(extMaxY) {
		return Measurement{}
	}

	depthMM := math.Abs(extMaxY - mainMaxY)
	return Measurement{Value: depthMM / 1000, Determinable: true}
}

func maxY(points []Point) float64 {
	if len(points) == 0 {
		return math.NaN()
	}
	max := points[0].Y
	for _, p := range points[1:] {
		if p.Y > max {
			max = p.Y
		}
	}
	return max
}

// BuildingHeight returns the building height in meters, read from the
// "height" property of any Object in the drawing, or failing that the
// maximum z-coordinate across the drawing's polylines when 3-D points
// are present. Not determinable when neither is present.
func BuildingHeight(d Drawing) Measurement {
	for _, obj := range d.Objects {
		if v, ok := obj.Properties["height"]; ok {
			if f, ok := toFloat(v); ok {
				return Measurement{Value: f, Determinable: true}
			}
		}
	}

	if maxZMM, ok := maxZ(d.Polylines); ok {
		return Measurement{Value: maxZMM / 1000, Determinable: true}
	}
	return Measurement{}
}

// maxZ returns the greatest z-coordinate across every point of every
// polyline, and whether any point actually carried a positive z — a flat
// (all-zero-z) drawing reports no 3-D points, not a zero-height building.
func maxZ(polys []Polyline) (float64, bool) {
	var max float64
	found := false
	for _, p := range polys {
		for _, pt := range p.Points {
			if pt.Z > max {
				max = pt.Z
				found = true
			}
		}
	}
	return max, found
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// BoundingBox describes the axis-aligned bounds of a set of points in
// millimeters.
type BoundingBox struct {
	MinX, MinY, MaxX, MaxY float64
	Determinable           bool
}

// PlotBoundingBox returns the bounding box of the first "Plot Boundary"
// polyline found in the drawing.
func PlotBoundingBox(d Drawing) BoundingBox {
	plot, ok := firstByLayer(d.Polylines, "Plot Boundary")
	if !ok || len(plot.Points) == 0 {
		return BoundingBox{}
	}
	return boundingBoxOf(plot.Points)
}

func boundingBoxOf(points []Point) BoundingBox {
	if len(points) == 0 {
		return BoundingBox{}
	}
	bb := BoundingBox{
		MinX: points[0].X, MaxX: points[0].X,
		MinY: points[0].Y, MaxY: points[0].Y,
		Determinable: true,
	}
	for _, p := range points[1:] {
		if p.X < bb.MinX {
			bb.MinX = p.X
		}
		if p.X > bb.MaxX {
			bb.MaxX = p.X
		}
		if p.Y < bb.MinY {
			bb.MinY = p.Y
		}
		if p.Y > bb.MaxY {
			bb.MaxY = p.Y
		}
	}
	return bb
}

// AllDimensions computes every dimension this package knows how to derive
// and reports each as either a numeric value or the "not determinable"
// sentinel, keyed by name.
func AllDimensions(d Drawing) map[string]any {
	out := map[string]any{}

	if m := PlotArea(d); m.Determinable {
		out["plot_area_m2"] = round2(m.Value)
	} else {
		out["plot_area_m2"] = notDeterminableText
	}

	if m := ExtensionDepth(d); m.Determinable {
		out["extension_depth_m"] = round2(m.Value)
	} else {
		out["extension_depth_m"] = notDeterminableText
	}

	if m := BuildingHeight(d); m.Determinable {
		out["building_height_m"] = round2(m.Value)
	} else {
		out["building_height_m"] = notDeterminableText
	}

	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
