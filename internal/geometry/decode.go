package geometry

import "encoding/json"

// FromJSON normalizes the two wire shapes a client may send for
// drawing_json: an array of drawing elements (polylines with a "layer"
// and "points"), or a single object carrying a "properties" map. Either
// shape may appear; unknown fields are ignored rather than rejected.
func FromJSON(raw json.RawMessage) (Drawing, bool) {
	if len(raw) == 0 {
		return Drawing{}, false
	}

	var asArray []map[string]any
	if err := json.Unmarshal(raw, &asArray); err == nil {
		return fromElements(asArray), true
	}

	var asObject map[string]any
	if err := json.Unmarshal(raw, &asObject); err == nil {
		return fromObject(asObject), true
	}

	return Drawing{}, false
}

func fromElements(elements []map[string]any) Drawing {
	var d Drawing
	for _, e := range elements {
		layer, _ := e["layer"].(string)
		typ, _ := e["type"].(string)

		if pts, ok := e["points"]; ok {
			polyline := Polyline{
				Type:   typ,
				Layer:  layer,
				Points: parsePoints(pts),
			}
			if closed, ok := e["closed"].(bool); ok {
				polyline.Closed = closed
			}
			d.Polylines = append(d.Polylines, polyline)
			continue
		}

		props, _ := e["properties"].(map[string]any)
		if props == nil {
			props = e
		}
		d.Objects = append(d.Objects, Object{Type: typ, Properties: props})
	}
	return d
}

func fromObject(obj map[string]any) Drawing {
	var d Drawing
	typ, _ := obj["type"].(string)
	if props, ok := obj["properties"].(map[string]any); ok {
		d.Objects = append(d.Objects, Object{Type: typ, Properties: props})
	}
	if elements, ok := obj["elements"].([]any); ok {
		var asElements []map[string]any
		for _, el := range elements {
			if m, ok := el.(map[string]any); ok {
				asElements = append(asElements, m)
			}
		}
		nested := fromElements(asElements)
		d.Polylines = append(d.Polylines, nested.Polylines...)
		d.Objects = append(d.Objects, nested.Objects...)
	}
	return d
}

func parsePoints(raw any) []Point {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	points := make([]Point, 0, len(list))
	for _, item := range list {
		pair, ok := item.([]any)
		if !ok || len(pair) < 2 {
			continue
		}
		x, okX := pair[0].(float64)
		y, okY := pair[1].(float64)
		if !okX || !okY {
			continue
		}
		var z float64
		if len(pair) >= 3 {
			z, _ = pair[2].(float64)
		}
		points = append(points, Point{X: x, Y: y, Z: z})
	}
	return points
}

// IsEmpty reports whether a drawing carries no geometry at all, the
// condition under which agentic tools should report "no drawing available".
func (d Drawing) IsEmpty() bool {
	return len(d.Polylines) == 0 && len(d.Objects) == 0
}
