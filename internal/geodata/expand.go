package geodata

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/starford/laguz/internal/mapping"
	"github.com/starford/laguz/internal/store"
)

// geoDocument is the subset of a GeoJSON feature collection the expander
// reads. Coordinates are kept raw because features mix Polygon and
// MultiPolygon geometries.
type geoDocument struct {
	Features []geoFeature `json:"features"`
}

type geoFeature struct {
	Properties map[string]any `json:"properties"`
	Geometry   struct {
		Type        string          `json:"type"`
		Coordinates json.RawMessage `json:"coordinates"`
	} `json:"geometry"`
}

// ExpandBoundaries flattens every boundary geometry in a GeoJSON document
// into individual point rows tagged with the owning area's identity. One
// row is emitted per coordinate pair per ring per polygon; division is the
// 0-based polygon index within the feature, distinguishing disjoint
// landmasses of the same country. Shared vertices between adjacent rings
// are not deduplicated.
func ExpandBoundaries(doc []byte, table mapping.Table, areaType string, tf *mapping.Transformer) ([]store.Row, error) {
	var parsed geoDocument
	if err := json.Unmarshal(doc, &parsed); err != nil {
		return nil, fmt.Errorf("geodata: parse geojson: %w", err)
	}

	var out []store.Row
	for _, feature := range parsed.Features {
		rec, err := tf.Apply(stringifyProperties(feature.Properties), table)
		if err != nil {
			return nil, err
		}

		polygons, err := decodePolygons(feature.Geometry.Coordinates)
		if err != nil {
			return nil, fmt.Errorf("geodata: feature %v: %w", rec["area_name"], err)
		}

		for division, polygon := range polygons {
			for _, ring := range polygon {
				for _, point := range ring {
					if len(point) < 2 {
						continue
					}
					// Coordinates are [lng, lat], optionally with extra
					// components that are ignored.
					out = append(out, store.Row{
						"area_name": rec["area_name"],
						"area_iso":  rec["area_iso"],
						"area_type": areaType,
						"lat":       point[1],
						"lng":       point[0],
						"division":  int64(division),
					})
				}
			}
		}
	}
	return out, nil
}

// decodePolygons reads coordinates as a MultiPolygon, falling back to
// wrapping a Polygon geometry as a single-polygon sequence.
func decodePolygons(raw json.RawMessage) ([][][][]float64, error) {
	var multi [][][][]float64
	if err := json.Unmarshal(raw, &multi); err == nil {
		return multi, nil
	}
	var single [][][]float64
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, fmt.Errorf("coordinates are neither MultiPolygon nor Polygon: %w", err)
	}
	return [][][][]float64{single}, nil
}

// stringifyProperties renders GeoJSON property values into the raw string
// records the transformer consumes.
func stringifyProperties(props map[string]any) map[string]string {
	out := make(map[string]string, len(props))
	for k, v := range props {
		switch val := v.(type) {
		case nil:
			out[k] = ""
		case string:
			out[k] = val
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(val)
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}
