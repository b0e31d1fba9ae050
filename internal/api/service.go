// Package api exposes the persisted geography tables over HTTP as JSON.
// The surface is read-only; all writes happen through the loaders.
package api

import (
	"fmt"

	"github.com/starford/laguz/internal/store"
)

// Service projects store rows into response shapes.
type Service struct {
	db store.Geography
}

// NewService creates a new API service.
func NewService(db store.Geography) *Service {
	return &Service{db: db}
}

var countryFields = []string{
	"name", "population", "area", "center_lat", "center_lng",
	"iso", "global_region", "land_area", "water_area",
}

var boundaryFields = []string{
	"id", "lat", "lng", "area_name", "area_iso", "area_type", "division",
}

// Countries returns every country row as a field-name-keyed object.
func (s *Service) Countries() ([]map[string]any, error) {
	tuples, err := s.db.Select("country", countryFields)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(tuples))
	for _, tuple := range tuples {
		out = append(out, zip(countryFields, tuple))
	}
	return out, nil
}

// Country returns one country row by name. A missing row surfaces
// apperr.ErrNotFound unchanged.
func (s *Service) Country(name string) (map[string]any, error) {
	tuple, err := s.db.SelectOne("country", countryFields, []string{"name"}, []any{name})
	if err != nil {
		return nil, err
	}
	return zip(countryFields, tuple), nil
}

// BoundaryGroup is one contiguous boundary ring set: a division of an
// area, with its ordered (lat, lng) points.
type BoundaryGroup struct {
	ISO        string       `json:"iso"`
	Name       string       `json:"name"`
	Type       string       `json:"type"`
	Division   int64        `json:"division"`
	Boundaries [][2]float64 `json:"boundaries"`
}

// Boundaries groups the boundary_point rows by division, ISO, and area
// name, the shape map clients consume directly.
func (s *Service) Boundaries() (map[string]BoundaryGroup, error) {
	tuples, err := s.db.Select("boundary_point", boundaryFields)
	if err != nil {
		return nil, err
	}

	out := make(map[string]BoundaryGroup)
	for _, tuple := range tuples {
		row := zip(boundaryFields, tuple)
		division := asInt64(row["division"])
		iso := asText(row["area_iso"])
		name := asText(row["area_name"])
		key := fmt.Sprintf("%d-%s-%s", division, iso, name)

		group, ok := out[key]
		if !ok {
			group = BoundaryGroup{
				ISO:      iso,
				Name:     name,
				Type:     asText(row["area_type"]),
				Division: division,
			}
		}
		group.Boundaries = append(group.Boundaries, [2]float64{
			asFloat64(row["lat"]),
			asFloat64(row["lng"]),
		})
		out[key] = group
	}
	return out, nil
}

func zip(fields []string, tuple []any) map[string]any {
	out := make(map[string]any, len(fields))
	for i, f := range fields {
		out[f] = tuple[i]
	}
	return out
}

func asText(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func asInt64(v any) int64 {
	if n, ok := v.(int64); ok {
		return n
	}
	return 0
}

func asFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	}
	return 0
}
