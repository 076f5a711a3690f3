package feature

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// LoadError reports input that could not be turned into a collection.
// No partial collection is ever returned alongside it.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadGeoJSON parses a GeoJSON FeatureCollection document. Coordinates are
// assumed EPSG:4326. Property keys are ordered lexicographically, since
// JSON object order does not survive decoding.
func LoadGeoJSON(data []byte) (*Collection, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, &LoadError{Source: "geojson", Err: err}
	}

	c := &Collection{Features: make([]Feature, 0, len(fc.Features))}
	seen := make(map[string]struct{})

	for i, f := range fc.Features {
		if f.Geometry == nil {
			return nil, &LoadError{
				Source: "geojson",
				Err:    fmt.Errorf("feature %d has no geometry", i),
			}
		}

		props := make(geojson.Properties, len(f.Properties))
		for k, v := range f.Properties {
			props[k] = v
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				c.Keys = append(c.Keys, k)
			}
		}

		c.Features = append(c.Features, Feature{Geometry: f.Geometry, Properties: props})
	}

	sort.Strings(c.Keys)
	return c, nil
}

// LoadCSV parses a tabular dataset into point features. The two named
// columns provide the coordinates and must hold numbers; every other
// column becomes a property, with header order defining the key order.
func LoadCSV(data []byte, latCol, lonCol string) (*Collection, error) {
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return nil, &LoadError{Source: "csv", Err: err}
	}
	if len(records) == 0 {
		return nil, &LoadError{Source: "csv", Err: fmt.Errorf("empty document")}
	}

	header := records[0]
	latIdx, lonIdx := -1, -1
	for i, name := range header {
		if name == latCol {
			latIdx = i
		}
		if name == lonCol {
			lonIdx = i
		}
	}
	if latIdx < 0 {
		return nil, &LoadError{Source: "csv", Err: fmt.Errorf("latitude column %q not found", latCol)}
	}
	if lonIdx < 0 {
		return nil, &LoadError{Source: "csv", Err: fmt.Errorf("longitude column %q not found", lonCol)}
	}
	if latIdx == lonIdx {
		return nil, &LoadError{Source: "csv", Err: fmt.Errorf("latitude and longitude columns must differ")}
	}

	c := &Collection{Features: make([]Feature, 0, len(records)-1)}
	for i, name := range header {
		if i == latIdx || i == lonIdx {
			continue
		}
		c.Keys = append(c.Keys, name)
	}

	for line, rec := range records[1:] {
		lat, err := strconv.ParseFloat(rec[latIdx], 64)
		if err != nil {
			return nil, &LoadError{
				Source: "csv",
				Err:    fmt.Errorf("row %d: latitude %q: %w", line+2, rec[latIdx], err),
			}
		}
		lon, err := strconv.ParseFloat(rec[lonIdx], 64)
		if err != nil {
			return nil, &LoadError{
				Source: "csv",
				Err:    fmt.Errorf("row %d: longitude %q: %w", line+2, rec[lonIdx], err),
			}
		}

		props := make(geojson.Properties, len(header)-2)
		for i, name := range header {
			if i == latIdx || i == lonIdx {
				continue
			}
			props[name] = ParseScalar(rec[i])
		}

		c.Features = append(c.Features, Feature{
			Geometry:   orb.Point{lon, lat},
			Properties: props,
		})
	}

	return c, nil
}

// ParseScalar interprets a raw cell the way the loader does: empty cells
// become nil, numeric cells float64, everything else stays a string.
func ParseScalar(cell string) interface{} {
	if cell == "" {
		return nil
	}
	if n, err := strconv.ParseFloat(cell, 64); err == nil {
		return n
	}
	return cell
}
