package feature

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/paulmach/orb/geojson"
)

// SerializationError reports a collection that cannot be encoded, for
// example because a property holds a non-finite number.
type SerializationError struct {
	Format string
	Err    error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialize %s: %v", e.Format, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// MarshalGeoJSON serializes the collection as a GeoJSON FeatureCollection
// document. Geometry and properties are emitted verbatim; the derived
// merge properties travel as ordinary properties, the merge center is
// never duplicated into the geometry.
func MarshalGeoJSON(c *Collection) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for i := range c.Features {
		f := geojson.NewFeature(c.Features[i].Geometry)
		f.Properties = c.Features[i].Properties
		fc.Append(f)
	}

	data, err := json.Marshal(fc)
	if err != nil {
		return nil, &SerializationError{Format: "geojson", Err: err}
	}
	return data, nil
}

// MarshalCSV serializes one row per feature: the collection's property
// keys in order, then explicit latitude and longitude columns derived
// from the representative point.
func MarshalCSV(c *Collection) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := make([]string, 0, len(c.Keys)+2)
	header = append(header, c.Keys...)
	header = append(header, "latitude", "longitude")
	if err := w.Write(header); err != nil {
		return nil, &SerializationError{Format: "csv", Err: err}
	}

	for i, f := range c.Features {
		row := make([]string, 0, len(header))
		for _, key := range c.Keys {
			cell, err := formatScalar(f.Properties[key])
			if err != nil {
				return nil, &SerializationError{
					Format: "csv",
					Err:    fmt.Errorf("row %d, column %q: %w", i+1, key, err),
				}
			}
			row = append(row, cell)
		}

		p := f.RepresentativePoint()
		latCell, err := formatFloat(p[1])
		if err == nil {
			var lonCell string
			lonCell, err = formatFloat(p[0])
			row = append(row, latCell, lonCell)
		}
		if err != nil {
			return nil, &SerializationError{
				Format: "csv",
				Err:    fmt.Errorf("row %d: %w", i+1, err),
			}
		}

		if err := w.Write(row); err != nil {
			return nil, &SerializationError{Format: "csv", Err: err}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, &SerializationError{Format: "csv", Err: err}
	}
	return buf.Bytes(), nil
}

func formatScalar(v interface{}) (string, error) {
	switch n := v.(type) {
	case nil:
		return "", nil
	case string:
		return n, nil
	case bool:
		return strconv.FormatBool(n), nil
	case float64:
		return formatFloat(n)
	}

	// composite values, e.g. the merge center, are written as JSON
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func formatFloat(n float64) (string, error) {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return "", fmt.Errorf("non-finite number %v", n)
	}
	return strconv.FormatFloat(n, 'g', -1, 64), nil
}
