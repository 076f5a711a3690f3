// Command geoshrink runs the pipeline once over files: load, optional
// property filter, optional overlap merge, optional polygon selection,
// then writes the GeoJSON and CSV export artifacts.
package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"

	"github.com/avessar/geoshrink/internal/feature"
	"github.com/avessar/geoshrink/internal/logger"
	"github.com/avessar/geoshrink/internal/merge"
	"github.com/avessar/geoshrink/internal/selection"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	Input  string `short:"i" long:"in"      description:"Input file path (GeoJSON or CSV)" required:"true"`
	Type   string `short:"t" long:"type"    description:"Input type" choice:"geojson" choice:"csv" default:"geojson"`
	LatCol string `long:"lat-col" description:"CSV latitude column name"  default:"latitude"`
	LonCol string `long:"lon-col" description:"CSV longitude column name" default:"longitude"`

	FilterKey    string   `short:"k" long:"filter-key"   description:"Property key to filter by"`
	FilterValues []string `short:"v" long:"filter-value" description:"Allowed property values (repeatable)"`

	Merge     bool    `short:"m" long:"merge"     description:"Merge overlapping features"`
	Buffer    float64 `short:"b" long:"buffer"    description:"Buffer distance in meters (1-100)" default:"25"`
	Threshold float64 `short:"T" long:"threshold" description:"Minimum overlap percentage to merge (0-100)" default:"50"`

	Polygon string `short:"P" long:"polygon" description:"GeoJSON file with the selection polygon"`

	OutGeoJSON string `long:"out-geojson" description:"Output GeoJSON path" default:"selected_features.geojson"`
	OutCSV     string `long:"out-csv"     description:"Output CSV path"     default:"selected_features.csv"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	data, err := os.ReadFile(opts.Input)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read input file")
	}

	var collection *feature.Collection
	if opts.Type == "csv" {
		collection, err = feature.LoadCSV(data, opts.LatCol, opts.LonCol)
	} else {
		collection, err = feature.LoadGeoJSON(data)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load features")
	}
	log.Info().Int("features", collection.Len()).Msg("Features loaded")

	if opts.FilterKey != "" {
		allowed := make([]interface{}, 0, len(opts.FilterValues))
		for _, v := range opts.FilterValues {
			allowed = append(allowed, feature.ParseScalar(v))
		}
		collection = feature.Filter(collection, opts.FilterKey, allowed)
		log.Info().
			Str("key", opts.FilterKey).
			Int("features", collection.Len()).
			Msg("Features filtered")
	}

	if opts.Merge {
		if opts.Buffer < 1 || opts.Buffer > 100 {
			log.Fatal().Float64("buffer", opts.Buffer).Msg("Buffer distance must be 1-100 meters")
		}
		if opts.Threshold < 0 || opts.Threshold > 100 {
			log.Fatal().Float64("threshold", opts.Threshold).Msg("Overlap threshold must be 0-100 percent")
		}

		before := collection.Len()
		collection, err = merge.Merge(collection, merge.Options{
			BufferMeters:     opts.Buffer,
			ThresholdPercent: opts.Threshold,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to merge features")
		}

		reduction := 0.0
		if before > 0 {
			reduction = float64(before-collection.Len()) / float64(before) * 100
		}
		log.Info().
			Int("original", before).
			Int("merged", collection.Len()).
			Str("reduction", fmt.Sprintf("%.1f%%", reduction)).
			Msg("Features merged")
	}

	if opts.Polygon != "" {
		ring, err := readRing(opts.Polygon)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read selection polygon")
		}

		collection, err = selection.Select(collection, ring)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to select features")
		}
		log.Info().Int("features", collection.Len()).Msg("Features selected")
	}

	geojsonData, err := feature.MarshalGeoJSON(collection)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to serialize GeoJSON")
	}
	if err := os.WriteFile(opts.OutGeoJSON, geojsonData, 0644); err != nil {
		log.Fatal().Err(err).Msg("Failed to write GeoJSON output")
	}

	csvData, err := feature.MarshalCSV(collection)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to serialize CSV")
	}
	if err := os.WriteFile(opts.OutCSV, csvData, 0644); err != nil {
		log.Fatal().Err(err).Msg("Failed to write CSV output")
	}

	log.Info().
		Str("geojson", opts.OutGeoJSON).
		Str("csv", opts.OutCSV).
		Int("features", collection.Len()).
		Msg("Export finished")
}

// readRing extracts the outer ring of the first polygon found in a
// GeoJSON document: a bare geometry, a feature, or a feature collection.
func readRing(path string) ([]orb.Point, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if fc, err := geojson.UnmarshalFeatureCollection(data); err == nil {
		for _, f := range fc.Features {
			if ring, ok := ringOf(f.Geometry); ok {
				return ring, nil
			}
		}
		return nil, fmt.Errorf("no polygon feature in %s", path)
	}

	if f, err := geojson.UnmarshalFeature(data); err == nil {
		if ring, ok := ringOf(f.Geometry); ok {
			return ring, nil
		}
		return nil, fmt.Errorf("feature in %s is not a polygon", path)
	}

	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, err
	}
	if ring, ok := ringOf(g.Geometry()); ok {
		return ring, nil
	}
	return nil, fmt.Errorf("geometry in %s is not a polygon", path)
}

func ringOf(g orb.Geometry) ([]orb.Point, bool) {
	poly, ok := g.(orb.Polygon)
	if !ok || len(poly) == 0 {
		return nil, false
	}
	return poly[0], true
}
