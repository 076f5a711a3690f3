// Package config handles configuration loading and shared data structures.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Merge holds the default parameters offered for the overlap merger.
type Merge struct {
	BufferDistance   float64 `yaml:"buffer_distance" json:"buffer_distance"`
	OverlapThreshold float64 `yaml:"overlap_threshold" json:"overlap_threshold"`
	QuadSegments     int     `yaml:"quad_segments" json:"-"`
}

// Basemap represents a single selectable base layer for the map UI.
type Basemap struct {
	Index *int `yaml:"index,omitempty" json:"index,omitempty"`

	Name        string   `yaml:"name" json:"name"`
	Tiles       string   `yaml:"tiles" json:"tiles"`
	Attribution string   `yaml:"attribution,omitempty" json:"attribution,omitempty"`
	Aliases     []string `yaml:"aliases,omitempty" json:"-"`
}

// Config represents the root configuration file structure.
type Config struct {
	Attribution       string    `yaml:"attribution,omitempty"`
	UploadLimitMB     int64     `yaml:"upload_limit_mb"`
	SessionTTLMinutes int       `yaml:"session_ttl_minutes"`
	CacheEntries      int       `yaml:"cache_entries"`
	Merge             Merge     `yaml:"merge"`
	Basemaps          []Basemap `yaml:"basemaps"`
}

// Default returns the built-in configuration used when no file is given.
func Default() *Config {
	return &Config{
		UploadLimitMB:     1024,
		SessionTTLMinutes: 60,
		CacheEntries:      16,
		Merge: Merge{
			BufferDistance:   25,
			OverlapThreshold: 50,
			QuadSegments:     8,
		},
		Basemaps: []Basemap{
			{
				Name:  "OpenStreetMap",
				Tiles: "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
			},
			{
				Name:        "Satellite",
				Tiles:       "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}",
				Attribution: "Esri",
			},
		},
	}
}

// Load reads and parses the YAML configuration file from the specified
// path. File values override the built-in defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
