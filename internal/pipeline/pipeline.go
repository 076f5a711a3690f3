// Package pipeline wires the processing stages into a replayable session:
// load, filter, optional merge, polygon selection, export. Every parameter
// change re-evaluates the pipeline from that stage onward; stage outputs
// are immutable, so earlier results survive a failing later stage.
package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/avessar/geoshrink/internal/feature"
	"github.com/avessar/geoshrink/internal/merge"
	"github.com/avessar/geoshrink/internal/selection"
)

// FilterParams are the resolved property-filter inputs.
type FilterParams struct {
	Key    string        `json:"key"`
	Values []interface{} `json:"values"`
}

// MergeParams are the resolved overlap-merge inputs. UseMerged mirrors the
// "use merged features" toggle: selection and export switch to the merged
// clusters only when it is set.
type MergeParams struct {
	BufferMeters     float64 `json:"buffer_distance"`
	ThresholdPercent float64 `json:"overlap_threshold"`
	UseMerged        bool    `json:"use_merged"`
	QuadSegments     int     `json:"-"`
}

// Counts reports per-stage feature counts for display.
type Counts struct {
	Loaded   int  `json:"loaded"`
	Filtered int  `json:"filtered"`
	Merged   *int `json:"merged,omitempty"`
	Selected *int `json:"selected,omitempty"`
}

// Session carries one interactive run of the pipeline. Handlers run on
// separate goroutines, so every stage update and read goes through the
// session mutex.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.Mutex
	lastUsed time.Time
	source   *feature.Collection
	filter   *FilterParams
	filtered *feature.Collection
	merge    *MergeParams
	merged   *feature.Collection
	ring     []orb.Point
	selected *feature.Collection
}

// NewSession starts a session over a freshly loaded collection.
func NewSession(source *feature.Collection) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.New().String(),
		CreatedAt: now,
		lastUsed:  now,
		source:    source,
		filtered:  source,
	}
}

// SetFilter applies the property filter and replays the later stages.
func (s *Session) SetFilter(key string, values []interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.filter = &FilterParams{Key: key, Values: values}
	s.filtered = feature.Filter(s.source, key, values)

	if s.merge != nil {
		if err := s.runMerge(); err != nil {
			return err
		}
	}
	return s.runSelection()
}

// SetMerge enables merging with the given parameters and replays the
// selection stage over the new working set.
func (s *Session) SetMerge(p MergeParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.merge = &p
	if err := s.runMerge(); err != nil {
		s.merge = nil
		s.merged = nil
		return err
	}
	return s.runSelection()
}

// ClearMerge disables merging and replays the selection stage.
func (s *Session) ClearMerge() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.merge = nil
	s.merged = nil
	return s.runSelection()
}

// SetSelection stores the drawn ring and computes the selected subset. A
// rejected ring is discarded so later replays keep the previous selection
// state.
func (s *Session) SetSelection(ring []orb.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.ring
	s.ring = ring
	if err := s.runSelection(); err != nil {
		s.ring = prev
		_ = s.runSelection()
		return err
	}
	return nil
}

func (s *Session) runMerge() error {
	merged, err := merge.Merge(s.filtered, merge.Options{
		BufferMeters:     s.merge.BufferMeters,
		ThresholdPercent: s.merge.ThresholdPercent,
		QuadSegments:     s.merge.QuadSegments,
	})
	if err != nil {
		return err
	}
	s.merged = merged
	return nil
}

func (s *Session) runSelection() error {
	s.selected = nil
	if s.ring == nil {
		return nil
	}

	selected, err := selection.Select(s.workingSet(), s.ring)
	if err != nil {
		return err
	}
	s.selected = selected
	return nil
}

// WorkingSet is the collection selection and export operate on: the
// merged clusters when merging is enabled with the use-merged toggle,
// otherwise the filtered features.
func (s *Session) WorkingSet() *feature.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workingSet()
}

func (s *Session) workingSet() *feature.Collection {
	if s.merge != nil && s.merge.UseMerged && s.merged != nil {
		return s.merged
	}
	return s.filtered
}

// Filter returns the active filter parameters, nil when unfiltered.
func (s *Session) Filter() *FilterParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// Merge returns the active merge parameters, nil when merging is off.
func (s *Session) Merge() *MergeParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.merge
}

// Counts reports the per-stage feature counts.
func (s *Session) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := Counts{
		Loaded:   s.source.Len(),
		Filtered: s.filtered.Len(),
	}
	if s.merged != nil {
		n := s.merged.Len()
		counts.Merged = &n
	}
	if s.selected != nil {
		n := s.selected.Len()
		counts.Selected = &n
	}
	return counts
}

// exportSet is the selection when a polygon has been drawn, otherwise the
// current working set.
func (s *Session) exportSet() *feature.Collection {
	if s.selected != nil {
		return s.selected
	}
	return s.workingSet()
}

// ExportGeoJSON serializes the current selection as a GeoJSON document.
func (s *Session) ExportGeoJSON() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return feature.MarshalGeoJSON(s.exportSet())
}

// ExportCSV serializes the current selection as tabular CSV.
func (s *Session) ExportCSV() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return feature.MarshalCSV(s.exportSet())
}

// Touch records session use for TTL housekeeping.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()
}

// LastUsed reports when the session was last touched.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}
