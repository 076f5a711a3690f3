// Package server handles HTTP requests and middleware.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog/log"

	"github.com/avessar/geoshrink/internal/feature"
	"github.com/avessar/geoshrink/internal/merge"
	"github.com/avessar/geoshrink/internal/pipeline"
	"github.com/avessar/geoshrink/internal/selection"
)

const multipartMemory = 32 << 20

// HandleBasemaps serves the JSON catalog of available base layers. With a
// name query parameter it returns the single layer matching that name or
// one of its aliases.
func (s *ServerContext) HandleBasemaps(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if name := r.URL.Query().Get("name"); name != "" {
		resolved, ok := s.BasemapResolver[name]
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Errorf("unknown basemap %q", name))
			return
		}
		for i := range s.Config.Basemaps {
			if s.Config.Basemaps[i].Name == resolved {
				_ = json.NewEncoder(w).Encode(s.Config.Basemaps[i])
				return
			}
		}
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown basemap %q", name))
		return
	}

	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(s.Config.Basemaps)
}

// HandleFavicon serves the site favicon.
func (s *ServerContext) HandleFavicon(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/favicon.svg" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(s.Favicon)
}

// HandleIndex serves the main HTML application.
func (s *ServerContext) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && strings.Contains(r.URL.Path, ".") {
		http.NotFound(w, r)
		return
	}

	etag := fmt.Sprintf(`"%x"`, len(s.IndexHTML))

	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, no-cache")
	_, _ = w.Write(s.IndexHTML)
}

// HandleSessions routes the /api/sessions subtree:
//
//	POST /api/sessions                         upload, starts a session
//	GET  /api/sessions/{id}                    stage counts and parameters
//	POST /api/sessions/{id}/filter             property filter
//	POST /api/sessions/{id}/merge              overlap merge
//	POST /api/sessions/{id}/selection          drawn polygon
//	GET  /api/sessions/{id}/download/{format}  export artifact
func (s *ServerContext) HandleSessions(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 2 || parts[0] != "api" || parts[1] != "sessions" {
		http.NotFound(w, r)
		return
	}

	if len(parts) == 2 {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.handleUpload(w, r)
		return
	}

	sess, ok := s.Sessions.Get(parts[2])
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("session %s not found", parts[2]))
		return
	}

	switch {
	case len(parts) == 3 && r.Method == http.MethodGet:
		s.writeState(w, sess)
	case len(parts) == 4 && r.Method == http.MethodPost:
		s.handleStage(w, r, sess, parts[3])
	case len(parts) == 5 && parts[3] == "download" && r.Method == http.MethodGet:
		s.handleDownload(w, sess, parts[4])
	default:
		http.NotFound(w, r)
	}
}

// handleUpload reads the uploaded file, loads it through the memoizing
// cache and starts a session over the resulting collection.
func (s *ServerContext) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.UploadLimit)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("parse upload: %w", err))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("missing file field: %w", err))
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("read upload: %w", err))
		return
	}

	kind := r.FormValue("type")
	latCol := r.FormValue("lat_col")
	lonCol := r.FormValue("lon_col")

	var load func() (*feature.Collection, error)
	switch kind {
	case "geojson":
		load = func() (*feature.Collection, error) { return feature.LoadGeoJSON(data) }
	case "csv":
		load = func() (*feature.Collection, error) { return feature.LoadCSV(data, latCol, lonCol) }
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown upload type %q", kind))
		return
	}

	collection, err := s.Cache.Load(pipeline.Key(data, kind, latCol, lonCol), load)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	sess := pipeline.NewSession(collection)
	s.Sessions.Put(sess)

	log.Info().
		Str("session", sess.ID).
		Str("type", kind).
		Int("features", collection.Len()).
		Msg("Session started")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	s.writeState(w, sess)
}

// handleStage applies one pipeline stage update to the session.
func (s *ServerContext) handleStage(w http.ResponseWriter, r *http.Request, sess *pipeline.Session, stage string) {
	var err error

	switch stage {
	case "filter":
		var req struct {
			Key    string        `json:"key"`
			Values []interface{} `json:"values"`
		}
		if err = json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("parse filter request: %w", err))
			return
		}
		err = sess.SetFilter(req.Key, req.Values)

	case "merge":
		var req struct {
			BufferDistance   float64 `json:"buffer_distance"`
			OverlapThreshold float64 `json:"overlap_threshold"`
			UseMerged        bool    `json:"use_merged"`
			Enabled          *bool   `json:"enabled"`
		}
		if err = json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("parse merge request: %w", err))
			return
		}
		if req.Enabled != nil && !*req.Enabled {
			err = sess.ClearMerge()
			break
		}
		if req.BufferDistance < 1 || req.BufferDistance > 100 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("buffer_distance must be 1-100 meters"))
			return
		}
		if req.OverlapThreshold < 0 || req.OverlapThreshold > 100 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("overlap_threshold must be 0-100 percent"))
			return
		}
		err = sess.SetMerge(pipeline.MergeParams{
			BufferMeters:     req.BufferDistance,
			ThresholdPercent: req.OverlapThreshold,
			UseMerged:        req.UseMerged,
			QuadSegments:     s.Config.Merge.QuadSegments,
		})

	case "selection":
		var req struct {
			Ring [][]float64 `json:"ring"`
		}
		if err = json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("parse selection request: %w", err))
			return
		}
		ring := make([]orb.Point, 0, len(req.Ring))
		for i, pair := range req.Ring {
			if len(pair) < 2 {
				writeError(w, http.StatusBadRequest, fmt.Errorf("ring vertex %d: want [lon, lat]", i))
				return
			}
			ring = append(ring, orb.Point{pair[0], pair[1]})
		}
		err = sess.SetSelection(ring)

	default:
		http.NotFound(w, r)
		return
	}

	if err != nil {
		writeError(w, stageStatus(err), err)
		return
	}
	s.writeState(w, sess)
}

// handleDownload streams one export artifact.
func (s *ServerContext) handleDownload(w http.ResponseWriter, sess *pipeline.Session, format string) {
	var (
		data        []byte
		err         error
		contentType string
		filename    string
	)

	switch format {
	case "geojson":
		data, err = sess.ExportGeoJSON()
		contentType = "application/json"
		filename = "selected_features.geojson"
	case "csv":
		data, err = sess.ExportCSV()
		contentType = "text/csv"
		filename = "selected_features.csv"
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown export format %q", format))
		return
	}

	if err != nil {
		writeError(w, stageStatus(err), err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write(data)
}

// writeState reports the session's stage counts and active parameters.
func (s *ServerContext) writeState(w http.ResponseWriter, sess *pipeline.Session) {
	state := struct {
		ID     string                 `json:"id"`
		Counts pipeline.Counts        `json:"counts"`
		Filter *pipeline.FilterParams `json:"filter,omitempty"`
		Merge  *pipeline.MergeParams  `json:"merge,omitempty"`
	}{
		ID:     sess.ID,
		Counts: sess.Counts(),
		Filter: sess.Filter(),
		Merge:  sess.Merge(),
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(state)
}

// stageStatus maps pipeline stage failures to HTTP status codes.
func stageStatus(err error) int {
	var (
		loadErr      *feature.LoadError
		polyErr      *selection.InvalidPolygonError
		mergeErr     *merge.MergeError
		serializeErr *feature.SerializationError
	)
	if errors.As(err, &loadErr) || errors.As(err, &polyErr) ||
		errors.As(err, &mergeErr) || errors.As(err, &serializeErr) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
