package server

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/avessar/geoshrink/assets"
	"github.com/avessar/geoshrink/internal/config"
	"github.com/avessar/geoshrink/internal/pipeline"
)

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	Config          *config.Config
	BasemapResolver map[string]string
	Sessions        *sessionStore
	Cache           *pipeline.LoadCache
	IndexHTML       []byte
	Favicon         []byte
	UploadLimit     int64
}

// NewServerContext initializes the context and normalizes the basemap
// catalog: incomplete entries are dropped, aliases are resolved and the
// list is ordered by index, then name.
func NewServerContext(cfg *config.Config) *ServerContext {
	log.Info().Int("config_basemaps_count", len(cfg.Basemaps)).Msg("Initializing server context")

	resolver := make(map[string]string)
	validBasemaps := make([]config.Basemap, 0, len(cfg.Basemaps))

	for i := range cfg.Basemaps {
		basemap := &cfg.Basemaps[i]

		if basemap.Name == "" || basemap.Tiles == "" {
			log.Warn().
				Str("name", basemap.Name).
				Msg("Skipping basemap: name and tiles URL are required")
			continue
		}
		if basemap.Attribution == "" {
			basemap.Attribution = cfg.Attribution
		}

		resolver[basemap.Name] = basemap.Name
		for _, alias := range basemap.Aliases {
			resolver[alias] = basemap.Name
		}

		log.Debug().
			Str("name", basemap.Name).
			Str("tiles", basemap.Tiles).
			Msg("Basemap validated and added to context")

		validBasemaps = append(validBasemaps, *basemap)
	}

	cfg.Basemaps = validBasemaps

	sort.Slice(cfg.Basemaps, func(i, j int) bool {
		idxI, idxJ := 999999, 999999
		if cfg.Basemaps[i].Index != nil {
			idxI = *cfg.Basemaps[i].Index
		}
		if cfg.Basemaps[j].Index != nil {
			idxJ = *cfg.Basemaps[j].Index
		}
		if idxI != idxJ {
			return idxI < idxJ
		}

		return cfg.Basemaps[i].Name < cfg.Basemaps[j].Name
	})

	log.Info().
		Int("valid_basemaps_count", len(cfg.Basemaps)).
		Int64("upload_limit_mb", cfg.UploadLimitMB).
		Msg("Server context initialized successfully")

	return &ServerContext{
		Config:          cfg,
		BasemapResolver: resolver,
		Sessions:        newSessionStore(time.Duration(cfg.SessionTTLMinutes) * time.Minute),
		Cache:           pipeline.NewLoadCache(cfg.CacheEntries),
		IndexHTML:       assets.Index,
		Favicon:         assets.Favicon,
		UploadLimit:     cfg.UploadLimitMB << 20,
	}
}

// sessionStore keeps active sessions keyed by ID, evicting those idle
// longer than the TTL.
type sessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*pipeline.Session
}

func newSessionStore(ttl time.Duration) *sessionStore {
	return &sessionStore{
		ttl:      ttl,
		sessions: make(map[string]*pipeline.Session),
	}
}

// Put registers a session and sweeps expired ones.
func (st *sessionStore) Put(s *pipeline.Session) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.sweepLocked()
	st.sessions[s.ID] = s
}

// Get returns the session for id, refreshing its TTL.
func (st *sessionStore) Get(id string) (*pipeline.Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.sweepLocked()
	s, ok := st.sessions[id]
	if ok {
		s.Touch()
	}
	return s, ok
}

func (st *sessionStore) sweepLocked() {
	if st.ttl <= 0 {
		return
	}
	deadline := time.Now().Add(-st.ttl)
	for id, s := range st.sessions {
		if s.LastUsed().Before(deadline) {
			delete(st.sessions, id)
			log.Debug().Str("session", id).Msg("Session expired")
		}
	}
}
