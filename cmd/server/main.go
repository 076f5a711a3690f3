// Command server hosts the interactive pipeline: upload, filter, merge,
// polygon selection and export over HTTP, plus the embedded map UI.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/avessar/geoshrink/internal/config"
	"github.com/avessar/geoshrink/internal/logger"
	"github.com/avessar/geoshrink/internal/server"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile    string `short:"c" long:"config"       env:"CONFIG_FILE"     description:"Path to configuration file" default:"config.yaml"`
	Addr          string `short:"a" long:"addr"         env:"LISTEN_ADDRESS"  description:"Address to listen on"       default:"0.0.0.0"`
	Port          int    `short:"p" long:"port"         env:"LISTEN_PORT"     description:"Port to listen on"          default:"8080"`
	UploadLimitMB int64  `short:"u" long:"upload-limit" env:"UPLOAD_LIMIT_MB" description:"Upload size limit in MiB"   default:"0"`
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

	// Setup Logging
	opts.Logger.Setup()

	// Load Config; absence of the file is fine, defaults apply
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}
		log.Debug().Str("path", opts.ConfigFile).Msg("No configuration file, using defaults")
		cfg = config.Default()
	}

	if opts.UploadLimitMB > 0 {
		cfg.UploadLimitMB = opts.UploadLimitMB
	}

	srvCtx := server.NewServerContext(cfg)

	// Routes
	mux := http.NewServeMux()
	mux.HandleFunc("/api/basemaps", srvCtx.HandleBasemaps)
	mux.HandleFunc("/api/sessions", srvCtx.HandleSessions)
	mux.HandleFunc("/api/sessions/", srvCtx.HandleSessions)
	mux.HandleFunc("/favicon.svg", srvCtx.HandleFavicon)
	mux.HandleFunc("/", srvCtx.HandleIndex)

	handler := server.RequestLogger(mux)

	listenAddr := fmt.Sprintf("%s:%d", opts.Addr, opts.Port)
	log.Info().
		Str("addr", listenAddr).
		Int("basemaps_loaded", len(cfg.Basemaps)).
		Int64("upload_limit_mb", cfg.UploadLimitMB).
		Msg("Web server started")

	if err := http.ListenAndServe(listenAddr, handler); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
