// Package assets embeds the prebuilt web application.
package assets

import _ "embed"

// Index is the single-page application, generated from the asset sources
// by cmd/minify.
//
//go:embed index.html
var Index []byte

// Favicon is the site icon.
//
//go:embed favicon.svg
var Favicon []byte
