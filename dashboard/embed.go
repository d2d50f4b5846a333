// Package dashboard provides the embedded web UI assets for mqmon.
//
// This package uses Go's embed directive to include the chart page at compile
// time, enabling single-binary deployment without external asset files.
package dashboard

import "embed"

// Assets is an embedded filesystem containing the dashboard web UI.
//
// The filesystem structure is:
//
//	assets/
//	  index.html    - Chart page with inline CSS and JavaScript
//
//go:embed assets/*
var Assets embed.FS
