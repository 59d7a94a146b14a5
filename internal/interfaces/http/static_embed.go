package http

import "embed"

// staticFiles stores the insights page assets in the binary.
//
//go:embed static
var staticFiles embed.FS
