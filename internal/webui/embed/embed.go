package embed

import "embed"

// DistFS contains the browser client: a single page that opens a window
// over WebSocket, runs a session in it and relays keys and clipboard.
//
//go:embed all:dist
var DistFS embed.FS
