// Package panel serves the household dashboard as embedded static assets.
//
// The dashboard (index.html, app.js, style.css) is compiled into the
// binary with go:embed. It reads the snapshot from the REST API and
// follows the WebSocket event stream, so it needs nothing beyond the
// daemon itself.
//
// A directory may be given instead to iterate on the assets without a
// rebuild. Unknown paths fall back to index.html.
package panel
