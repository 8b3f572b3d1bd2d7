// Package panel serves the lamp control page as an embedded asset.
//
// The page is a small browser command source: it reads the preset
// vocabulary from /api/v1/vocabulary, sends lamp commands through the lamp
// endpoints and shows session changes from the WebSocket stream. It is
// embedded with go:embed so the binary has no runtime file dependency.
//
// Unknown paths fall back to index.html.
package panel
