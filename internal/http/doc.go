// Package http provides the HTTP transport used by the radio API client.
//
// The Client in this package handles:
//   - User-Agent and JSON Content-Type headers on every request
//   - Base URL resolution for relative API paths
//   - JSON request/response bodies and status errors
//   - Long-lived streams (live radio audio) and small downloads (covers)
//   - Timeout handling
//
// # Basic Usage
//
//	client := http.NewClient(http.WithBaseURL("https://listen.moe/api/"))
//
//	var resp songsResponse
//	err := client.DoJSON(ctx, http.Request{
//	    Method: "GET",
//	    Path:   "songs",
//	    Header: map[string]string{"Authorization": "Bearer " + token},
//	}, &resp)
//
// # Status Errors
//
// Non-2xx responses come back as *StatusError, keeping the raw body so callers
// can decode an API error envelope from it.
//
// # Progress Tracking
//
// The ProgressWriter type can be used to wrap any io.Writer for progress tracking:
//
//	pw := &http.ProgressWriter{
//	    Writer:   file,
//	    OnUpdate: func(written, total int64) { /* update UI */ },
//	}
package http
