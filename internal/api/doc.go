// Package api is the client for the radio's REST API.
//
// # Overview
//
// Client wraps every endpoint the radio exposes: login (with an optional MFA
// step), registration, the user's profile and favorites, song requests, the
// song and artist listings and a local song search.
//
// Calls are synchronous and take a context. Dispatcher runs them in the
// background and reports results through Callback values for callers that
// cannot block, such as a UI loop.
//
// # Authentication
//
// Tokens live in an auth.Session. Endpoints that need a user check the
// session before doing anything and fail with ErrAuthRequired, so an
// unauthenticated client never sends a gated request.
//
// # Search
//
// Search never hits a search endpoint. The full song listing is fetched once
// into a SongsCache and filtered in-process by model.SongListItem.Matches.
//
// # Errors
//
// Failures are *Error values carrying a code such as "invalid-password".
// UserMessage turns them into text for the user.
package api
