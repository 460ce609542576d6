package model

import "strings"

// Library is a radio channel with its own song catalogue, streams and gateway.
//
// The API scopes song, artist, favorite and request endpoints to a library
// by name (sent as the "library" header).
type Library struct {
	// Name is the API name, "jpop" or "kpop".
	Name string

	// DisplayName is the human readable channel name.
	DisplayName string

	// StreamURL is the mp3 stream, playable by almost every player.
	StreamURL string

	// OpusURL is the ogg/opus stream.
	OpusURL string

	// GatewayURL is the websocket pushing now-playing updates.
	GatewayURL string
}

var (
	// Jpop is the default J-pop channel.
	Jpop = Library{
		Name:        "jpop",
		DisplayName: "J-POP",
		StreamURL:   "https://listen.moe/fallback",
		OpusURL:     "https://listen.moe/stream",
		GatewayURL:  "wss://listen.moe/gateway_v2",
	}

	// Kpop is the K-pop channel.
	Kpop = Library{
		Name:        "kpop",
		DisplayName: "K-POP",
		StreamURL:   "https://listen.moe/kpop/fallback",
		OpusURL:     "https://listen.moe/kpop/stream",
		GatewayURL:  "wss://listen.moe/kpop/gateway_v2",
	}
)

// Libraries lists every known library in display order.
func Libraries() []Library {
	return []Library{Jpop, Kpop}
}

// LibraryByName looks up a library by API name. "j-pop" and "k-pop" are
// accepted as aliases, matching is case-insensitive.
func LibraryByName(name string) (Library, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "jpop", "j-pop":
		return Jpop, true
	case "kpop", "k-pop":
		return Kpop, true
	}
	return Library{}, false
}
