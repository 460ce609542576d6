// Package model defines the core data structures used throughout
// listenmoe-client.
//
// # Song
//
// Song is the full song shape returned by favorites, artist details and the
// gateway. SongListItem is the compact shape returned by the song listing and
// is the one searched client-side:
//
//	for _, item := range items {
//	    if item.Matches("yuki") {
//	        songs = append(songs, item.ToSong())
//	    }
//	}
//
// # Library
//
// Library describes a radio channel (J-pop or K-pop) and its stream and
// gateway endpoints:
//
//	lib, ok := model.LibraryByName("kpop")
//	fmt.Println(lib.StreamURL) // https://listen.moe/kpop/fallback
//
// # Playback
//
// PlaybackInfo carries a now-playing update pushed by the gateway.
package model
