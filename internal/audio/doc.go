// Package audio provides audio file services for the radio client: ID3
// tagging of recorded songs and stream playlists.
//
// # ID3 Tagging
//
// Use the Tagger to write ID3 tags to recorded MP3 files:
//
//	tagger := audio.NewTagger(audio.DefaultTagConfig())
//	err := tagger.SaveTags(audio.Recording{Path: path, Song: song, Library: lib}, artworkBytes)
//
// The tagger supports:
//   - Artist, Album Artist
//   - Album Title, Track Title
//   - Source (the anime or game)
//   - Recording date and channel comment
//   - Cover Art (embedded in MP3)
//
// # Playlist Generation
//
// Generate playlists that point external players at the radio streams:
//
//	creator := audio.NewPlaylistCreator(audio.FormatPLS, false)
//	content := creator.CreatePlaylist("LISTEN.moe", audio.StreamEntries(model.Libraries()...))
//	os.WriteFile("listen.moe.pls", []byte(content), 0644)
//
// Supported formats:
//   - M3U (with optional extended info)
//   - PLS
//   - WPL (Windows Media Player)
//   - ZPL (Zune Media Player)
package audio
