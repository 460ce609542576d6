// Package ioutils provides file system and image helpers.
//
// # File Operations
//
//	// Write a file through a temp file and rename
//	err := ioutils.WriteFileAtomic(ctx, "/path/to/prefs.json", data, 0600)
//
//	// Ensure directory exists
//	err := ioutils.EnsureDir("/path/to/recordings")
//
// # Filename Sanitization
//
// Recording file names are built from song metadata and must be valid on
// every platform:
//
//	safe := ioutils.SanitizeFileName("Song: Part 1/2") // Returns "Song_ Part 1_2"
//
// # Album Art
//
// The ImageService prepares album covers for embedding in ID3 tags:
//
//	svc := ioutils.NewImageService()
//	cover, err := svc.PrepareCover(ctx, imageData, 500)
package ioutils
