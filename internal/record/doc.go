// Package record saves the live radio stream as one tagged MP3 per song.
//
// # Recorder
//
// The Recorder reads the channel's mp3 stream and listens to gateway track
// updates to find song boundaries:
//
//  1. Open the stream and copy it into the current file
//  2. On every track change, start a new file named after the song
//  3. Tag the finished file with ID3 metadata and the album cover
//  4. Write a playlist of everything recorded (optional)
//
// # Basic Usage
//
//	gw := gateway.New(lib.GatewayURL)
//	go gw.Run(ctx)
//
//	rec := record.NewRecorder(record.ConfigFromSettings(settings), httpClient, lib, func(e record.ProgressEvent) {
//	    fmt.Println(e.Message)
//	})
//	if err := rec.Run(ctx, gw.Updates()); err != nil {
//	    log.Fatal(err)
//	}
//
// Audio received before the first track update is discarded, so the first
// file usually holds the tail of the song that was playing when recording
// started.
//
// # Retry Logic
//
// A dropped stream is reopened with exponential backoff. Recording stops
// after settings.RecordMaxRetries consecutive failures.
package record
