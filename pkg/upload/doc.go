// ABOUTME: Audio upload package
// ABOUTME: Multipart upload client and local media cache
// Package upload sends local audio files to the waveform server and fetches
// the served copy back for local playback.
//
// Example:
//
//	c, _ := upload.NewClient("http://localhost:8000", nil)
//	res, err := c.Upload(ctx, "/home/me/take1.flac")
//	if err != nil {
//	    return err // *upload.Error carries the server's detail text
//	}
//	channel.Send(protocol.TypeLoad, protocol.Load{Path: res.Path})
package upload
