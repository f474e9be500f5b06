// ABOUTME: Build identification for the client
// ABOUTME: Version is overridden at link time with -ldflags "-X"
package version

const (
	Product      = "WaveScrub"
	Manufacturer = "WaveScrub"
)

// Version is the release string
var Version = "0.1.0"

// UserAgent identifies the client on HTTP requests
func UserAgent() string {
	return Product + "/" + Version
}
