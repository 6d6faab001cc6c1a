package paillier

// Version is populated at build time via
// -ldflags "-X github.com/coinbase/cb-paillier-go/pkg/paillier.Version=...".
var Version = "v0.0.0-in-progress"

// LibraryVersion returns the semantic version set at build time. In development
// it defaults to v0.0.0-in-progress.
func LibraryVersion() string {
	return Version
}
