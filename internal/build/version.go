package build

import "fmt"

// Set at link time:
//
//	go build -ldflags "-X github.com/rohmanhakim/wikisearch/internal/build.Version=1.2.0 \
//	  -X github.com/rohmanhakim/wikisearch/internal/build.Commit=$(git rev-parse --short HEAD)" ./cmd/wikisearch
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

// FullVersion returns the version string with commit hash appended.
// Format: "Version+Commit" (e.g., "1.0.0+abc123")
func FullVersion() string {
	return Version + "+" + Commit
}

// Banner is the line printed by the version command.
func Banner() string {
	return fmt.Sprintf("wikisearch %s (built %s)", FullVersion(), BuildTime)
}
