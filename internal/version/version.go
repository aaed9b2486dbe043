// Package version exposes build metadata stamped into the docchat binary
// with -ldflags, e.g.:
//
//	go build -ldflags "-X github.com/docchat/docchat-go/internal/version.Version=v0.3.0 \
//	  -X github.com/docchat/docchat-go/internal/version.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/docchat/docchat-go/internal/version.BuildDate=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Unstamped builds (plain `go run`) report the fallback values below.
package version

var (
	// Version is the release tag of this build.
	Version = "dev"

	// Commit is the short git SHA the build came from.
	Commit = "unknown"

	// BuildDate is the UTC build timestamp in RFC3339.
	BuildDate = "unknown"
)
