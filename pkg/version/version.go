package version

import (
	"fmt"
	"runtime"
	"strings"
)

// Semantic version of the service
const (
	Major      = 0
	Minor      = 3
	Patch      = 0
	PreRelease = "" // e.g., "alpha", "rc1"
)

// Set at build time:
//
//	go build -ldflags "-X github.com/nftforge/text2nft/pkg/version.GitCommit=$(git rev-parse HEAD)"
var (
	GitCommit = ""
	BuildDate = ""
)

const appName = "text2nft"

// Version returns the semantic version string
func Version() string {
	v := fmt.Sprintf("%d.%d.%d", Major, Minor, Patch)
	if PreRelease != "" {
		v += "-" + PreRelease
	}
	return v
}

// BuildInfo contains build information
type BuildInfo struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetBuildInfo returns complete build information
func GetBuildInfo() *BuildInfo {
	return &BuildInfo{
		Name:      appName,
		Version:   Version(),
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String returns a one-line version description
func (b *BuildInfo) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s v%s", b.Name, b.Version)
	if len(b.GitCommit) >= 7 {
		fmt.Fprintf(&sb, " (commit: %s)", b.GitCommit[:7])
	}
	if b.BuildDate != "" {
		fmt.Fprintf(&sb, " (built: %s)", b.BuildDate)
	}
	fmt.Fprintf(&sb, " (go: %s, platform: %s)", b.GoVersion, b.Platform)
	return sb.String()
}

// GetBanner returns a formatted banner for application startup
func GetBanner() string {
	b := GetBuildInfo()
	banner := fmt.Sprintf(`
┌──────────────────────────────────────────────┐
│ %-44s │
│ Go: %-17s Platform: %-12s │`,
		b.Name+" v"+b.Version,
		b.GoVersion,
		b.Platform,
	)
	if len(b.GitCommit) >= 7 {
		banner += fmt.Sprintf(`
│ Commit: %-36s │`, b.GitCommit[:7])
	}
	banner += `
└──────────────────────────────────────────────┘`
	return banner
}
