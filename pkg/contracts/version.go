package contracts

import (
	"fmt"
	"runtime"
)

const (
	// Version is the release of the server, CLI and wire contracts.
	Version = "1.0.0"

	// Prerelease marks a release candidate ("rc.1"); empty for releases.
	Prerelease = ""

	// DataFormatVersion names the agency dataset column set the loader
	// expects.
	DataFormatVersion = "finalapi-v1"

	// APIVersion is the version of the HTTP and live dashboard messages.
	APIVersion = "v1"
)

// Build metadata, stamped with
// -ldflags "-X agencypulse/pkg/contracts.GitCommit=...".
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

// VersionInfo is the /api/version payload.
type VersionInfo struct {
	Version      string `json:"version"`
	Stable       bool   `json:"stable"`
	BuildTime    string `json:"build_time"`
	GitCommit    string `json:"git_commit"`
	GitBranch    string `json:"git_branch"`
	GoVersion    string `json:"go_version"`
	OS           string `json:"os"`
	Architecture string `json:"architecture"`
	DataFormat   string `json:"data_format"`
	APIVersion   string `json:"api_version"`
}

// GetVersionInfo returns the build's version information.
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:      ReleaseName(),
		Stable:       IsStable(),
		BuildTime:    BuildTime,
		GitCommit:    GitCommit,
		GitBranch:    GitBranch,
		GoVersion:    runtime.Version(),
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		DataFormat:   DataFormatVersion,
		APIVersion:   APIVersion,
	}
}

// ReleaseName is Version with its prerelease suffix, if any.
func ReleaseName() string {
	if Prerelease == "" {
		return Version
	}
	return Version + "-" + Prerelease
}

// FullVersion is the one-line build description printed by --version and
// logged at startup.
func FullVersion() string {
	return fmt.Sprintf("Agency Pulse v%s (commit %s, built %s, data %s, %s %s/%s)",
		ReleaseName(), GitCommit, BuildTime, DataFormatVersion,
		runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// IsStable reports whether this build is a release rather than a
// prerelease or a 0.x version.
func IsStable() bool {
	return Prerelease == "" && Version[0] != '0'
}
