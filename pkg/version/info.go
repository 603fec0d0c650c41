package version

import "fmt"

// Build-time injected information, set via -ldflags.
var (
	Version    string
	CommitHash string
	BuildTime  string
	Snapshot   string
	OS         string
	Arch       string
)

// GetVersion returns the version information in a human consumable way. This is
// intended to be used when the user requests the version information or in the
// case of the User-Agent.
func GetVersion() string {
	return makeVersionString(Version, CommitHash, Snapshot, OS, Arch)
}

func makeVersionString(version, commitHash, snapshot, os, arch string) string {
	versionString := fmt.Sprintf("%s(%s)", version, commitHash)
	if snapshot == "true" {
		versionString = fmt.Sprintf("%s-snapshot", versionString)
	}
	if os != "" && arch != "" {
		versionString = fmt.Sprintf("%s/%s-%s", versionString, os, arch)
	} else if os != "" {
		versionString = fmt.Sprintf("%s/%s", versionString, os)
	}
	return versionString
}
