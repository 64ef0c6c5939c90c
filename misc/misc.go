// Package misc carries build identification shared across the tool.
package misc

// Overwritten at build time with -ldflags "-X".
var (
	appName = "bbhtml"
	version = "development"
	gitHash = "unknown"
)

// GetAppName returns the short tool name used for logs, temporary
// directories and reports.
func GetAppName() string {
	return appName
}

// GetVersion returns the version stamped into the binary.
func GetVersion() string {
	return version
}

// GetGitHash returns the source revision stamped into the binary.
func GetGitHash() string {
	return gitHash
}
