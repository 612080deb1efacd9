// Package version holds the tool version stamped into archives and CLI output.
package version

// Version is overridable at build time via -ldflags.
var Version = "0.4.0"
