package utils

import (
	"regexp"
	"strings"
)

// unsafeNameRuns matches runs of characters that cannot appear in a path component, underscores included
var unsafeNameRuns = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F_]+`)

const maxFilenameLength = 100

// SanitizeFilename turns name into a single path component for per-store state directories.
// Never returns an empty string.
func SanitizeFilename(name string) string {
	clean := strings.Trim(unsafeNameRuns.ReplaceAllString(name, "_"), "_ ")
	if len(clean) > maxFilenameLength {
		clean = strings.Trim(clean[:maxFilenameLength], "_ ")
	}
	if clean == "" {
		return "untitled"
	}
	return clean
}
