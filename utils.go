package main

import (
	"strings"
)

// requests the page watcher never reports on
var ignoredRequestPatterns = []string{
	"/favicon.ico",
}

// isIgnoredResource reports whether the given resource URL matches any of
// the ignored patterns, or is inline content that never hits the network
func isIgnoredResource(resource string, ignoredPatterns []string) bool {
	// (web workers, service workers, generated content, etc.)
	if strings.HasPrefix(resource, "blob:") {
		return true
	}

	// (inline content)
	if strings.HasPrefix(resource, "data:") {
		return true
	}

	for _, pattern := range ignoredPatterns {
		if strings.Contains(resource, pattern) {
			return true
		}
	}

	return false
}

// boolToEmoji takes in a boolean and returns corresponding
// emoji to visual inspection
func boolToEmoji(ok bool) string {
	if !ok {
		return "❌"
	}

	return "✅"
}
