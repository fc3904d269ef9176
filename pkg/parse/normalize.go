package parse

import (
	"net"
	"net/url"
	"strings"
)

// NormalizeURL standardizes a download link for comparison and storage
// It lowercases the scheme and host, removes default ports (80 for http, 443 for https) and drops the fragment
// The query string is kept: for magnet URIs and tracker download endpoints it carries the identity of the file
// Does not modify the input *url.URL
func NormalizeURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	// Work on a copy
	normalized := *u

	normalized.Scheme = strings.ToLower(normalized.Scheme)
	normalized.Host = strings.ToLower(normalized.Host)

	// Remove default ports
	host, port, err := net.SplitHostPort(normalized.Host)
	if err == nil {
		if (normalized.Scheme == "http" && port == "80") ||
			(normalized.Scheme == "https" && port == "443") {
			normalized.Host = host
		}
	}

	// Only hierarchical URLs get a root path; opaque ones such as magnet: have none
	if normalized.Opaque == "" && normalized.Host != "" && normalized.Path == "" {
		normalized.Path = "/"
	}

	normalized.Fragment = ""
	normalized.RawFragment = ""

	return normalized.String()
}

// LinkKey returns the key under which a submitted link is remembered
// Links that fail to parse are used verbatim
func LinkKey(link string) string {
	parsed, err := url.Parse(strings.TrimSpace(link))
	if err != nil || parsed.Scheme == "" {
		return strings.TrimSpace(link)
	}
	return NormalizeURL(parsed)
}
