package parse

import "strings"

// Keywords splits a search query on whitespace into lowercase words
func Keywords(query string) []string {
	words := strings.Fields(query)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return words
}

// FilterByKeywords keeps the items that contain every keyword of query, preserving order.
// Only the query side is lowercased unless foldItems is set, so with foldItems=false an
// item written in upper case will not match a query in any case
func FilterByKeywords(items []string, query string, foldItems bool) []string {
	words := Keywords(query)
	filtered := make([]string, 0, len(items))
	for _, item := range items {
		haystack := item
		if foldItems {
			haystack = strings.ToLower(item)
		}
		if containsAll(haystack, words) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

func containsAll(s string, words []string) bool {
	for _, w := range words {
		if !strings.Contains(s, w) {
			return false
		}
	}
	return true
}
