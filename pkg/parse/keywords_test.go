package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeywords(t *testing.T) {
	assert.Equal(t, []string{"show", "s01", "e02"}, Keywords("  Show S01\tE02 "))
	assert.Empty(t, Keywords("   "))
}

func TestFilterByKeywords(t *testing.T) {
	items := []string{"abc-foo-bar", "ABC-FOO-BAR", "xyz"}

	t.Run("only query side lowercased", func(t *testing.T) {
		got := FilterByKeywords(items, "foo bar", false)
		assert.Equal(t, []string{"abc-foo-bar"}, got)
	})

	t.Run("mixed case query matches lowercase item", func(t *testing.T) {
		got := FilterByKeywords(items, "FOO Bar", false)
		assert.Equal(t, []string{"abc-foo-bar"}, got)
	})

	t.Run("fold items matches both", func(t *testing.T) {
		got := FilterByKeywords(items, "foo bar", true)
		assert.Equal(t, []string{"abc-foo-bar", "ABC-FOO-BAR"}, got)
	})

	t.Run("fold items returns original spelling", func(t *testing.T) {
		got := FilterByKeywords([]string{"http://x/Show-S01-E02"}, "show s01 e02", true)
		assert.Equal(t, []string{"http://x/Show-S01-E02"}, got)
	})

	t.Run("order preserved", func(t *testing.T) {
		got := FilterByKeywords([]string{"b-foo", "a-foo", "c-bar", "d-foo"}, "foo", false)
		assert.Equal(t, []string{"b-foo", "a-foo", "d-foo"}, got)
	})

	t.Run("every word required", func(t *testing.T) {
		got := FilterByKeywords([]string{"show-s01-e02", "show-s01-e03"}, "show s01 e02", false)
		assert.Equal(t, []string{"show-s01-e02"}, got)
	})

	t.Run("no match is empty not nil", func(t *testing.T) {
		got := FilterByKeywords(items, "nothing", false)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("empty query keeps everything", func(t *testing.T) {
		got := FilterByKeywords(items, "", false)
		assert.Equal(t, items, got)
	})
}
