package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func show(first, second uint32, digits uint) Content {
	return Content{
		Title:        "Show",
		FirstPrefix:  "S",
		First:        first,
		SecondPrefix: "E",
		Second:       second,
		Digits:       digits,
	}
}

func TestContent_Query(t *testing.T) {
	tests := []struct {
		name    string
		content Content
		want    string
	}{
		{
			name:    "padded to two digits",
			content: show(1, 9, 2),
			want:    "Show S01 E09",
		},
		{
			name:    "no padding when digits is zero",
			content: show(1, 9, 0),
			want:    "Show S1 E9",
		},
		{
			name:    "no truncation when number is wider than digits",
			content: show(12, 345, 2),
			want:    "Show S12 E345",
		},
		{
			name: "prefix and postfix",
			content: Content{
				Prefix: "[Sub] ", Title: "Show",
				FirstPrefix: "Season ", First: 3,
				SecondPrefix: "Episode ", Second: 4,
				Digits: 3, Postfix: " 1080p",
			},
			want: "[Sub] Show Season 003 Episode 004 1080p",
		},
		{
			name:    "empty labels",
			content: Content{Title: "Show", First: 1, Second: 2, Digits: 2},
			want:    "Show 01 02",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.content.Query())
			assert.Equal(t, tt.want, tt.content.String())
		})
	}
}

func TestContent_Query_PaddedWidth(t *testing.T) {
	for digits := uint(0); digits <= 4; digits++ {
		for _, n := range []uint32{0, 7, 42, 1234, 99999} {
			c := Content{First: n, Second: n, Digits: digits}
			fields := strings.Fields(c.Query())
			require.Len(t, fields, 2)
			want := max(int(digits), len(strconv.FormatUint(uint64(n), 10)))
			for _, f := range fields {
				assert.Len(t, f, want, "digits=%d n=%d", digits, n)
			}
		}
	}
}

func TestContent_Predict(t *testing.T) {
	c := Content{
		Prefix: "p", Title: "Show",
		FirstPrefix: "S", First: 1,
		SecondPrefix: "E", Second: 5,
		Digits: 2, Postfix: "x",
	}

	got := c.Predict()

	require.Len(t, got, 2)

	nextEpisode := c
	nextEpisode.Second = 6
	assert.Equal(t, nextEpisode, got[0])

	nextSeason := c
	nextSeason.First = 2
	nextSeason.Second = 1
	assert.Equal(t, nextSeason, got[1])

	// Predict works on copies
	assert.Equal(t, uint32(5), c.Second)
	assert.Equal(t, uint32(1), c.First)
}

func TestWebFile_String(t *testing.T) {
	f := WebFile{Content: show(1, 2, 2), Link: "magnet:?xt=urn:btih:0123456789abcdef"}
	assert.Equal(t, "Show S01 E02 -> magnet:?xt=urn:...", f.String())

	short := WebFile{Content: show(1, 2, 2), Link: "http://a/b"}
	assert.Equal(t, "Show S01 E02 -> http://a/b...", short.String())
}

func TestWebResponse_String(t *testing.T) {
	r := WebResponse{
		File:     WebFile{Content: show(1, 2, 2), Link: "http://a/b"},
		Response: "Ok.",
		Success:  true,
	}
	assert.Equal(t, "success=true content=[Show S01 E02 -> http://a/b...] response=Ok.", r.String())
}

func TestAttemptEntry_OmitEmpty(t *testing.T) {
	entry := AttemptEntry{
		RunID:          "run",
		CandidateQuery: "Show S01 E02",
		Status:         AttemptStatusDiscoveryFailed,
		AttemptedAt:    time.Now().UTC(),
	}

	data, err := json.Marshal(entry)
	require.NoError(t, err)

	raw := string(data)
	assert.NotContains(t, raw, `"link"`)
	assert.NotContains(t, raw, `"response"`)
	assert.Contains(t, raw, `"status":"discovery_failed"`)
}
