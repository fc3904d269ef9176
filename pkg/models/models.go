package models

import (
	"fmt"
	"time"
)

// Content is one tracked series: its naming template plus the season/episode counters
// Field order matches the on-disk TOML layout
type Content struct {
	Prefix       string `toml:"prefix" yaml:"prefix"`
	Title        string `toml:"title" yaml:"title"`
	FirstPrefix  string `toml:"first_prefix" yaml:"first_prefix"`
	First        uint32 `toml:"first" yaml:"first"`
	SecondPrefix string `toml:"second_prefix" yaml:"second_prefix"`
	Second       uint32 `toml:"second" yaml:"second"`
	Digits       uint   `toml:"digits" yaml:"digits"`
	Postfix      string `toml:"postfix" yaml:"postfix"`
}

// Query renders the record as a search string, zero-padding both counters to Digits
func (c Content) Query() string {
	width := int(c.Digits)
	return fmt.Sprintf("%s%s %s%0*d %s%0*d%s",
		c.Prefix, c.Title,
		c.FirstPrefix, width, c.First,
		c.SecondPrefix, width, c.Second,
		c.Postfix)
}

// String implements fmt.Stringer for logging
func (c Content) String() string {
	return c.Query()
}

// Predict returns the candidates for the next installment, in the order they should be tried:
// the next episode of the current season, then the first episode of the next season
func (c Content) Predict() []Content {
	nextEpisode := c
	nextEpisode.Second++

	nextSeason := c
	nextSeason.First++
	nextSeason.Second = 1

	return []Content{nextEpisode, nextSeason}
}

// WebFile pairs a candidate with the download link discovery resolved for it
type WebFile struct {
	Content Content
	Link    string
}

// String implements fmt.Stringer; the link is shortened since magnet URIs are long
func (f WebFile) String() string {
	link := f.Link
	if len(link) > 15 {
		link = link[:15]
	}
	return fmt.Sprintf("%s -> %s...", f.Content, link)
}

// WebResponse is the raw answer of the download service for a submitted WebFile
type WebResponse struct {
	File     WebFile
	Response string
	Success  bool
}

// String implements fmt.Stringer for logging
func (r WebResponse) String() string {
	return fmt.Sprintf("success=%t content=[%s] response=%s", r.Success, r.File, r.Response)
}

// AttemptEntry stores the outcome of one candidate attempt in the attempt ledger
type AttemptEntry struct {
	RunID          string        `json:"run_id" yaml:"run_id"`
	RecordIndex    int           `json:"record_index" yaml:"record_index"`
	RecordQuery    string        `json:"record_query" yaml:"record_query"`       // Query of the tracked record before the attempt
	CandidateQuery string        `json:"candidate_query" yaml:"candidate_query"` // Query that was searched for
	Status         AttemptStatus `json:"status" yaml:"status"`
	Link           string        `json:"link,omitempty" yaml:"link,omitempty"`
	Response       string        `json:"response,omitempty" yaml:"response,omitempty"`
	ErrorType      string        `json:"error_type,omitempty" yaml:"error_type,omitempty"` // Error category (on failure)
	Error          string        `json:"error,omitempty" yaml:"error,omitempty"`
	AttemptedAt    time.Time     `json:"attempted_at" yaml:"attempted_at"`
}
