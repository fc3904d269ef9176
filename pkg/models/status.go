package models

// AttemptStatus represents how far a candidate attempt got through the pipeline
type AttemptStatus string

const (
	AttemptStatusUnset            AttemptStatus = ""                  // Zero value = unset/unknown
	AttemptStatusAdvanced         AttemptStatus = "advanced"          // Submitted and the record moved forward
	AttemptStatusDiscoveryFailed  AttemptStatus = "discovery_failed"  // Search or asset page yielded no link
	AttemptStatusSubmissionFailed AttemptStatus = "submission_failed" // Login or add request errored
	AttemptStatusRejected         AttemptStatus = "rejected"          // Service answered without the success marker
	AttemptStatusSkipped          AttemptStatus = "skipped"           // Link already submitted in an earlier run
)

// String implements fmt.Stringer for logging
func (s AttemptStatus) String() string {
	if s == "" {
		return "unset"
	}
	return string(s)
}

// IsValid returns true if the status is a known operational value
func (s AttemptStatus) IsValid() bool {
	switch s {
	case AttemptStatusAdvanced, AttemptStatusDiscoveryFailed, AttemptStatusSubmissionFailed,
		AttemptStatusRejected, AttemptStatusSkipped:
		return true
	}
	return false
}

// IsSuccess reports whether the attempt advanced the record
func (s AttemptStatus) IsSuccess() bool {
	return s == AttemptStatusAdvanced
}

// RecordOutcome is the final state of one tracked record after a run
type RecordOutcome string

const (
	RecordOutcomeAdvanced  RecordOutcome = "advanced"  // A candidate was submitted successfully
	RecordOutcomeExhausted RecordOutcome = "exhausted" // Every candidate failed; record unchanged
)
