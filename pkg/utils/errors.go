package utils

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
)

// --- Sentinel Errors for Categorization ---
var (
	ErrConfigLoad       = errors.New("configuration load error")       // Fatal: a required store could not be read or decoded
	ErrConfigValidation = errors.New("configuration validation error") // Fatal: a store decoded but holds invalid values

	ErrFetchFailed      = errors.New("fetch failed")               // Discovery transport or non-2xx failure
	ErrClientHTTPError  = errors.New("client HTTP error (4xx)")    // Wraps original status
	ErrServerHTTPError  = errors.New("server HTTP error (5xx)")    // Wraps original status
	ErrOtherHTTPError   = errors.New("other HTTP error (non-2xx)") // Wraps original status
	ErrRequestCreation  = errors.New("failed to create HTTP request")
	ErrResponseBodyRead = errors.New("failed to read response body")
	ErrParsing          = errors.New("parsing error") // Wraps specific parsing error (HTML, URL, TOML)

	ErrFirstStageEmpty  = errors.New("nothing found in first stage")
	ErrSecondStageEmpty = errors.New("nothing found in second stage")

	ErrLoginFailed        = errors.New("login failed")
	ErrSubmitFailed       = errors.New("submit failed")
	ErrSubmissionRejected = errors.New("submission not successful") // Endpoint answered without the success marker

	ErrFilesystem  = errors.New("filesystem error") // Wraps os errors
	ErrDatabase    = errors.New("database error")   // Wraps badger errors
	ErrStoreLocked = errors.New("content store is locked by another process")
)

// CategorizeError maps an error to a predefined category string for logs and the attempt ledger.
func CategorizeError(err error) string {
	if err == nil {
		return "None"
	}

	// Pipeline outcomes first: they wrap the lower-level HTTP sentinels
	switch {
	case errors.Is(err, ErrFirstStageEmpty):
		return "Discovery_FirstStageEmpty"
	case errors.Is(err, ErrSecondStageEmpty):
		return "Discovery_SecondStageEmpty"
	case errors.Is(err, ErrLoginFailed):
		return "Submission_LoginFailed"
	case errors.Is(err, ErrSubmitFailed):
		return "Submission_SubmitFailed"
	case errors.Is(err, ErrSubmissionRejected):
		return "Submission_Rejected"
	}

	switch {
	case errors.Is(err, ErrClientHTTPError):
		errMsg := err.Error()
		if strings.Contains(errMsg, " 404 ") {
			return "HTTP_404"
		}
		if strings.Contains(errMsg, " 403 ") {
			return "HTTP_403"
		}
		if strings.Contains(errMsg, " 401 ") {
			return "HTTP_401"
		}
		if strings.Contains(errMsg, " 429 ") {
			return "HTTP_429"
		}
		return "HTTP_4xx"
	case errors.Is(err, ErrServerHTTPError):
		return "HTTP_5xx"
	case errors.Is(err, ErrOtherHTTPError):
		return "HTTP_OtherStatus"
	case errors.Is(err, ErrParsing):
		errMsg := err.Error()
		if strings.Contains(errMsg, "URL") {
			return "Content_ParsingURL"
		}
		if strings.Contains(errMsg, "HTML") {
			return "Content_ParsingHTML"
		}
		if strings.Contains(errMsg, "TOML") {
			return "Content_ParsingTOML"
		}
		return "Content_ParsingOther"
	case errors.Is(err, ErrFilesystem):
		if errors.Is(err, os.ErrPermission) {
			return "Filesystem_Permission"
		}
		if errors.Is(err, os.ErrNotExist) {
			return "Filesystem_NotExist"
		}
		return "Filesystem_Other"
	case errors.Is(err, ErrDatabase):
		return "Database_Other"
	case errors.Is(err, ErrStoreLocked):
		return "Resource_StoreLocked"
	case errors.Is(err, ErrRequestCreation):
		return "Internal_RequestCreation"
	case errors.Is(err, ErrResponseBodyRead):
		return "Network_BodyRead"
	case errors.Is(err, ErrConfigValidation):
		return "Config_Validation"
	case errors.Is(err, ErrConfigLoad):
		return "Config_Load"
	}

	// --- Fallback checks for common underlying error types/strings ---

	if errors.Is(err, context.Canceled) {
		return "System_ContextCanceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "System_ContextDeadlineExceeded"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "Network_Timeout"
	}

	lowerErrMsg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lowerErrMsg, "timeout"):
		return "Network_TimeoutGeneric"
	case strings.Contains(lowerErrMsg, "connection refused"):
		return "Network_ConnectionRefused"
	case strings.Contains(lowerErrMsg, "no such host"):
		return "Network_DNSLookup"
	case strings.Contains(lowerErrMsg, "tls") || strings.Contains(lowerErrMsg, "certificate"):
		return "Network_TLS"
	case strings.Contains(lowerErrMsg, "reset by peer"):
		return "Network_ConnectionReset"
	}

	if errors.Is(err, ErrFetchFailed) {
		return "Discovery_FetchFailed"
	}

	return "Unknown"
}
