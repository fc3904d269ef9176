package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/series-spider/pkg/utils"
)

// Fetcher performs single-shot HTTP requests and maps failures onto the sentinel errors.
// There is no retry: a failed request fails the attempt it belongs to.
type Fetcher struct {
	client *http.Client
	log    *logrus.Entry
}

// NewFetcher creates a new Fetcher instance
func NewFetcher(client *http.Client, log *logrus.Entry) *Fetcher {
	return &Fetcher{
		client: client,
		log:    log,
	}
}

// Client returns the underlying HTTP client
func (f *Fetcher) Client() *http.Client {
	return f.client
}

// Do executes req under ctx. On success the caller owns the response body.
// Transport errors and non-2xx statuses are returned wrapped in ErrFetchFailed; the body is closed in that case.
func (f *Fetcher) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	reqLog := f.log.WithFields(logrus.Fields{"method": req.Method, "url": req.URL.String()})

	resp, err := f.client.Do(req.WithContext(ctx))
	if err != nil {
		reqLog.Debugf("Network error: %v", err)
		return nil, fmt.Errorf("%w: %w", utils.ErrFetchFailed, err)
	}

	statusCode := resp.StatusCode
	if statusCode >= 200 && statusCode < 300 {
		reqLog.WithField("status_code", statusCode).Debug("Successfully fetched")
		return resp, nil
	}

	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	reqLog.WithField("status_code", statusCode).Debug("Non-2xx status")

	var statusErr error
	switch {
	case statusCode >= 500:
		statusErr = utils.ErrServerHTTPError
	case statusCode >= 400:
		statusErr = utils.ErrClientHTTPError
	default:
		statusErr = utils.ErrOtherHTTPError
	}
	return nil, fmt.Errorf("%w: %w: status %d %s", utils.ErrFetchFailed, statusErr, statusCode, resp.Status)
}

// GetDocument fetches pageURL with the given user agent and parses the body as HTML
func (f *Fetcher) GetDocument(ctx context.Context, pageURL, userAgent string) (*goquery.Document, error) {
	req, err := http.NewRequest(http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %w", utils.ErrFetchFailed, utils.ErrRequestCreation, err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := f.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse HTML from %s: %w", utils.ErrParsing, pageURL, err)
	}
	return doc, nil
}

// PostForm sends form url-encoded to target with the extra headers and returns the raw response body
func (f *Fetcher) PostForm(ctx context.Context, target string, form url.Values, headers http.Header) (string, error) {
	req, err := http.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: %w: %w", utils.ErrFetchFailed, utils.ErrRequestCreation, err)
	}
	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.Do(ctx, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %w: %w", utils.ErrFetchFailed, utils.ErrResponseBodyRead, err)
	}
	return string(body), nil
}
