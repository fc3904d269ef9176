package submit

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/series-spider/pkg/fetch"
	"github.com/Sriram-PR/series-spider/pkg/models"
	"github.com/Sriram-PR/series-spider/pkg/utils"
)

const (
	userAgent     = "series-spider/1.0"
	successMarker = "Ok."
)

// QBFetcherConfig configures a qBittorrent-style WebUI endpoint
type QBFetcherConfig struct {
	URL      string `toml:"url"`
	AddURL   string `toml:"add_url"`
	LoginURL string `toml:"login_url"`
	Username string `toml:"username,omitempty"` // Empty skips the login request
	Password string `toml:"password,omitempty"`
	SavePath string `toml:"save_path"` // The series title is appended verbatim
}

// Validate checks the required fields
func (c *QBFetcherConfig) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return fmt.Errorf("%w: qbfetcher: url cannot be empty", utils.ErrConfigValidation)
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("%w: qbfetcher: invalid url '%s': %w", utils.ErrConfigValidation, c.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: qbfetcher: url '%s' must be http or https", utils.ErrConfigValidation, c.URL)
	}
	if c.AddURL == "" {
		return fmt.Errorf("%w: qbfetcher: add_url cannot be empty", utils.ErrConfigValidation)
	}
	if c.Username != "" && c.LoginURL == "" {
		return fmt.Errorf("%w: qbfetcher: login_url is required when username is set", utils.ErrConfigValidation)
	}
	return nil
}

// QBFetcher submits links through a cookie session: optional login, then the add request
type QBFetcher struct {
	cfg     QBFetcherConfig
	base    string
	fetcher *fetch.Fetcher
	log     *logrus.Entry
}

// NewQBFetcher creates the strategy with its own cookie-keeping session
func NewQBFetcher(cfg QBFetcherConfig, timeout time.Duration, log *logrus.Entry) (*QBFetcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base := strings.TrimRight(cfg.URL, "/")
	log = log.WithFields(logrus.Fields{"fetcher": TypeQBFetcher, "endpoint": base})

	client, err := fetch.NewSessionClient(timeout, log)
	if err != nil {
		return nil, err
	}
	return &QBFetcher{
		cfg:     cfg,
		base:    base,
		fetcher: fetch.NewFetcher(client, log),
		log:     log,
	}, nil
}

// SaveDir returns the directory the download is queued into for title
func (q *QBFetcher) SaveDir(title string) string {
	return q.cfg.SavePath + title
}

// Fetch logs in when a username is configured, then queues file.Link
func (q *QBFetcher) Fetch(ctx context.Context, file models.WebFile) (*models.WebResponse, error) {
	headers := http.Header{}
	headers.Set("User-Agent", userAgent)
	headers.Set("Referer", q.base)

	if q.cfg.Username != "" {
		if err := q.login(ctx, headers); err != nil {
			return nil, err
		}
	}

	form := url.Values{}
	form.Set("urls", file.Link)
	form.Set("savepath", q.SaveDir(file.Content.Title))

	body, err := q.fetcher.PostForm(ctx, q.base+q.cfg.AddURL, form, headers)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrSubmitFailed, err)
	}
	q.log.WithField("response", body).Debug("Add request answered")

	return &models.WebResponse{
		File:     file,
		Response: body,
		Success:  body == successMarker,
	}, nil
}

func (q *QBFetcher) login(ctx context.Context, headers http.Header) error {
	form := url.Values{}
	form.Set("username", q.cfg.Username)
	form.Set("password", q.cfg.Password)

	body, err := q.fetcher.PostForm(ctx, q.base+q.cfg.LoginURL, form, headers)
	if err != nil {
		return fmt.Errorf("%w: %w", utils.ErrLoginFailed, err)
	}
	// The WebUI answers "Ok." or "Fails." with a 200 either way
	if !strings.Contains(strings.ToLower(body), "ok") {
		return fmt.Errorf("%w: server answered '%s'", utils.ErrLoginFailed, body)
	}
	q.log.Debug("Logged in")
	return nil
}
