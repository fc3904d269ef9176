package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/series-spider/pkg/models"
	"github.com/Sriram-PR/series-spider/pkg/storage"
)

const testContents = `
[[content]]
prefix = ""
title = "show"
first_prefix = "s"
first = 1
second_prefix = "e"
second = 2
digits = 2
postfix = ""
`

// testEnv is a directory holding all three stores, pointed at baseURL
type testEnv struct {
	dir  string
	opts *rootOptions
}

func newTestEnv(t *testing.T, baseURL string) *testEnv {
	t.Helper()
	dir := t.TempDir()

	crawlers := fmt.Sprintf(`
[[crawlers]]
type = "twostageweb"
url = "%s"
search_page = "/search"
search_get_name = "q"
categories = ["tv"]
categories_get_name = "cat"
user_agent = "test-agent"
limit = 10
first_stage_match = "a.result"
second_stage_match = "a.download"
`, baseURL)
	fetchers := fmt.Sprintf(`
[[fetchers]]
type = "qbfetcher"
url = "%s/"
add_url = "/api/v2/torrents/add"
login_url = "/api/v2/auth/login"
save_path = "/downloads/"
`, baseURL)

	writeFile(t, filepath.Join(dir, "contents.toml"), testContents)
	writeFile(t, filepath.Join(dir, "crawlers.toml"), crawlers)
	writeFile(t, filepath.Join(dir, "fetchers.toml"), fetchers)

	return &testEnv{
		dir: dir,
		opts: &rootOptions{
			logFile:      filepath.Join(dir, "spider.log"),
			contentsFile: filepath.Join(dir, "contents.toml"),
			crawlersFile: filepath.Join(dir, "crawlers.toml"),
			fetchersFile: filepath.Join(dir, "fetchers.toml"),
			stateDir:     filepath.Join(dir, "state"),
		},
	}
}

// args returns the global flags matching opts, followed by extra
func (e *testEnv) args(extra ...string) []string {
	args := []string{
		"-l", e.opts.logFile,
		"-c", e.opts.contentsFile,
		"-r", e.opts.crawlersFile,
		"-f", e.opts.fetchersFile,
		"--state-dir", e.opts.stateDir,
	}
	return append(args, extra...)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// newSiteServer serves a search page, one result page and a WebUI add endpoint
func newSiteServer(t *testing.T, addResponse string) (*httptest.Server, *[]string) {
	t.Helper()
	var added []string
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
<a class="result" href="/view/other-s09-e09">other</a>
<a class="result" href="/view/show-s01-e03">show</a>
</body></html>`)
	})
	mux.HandleFunc("/view/show-s01-e03", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><a class="download" href="magnet:?xt=urn:btih:abc123">get</a></body></html>`)
	})
	mux.HandleFunc("/api/v2/torrents/add", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		added = append(added, r.PostForm.Get("urls")+"|"+r.PostForm.Get("savepath"))
		fmt.Fprint(w, addResponse)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &added
}

func executeRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestLoadAppConfig_FlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	writeFile(t, cfgPath, `
contents_file: "/from/file.toml"
crawlers_file: "/from/crawlers.toml"
log:
  level: warn
`)

	cfg, warnings, err := loadAppConfig(&rootOptions{
		configFile:   cfgPath,
		contentsFile: "/from/flag.toml",
		logLevel:     "debug",
	})

	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, "/from/flag.toml", cfg.ContentsFile)
	assert.Equal(t, "/from/crawlers.toml", cfg.CrawlersFile)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadAppConfig_MissingFile(t *testing.T) {
	_, _, err := loadAppConfig(&rootOptions{configFile: "/nonexistent/config.yaml"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestDoValidate_AllStores(t *testing.T) {
	env := newTestEnv(t, "http://example.com")

	var stdout, stderr bytes.Buffer
	exitCode := doValidate(env.opts, &stdout, &stderr)

	assert.Equal(t, 0, exitCode, stderr.String())
	assert.Contains(t, stdout.String(), "OK: [crawler #0] twostageweb http://example.com/search")
	assert.Contains(t, stdout.String(), "OK: [fetcher #0] qbfetcher")
	assert.Contains(t, stdout.String(), "OK: [contents] 1 tracked records")
	assert.Contains(t, stdout.String(), "Configuration valid")
}

func TestDoValidate_BadCrawlers(t *testing.T) {
	env := newTestEnv(t, "http://example.com")
	writeFile(t, env.opts.crawlersFile, `
[[crawlers]]
type = "rss"
`)

	var stdout, stderr bytes.Buffer
	exitCode := doValidate(env.opts, &stdout, &stderr)

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr.String(), "unknown type 'rss'")
	assert.NotContains(t, stdout.String(), "Configuration valid")
}

func TestValidateCommand_FailureIsError(t *testing.T) {
	env := newTestEnv(t, "http://example.com")
	writeFile(t, env.opts.fetchersFile, "")

	_, _, err := executeRoot(t, env.args("validate")...)

	assert.ErrorIs(t, err, errValidationFailed)
}

func TestDoList(t *testing.T) {
	env := newTestEnv(t, "http://example.com")
	cfg, _, err := loadAppConfig(env.opts)
	require.NoError(t, err)

	var stdout, stderr bytes.Buffer
	require.NoError(t, doList(cfg, &stdout, &stderr))

	assert.Contains(t, stdout.String(), "Title")
	assert.Contains(t, stdout.String(), "Current")
	assert.Contains(t, stdout.String(), "show s01 e02")
}

func TestDoPredict(t *testing.T) {
	env := newTestEnv(t, "http://example.com")
	cfg, _, err := loadAppConfig(env.opts)
	require.NoError(t, err)

	var stdout, stderr bytes.Buffer
	require.NoError(t, doPredict(cfg, &stdout, &stderr))

	out := stdout.String()
	assert.Contains(t, out, "show s01 e03")
	assert.Contains(t, out, "show s02 e01")
	assert.Contains(t, out, "http://example.com/search?q=show+s01+e03&cat=tv")
	assert.Empty(t, stderr.String())
}

func TestDoHistory_Disabled(t *testing.T) {
	env := newTestEnv(t, "http://example.com")
	cfg, _, err := loadAppConfig(env.opts)
	require.NoError(t, err)
	cfg.DisableHistory = true

	err = doHistory(cfg, 10, "table", &bytes.Buffer{}, &bytes.Buffer{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disabled")
}

func TestDoHistory_UnknownFormat(t *testing.T) {
	env := newTestEnv(t, "http://example.com")
	cfg, _, err := loadAppConfig(env.opts)
	require.NoError(t, err)

	err = doHistory(cfg, 10, "json", &bytes.Buffer{}, &bytes.Buffer{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestRun_AdvancesRecordAndRecordsHistory(t *testing.T) {
	srv, added := newSiteServer(t, "Ok.")
	env := newTestEnv(t, srv.URL)

	_, stderr, err := executeRoot(t, env.args()...)
	require.NoError(t, err, stderr)

	// One submission for the first candidate
	require.Len(t, *added, 1)
	assert.Equal(t, "magnet:?xt=urn:btih:abc123|/downloads/show", (*added)[0])

	// The record moved forward by exactly one episode
	store := storage.NewContentStore(env.opts.contentsFile, quietLogger(&bytes.Buffer{}))
	contents, err := store.Load()
	require.NoError(t, err)
	require.Len(t, contents, 1)
	assert.Equal(t, uint32(1), contents[0].First)
	assert.Equal(t, uint32(3), contents[0].Second)

	assert.FileExists(t, env.opts.logFile)

	stdout, _, err := executeRoot(t, env.args("history", "--format", "yaml")...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "status: advanced")
	assert.Contains(t, stdout, "candidate_query: show s01 e03")
}

func TestRun_RejectedLeavesRecordUnchanged(t *testing.T) {
	srv, added := newSiteServer(t, "Fails.")
	env := newTestEnv(t, srv.URL)

	_, stderr, err := executeRoot(t, env.args("run")...)
	require.NoError(t, err, stderr)
	assert.Len(t, *added, 1)

	contents, err := storage.NewContentStore(env.opts.contentsFile, quietLogger(&bytes.Buffer{})).Load()
	require.NoError(t, err)
	assert.Equal(t, models.Content{
		Title: "show", FirstPrefix: "s", First: 1, SecondPrefix: "e", Second: 2, Digits: 2,
	}, contents[0])

	stdout, _, err := executeRoot(t, env.args("history")...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "rejected")
	assert.Contains(t, stdout, "discovery_failed")
}

func TestRun_StoreLockedIsFatal(t *testing.T) {
	env := newTestEnv(t, "http://example.com")
	holder := storage.NewContentStore(env.opts.contentsFile, quietLogger(&bytes.Buffer{}))
	require.NoError(t, holder.Lock())
	defer holder.Unlock()

	_, _, err := executeRoot(t, env.args("run")...)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked")
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := executeRoot(t, "version")

	require.NoError(t, err)
	assert.Equal(t, "series-spider "+version+"\n", stdout)
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"#", "Name"}, [][]string{{"1", "alpha"}, {"2"}}, 0)

	assert.Contains(t, out, "Name")
	assert.NotContains(t, out, "NAME")
	assert.Contains(t, out, "alpha")
	assert.Empty(t, renderTable(nil, nil))
}

func TestDoValidate_ExtraStrategiesWarn(t *testing.T) {
	env := newTestEnv(t, "http://example.com")
	crawlers, err := os.ReadFile(env.opts.crawlersFile)
	require.NoError(t, err)
	writeFile(t, env.opts.crawlersFile, string(crawlers)+string(crawlers))

	var stdout, stderr bytes.Buffer
	exitCode := doValidate(env.opts, &stdout, &stderr)

	assert.Equal(t, 0, exitCode, stderr.String())
	assert.Contains(t, stdout.String(), "OK: [crawler #1]")
	assert.Contains(t, stdout.String(), "WARN: 2 crawlers configured, only crawler #0 is used")
}

// gcRecorder stands in for the history store; RunGC blocks until ctx is done
type gcRecorder struct {
	started atomic.Bool
	stopped atomic.Bool
}

func (g *gcRecorder) ListAttempts(int) ([]models.AttemptEntry, error) { return nil, nil }
func (g *gcRecorder) AttemptCount() (int, error)                      { return 0, nil }
func (g *gcRecorder) Close() error                                    { return nil }

func (g *gcRecorder) RunGC(ctx context.Context, _ time.Duration) {
	g.started.Store(true)
	<-ctx.Done()
	time.Sleep(20 * time.Millisecond)
	g.stopped.Store(true)
}

func TestStartHistoryGC_WaitJoinsGoroutine(t *testing.T) {
	gc := &gcRecorder{}
	ctx, cancel := context.WithCancel(context.Background())

	wait := startHistoryGC(ctx, gc)
	require.Eventually(t, gc.started.Load, time.Second, 5*time.Millisecond)
	assert.False(t, gc.stopped.Load())

	cancel()
	wait()

	assert.True(t, gc.stopped.Load(), "wait returned before the GC loop exited")
}

func TestStartHistoryGC_NoHistory(t *testing.T) {
	wait := startHistoryGC(context.Background(), nil)
	wait()
}
