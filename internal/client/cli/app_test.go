package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HuangJiaLian/Up2Git/internal/client/capture"
	"github.com/HuangJiaLian/Up2Git/internal/client/config"
	"github.com/HuangJiaLian/Up2Git/internal/client/remote/remotetest"
	"github.com/HuangJiaLian/Up2Git/internal/client/sink"
	"github.com/HuangJiaLian/Up2Git/internal/client/trigger"
	"github.com/HuangJiaLian/Up2Git/internal/common"
	"github.com/HuangJiaLian/Up2Git/internal/logging"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, k := range []string{
		config.EnvToken, config.EnvRepository, config.EnvFolder, config.EnvBranch,
		config.EnvAPIBaseURL, config.EnvRawBaseURL, config.EnvTriggerPath, config.EnvHistoryPath,
		config.EnvLogLevel, config.EnvMetricsAddr, config.EnvTimeout, config.EnvPollInterval,
	} {
		t.Setenv(k, "")
	}
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, ".config"))
	testChdir(t, dir)
	return dir
}

func testConfig(t *testing.T, apiURL string) config.Config {
	t.Helper()
	dir := t.TempDir()
	var cfg config.Config
	cfg.LoadDefaults()
	cfg.AccessToken = "tok"
	cfg.TargetRepository = "me/shots"
	cfg.APIBaseURL = apiURL
	cfg.RawBaseURL = "https://raw.example"
	cfg.RequestTimeout = 5 * time.Second
	cfg.HistoryPath = filepath.Join(dir, "history.json")
	cfg.ConfigPath = filepath.Join(dir, "config.json")
	cfg.TriggerPath = filepath.Join(dir, ".upload_trigger")
	cfg.PollInterval = 20 * time.Millisecond
	return cfg
}

func newTestApp(t *testing.T, cfg config.Config, clip string, out *bytes.Buffer) *App {
	t.Helper()
	off := false
	return NewApp(context.Background(), cfg, Options{
		Logger:      logging.Nop(),
		In:          strings.NewReader(""),
		Out:         out,
		Interactive: &off,
		Sink:        sink.NewConsole(out),
		Source: capture.SourceFunc(func(context.Context) (capture.Snapshot, error) {
			return capture.Snapshot{Text: &capture.Text{Text: clip}}, nil
		}),
	})
}

func newServer(t *testing.T) *remotetest.Server {
	t.Helper()
	srv := remotetest.NewServer()
	srv.Token = "tok"
	t.Cleanup(srv.Close)
	return srv
}

func TestApp_UploadAndHistory(t *testing.T) {
	srv := newServer(t)
	var out bytes.Buffer
	a := newTestApp(t, testConfig(t, srv.URL), "hello", &out)

	require.NoError(t, a.Upload(context.Background()))
	assert.Contains(t, out.String(), "Uploaded: https://raw.example/me/shots/main/uploads/text_")

	out.Reset()
	require.NoError(t, a.History(context.Background()))
	assert.Contains(t, out.String(), "1.")
	assert.Contains(t, out.String(), "file")
	assert.Contains(t, out.String(), ".txt")

	out.Reset()
	require.NoError(t, a.ClearHistory(context.Background()))
	assert.Equal(t, "History cleared\n", out.String())

	out.Reset()
	require.NoError(t, a.History(context.Background()))
	assert.Equal(t, "No upload history\n", out.String())
}

func TestApp_UploadFile(t *testing.T) {
	srv := newServer(t)
	var out bytes.Buffer
	a := newTestApp(t, testConfig(t, srv.URL), "", &out)

	path := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o600))

	require.NoError(t, a.UploadFile(context.Background(), path))
	assert.Regexp(t, `Uploaded: https://raw.example/me/shots/main/uploads/\d{8}_\d{6}_report.pdf`, out.String())
}

func TestApp_UploadNotConfigured(t *testing.T) {
	var out bytes.Buffer
	cfg := testConfig(t, "http://127.0.0.1:0")
	cfg.AccessToken = ""
	a := newTestApp(t, cfg, "hello", &out)

	err := a.Upload(context.Background())

	assert.Error(t, err)
	assert.Contains(t, out.String(), "Upload failed: NotConfigured")
	assert.Equal(t, "(not configured)", a.status())
}

func TestApp_UploadEmptyClipboardIsInformational(t *testing.T) {
	srv := newServer(t)
	var out bytes.Buffer
	a := newTestApp(t, testConfig(t, srv.URL), "", &out)

	err := a.Upload(context.Background())

	assert.ErrorIs(t, err, common.ErrNothingToUpload)
	assert.Equal(t, "No image, file or text found in clipboard\n", out.String())
	assert.Empty(t, srv.Requests())
}

func TestApp_ShowConfigMasksToken(t *testing.T) {
	var out bytes.Buffer
	a := newTestApp(t, testConfig(t, "http://api"), "", &out)

	require.NoError(t, a.ShowConfig(context.Background()))

	assert.NotContains(t, out.String(), "tok\n")
	assert.Contains(t, out.String(), "********")
	assert.Contains(t, out.String(), "me/shots")
	assert.Equal(t, "(me/shots)", a.status())
}

func TestApp_SetPersistsAndApplies(t *testing.T) {
	var out bytes.Buffer
	cfg := testConfig(t, "http://api")
	cfg.AccessToken = ""
	a := newTestApp(t, cfg, "", &out)
	require.False(t, a.pipeline.Configured())

	old := readPassword
	t.Cleanup(func() { readPassword = old })
	readPassword = func(int) ([]byte, error) { return []byte("ghp_new"), nil }

	require.NoError(t, a.Set(context.Background(), "token", ""))
	require.NoError(t, a.Set(context.Background(), "folder", "pics"))

	assert.True(t, a.pipeline.Configured())
	assert.Equal(t, "pics", a.pipeline.Configuration().DestinationFolder)

	data, err := os.ReadFile(cfg.ConfigPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"destinationFolder": "pics"`)
	assert.Contains(t, string(data), `"accessToken": "ghp_new"`)
}

func TestApp_SetPromptsForMissingValue(t *testing.T) {
	var out bytes.Buffer
	cfg := testConfig(t, "http://api")
	off := false
	a := NewApp(context.Background(), cfg, Options{
		Logger:      logging.Nop(),
		In:          strings.NewReader("pics\n\n"),
		Out:         &out,
		Interactive: &off,
		Sink:        sink.Nop{},
	})

	require.NoError(t, a.Set(context.Background(), "folder", ""))
	assert.Contains(t, out.String(), "Destination folder [uploads]: ")
	assert.Equal(t, "pics", a.pipeline.Configuration().DestinationFolder)

	// an empty answer keeps the current branch
	require.NoError(t, a.Set(context.Background(), "branch", ""))
	assert.Equal(t, "main", a.pipeline.Configuration().BranchName)

	data, err := os.ReadFile(cfg.ConfigPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"destinationFolder": "pics"`)
}

func TestApp_SetRejectsBadValue(t *testing.T) {
	var out bytes.Buffer
	a := newTestApp(t, testConfig(t, "http://api"), "", &out)

	assert.Error(t, a.Set(context.Background(), "repo", "not-a-repo"))
	assert.Error(t, a.Set(context.Background(), "colour", "blue"))
	assert.Equal(t, "me/shots", a.pipeline.Configuration().TargetRepository)
}

func TestApp_RunConsumesTrigger(t *testing.T) {
	srv := newServer(t)
	var out bytes.Buffer
	cfg := testConfig(t, srv.URL)
	a := newTestApp(t, cfg, "from trigger", &out)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.NoError(t, trigger.Write(cfg.TriggerPath))
	require.Eventually(t, func() bool { return len(a.pipeline.History()) == 1 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
	_, err := os.Stat(cfg.TriggerPath)
	assert.True(t, os.IsNotExist(err))
}

func TestApp_RunStopsWhenREPLExits(t *testing.T) {
	silence(t)
	var out bytes.Buffer
	on := true
	a := NewApp(context.Background(), testConfig(t, "http://api"), Options{
		Logger:      logging.Nop(),
		In:          strings.NewReader("history\nexit\n"),
		Out:         &out,
		Interactive: &on,
		Sink:        sink.Nop{},
	})

	done := make(chan error, 1)
	go func() { done <- a.Run(context.Background()) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after exit")
	}
	assert.Contains(t, out.String(), "No upload history")
}
