package trigger

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HuangJiaLian/Up2Git/internal/logging"
)

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".upload_trigger")

	require.NoError(t, Write(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	ts, err := strconv.ParseInt(string(data), 10, 64)
	require.NoError(t, err)
	assert.InDelta(t, time.Now().Unix(), ts, 5)
}

func TestWrite_BadDirectory(t *testing.T) {
	err := Write(filepath.Join(t.TempDir(), "missing", "marker"))
	assert.Error(t, err)
}

func TestCheck_NoMarker(t *testing.T) {
	var fired atomic.Int32
	c := NewChannel(filepath.Join(t.TempDir(), "m"), 0, func(context.Context) { fired.Add(1) }, logging.Nop(), nil)

	assert.False(t, c.Check(context.Background()))
	assert.Zero(t, fired.Load())
	assert.Equal(t, DefaultInterval, c.interval)
}

func TestCheck_ConsumesMarkerBeforeFiring(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m")
	require.NoError(t, Write(path))

	var existedDuringFire bool
	c := NewChannel(path, time.Second, func(context.Context) {
		_, err := os.Stat(path)
		existedDuringFire = err == nil
	}, nil, nil)

	assert.True(t, c.Check(context.Background()))
	assert.False(t, existedDuringFire)
	assert.False(t, c.Check(context.Background()))
}

func TestRun_FiresOncePerMarker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m")
	fired := make(chan struct{}, 10)
	c := NewChannel(path, 20*time.Millisecond, func(context.Context) { fired <- struct{}{} }, logging.Nop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.NoError(t, Write(path))
	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("marker was not consumed")
	}

	// several poll intervals pass without a second fire
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, fired, 0)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, Write(path))
	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("second marker was not consumed")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestRun_ConsumesStaleMarkerAtStartup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m")
	require.NoError(t, Write(path))

	var fired atomic.Int32
	c := NewChannel(path, time.Hour, func(context.Context) { fired.Add(1) }, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = c.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return fired.Load() == 1 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	<-done
}

func TestRun_PollsWhenWatcherUnavailable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "later")
	path := filepath.Join(dir, "m")

	var fired atomic.Int32
	c := NewChannel(path, 20*time.Millisecond, func(context.Context) { fired.Add(1) }, logging.Nop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	// the directory does not exist when Run starts, so only polling sees this
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, Write(path))

	require.Eventually(t, func() bool { return fired.Load() == 1 }, 5*time.Second, 10*time.Millisecond)
}
