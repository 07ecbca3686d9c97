package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flushCounter struct{ n atomic.Int32 }

func (f *flushCounter) FlushCache(context.Context) { f.n.Add(1) }

func newScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func TestRunJobNow(t *testing.T) {
	s := newScheduler(t)
	var runs atomic.Int32
	require.NoError(t, s.AddJob("ok", "OK", "", "1h", gocron.DurationJob(time.Hour), func(context.Context) error {
		runs.Add(1)
		return nil
	}, true))
	require.NoError(t, s.AddJob("fail", "Fail", "", "1h", gocron.DurationJob(time.Hour), func(context.Context) error {
		return errors.New("boom")
	}, false))
	s.Start()

	require.NoError(t, s.RunJobNow("ok"))
	require.NoError(t, s.RunJobNow("fail"))

	assert.Eventually(t, func() bool {
		job, _ := s.Job("ok")
		return job.Status == JobStatusCompleted && runs.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		job, _ := s.Job("fail")
		return job.Status == JobStatusFailed && job.LastError == "boom" && job.ErrorCount == 1
	}, 2*time.Second, 10*time.Millisecond)

	jobs := s.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "fail", jobs[0].ID)
	assert.Equal(t, "ok", jobs[1].ID)

	assert.ErrorIs(t, s.RunJobNow("missing"), ErrJobNotFound)
}

func TestDefaultJobs(t *testing.T) {
	flusher := &flushCounter{}

	s := newScheduler(t)
	require.NoError(t, DefaultJobs{Settings: flusher, PluginDataPath: t.TempDir(), UploadTmpDir: "tmp"}.Register(s))
	_, ok := s.Job(JobSettingsCacheFlush)
	assert.False(t, ok)
	_, ok = s.Job(JobUploadTmpCleanup)
	assert.True(t, ok)

	s = newScheduler(t)
	require.NoError(t, DefaultJobs{Settings: flusher, FlushInterval: time.Hour, PluginDataPath: t.TempDir(), UploadTmpDir: "tmp"}.Register(s))
	s.Start()
	require.NoError(t, s.RunJobNow(JobSettingsCacheFlush))
	assert.Eventually(t, func() bool { return flusher.n.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestCleanupUploadTemp(t *testing.T) {
	root := t.TempDir()
	old := time.Now().Add(-2 * time.Hour)

	stale := filepath.Join(root, "core", "tmp", "upload-1")
	fresh := filepath.Join(root, "core", "tmp", "upload-2")
	icons := filepath.Join(root, "core", "icons", "old")
	for _, dir := range []string{stale, fresh, icons} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(stale, "icons.zip"), []byte("x"), 0o600))
	require.NoError(t, os.Chtimes(stale, old, old))
	require.NoError(t, os.Chtimes(icons, old, old))
	require.NoError(t, os.WriteFile(filepath.Join(root, "stray-file"), nil, 0o600))

	require.NoError(t, CleanupUploadTemp(root, "tmp", time.Hour)(context.Background()))

	assert.NoDirExists(t, stale)
	assert.DirExists(t, fresh)
	assert.DirExists(t, icons)

	assert.NoError(t, CleanupUploadTemp(filepath.Join(root, "missing"), "tmp", time.Hour)(context.Background()))
}
