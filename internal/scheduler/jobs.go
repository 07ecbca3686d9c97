package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-co-op/gocron/v2"
)

const (
	JobSettingsCacheFlush = "settings-cache-flush"
	JobUploadTmpCleanup   = "upload-tmp-cleanup"
)

// CacheFlusher drops every cached setting.
type CacheFlusher interface {
	FlushCache(ctx context.Context)
}

// FlushSettingsCache bounds how long another process's setting writes stay
// invisible to this one.
func FlushSettingsCache(store CacheFlusher) JobFunc {
	return func(ctx context.Context) error {
		store.FlushCache(ctx)
		log.Debug("flushed settings cache")
		return nil
	}
}

// CleanupUploadTemp removes entries of {root}/{plugin}/{tmpDir} last modified
// more than maxAge ago. Uploads remove their own temp dirs, this only catches
// the ones left behind by crashed requests.
func CleanupUploadTemp(root, tmpDir string, maxAge time.Duration) JobFunc {
	return func(ctx context.Context) error {
		plugins, err := os.ReadDir(root)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to list plugin data: %w", err)
		}

		cutoff := time.Now().Add(-maxAge)
		var errs []error
		removed := 0
		for _, p := range plugins {
			if !p.IsDir() {
				continue
			}
			dir := filepath.Join(root, p.Name(), tmpDir)
			entries, err := os.ReadDir(dir)
			if err != nil {
				if !errors.Is(err, os.ErrNotExist) {
					errs = append(errs, err)
				}
				continue
			}
			for _, e := range entries {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				info, err := e.Info()
				if err != nil || info.ModTime().After(cutoff) {
					continue
				}
				if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
					errs = append(errs, err)
					continue
				}
				removed++
			}
		}
		if removed > 0 {
			log.Info("removed stale upload temp entries", "count", removed)
		}
		return errors.Join(errs...)
	}
}

// DefaultJobs describes the maintenance jobs of a portal process.
type DefaultJobs struct {
	Settings       CacheFlusher
	FlushInterval  time.Duration
	PluginDataPath string
	UploadTmpDir   string
}

// Register adds the maintenance jobs to s. The cache flush job is only added
// when FlushInterval is set.
func (d DefaultJobs) Register(s *Scheduler) error {
	if d.FlushInterval > 0 {
		err := s.AddJob(JobSettingsCacheFlush, "Flush settings cache",
			"Drops every cached system setting so writes of other processes become visible",
			d.FlushInterval.String(), gocron.DurationJob(d.FlushInterval),
			FlushSettingsCache(d.Settings), true)
		if err != nil {
			return err
		}
	}
	return s.AddJob(JobUploadTmpCleanup, "Clean upload temp",
		"Removes temporary upload directories older than an hour",
		time.Hour.String(), gocron.DurationJob(time.Hour),
		CleanupUploadTemp(d.PluginDataPath, d.UploadTmpDir, time.Hour), true)
}
