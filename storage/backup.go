package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

const backupStampLayout = "2006-01-02_15-04-05"

// BackupMedia copies srcDir into a new timestamped folder under backupDir
// and returns its path.
func BackupMedia(srcDir, backupDir string, now time.Time) (string, error) {
	dest := filepath.Join(backupDir, now.Format(backupStampLayout))
	if err := copyDir(srcDir, dest); err != nil {
		return "", fmt.Errorf("storage/backup: %w", err)
	}
	return dest, nil
}

// PruneBackups removes backup folders older than retention and returns
// how many were deleted.
func PruneBackups(backupDir string, retention time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(backupDir)
	if err != nil {
		return 0, fmt.Errorf("storage/backup: read %s: %w", backupDir, err)
	}

	cutoff := now.Add(-retention)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.RemoveAll(filepath.Join(backupDir, entry.Name())); err != nil {
				return removed, fmt.Errorf("storage/backup: remove %s: %w", entry.Name(), err)
			}
			removed++
		}
	}
	return removed, nil
}

// nextRun is the next hour:00 strictly after now.
func nextRun(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

// RunDailyBackup backs srcDir up every day at hour and prunes old copies,
// until ctx is done.
func RunDailyBackup(ctx context.Context, srcDir, backupDir string, retention time.Duration, hour int, log *logrus.Logger) {
	for {
		next := nextRun(time.Now(), hour)
		log.WithField("at", next.Format(time.RFC3339)).Info("next media backup scheduled")

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		now := time.Now()
		dest, err := BackupMedia(srcDir, backupDir, now)
		if err != nil {
			log.WithError(err).Error("media backup failed")
		} else {
			log.WithField("dest", dest).Info("media backed up")
		}
		if n, err := PruneBackups(backupDir, retention, now); err != nil {
			log.WithError(err).Error("pruning media backups failed")
		} else if n > 0 {
			log.WithField("removed", n).Info("old media backups removed")
		}
	}
}

func copyDir(src, dest string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		destPath := filepath.Join(dest, entry.Name())

		if entry.IsDir() {
			if err := copyDir(srcPath, destPath); err != nil {
				return err
			}
		} else if err := copyFile(srcPath, destPath); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err = io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
