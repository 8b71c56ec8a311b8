package cmd

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/junaidrashid-git/eshop/config"
	"github.com/junaidrashid-git/eshop/logger"
	"github.com/junaidrashid-git/eshop/storage"
)

var mediaCmd = &cobra.Command{
	Use:   "media",
	Short: "Local media maintenance",
}

func init() {
	mediaCmd.AddCommand(mediaBackupCmd)
}

// eshop media backup
var mediaBackupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Copy MEDIA_ROOT into MEDIA_BACKUP_DIR now and prune old copies",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		log := logger.New(cfg.LogLevel, cfg.IsProduction())

		if cfg.Storage.Driver != "local" {
			return errors.New("media backup only applies to STORAGE_DRIVER=local")
		}
		if cfg.Storage.BackupDir == "" {
			return errors.New("MEDIA_BACKUP_DIR is not set")
		}

		now := time.Now()
		dest, err := storage.BackupMedia(cfg.Storage.MediaRoot, cfg.Storage.BackupDir, now)
		if err != nil {
			return err
		}
		removed, err := storage.PruneBackups(cfg.Storage.BackupDir, cfg.Storage.BackupRetention, now)
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"dest": dest, "pruned": removed}).Info("media backed up")
		return nil
	},
}
