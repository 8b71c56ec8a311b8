// Package storage saves uploaded media (product images, profile pictures)
// on the local filesystem or an S3 compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/junaidrashid-git/eshop/config"
)

// Disk stores objects under slash separated keys such as
// "products/1700000000_shirt.jpg".
type Disk interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

var ErrUnsupportedImage = errors.New("unsupported image type")

var imageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

var unsafeChars = regexp.MustCompile(`[^\w\-.]`)

// New picks the driver named in cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig) (Disk, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocalDisk(cfg.MediaRoot, cfg.MediaURL), nil
	case "s3":
		return NewS3Disk(ctx, cfg)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.Driver)
	}
}

// ObjectKey builds "<dir>/<unix>_<clean name>" for an uploaded file name.
func ObjectKey(dir, filename string, now time.Time) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	clean := unsafeChars.ReplaceAllString(base, "_")
	return path.Join(dir, fmt.Sprintf("%d_%s", now.Unix(), clean))
}

// SaveImage stores an uploaded image under dir and returns its key.
func SaveImage(ctx context.Context, disk Disk, dir string, fh *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	contentType, ok := imageExtensions[ext]
	if !ok {
		return "", ErrUnsupportedImage
	}

	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("storage: open upload: %w", err)
	}
	defer f.Close()

	key := ObjectKey(dir, fh.Filename, time.Now())
	if err := disk.Put(ctx, key, f, contentType); err != nil {
		return "", err
	}
	return key, nil
}
