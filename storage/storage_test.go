package storage

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/junaidrashid-git/eshop/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKeySanitizes(t *testing.T) {
	now := time.Unix(1700000000, 0)
	assert.Equal(t, "products/1700000000_my_photo_1_.jpg", ObjectKey("products", "my photo(1).jpg", now))
	assert.Equal(t, "profile_pics/1700000000_evil.png", ObjectKey("profile_pics", "../../evil.png", now))
	assert.Equal(t, "profile_pics/1700000000_x.png", ObjectKey("profile_pics", `C:\Users\x.png`, now))
}

func TestLocalDiskPutDelete(t *testing.T) {
	root := t.TempDir()
	disk := NewLocalDisk(root, "/media")
	ctx := context.Background()

	require.NoError(t, disk.Put(ctx, "products/a.txt", bytes.NewBufferString("hello"), "text/plain"))
	got, err := os.ReadFile(filepath.Join(root, "products", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
	assert.Equal(t, "/media/products/a.txt", disk.URL("products/a.txt"))
	assert.Equal(t, "", disk.URL(""))

	require.NoError(t, disk.Delete(ctx, "products/a.txt"))
	_, err = os.Stat(filepath.Join(root, "products", "a.txt"))
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, disk.Delete(ctx, "products/a.txt"))
}

func TestLocalDiskStaysInsideRoot(t *testing.T) {
	root := t.TempDir()
	disk := NewLocalDisk(root, "/media/")

	require.NoError(t, disk.Put(context.Background(), "../escape.txt", bytes.NewBufferString("x"), ""))
	_, err := os.Stat(filepath.Join(root, "escape.txt"))
	assert.NoError(t, err)
}

func uploadHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["image"][0]
}

func TestSaveImage(t *testing.T) {
	disk := NewLocalDisk(t.TempDir(), "/media/")

	key, err := SaveImage(context.Background(), disk, "products", uploadHeader(t, "shirt.PNG", []byte("png")))
	require.NoError(t, err)
	assert.Regexp(t, `^products/\d+_shirt\.PNG$`, key)

	_, err = SaveImage(context.Background(), disk, "products", uploadHeader(t, "run.exe", []byte("x")))
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), config.StorageConfig{Driver: "ftp"})
	assert.Error(t, err)

	disk, err := New(context.Background(), config.StorageConfig{Driver: "local", MediaRoot: t.TempDir(), MediaURL: "/media/"})
	require.NoError(t, err)
	assert.IsType(t, &LocalDisk{}, disk)
}

func TestS3DiskRequiresBucket(t *testing.T) {
	_, err := NewS3Disk(context.Background(), config.StorageConfig{S3Region: "us-east-1"})
	assert.Error(t, err)
}
