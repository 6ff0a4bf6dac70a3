package webserial

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ExportFilePrefix starts every export file name.
const ExportFilePrefix = "com-port-data-"

// Export is the content of one save: the UTF-8 export buffer and the name
// to save it under.
type Export struct {
	Data     []byte
	Filename string
}

// ExportFilename embeds t, in UTC to the second, in a name that is valid on
// every filesystem: com-port-data-2006-01-02T15-04-05.txt.
func ExportFilename(t time.Time) string {
	return ExportFilePrefix + t.UTC().Format("2006-01-02T15-04-05") + ".txt"
}

// Downloader hands exported bytes to the user.
type Downloader interface {
	Download(ctx context.Context, data []byte, filename string) error
}

// DownloaderFunc adapts a function to Downloader.
type DownloaderFunc func(ctx context.Context, data []byte, filename string) error

func (f DownloaderFunc) Download(ctx context.Context, data []byte, filename string) error {
	return f(ctx, data, filename)
}

// DirDownloader saves exports as files in Dir.
type DirDownloader struct {
	Dir string
}

// Download writes data to Dir/filename. An existing file is never
// overwritten.
func (d DirDownloader) Download(ctx context.Context, data []byte, filename string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if filename != filepath.Base(filename) || filename == "." || filename == ".." {
		return fmt.Errorf("invalid export file name %q", filename)
	}
	dir := d.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(dir, filename), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	if _, err = f.Write(data); err != nil {
		return errors.Join(fmt.Errorf("writing export file: %w", err), f.Close())
	}
	return f.Close()
}
