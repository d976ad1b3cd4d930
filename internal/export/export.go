// Package export packs search result images into a zip archive.
package export

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kozaktomas/image-search/internal/metrics"
	"github.com/kozaktomas/image-search/internal/search"
)

// DefaultLabel names the archive when the user gave no label.
const DefaultLabel = "images"

// ProgressFunc is called after each entry with the number written so far.
type ProgressFunc func(done int)

// FileName returns the archive file name for label.
func FileName(label string) string {
	label = strings.TrimSpace(label)
	label = strings.NewReplacer("/", "_", "\\", "_").Replace(label)
	if label == "" || label == "." || label == ".." {
		label = DefaultLabel
	}
	return label + ".zip"
}

// Write streams a zip archive with one entry per image to w. Entry names are
// the image names; repeated names get a numeric suffix. Zero images produce
// a valid empty archive.
func Write(ctx context.Context, w io.Writer, images []search.Image, progress ProgressFunc) error {
	zw := zip.NewWriter(w)
	names := make(map[string]int, len(images))
	modified := time.Now()

	for i, img := range images {
		if err := ctx.Err(); err != nil {
			zw.Close()
			return err
		}

		name := entryName(img.Name, i, names)
		hdr := &zip.FileHeader{Name: name, Method: zip.Store, Modified: modified}
		entry, err := zw.CreateHeader(hdr)
		if err != nil {
			zw.Close()
			return fmt.Errorf("creating zip entry %s: %w", name, err)
		}
		if _, err := entry.Write(img.Data); err != nil {
			zw.Close()
			return fmt.Errorf("writing zip entry %s: %w", name, err)
		}
		metrics.ImagesExported.Inc()
		if progress != nil {
			progress(i + 1)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalizing zip: %w", err)
	}
	return nil
}

// entryName strips directories from name and makes it unique within the
// archive.
func entryName(name string, index int, seen map[string]int) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		name = "image_" + strconv.Itoa(index+1)
	}

	n := seen[name]
	seen[name] = n + 1
	if n == 0 {
		return name
	}
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := n + 1; ; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, i, ext)
		if seen[candidate] == 0 {
			seen[candidate] = 1
			return candidate
		}
	}
}

// ToDir writes the archive for label into dir and returns its path. The
// file appears only once it is complete.
func ToDir(ctx context.Context, dir, label string, images []search.Image, progress ProgressFunc) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export directory %s: %w", dir, err)
	}
	target := filepath.Join(dir, FileName(label))

	tmp, err := os.CreateTemp(dir, ".export-*.zip")
	if err != nil {
		return "", fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()

	if err := Write(ctx, tmp, images, progress); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("moving archive to %s: %w", target, err)
	}
	return target, nil
}
