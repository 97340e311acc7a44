package ops

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/hpungsan/fetchnfeed/internal/config"
	"github.com/hpungsan/fetchnfeed/internal/dataset"
	"github.com/hpungsan/fetchnfeed/internal/errors"
)

// ExportData renders the whole dataset as an indented JSON document that
// ImportData accepts.
func ExportData(ds *dataset.Dataset) ([]byte, error) {
	out, err := json.MarshalIndent(ds.Get(), "", "  ")
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return append(out, '\n'), nil
}

// ExportFileInput contains parameters for the ExportDataFile operation.
type ExportFileInput struct {
	Path string `json:"path,omitempty"` // default: <dir>/exports/fetchnfeed-<timestamp>.json
}

// ExportFileOutput contains the result of the file export operations.
type ExportFileOutput struct {
	Path       string `json:"path"`
	Feeds      int    `json:"feeds"`
	Articles   int    `json:"articles"`
	Bytes      int    `json:"bytes"`
	ExportedAt int64  `json:"exported_at"`
}

// ExportDataFile writes ExportData to a file inside an allowed directory.
func ExportDataFile(ctx context.Context, ds *dataset.Dataset, baseDir string, cfg *config.Config, input ExportFileInput) (*ExportFileOutput, error) {
	if ctx.Err() != nil {
		return nil, errors.NewCancelled("export")
	}
	now := ds.Now()
	snapshot := ds.Get()

	path := input.Path
	if path == "" {
		path = defaultExportPath(baseDir, "fetchnfeed", ExtJSON, now)
	}
	if err := ValidatePath(path, PathCheckWrite, baseDir, cfg, ExtJSON); err != nil {
		return nil, err
	}

	body, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	body = append(body, '\n')
	if err := writeFileAtomic(path, body); err != nil {
		return nil, err
	}

	return &ExportFileOutput{
		Path:       path,
		Feeds:      len(snapshot.Feeds),
		Articles:   len(snapshot.Articles),
		Bytes:      len(body),
		ExportedAt: now.Unix(),
	}, nil
}

// defaultExportPath builds <dir>/exports/<prefix>-<timestamp><ext>.
func defaultExportPath(baseDir, prefix, ext string, now time.Time) string {
	filename := fmt.Sprintf("%s-%s%s", SanitizeForFilename(prefix), now.UTC().Format("2006-01-02T150405"), ext)
	return filepath.Join(ExportsDir(baseDir), filename)
}

// writeFileAtomic writes body to a temp file next to path, syncs it, and
// renames it into place, so an existing file survives any failure.
func writeFileAtomic(path string, body []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		if errors.Is(err, errors.ErrInvalidRequest) {
			return err
		}
		return errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := file.Write(body); err != nil {
		return errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return errors.NewInternal(err)
	}

	// Close before the rename; Windows requires it.
	if err := file.Close(); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlink at the destination.
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest("export path is a symlink")
	}

	// On Windows os.Rename fails when the destination exists; the existing
	// file is kept rather than risking a delete-then-rename.
	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return errors.NewInvalidRequest("export destination already exists; overwriting is not supported on Windows (choose a new path or delete the existing file)")
			}
		}
		return errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return nil
}
