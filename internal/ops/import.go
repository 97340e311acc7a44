package ops

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/hpungsan/fetchnfeed/internal/config"
	"github.com/hpungsan/fetchnfeed/internal/dataset"
	"github.com/hpungsan/fetchnfeed/internal/errors"
	"github.com/hpungsan/fetchnfeed/internal/model"
)

// MaxImportBytes caps the size of an import document.
const MaxImportBytes = 256 << 20

// requiredImportFields must be present and non-null in an import document.
var requiredImportFields = []string{"version", "feeds", "articles"}

// ImportOutput contains the result of the import operations.
type ImportOutput struct {
	Feeds     int  `json:"feeds"`
	Articles  int  `json:"articles"`
	Folders   int  `json:"folders"`
	Tags      int  `json:"tags"`
	Notes     int  `json:"notes"`
	Persisted bool `json:"persisted"`
}

// ImportData replaces the whole dataset with an exported document.
// The document is fully validated first; a rejected import changes nothing.
// Missing collections and preference keys take their defaults.
func ImportData(ctx context.Context, ds *dataset.Dataset, raw []byte) (*ImportOutput, error) {
	data, err := ValidateImport(raw)
	if err != nil {
		return nil, err
	}

	persisted, err := ds.ReplaceAll(ctx, data)
	if err != nil {
		return nil, err
	}
	return &ImportOutput{
		Feeds:     len(data.Feeds),
		Articles:  len(data.Articles),
		Folders:   len(data.Folders),
		Tags:      len(data.Tags),
		Notes:     len(data.Notes),
		Persisted: persisted,
	}, nil
}

// ValidateImport checks an import document and decodes it over defaults.
func ValidateImport(raw []byte) (*model.Data, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, errors.NewImportRejected(fmt.Sprintf("invalid JSON: %v", err))
	}
	for _, name := range requiredImportFields {
		v, ok := fields[name]
		if !ok || isFalsyJSON(v) {
			return nil, errors.NewImportRejected(fmt.Sprintf("missing required field %q", name))
		}
	}

	data, err := model.DecodeData(raw)
	if err != nil {
		return nil, errors.NewImportRejected(fmt.Sprintf("invalid document: %v", err))
	}
	return data, nil
}

// isFalsyJSON reports whether v is null, false, 0 or "".
func isFalsyJSON(v json.RawMessage) bool {
	switch string(bytes.TrimSpace(v)) {
	case "null", "false", "0", `""`:
		return true
	}
	return false
}

// ImportFileInput contains parameters for the ImportDataFile operation.
type ImportFileInput struct {
	Path string `json:"path"`
}

// ImportDataFile reads an export file from an allowed directory and imports it.
func ImportDataFile(ctx context.Context, ds *dataset.Dataset, baseDir string, cfg *config.Config, input ImportFileInput) (*ImportOutput, error) {
	raw, err := readExchangeFile(input.Path, baseDir, cfg, ExtJSON)
	if err != nil {
		return nil, err
	}
	return ImportData(ctx, ds, raw)
}

// readExchangeFile validates and reads an import file, refusing symlinks
// and anything larger than MaxImportBytes.
func readExchangeFile(path, baseDir string, cfg *config.Config, ext string) ([]byte, error) {
	if err := ValidatePath(path, PathCheckRead, baseDir, cfg, ext); err != nil {
		return nil, err
	}
	file, err := openFileNoFollowRead(path)
	if err != nil {
		if errors.Is(err, errors.ErrInvalidRequest) || errors.Is(err, errors.ErrNotFound) {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, MaxImportBytes+1))
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to read import file: %w", err))
	}
	if len(raw) > MaxImportBytes {
		return nil, errors.NewImportRejected(fmt.Sprintf("file exceeds %d bytes", MaxImportBytes))
	}
	return raw, nil
}

// ClearDataOutput contains the result of the ClearData operation.
type ClearDataOutput struct {
	Persisted bool `json:"persisted"`
}

// ClearData resets every collection and the preferences to defaults.
func ClearData(ctx context.Context, ds *dataset.Dataset) (*ClearDataOutput, error) {
	persisted, err := ds.ReplaceAll(ctx, model.DefaultData())
	if err != nil {
		return nil, err
	}
	return &ClearDataOutput{Persisted: persisted}, nil
}
