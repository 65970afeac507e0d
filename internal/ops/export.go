package ops

import (
	"bufio"
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/hpungsan/dose/internal/errors"
)

// ExportSchemaVersion is written in every export header.
const ExportSchemaVersion = "1.0"

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path string // optional, default: <exports>/<collection>-<timestamp>.jsonl
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// ExportHeader is the first line of a JSONL export file.
type ExportHeader struct {
	DoseExport    bool   `json:"_dose_export"`
	SchemaVersion string `json:"schema_version"`
	Collection    string `json:"collection"`
	ExportedAt    int64  `json:"exported_at"`
}

// Export writes the collection to a JSONL file: a header line, then each
// record as stored. The file is replaced atomically.
func (e *Engine) Export(ctx context.Context, input ExportInput) (*ExportOutput, error) {
	now := e.clock()
	exportedAt := now.Unix()

	exportPath := input.Path
	if exportPath == "" {
		exportPath = e.defaultExportPath(now)
	}
	if err := ValidatePath(exportPath, PathCheckWrite, e.exportsDir, e.cfg); err != nil {
		return nil, err
	}

	col, err := e.load(ctx)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(exportPath), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := exportPath + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	// The existing file survives any failure below.
	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	w := bufio.NewWriter(file)
	header, err := json.Marshal(ExportHeader{
		DoseExport:    true,
		SchemaVersion: ExportSchemaVersion,
		Collection:    e.collectionKey(),
		ExportedAt:    exportedAt,
	})
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := writeLine(w, header); err != nil {
		return nil, errors.NewInternal(err)
	}

	for i := 0; i < col.Len(); i++ {
		raw, err := col.Raw(i)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		// Stored entries may be pretty-printed; JSONL needs one line each.
		compact, err := compactJSON(raw)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		if err := writeLine(w, compact); err != nil {
			return nil, errors.NewInternal(err)
		}
	}

	if err := w.Flush(); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}
	// Close before rename (required on Windows).
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlinked destination.
	if info, err := os.Lstat(exportPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return nil, errors.NewInternal(fmt.Errorf("export path is a symlink"))
	}

	if err := os.Rename(tempPath, exportPath); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(exportPath); statErr == nil {
				return nil, errors.NewInvalidRequest("export destination already exists; choose a new path or delete the existing file")
			}
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	e.logger.Info("medications exported", zap.String("path", exportPath), zap.Int("count", col.Len()))
	return &ExportOutput{
		Path:       exportPath,
		Count:      col.Len(),
		ExportedAt: exportedAt,
	}, nil
}

// defaultExportPath returns <exports>/<collection>-<timestamp>.jsonl.
func (e *Engine) defaultExportPath(now time.Time) string {
	name := SanitizeForFilename(e.collectionKey())
	filename := fmt.Sprintf("%s-%s.jsonl", name, now.Format("2006-01-02T150405"))
	return filepath.Join(e.exportsDir, filename)
}

func writeLine(w *bufio.Writer, data []byte) error {
	if _, err := w.Write(data); err != nil {
		return err
	}
	return w.WriteByte('\n')
}

func compactJSON(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
