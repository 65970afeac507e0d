package ops

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/hpungsan/dose/internal/errors"
	"github.com/hpungsan/dose/internal/medication"
)

// ImportMode controls collision behavior during import.
type ImportMode string

const (
	ImportModeError   ImportMode = "error"   // fail on any collision or bad line (atomic)
	ImportModeReplace ImportMode = "replace" // overwrite records with the same id
)

// maxImportLine bounds one JSONL line.
const maxImportLine = 1 << 20

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string     // required
	Mode ImportMode // default: error
	Now  time.Time
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported int           `json:"imported"`
	Replaced int           `json:"replaced"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors,omitempty"`
	View     *DayView      `json:"view"`
}

// ImportError describes one rejected line.
type ImportError struct {
	Line    int    `json:"line"`
	ID      string `json:"id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type importRecord struct {
	line int
	rec  medication.Record
}

// Import reads a JSONL export or a plain JSON array of records and merges
// it into the collection. Imported records never carry a trigger handle;
// the closing refresh arms whatever is due.
func (e *Engine) Import(ctx context.Context, input ImportInput) (*ImportOutput, error) {
	if input.Mode == "" {
		input.Mode = ImportModeError
	}
	if input.Mode != ImportModeError && input.Mode != ImportModeReplace {
		return nil, errors.NewInvalidRequest("mode must be one of: error, replace")
	}
	if err := ValidatePath(input.Path, PathCheckRead, e.exportsDir, e.cfg); err != nil {
		return nil, err
	}
	now := e.resolveNow(input.Now)

	file, err := openFileNoFollowRead(input.Path)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	records, parseErrors := parseImport(file)

	if input.Mode == ImportModeError && len(parseErrors) > 0 {
		dErr := errors.NewInvalidRequest(fmt.Sprintf("import file has %d invalid line(s)", len(parseErrors)))
		dErr.Details = map[string]any{"errors": parseErrors}
		return nil, dErr
	}

	col, err := e.load(ctx)
	if err != nil {
		return nil, err
	}

	if input.Mode == ImportModeError {
		if ids := collisions(records, col.IndexOf); len(ids) > 0 {
			return nil, errors.NewConflict(fmt.Sprintf("%d medication id(s) already exist", len(ids)), ids)
		}
	}

	out := &ImportOutput{Skipped: len(parseErrors), Errors: parseErrors}
	for _, ir := range records {
		rec := ir.rec
		if i := col.IndexOf(rec.ID); i >= 0 {
			old := col.At(i)
			if old.NotificationID != "" {
				e.cancel(ctx, old.ID, old.NotificationID)
			}
			col.Set(i, rec)
			out.Replaced++
			continue
		}
		col.Append(rec)
		out.Imported++
	}

	view, err := e.commit(ctx, col, now)
	if err != nil {
		return nil, err
	}
	out.View = view

	e.logger.Info("medications imported",
		zap.String("path", input.Path),
		zap.String("mode", string(input.Mode)),
		zap.Int("imported", out.Imported),
		zap.Int("replaced", out.Replaced),
		zap.Int("skipped", out.Skipped),
	)
	return out, nil
}

// collisions returns the ids that exist in the collection or repeat within records.
func collisions(records []importRecord, indexOf func(string) int) []string {
	var ids []string
	seen := make(map[string]bool, len(records))
	for _, ir := range records {
		id := ir.rec.ID
		if seen[id] || indexOf(id) >= 0 {
			ids = append(ids, id)
		}
		seen[id] = true
	}
	return ids
}

// parseImport accepts JSONL (header line optional) or a JSON array.
func parseImport(r io.Reader) ([]importRecord, []ImportError) {
	br := bufio.NewReader(r)
	if first, err := peekNonSpace(br); err == nil && first == '[' {
		return parseArray(br)
	}
	return parseLines(br)
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}

func parseArray(r io.Reader) ([]importRecord, []ImportError) {
	var raws []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raws); err != nil {
		return nil, []ImportError{{Line: 1, Code: "PARSE_ERROR", Message: fmt.Sprintf("invalid JSON array: %v", err)}}
	}
	var records []importRecord
	var parseErrors []ImportError
	for i, raw := range raws {
		// Array entries have no line; report their 1-based position.
		if rec, ierr := parseRecord(raw, i+1); ierr != nil {
			parseErrors = append(parseErrors, *ierr)
		} else {
			records = append(records, importRecord{line: i + 1, rec: rec})
		}
	}
	return records, parseErrors
}

func parseLines(r io.Reader) ([]importRecord, []ImportError) {
	var records []importRecord
	var parseErrors []ImportError

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxImportLine)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var probe struct {
			DoseExport bool `json:"_dose_export"`
		}
		if err := json.Unmarshal(line, &probe); err == nil && probe.DoseExport {
			continue
		}

		if rec, ierr := parseRecord(line, lineNum); ierr != nil {
			parseErrors = append(parseErrors, *ierr)
		} else {
			records = append(records, importRecord{line: lineNum, rec: rec})
		}
	}
	if err := scanner.Err(); err != nil {
		parseErrors = append(parseErrors, ImportError{
			Line:    lineNum,
			Code:    "READ_ERROR",
			Message: fmt.Sprintf("failed to read file: %v", err),
		})
	}
	return records, parseErrors
}

// parseRecord decodes and checks one record, clearing its trigger handle.
func parseRecord(data []byte, line int) (medication.Record, *ImportError) {
	var rec medication.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, &ImportError{Line: line, Code: "PARSE_ERROR", Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if rec.ID == "" {
		return rec, &ImportError{Line: line, Code: "INVALID_RECORD", Message: "missing id field"}
	}
	if res := medication.Validate(medication.ValidateInput{Record: rec}); !res.Valid {
		return rec, &ImportError{Line: line, ID: rec.ID, Code: "INVALID_RECORD", Message: res.Err().Error()}
	}
	rec.NotificationID = ""
	return rec, nil
}
