package ops

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/hpungsan/dose/internal/config"
	"github.com/hpungsan/dose/internal/errors"
)

func TestValidatePath_TraversalRejected(t *testing.T) {
	exports := t.TempDir()
	tests := []struct {
		name string
		path string
	}{
		{"parent traversal", "../backup.jsonl"},
		{"deep traversal", "../../etc/backup.jsonl"},
		{"mid-path traversal", exports + "/../backup.jsonl"},
		{"forward slashes", "a/../../b.jsonl"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePath(tc.path, PathCheckWrite, exports, config.DefaultConfig())
			if !errors.Is(err, errors.ErrInvalidRequest) {
				t.Errorf("err = %v, want INVALID_REQUEST", err)
			}
		})
	}
}

func TestValidatePath_Extension(t *testing.T) {
	exports := t.TempDir()
	cfg := config.DefaultConfig()
	jsonPath := writeImportFile(t, exports, "dump.json", "[]")

	if err := ValidatePath(filepath.Join(exports, "out.json"), PathCheckWrite, exports, cfg); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("write .json err = %v, want INVALID_REQUEST", err)
	}
	if err := ValidatePath(jsonPath, PathCheckRead, exports, cfg); err != nil {
		t.Errorf("read .json err = %v, want nil", err)
	}
	if err := ValidatePath(filepath.Join(exports, "out.txt"), PathCheckRead, exports, cfg); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("read .txt err = %v, want INVALID_REQUEST", err)
	}
	if err := ValidatePath(filepath.Join(exports, "out.jsonl"), PathCheckWrite, exports, cfg); err != nil {
		t.Errorf("write .jsonl err = %v, want nil", err)
	}
}

func TestValidatePath_Directories(t *testing.T) {
	exports := t.TempDir()
	extra := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{extra, "relative/ignored"}

	tests := []struct {
		name string
		path string
		ok   bool
	}{
		{"exports dir", filepath.Join(exports, "a.jsonl"), true},
		{"allowed path", filepath.Join(extra, "a.jsonl"), true},
		{"subdirectory", filepath.Join(exports, "sub", "a.jsonl"), false},
		{"elsewhere", filepath.Join(t.TempDir(), "a.jsonl"), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePath(tc.path, PathCheckWrite, exports, cfg)
			if tc.ok && err != nil {
				t.Errorf("err = %v, want nil", err)
			}
			if !tc.ok && !errors.Is(err, errors.ErrInvalidRequest) {
				t.Errorf("err = %v, want INVALID_REQUEST", err)
			}
		})
	}
}

func TestValidatePath_UnsafeAllowsAnyDir(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true
	if err := ValidatePath(filepath.Join(t.TempDir(), "a.jsonl"), PathCheckWrite, t.TempDir(), cfg); err != nil {
		t.Errorf("err = %v, want nil", err)
	}
}

func TestValidatePath_ReadMissing(t *testing.T) {
	exports := t.TempDir()
	err := ValidatePath(filepath.Join(exports, "none.jsonl"), PathCheckRead, exports, config.DefaultConfig())
	if !errors.Is(err, errors.ErrFileNotFound) {
		t.Errorf("err = %v, want FILE_NOT_FOUND", err)
	}
}

func TestValidatePath_SymlinkRejected(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	exports := t.TempDir()
	target := writeImportFile(t, t.TempDir(), "real.jsonl", "")
	link := filepath.Join(exports, "link.jsonl")
	if err := os.Symlink(target, link); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	cfg := config.DefaultConfig()
	for _, mode := range []PathCheckMode{PathCheckRead, PathCheckWrite} {
		if err := ValidatePath(link, mode, exports, cfg); !errors.Is(err, errors.ErrInvalidRequest) {
			t.Errorf("mode %d err = %v, want INVALID_REQUEST", mode, err)
		}
	}
	cfg.AllowUnsafePaths = true
	if err := ValidatePath(link, PathCheckWrite, exports, cfg); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("unsafe mode err = %v, want INVALID_REQUEST", err)
	}
}

func TestSanitizeForFilename(t *testing.T) {
	tests := []struct{ in, want string }{
		{"medicines", "medicines"},
		{"../etc/passwd", "etc-passwd"},
		{"a\\b", "a-b"},
		{"\x00\x01", "unnamed"},
		{"--x--", "x"},
	}
	for _, tc := range tests {
		if got := SanitizeForFilename(tc.in); got != tc.want {
			t.Errorf("SanitizeForFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
