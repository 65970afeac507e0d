// Package logging builds the zap logger shared by every command.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// FileName is the log file used when stdout and stderr are not ours (MCP mode).
const FileName = "dose.log"

// New returns a console-encoded logger writing to w at the given level.
// An unknown level falls back to info.
func New(level string, w io.Writer) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), lvl)
	return zap.New(core)
}

// NewFile returns a logger appending to baseDir/dose.log and a close func.
func NewFile(level, baseDir string) (*zap.Logger, func() error, error) {
	f, err := os.OpenFile(filepath.Join(baseDir, FileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, err
	}
	logger := New(level, f)
	return logger, func() error {
		_ = logger.Sync()
		return f.Close()
	}, nil
}
