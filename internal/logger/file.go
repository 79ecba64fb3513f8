package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LogFileConfig describes where a workflow run's driver log should live.
type LogFileConfig struct {
	Prefix       string
	LogDir       string
	RunLogDir    string // overrides LogDir/WorkflowName when set
	WorkflowName string
	RunID        string
}

// OpenLogFile creates (or appends to) the run's driver log file, creating
// its parent directory if needed.
func OpenLogFile(cfg LogFileConfig) (*os.File, error) {
	dir, err := prepareLogDirectory(cfg)
	if err != nil {
		return nil, err
	}
	return openFile(filepath.Join(dir, generateLogFilename(cfg)))
}

func prepareLogDirectory(cfg LogFileConfig) (string, error) {
	dir := cfg.RunLogDir
	if dir == "" {
		dir = filepath.Join(cfg.LogDir, sanitizeFilename(cfg.WorkflowName))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("logger: create log directory %s: %w", dir, err)
	}
	return dir, nil
}

func generateLogFilename(cfg LogFileConfig) string {
	ts := time.Now().Format("20060102.15:04:05.000")
	name := fmt.Sprintf("%s%s.%s.log", cfg.Prefix, ts, cfg.RunID)
	return sanitizeFilename(name)
}

func sanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' {
			return '_'
		}
		return r
	}, name)
}

func openFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logger: open log file %s: %w", path, err)
	}
	return f, nil
}
