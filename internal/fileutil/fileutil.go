// Package fileutil provides file and path helpers for the video work directory.
package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultDirPermissions  = 0o750
	defaultFilePermissions = 0o600
	invalidCharReplacement = "_"
)

// Data size constants.
const (
	byteUnit = 1
	kilobyte = byteUnit * 1024
	megabyte = kilobyte * 1024
	gigabyte = megabyte * 1024
)

const (
	formatGB    = "%.1f GB"
	formatMB    = "%.1f MB"
	formatKB    = "%.1f KB"
	formatBytes = "%d B"
)

// ErrPathEmpty indicates that an empty path was provided.
var ErrPathEmpty = errors.New("path cannot be empty")

var filenameReplacer = strings.NewReplacer(
	"<", invalidCharReplacement,
	">", invalidCharReplacement,
	":", invalidCharReplacement,
	"\"", invalidCharReplacement,
	"/", invalidCharReplacement,
	"\\", invalidCharReplacement,
	"|", invalidCharReplacement,
	"?", invalidCharReplacement,
	"*", invalidCharReplacement,
	"..", invalidCharReplacement,
)

// EnsureDir creates a directory and its parents if they do not exist.
func EnsureDir(path string) error {
	if path == "" {
		return ErrPathEmpty
	}

	err := os.MkdirAll(path, defaultDirPermissions)
	if err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", path, err)
	}

	return nil
}

// WriteFile writes data into dir/name and returns the full path.
func WriteFile(dir, name string, data []byte) (string, error) {
	path := filepath.Join(dir, name)

	err := os.WriteFile(path, data, defaultFilePermissions)
	if err != nil {
		return "", fmt.Errorf("failed to write '%s': %w", path, err)
	}

	return path, nil
}

// SanitizeFilename replaces characters that are invalid in most filesystems
// so user supplied identifiers can be used as path elements.
func SanitizeFilename(filename string) string {
	cleaned := filenameReplacer.Replace(strings.TrimSpace(filename))
	if cleaned == "" || cleaned == "." {
		return invalidCharReplacement
	}

	return cleaned
}

// FormatFileSize formats a file size in a human-readable string (e.g., "1.2 GB").
func FormatFileSize(bytes int64) string {
	switch {
	case bytes >= gigabyte:
		return fmt.Sprintf(formatGB, float64(bytes)/gigabyte)
	case bytes >= megabyte:
		return fmt.Sprintf(formatMB, float64(bytes)/megabyte)
	case bytes >= kilobyte:
		return fmt.Sprintf(formatKB, float64(bytes)/kilobyte)
	default:
		return fmt.Sprintf(formatBytes, bytes)
	}
}
