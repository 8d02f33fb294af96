// Package sizefmt renders byte counts for people.
package sizefmt

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// NotFound is returned by FileSize when the path does not exist.
const NotFound = "File not found"

const (
	kb = 1024
	mb = 1024 * 1024
)

// FormatBytes renders n as "N bytes" below 1 KB, otherwise as KB or MB with two decimals.
func FormatBytes(n int64) string {
	switch {
	case n < kb:
		return fmt.Sprintf("%d bytes", n)
	case n < mb:
		return fmt.Sprintf("%.2f KB", float64(n)/kb)
	default:
		return fmt.Sprintf("%.2f MB", float64(n)/mb)
	}
}

// FileSize formats the size of the file at path. A missing file yields NotFound.
func FileSize(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NotFound, nil
		}
		return "", err
	}
	return FormatBytes(info.Size()), nil
}
