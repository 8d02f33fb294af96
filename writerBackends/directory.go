package writerbackends

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"shrink/logger"
)

// UploadToDirectory writes content from an io.Reader into a local directory.
// accessInfo needs "dir" and "filename"; "prefix" adds a subfolder.
func UploadToDirectory(ctx context.Context, accessInfo map[string]string, reader io.Reader) error {
	baseDir := accessInfo["dir"]
	filename := accessInfo["filename"]
	if baseDir == "" || filename == "" {
		return fmt.Errorf("missing required accessInfo keys: dir, filename")
	}

	fullDir := filepath.Join(baseDir, accessInfo["prefix"])
	fullPath := filepath.Join(fullDir, filepath.Base(filename))

	if err := os.MkdirAll(fullDir, 0755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	// write to a sibling temp file so readers never see a partial result
	tmp, err := os.CreateTemp(fullDir, ".partial-*")
	if err != nil {
		return fmt.Errorf("failed to create file in %s: %w", fullDir, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, readerWithContext(ctx, reader)); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write to file %s: %w", fullPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file %s: %w", fullPath, err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return fmt.Errorf("failed to move file into place %s: %w", fullPath, err)
	}

	logger.Infof("Successfully saved file '%s' to '%s'", filename, fullPath)
	return nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// readerWithContext stops a copy once ctx is done.
func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return ctxReader{ctx: ctx, r: r}
}
