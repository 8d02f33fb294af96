package writerbackends

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"shrink/config"
)

// Export writes one reduced file to the destination described by sink.
// The object name is the sink's optional "prefix" option joined with filename.
func Export(ctx context.Context, sink config.SinkConfig, filename string, reader io.Reader) error {
	accessInfo := prepareAccessInfo(sink, filename)

	switch sink.Type {
	case "directory":
		if err := UploadToDirectory(ctx, accessInfo, reader); err != nil {
			return fmt.Errorf("failed to export to directory: %w", err)
		}
	case "s3":
		if err := UploadToS3WithCreds(ctx, accessInfo, reader); err != nil {
			return fmt.Errorf("failed to export to S3: %w", err)
		}
	case "gcs":
		if err := UploadToGCSWithJSON(ctx, accessInfo, reader); err != nil {
			return fmt.Errorf("failed to export to GCS: %w", err)
		}
	case "sftp":
		if err := UploadToSFTPWithCreds(ctx, accessInfo, reader); err != nil {
			return fmt.Errorf("failed to export to SFTP: %w", err)
		}
	default:
		return fmt.Errorf("unknown sink type: %s", sink.Type)
	}
	return nil
}

// prepareAccessInfo copies the sink options and derives the per-backend target name.
func prepareAccessInfo(sink config.SinkConfig, filename string) map[string]string {
	accessInfo := make(map[string]string, len(sink.Options)+3)
	for k, v := range sink.Options {
		accessInfo[k] = v
	}

	object := path.Join(strings.Trim(sink.Options["prefix"], "/"), filename)
	accessInfo["filename"] = filename

	switch sink.Type {
	case "s3":
		accessInfo["key"] = object
	case "gcs":
		accessInfo["object"] = object
	case "sftp":
		accessInfo["remotePath"] = path.Join(sink.Options["dir"], filename)
	}
	return accessInfo
}
