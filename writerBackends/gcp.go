package writerbackends

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"shrink/logger"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// gcsClientOption picks credentials from accessInfo: a key file path, a
// base64 or raw service account JSON, or application default credentials.
func gcsClientOption(accessInfo map[string]string) []option.ClientOption {
	if file := accessInfo["credentialsFile"]; file != "" {
		return []option.ClientOption{option.WithCredentialsFile(file)}
	}
	raw := accessInfo["credentialsJSON"]
	if raw == "" {
		return nil
	}
	if decoded, err := base64.StdEncoding.DecodeString(raw); err == nil {
		return []option.ClientOption{option.WithCredentialsJSON(decoded)}
	}
	return []option.ClientOption{option.WithCredentialsJSON([]byte(raw))}
}

// UploadToGCSWithJSON uploads content from an io.Reader to a Google Cloud Storage object.
// accessInfo: bucket, object; optional credentialsFile or credentialsJSON.
func UploadToGCSWithJSON(ctx context.Context, accessInfo map[string]string, reader io.Reader) error {
	bucketName := accessInfo["bucket"]
	objectName := accessInfo["object"]
	if bucketName == "" || objectName == "" {
		return fmt.Errorf("missing required accessInfo keys: bucket, object")
	}

	client, err := storage.NewClient(ctx, gcsClientOption(accessInfo)...)
	if err != nil {
		return fmt.Errorf("storage.NewClient: %w", err)
	}
	defer client.Close()

	wc := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	if ct := accessInfo["contentType"]; ct != "" {
		wc.ContentType = ct
	}

	if _, err = io.Copy(wc, reader); err != nil {
		wc.Close()
		return fmt.Errorf("io.Copy: %w", err)
	}
	// Close completes the upload
	if err := wc.Close(); err != nil {
		return fmt.Errorf("Writer.Close: %w", err)
	}

	logger.Infof("Successfully uploaded object '%s' to bucket '%s'", objectName, bucketName)
	return nil
}
