package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// ErrObjectExists is returned when the upload target is already taken
var ErrObjectExists = errors.New("object already exists")

// ParseGCSURI splits gs://bucket/path/to/object into bucket and object names
func ParseGCSURI(uri string) (string, string, error) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return "", "", fmt.Errorf("invalid GCS URI %q: must start with gs://", uri)
	}
	bucket, object, _ := strings.Cut(rest, "/")
	if bucket == "" || object == "" || strings.HasSuffix(object, "/") {
		return "", "", fmt.Errorf("invalid GCS URI %q: expected gs://bucket/object", uri)
	}
	return bucket, object, nil
}

// UploadToGCS writes data to the object named by uri. The write only succeeds
// if the object does not exist yet, so a finished manuscript is never
// overwritten.
func UploadToGCS(ctx context.Context, client *storage.Client, uri, contentType string, data []byte) error {
	bucket, object, err := ParseGCSURI(uri)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExportFailure, err)
	}

	writer := client.Bucket(bucket).Object(object).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = contentType

	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		_ = writer.Close()
		return uploadError(uri, err)
	}
	if err := writer.Close(); err != nil {
		return uploadError(uri, err)
	}

	slog.Info("Uploaded export to GCS", "uri", uri, "bytes", len(data))
	return nil
}

func uploadError(uri string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
		return fmt.Errorf("%w: %w: %s", ErrExportFailure, ErrObjectExists, uri)
	}
	return fmt.Errorf("%w: uploading to %s: %w", ErrExportFailure, uri, err)
}
