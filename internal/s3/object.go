package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/chainguard-dev/clog"
	"github.com/chainguard-dev/webctl/internal/errs"
)

// Upload reads the file at 'path' fully into memory and stores it as object
// 'key' in 'bucket'. An empty 'key' defaults to the file's base name. The
// object is written through the bucket's own region.
//
// A missing file returns an error wrapping 'errs.ErrNotFound'; a failed
// transmission wraps 'errs.ErrProvider'. Failed uploads are not retried here.
func (c *Client) Upload(ctx context.Context, bucket, key, path string, acl ACL) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s: %w", errs.ErrNotFound, path, err)
	} else if err != nil {
		return "", fmt.Errorf("%w: reading %s: %w", errs.ErrProvider, path, err)
	}
	if key == "" {
		key = filepath.Base(path)
	}
	_, err = c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType(path, data)),
		ACL:           acl.object(),
	}, withRegion(c.regionOf(ctx, bucket)))
	if err != nil {
		return "", wrap(err, fmt.Sprintf("failed to upload %s to s3://%s/%s", path, bucket, key))
	}
	clog.FromContext(ctx).Info("uploaded object", "bucket", bucket, "key", key, "bytes", len(data), "acl", acl)
	return key, nil
}

// contentType guesses the object's MIME type, by extension first then by
// sniffing the content.
func contentType(path string, data []byte) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return http.DetectContentType(data)
}
