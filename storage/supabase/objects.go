package supabase

import (
	"bytes"
	"context"
	"net/http"

	"github.com/pkg/errors"
)

// Upload upserts an object into a storage bucket.
func (c *Client) Upload(ctx context.Context, bucket, path string, content []byte, contentType string) error {
	url := c.baseURL + "/storage/v1/object/" + bucket + "/" + path

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(content))
	if err != nil {
		return errors.Wrap(err, "building upload request")
	}
	for k, v := range c.restHeaders() {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	res, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "uploading object")
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		return decodeError(res)
	}
	return nil
}

// PublicURL derives the public address of an uploaded object.
func (c *Client) PublicURL(bucket, path string) string {
	return c.baseURL + "/storage/v1/object/public/" + bucket + "/" + path
}
