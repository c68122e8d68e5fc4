package supabase

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Upload загружает файл в бакет и возвращает его публичный адрес.
func (c *Client) Upload(ctx context.Context, bucket, path, contentType string, data []byte) (string, error) {
	objectPath := url.PathEscape(bucket) + "/" + escapePath(path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/storage/v1/object/"+objectPath, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req, "")
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "false")

	if _, err := c.do(req); err != nil {
		return "", fmt.Errorf("upload %s: %w", path, err)
	}

	return c.PublicURL(bucket, path), nil
}

// PublicURL возвращает публичный адрес объекта в бакете.
func (c *Client) PublicURL(bucket, path string) string {
	return c.baseURL + "/storage/v1/object/public/" + url.PathEscape(bucket) + "/" + escapePath(path)
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
