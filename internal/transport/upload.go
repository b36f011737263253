package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// File is one part of a multipart upload.
type File struct {
	Field   string
	Name    string
	Content io.Reader
}

// Upload posts a multipart form: files plus optional scalar fields.
// Used for report photos, delivery documents and expense receipts.
func (c *Client) Upload(ctx context.Context, path string, files []File, fields map[string]string) (*Response, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for _, f := range files {
		part, err := writer.CreateFormFile(f.Field, f.Name)
		if err != nil {
			return nil, c.failConfiguration(fmt.Errorf("create form file %s: %w", f.Name, err))
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, c.failConfiguration(fmt.Errorf("read file %s: %w", f.Name, err))
		}
	}

	for key, val := range fields {
		if err := writer.WriteField(key, val); err != nil {
			return nil, c.failConfiguration(fmt.Errorf("write form field %s: %w", key, err))
		}
	}

	if err := writer.Close(); err != nil {
		return nil, c.failConfiguration(err)
	}

	att := &attempt{
		method:      http.MethodPost,
		url:         c.baseURL + path,
		body:        buf.Bytes(),
		contentType: writer.FormDataContentType(),
	}
	return c.execute(ctx, att)
}

// Download fetches a binary body (exports, generated reports) and
// returns it raw along with the server's content type.
func (c *Client) Download(ctx context.Context, path string, params Params) ([]byte, string, error) {
	resp, err := c.Get(ctx, path, params)
	if err != nil {
		return nil, "", err
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// BatchOperation posts ids (plus extra fields) to the collection's
// batch action endpoint: <base>batch/<action>/.
func (c *Client) BatchOperation(ctx context.Context, base, action string, ids []int64, extra map[string]any) (*Response, error) {
	body := map[string]any{"ids": ids}
	for key, val := range extra {
		body[key] = val
	}
	return c.Post(ctx, base+"batch/"+action+"/", body)
}
