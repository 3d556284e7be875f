package netx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// FormField is a plain text field of a multipart form. A slice keeps the
// field order stable on the wire.
type FormField struct {
	Name  string
	Value string
}

// NewMultipartRequest builds a request whose body is a multipart form with
// the given text fields followed by a single file field.
func NewMultipartRequest(ctx context.Context, method, url string, fields []FormField, fileField, fileName string, content []byte) (*http.Request, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	for _, f := range fields {
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return nil, err
		}
	}

	fw, err := w.CreateFormFile(fileField, fileName)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(content); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req, nil
}

// ReadLimited reads at most limit bytes of the body and closes it. Reading
// past the limit is an error.
func ReadLimited(rc io.ReadCloser, limit int64) ([]byte, error) {
	defer rc.Close()

	b, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, fmt.Errorf("response body exceeds %d bytes", limit)
	}
	return b, nil
}
