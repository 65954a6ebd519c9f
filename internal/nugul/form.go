package nugul

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
)

// Upload is a binary file attached to a multipart request.
type Upload struct {
	Filename    string
	ContentType string
	Data        io.Reader
}

type form struct {
	buf bytes.Buffer
	w   *multipart.Writer
}

func newForm() *form {
	f := &form{}
	f.w = multipart.NewWriter(&f.buf)
	return f
}

// jsonPart writes v as a JSON encoded part named name.
func (f *form) jsonPart(name string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q`, name))
	h.Set("Content-Type", "application/json")

	part, err := f.w.CreatePart(h)
	if err != nil {
		return err
	}

	_, err = part.Write(b)
	return err
}

// filePart writes u as a file part named name. A nil upload
// writes nothing.
func (f *form) filePart(name string, u *Upload) error {
	if u == nil || u.Data == nil {
		return nil
	}

	filename := u.Filename
	if filename == "" {
		filename = name
	}

	contentType := u.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, name, filename))
	h.Set("Content-Type", contentType)

	part, err := f.w.CreatePart(h)
	if err != nil {
		return err
	}

	_, err = io.Copy(part, u.Data)
	return err
}

// close finishes the form and returns the body and its
// Content-Type header value.
func (f *form) close() (io.Reader, string, error) {
	if err := f.w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed closing multipart body: %w", err)
	}

	return &f.buf, f.w.FormDataContentType(), nil
}
