package upstream

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
)

// Form builds a multipart request body. The embedded writer owns the
// boundary, and its content type travels with the form so the client
// can copy it verbatim onto the request.
type Form struct {
	buf    bytes.Buffer
	writer *multipart.Writer
	closed bool
}

func NewForm() *Form {
	f := &Form{}
	f.writer = multipart.NewWriter(&f.buf)
	return f
}

func (f *Form) AddField(name, value string) error {
	if f.closed {
		return fmt.Errorf("form already finalized")
	}
	return f.writer.WriteField(name, value)
}

func (f *Form) AddFile(field, filename string, r io.Reader) error {
	if f.closed {
		return fmt.Errorf("form already finalized")
	}
	part, err := f.writer.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("creating form file %s: %w", field, err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("writing form file %s: %w", field, err)
	}
	return nil
}

// Close finalizes the body. Safe to call more than once.
func (f *Form) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	return f.writer.Close()
}

// ContentType is the multipart content type, boundary included.
func (f *Form) ContentType() string {
	return f.writer.FormDataContentType()
}

func (f *Form) Bytes() []byte {
	return f.buf.Bytes()
}
