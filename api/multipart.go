package api

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"path/filepath"
	"sort"
)

// FilePart is one file attached to a multipart request.
type FilePart struct {
	Field    string
	Filename string
	Content  io.Reader
}

// Multipart is a multipart/form-data body made of plain fields and files.
type Multipart struct {
	Fields map[string]string
	Files  []FilePart
}

// NewMultipart returns an empty body ready for AddField/AddFile.
func NewMultipart() *Multipart {
	return &Multipart{Fields: make(map[string]string)}
}

func (m *Multipart) AddField(name, value string) *Multipart {
	m.Fields[name] = value
	return m
}

func (m *Multipart) AddFile(field, filename string, content io.Reader) *Multipart {
	m.Files = append(m.Files, FilePart{Field: field, Filename: filepath.Base(filename), Content: content})
	return m
}

func (m *Multipart) encode() (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	names := make([]string, 0, len(m.Fields))
	for name := range m.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := w.WriteField(name, m.Fields[name]); err != nil {
			return nil, "", err
		}
	}
	for _, f := range m.Files {
		part, err := w.CreateFormFile(f.Field, f.Filename)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

func filenameFromDisposition(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	name := params["filename"]
	if name == "" {
		return ""
	}
	return filepath.Base(name)
}
