package fakebackend

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
)

const maxUpload = 10 << 20

type form struct {
	values   map[string]string
	file     []byte
	filename string
}

func (f *form) value(name string) string {
	return f.values[name]
}

func readForm(r *http.Request) (*form, error) {
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		return nil, badRequest("invalid multipart body")
	}
	f := &form{values: make(map[string]string)}
	for name, vals := range r.MultipartForm.Value {
		if len(vals) > 0 {
			f.values[name] = vals[0]
		}
	}
	file, header, err := r.FormFile("file")
	if err == http.ErrMissingFile {
		return f, nil
	}
	if err != nil {
		return nil, badRequest("invalid file")
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, badRequest("invalid file")
	}
	f.file, f.filename = data, header.Filename
	return f, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func (b *Backend) downloadAssignment(w http.ResponseWriter, r *http.Request) {
	b.serveFile(w, r, "assignment", func(id int64) (string, bool) {
		a, ok := b.assignments[id]
		if !ok {
			return "", false
		}
		return a.FileName, true
	})
}

func (b *Backend) downloadSubmission(w http.ResponseWriter, r *http.Request) {
	b.serveFile(w, r, "submission", func(id int64) (string, bool) {
		s, ok := b.submissions[id]
		if !ok {
			return "", false
		}
		return s.FileName, true
	})
}

// serveFile answers with the raw file bytes; errors still use the envelope.
func (b *Backend) serveFile(w http.ResponseWriter, r *http.Request, kind string, lookup func(int64) (string, bool)) {
	if b.record(w, r) {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeEnvelope(w, http.StatusBadRequest, CodeInvalidBody, err.Error(), nil)
		return
	}

	b.mu.Lock()
	name, ok := lookup(id)
	data, hasFile := b.files[fileKey(kind, id)]
	b.mu.Unlock()

	if !ok || !hasFile {
		writeEnvelope(w, http.StatusNotFound, CodeNotFound, fmt.Sprintf("No file for %s %d", kind, id), nil)
		return
	}
	writeFile(w, name, "application/octet-stream", data)
}

func (b *Backend) exportScores(w http.ResponseWriter, r *http.Request) {
	if b.record(w, r) {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeEnvelope(w, http.StatusBadRequest, CodeInvalidBody, err.Error(), nil)
		return
	}

	b.mu.Lock()
	_, ok := b.classes[id]
	book := b.scoreBook(id)
	b.mu.Unlock()
	if !ok {
		writeEnvelope(w, http.StatusNotFound, CodeNotFound, notFound("Class", id).Error(), nil)
		return
	}

	buf := &bytes.Buffer{}
	cw := csv.NewWriter(buf)
	_ = cw.Write([]string{"studentId", "studentName", "examAverage", "assignmentAverage", "attendanceRate"})
	for _, s := range book {
		_ = cw.Write([]string{
			formatID(s.StudentID),
			s.StudentName,
			strconv.FormatFloat(s.ExamAverage, 'f', 2, 64),
			strconv.FormatFloat(s.AssignmentAverage, 'f', 2, 64),
			strconv.FormatFloat(s.AttendanceRate, 'f', 2, 64),
		})
	}
	cw.Flush()
	writeFile(w, fmt.Sprintf("scores-%d.csv", id), "text/csv", buf.Bytes())
}

func writeFile(w http.ResponseWriter, name, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}
