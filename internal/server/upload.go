package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"slices"

	"github.com/local/podofo/internal/pdferr"
	"github.com/local/podofo/internal/workspace"
)

// maxFieldSize bounds non-file form values such as ranges.
const maxFieldSize = 64 << 10

// limitError is an upload that broke a size or count limit.
type limitError struct{ msg string }

func (e *limitError) Error() string { return e.msg }

// uploadedFile is a file part streamed to disk.
type uploadedFile struct {
	Field    string
	Filename string
	Path     string
	Size     int64
}

// upload is a parsed multipart request.
type upload struct {
	files  []uploadedFile
	fields map[string]string
	bytes  int64
}

func (u *upload) value(name string) string { return u.fields[name] }

func (u *upload) paths() []string {
	out := make([]string, len(u.files))
	for i, f := range u.files {
		out[i] = f.Path
	}
	return out
}

// readUpload streams the multipart body of r into ws. Only parts named in
// fileFields are kept as files, in submission order; parts for other
// fields are discarded. Limits are enforced while copying.
func (s *Server) readUpload(r *http.Request, ws *workspace.Workspace, fileFields []string) (*upload, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, pdferr.Errorf(pdferr.InvalidInput, "upload", "expected a multipart/form-data body: %w", err)
	}
	dir, err := ws.Mkdir("uploads")
	if err != nil {
		return nil, pdferr.Wrap(pdferr.IOFailure, "upload", err)
	}

	up := &upload{fields: make(map[string]string)}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, classifyReadErr(err)
		}
		if err := s.readPart(part, dir, fileFields, up); err != nil {
			part.Close()
			return nil, err
		}
		part.Close()
	}
	return up, nil
}

func (s *Server) readPart(part *multipart.Part, dir string, fileFields []string, up *upload) error {
	name := part.FormName()
	if name == "" {
		return nil
	}
	if part.FileName() == "" {
		b, err := io.ReadAll(io.LimitReader(part, maxFieldSize+1))
		if err != nil {
			return classifyReadErr(err)
		}
		if len(b) > maxFieldSize {
			return pdferr.Errorf(pdferr.InvalidInput, "upload", "field %q is too large", name)
		}
		up.fields[name] = string(b)
		return nil
	}
	if !slices.Contains(fileFields, name) {
		return nil
	}
	if len(up.files) >= s.opts.MaxFiles {
		return &limitError{msg: fmt.Sprintf("too many files: at most %d per request", s.opts.MaxFiles)}
	}

	path := filepath.Join(dir, fmt.Sprintf("upload-%03d", len(up.files)+1))
	f, err := os.Create(path)
	if err != nil {
		return pdferr.Wrap(pdferr.IOFailure, "upload", err)
	}
	n, err := io.Copy(f, io.LimitReader(part, s.opts.MaxFileSize+1))
	if cerr := f.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return classifyReadErr(err)
	}
	if n > s.opts.MaxFileSize {
		return &limitError{msg: fmt.Sprintf("file %q exceeds the %d MB limit", part.FileName(), s.opts.MaxFileSize>>20)}
	}
	up.files = append(up.files, uploadedFile{Field: name, Filename: part.FileName(), Path: path, Size: n})
	up.bytes += n
	return nil
}

func classifyReadErr(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return &limitError{msg: fmt.Sprintf("request body exceeds %d bytes", mbe.Limit)}
	}
	return pdferr.Errorf(pdferr.InvalidInput, "upload", "malformed multipart body: %w", err)
}
