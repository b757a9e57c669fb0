// Package storage keeps post cover files on local disk.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"inkwell/internal/models"
	"inkwell/internal/observability"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// PublicPrefix is the URL prefix under which stored covers are served.
const PublicPrefix = "uploads"

var formatExtensions = map[string]string{
	"jpeg": ".jpg",
	"png":  ".png",
	"gif":  ".gif",
	"webp": ".webp",
}

// allowedExtensions lists the client extensions kept for each detected format.
var allowedExtensions = map[string][]string{
	"jpeg": {".jpg", ".jpeg"},
	"png":  {".png"},
	"gif":  {".gif"},
	"webp": {".webp"},
}

// coverExtension returns the extension the stored file gets. The client's
// extension survives only when it names the detected format, so the static
// handler never serves an upload under a non-image content type.
func coverExtension(filename, format string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range allowedExtensions[format] {
		if ext == allowed {
			return ext
		}
	}
	return formatExtensions[format]
}

// CoverStore writes uploaded cover images into a single directory.
type CoverStore struct {
	dir      string
	maxBytes int64
}

// NewCoverStore creates the upload directory if needed.
func NewCoverStore(dir string, maxBytes int64) (*CoverStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &CoverStore{dir: dir, maxBytes: maxBytes}, nil
}

// Dir returns the directory covers are written to.
func (s *CoverStore) Dir() string {
	return s.dir
}

// Save stores a multipart upload and returns its public path.
func (s *CoverStore) Save(fh *multipart.FileHeader) (string, error) {
	if fh == nil {
		return "", models.NewValidationError("Cover file is required")
	}
	if fh.Size > s.maxBytes {
		return "", s.tooLarge()
	}
	src, err := fh.Open()
	if err != nil {
		return "", models.NewInternalError(err)
	}
	defer func() { _ = src.Close() }()

	return s.Store(fh.Filename, src)
}

// Store spools src into a temporary file inside the upload directory, checks
// that it is an image within the size limit, then renames it so the final name
// carries the original extension when it matches the detected format. It returns the public path, e.g. "uploads/<id>.png".
func (s *CoverStore) Store(filename string, src io.Reader) (string, error) {
	tmp, err := os.CreateTemp(s.dir, "upload-*")
	if err != nil {
		return "", models.NewInternalError(err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	// Keep the head of the stream for format sniffing.
	var head bytes.Buffer
	written, err := io.Copy(tmp, io.TeeReader(io.LimitReader(src, s.maxBytes+1), &limitedBuffer{buf: &head, max: 64 * 1024}))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", models.NewInternalError(err)
	}
	if written == 0 {
		return "", models.NewValidationError("Cover file is empty")
	}
	if written > s.maxBytes {
		return "", s.tooLarge()
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(head.Bytes()))
	if err != nil {
		return "", models.NewValidationError("Cover must be a JPEG, PNG, GIF or WebP image")
	}

	name := uuid.NewString() + coverExtension(filename, format)
	if err := os.Rename(tmpPath, filepath.Join(s.dir, name)); err != nil {
		return "", models.NewInternalError(err)
	}
	committed = true

	observability.CoverBytesStored.Add(float64(written))
	return path.Join(PublicPrefix, name), nil
}

// Remove deletes the file behind a public cover path. Missing files and empty
// paths are not errors.
func (s *CoverStore) Remove(cover string) error {
	if cover == "" {
		return nil
	}
	name := filepath.Base(filepath.FromSlash(cover))
	if name == "." || name == string(filepath.Separator) {
		return nil
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	observability.CoverFilesRemoved.Inc()
	return nil
}

// Exists reports whether the file behind a public cover path is on disk.
func (s *CoverStore) Exists(cover string) bool {
	if cover == "" {
		return false
	}
	_, err := os.Stat(filepath.Join(s.dir, filepath.Base(filepath.FromSlash(cover))))
	return err == nil
}

func (s *CoverStore) tooLarge() error {
	return models.NewValidationError(fmt.Sprintf("Cover too large (max %dMB)", s.maxBytes/(1024*1024)))
}

// limitedBuffer captures at most max bytes and silently discards the rest.
type limitedBuffer struct {
	buf *bytes.Buffer
	max int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if room := b.max - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}
