// Package storage keeps uploaded photos on the local filesystem under
// generated names.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrUnsupportedType = errors.New("tipo de archivo no permitido")
	ErrTooLarge        = errors.New("archivo demasiado grande")
)

const MaxPhotoSize = 15 << 20

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/heic": ".heic",
}

// Local stores files below Dir.
type Local struct {
	Dir string
}

func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{Dir: dir}, nil
}

// Save copies r into a new file named after a fresh UUID and returns that name
// and the number of bytes written. projectID scopes the file into a subdirectory.
func (l *Local) Save(projectID uint, contentType string, r io.Reader) (string, int64, error) {
	ext, ok := allowedTypes[strings.ToLower(contentType)]
	if !ok {
		return "", 0, ErrUnsupportedType
	}

	name := filepath.Join(fmt.Sprintf("p%d", projectID), uuid.NewString()+ext)
	full := filepath.Join(l.Dir, name)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", 0, err
	}

	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", 0, err
	}

	n, err := io.Copy(f, io.LimitReader(r, MaxPhotoSize+1))
	closeErr := f.Close()
	if err == nil && n > MaxPhotoSize {
		err = ErrTooLarge
	}
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(full)
		return "", 0, err
	}
	return filepath.ToSlash(name), n, nil
}

// Path resolves a stored name, refusing anything that escapes Dir.
func (l *Local) Path(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	return filepath.Join(l.Dir, clean), nil
}

func (l *Local) Delete(name string) error {
	p, err := l.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
