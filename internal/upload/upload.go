// Package upload stores profile photos on local disk and hands back the
// public reference path the HTTP layer serves them from.
package upload

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"
)

// MaxPhotoSize is the largest accepted photo (5 MiB).
const MaxPhotoSize int64 = 5 * 1024 * 1024

var (
	ErrUnsupportedType = errors.New("only JPEG, PNG, and WEBP images are allowed")
	ErrTooLarge        = errors.New("file too large, maximum size is 5 MB")
)

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Store writes accepted files under dir and references them as
// urlPrefix/<name>.
type Store struct {
	dir       string
	urlPrefix string
	maxSize   int64
}

func NewStore(dir, urlPrefix string) *Store {
	return &Store{
		dir:       dir,
		urlPrefix: strings.TrimRight(urlPrefix, "/"),
		maxSize:   MaxPhotoSize,
	}
}

// Save validates the file header, copies the content to a new uniquely named
// file and returns its reference path.
func (s *Store) Save(fh *multipart.FileHeader) (string, error) {
	if err := s.check(fh); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	name := "photo-" + ulid.Make().String() + strings.ToLower(filepath.Ext(fh.Filename))
	dest := filepath.Join(s.dir, name)
	dst, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}

	// the header size can lie, so the copy is bounded as well
	n, err := io.Copy(dst, io.LimitReader(src, s.maxSize+1))
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > s.maxSize {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(dest)
		if errors.Is(err, ErrTooLarge) {
			return "", err
		}
		return "", fmt.Errorf("write %s: %w", name, err)
	}

	return s.urlPrefix + "/" + name, nil
}

// Remove deletes a file previously returned by Save. References outside the
// store are ignored.
func (s *Store) Remove(ref string) error {
	if !strings.HasPrefix(ref, s.urlPrefix+"/") {
		return nil
	}
	name := path.Base(ref)
	if name == "." || name == "/" {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (s *Store) check(fh *multipart.FileHeader) error {
	mediaType, _, err := mime.ParseMediaType(fh.Header.Get("Content-Type"))
	if err != nil || !allowedTypes[strings.ToLower(mediaType)] {
		return ErrUnsupportedType
	}
	if fh.Size > s.maxSize {
		return ErrTooLarge
	}
	return nil
}
