package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	ErrTooLarge       = errors.New("file exceeds upload limit")
	ErrTypeNotAllowed = errors.New("file type not allowed")
	ErrNotFound       = errors.New("stored file not found")
	ErrInvalidKey     = errors.New("invalid storage key")
)

// allowedTypes maps accepted extensions to the content types their bytes
// must sniff as.
var allowedTypes = map[string][]string{
	".pdf":  {"application/pdf"},
	".doc":  {"application/msword", "application/x-ole-storage"},
	".docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "application/zip"},
	".xls":  {"application/vnd.ms-excel", "application/x-ole-storage"},
	".xlsx": {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "application/zip"},
	".png":  {"image/png"},
	".jpg":  {"image/jpeg"},
	".jpeg": {"image/jpeg"},
}

// StoredFile describes a saved attachment.
type StoredFile struct {
	Key      string
	Size     int64
	MimeType string
}

// DocumentStore persists attachment bytes under opaque keys.
type DocumentStore interface {
	Save(ctx context.Context, proposalID uint, filename string, r io.Reader) (StoredFile, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// LocalStore keeps files under Root/proposals/<id>/<uuid><ext>.
type LocalStore struct {
	Root     string
	MaxBytes int64
}

func NewLocalStore(root string, maxBytes int64) (*LocalStore, error) {
	if root == "" {
		root = "./uploads"
	}
	if err := os.MkdirAll(root, os.ModePerm); err != nil {
		return nil, fmt.Errorf("create upload root: %w", err)
	}
	return &LocalStore{Root: root, MaxBytes: maxBytes}, nil
}

var _ DocumentStore = (*LocalStore)(nil)

func (s *LocalStore) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.Root, clean), nil
}

func (s *LocalStore) Save(ctx context.Context, proposalID uint, filename string, r io.Reader) (StoredFile, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	accepted, ok := allowedTypes[ext]
	if !ok {
		return StoredFile{}, ErrTypeNotAllowed
	}
	if err := ctx.Err(); err != nil {
		return StoredFile{}, err
	}

	key := fmt.Sprintf("proposals/%d/%s%s", proposalID, uuid.NewString(), ext)
	path, err := s.resolve(key)
	if err != nil {
		return StoredFile{}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return StoredFile{}, fmt.Errorf("create proposal folder: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return StoredFile{}, fmt.Errorf("create file: %w", err)
	}

	src := r
	if s.MaxBytes > 0 {
		src = io.LimitReader(r, s.MaxBytes+1)
	}
	n, copyErr := io.Copy(f, src)
	closeErr := f.Close()
	switch {
	case copyErr != nil:
		os.Remove(path)
		return StoredFile{}, fmt.Errorf("write file: %w", copyErr)
	case closeErr != nil:
		os.Remove(path)
		return StoredFile{}, fmt.Errorf("close file: %w", closeErr)
	case s.MaxBytes > 0 && n > s.MaxBytes:
		os.Remove(path)
		return StoredFile{}, ErrTooLarge
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		os.Remove(path)
		return StoredFile{}, fmt.Errorf("detect content type: %w", err)
	}
	if !matchesAny(mtype, accepted) {
		os.Remove(path)
		return StoredFile{}, ErrTypeNotAllowed
	}

	return StoredFile{Key: key, Size: n, MimeType: mtype.String()}, nil
}

func matchesAny(m *mimetype.MIME, types []string) bool {
	for _, t := range types {
		if m.Is(t) {
			return true
		}
	}
	return false
}

func (s *LocalStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
