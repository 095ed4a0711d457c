package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cjnewshub/apiserver/config"
)

// ErrNotFound is returned when an object does not exist in the bucket.
var ErrNotFound = errors.New("object not found")

// singleRequestLimit is the largest object uploaded without multipart or
// resumable chunking.
const singleRequestLimit = 16 << 20

// Object is a blob written to the bucket.
type Object struct {
	Key          string
	Body         io.Reader
	Size         int64
	ContentType  string
	CacheControl string
}

// Backend is implemented by each object store. Open and Remove report a
// missing object as ErrNotFound.
type Backend interface {
	EnsureBucket(ctx context.Context) error
	Write(ctx context.Context, obj Object) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
	Bucket() string
}

// Storage is the bucket the server writes clipping images to.
type Storage struct {
	backend Backend
}

func NewStorage(backend Backend) *Storage {
	return &Storage{backend: backend}
}

// New builds the backend named by cfg.Backend ("minio" or "gcs").
func New(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	var (
		backend Backend
		err     error
	)
	switch name := strings.ToLower(strings.TrimSpace(cfg.Backend)); name {
	case "", "minio":
		backend, err = NewMinioClient(cfg.Minio)
	case "gcs":
		backend, err = NewGCSClient(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", backendName(cfg.Backend), err)
	}
	return NewStorage(backend), nil
}

func backendName(name string) string {
	if name = strings.ToLower(strings.TrimSpace(name)); name == "" {
		return "minio"
	}
	return name
}

func (s *Storage) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

func (s *Storage) Write(ctx context.Context, obj Object) error {
	if strings.TrimSpace(obj.Key) == "" {
		return errors.New("object key is required")
	}
	return s.backend.Write(ctx, obj)
}

func (s *Storage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.backend.Open(ctx, key)
}

func (s *Storage) Remove(ctx context.Context, key string) error {
	return s.backend.Remove(ctx, key)
}

func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}
