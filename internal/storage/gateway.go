package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"
)

// Gateway is a key/value view over object storage. Keys are stored under
// a common prefix so several gateways can share one bucket.
type Gateway struct {
	store        *Storage
	prefix       string
	cacheControl string
}

// ImmutableCacheControl suits objects whose key is never reused for
// different content.
const ImmutableCacheControl = "public, max-age=31536000, immutable"

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithCacheControl stores value as the Cache-Control header of every object.
func WithCacheControl(value string) GatewayOption {
	return func(g *Gateway) { g.cacheControl = value }
}

// NewGateway returns a Gateway writing objects under prefix.
func NewGateway(store *Storage, prefix string, opts ...GatewayOption) *Gateway {
	g := &Gateway{store: store, prefix: strings.Trim(prefix, "/")}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) objectKey(key string) string {
	if g.prefix == "" {
		return key
	}
	return path.Join(g.prefix, key)
}

// Load returns the bytes stored under key, or ErrNotFound.
func (g *Gateway) Load(ctx context.Context, key string) ([]byte, error) {
	rc, err := g.store.Open(ctx, g.objectKey(key))
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Save writes value under key, replacing any previous object.
func (g *Gateway) Save(ctx context.Context, key string, value []byte) error {
	return g.store.Write(ctx, Object{
		Key:          g.objectKey(key),
		Body:         bytes.NewReader(value),
		Size:         int64(len(value)),
		ContentType:  http.DetectContentType(value),
		CacheControl: g.cacheControl,
	})
}

// Remove deletes key. Removing a missing key is not an error.
func (g *Gateway) Remove(ctx context.Context, key string) error {
	err := g.store.Remove(ctx, g.objectKey(key))
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
