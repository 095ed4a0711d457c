package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/cjnewshub/apiserver/internal/logging"
	"github.com/cjnewshub/apiserver/types"
)

const (
	// MaxClippingBytes bounds the size of one clipping image.
	MaxClippingBytes = 8 << 20

	// ClippingObjectPrefix namespaces clipping images in object storage.
	ClippingObjectPrefix = "clippings"
)

// ClippingRepository defines persistence operations for clipping metadata.
type ClippingRepository interface {
	ListByUser(ctx context.Context, userID string) ([]types.Clipping, error)
	Get(ctx context.Context, id string) (types.Clipping, error)
	Create(ctx context.Context, c types.Clipping) (types.Clipping, error)
	Delete(ctx context.Context, id string) error
}

// Gateway is a flat key to bytes store. Load reports a missing key with
// the backend's not-found error.
type Gateway interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// ClippingService stores e-paper clippings: metadata in the database and
// the image in object storage.
type ClippingService struct {
	repo  ClippingRepository
	blobs Gateway
	log   logging.Logger
}

func NewClippingService(repo ClippingRepository, blobs Gateway, log logging.Logger) *ClippingService {
	if log == nil {
		log = logging.Discard()
	}
	return &ClippingService{repo: repo, blobs: blobs, log: log}
}

// Create saves an image clipping, attributed to actor when signed in.
func (s *ClippingService) Create(ctx context.Context, actor *types.User, data []byte, contentType string) (types.Clipping, error) {
	c := types.Clipping{
		ID:          uuid.NewString(),
		ContentType: contentType,
	}
	if actor != nil {
		c.UserID = actor.ID
	}
	return s.save(ctx, c, data)
}

// Restore saves a clipping that already has an identity, keeping its id,
// owner and timestamp. The legacy import uses it.
func (s *ClippingService) Restore(ctx context.Context, c types.Clipping, data []byte) (types.Clipping, error) {
	if strings.TrimSpace(c.ID) == "" {
		return types.Clipping{}, ErrInvalidInput
	}
	return s.save(ctx, c, data)
}

func (s *ClippingService) save(ctx context.Context, c types.Clipping, data []byte) (types.Clipping, error) {
	c.ContentType = strings.ToLower(strings.TrimSpace(c.ContentType))
	if len(data) == 0 || len(data) > MaxClippingBytes || !strings.HasPrefix(c.ContentType, "image/") {
		return types.Clipping{}, ErrInvalidInput
	}
	c.ObjectKey = c.ID

	if err := s.blobs.Save(ctx, c.ObjectKey, data); err != nil {
		return types.Clipping{}, fmt.Errorf("save clipping image: %w", err)
	}
	created, err := s.repo.Create(ctx, c)
	if err != nil {
		if rmErr := s.blobs.Remove(ctx, c.ObjectKey); rmErr != nil {
			s.log.Warn(ctx, "orphaned clipping image", "key", c.ObjectKey, "error", rmErr)
		}
		return types.Clipping{}, err
	}
	return created, nil
}

// List returns the actor's own clippings.
func (s *ClippingService) List(ctx context.Context, actor *types.User) ([]types.Clipping, error) {
	if actor == nil {
		return nil, ErrUnauthorized
	}
	return s.repo.ListByUser(ctx, actor.ID)
}

// Open returns a clipping and its image bytes.
func (s *ClippingService) Open(ctx context.Context, actor *types.User, id string) (types.Clipping, []byte, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Clipping{}, nil, err
	}
	if !canAccessClipping(actor, c) {
		return types.Clipping{}, nil, ErrUnauthorized
	}
	data, err := s.blobs.Load(ctx, c.ObjectKey)
	if err != nil {
		return types.Clipping{}, nil, fmt.Errorf("load clipping image: %w", err)
	}
	return c, data, nil
}

// Delete removes a clipping and its image.
func (s *ClippingService) Delete(ctx context.Context, actor *types.User, id string) error {
	if actor == nil {
		return ErrUnauthorized
	}
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if c.UserID != actor.ID && !isAdmin(actor) {
		return ErrUnauthorized
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.blobs.Remove(ctx, c.ObjectKey); err != nil {
		s.log.Warn(ctx, "clipping image not removed", "key", c.ObjectKey, "error", err)
	}
	return nil
}

// Anonymous clippings are shareable by id; owned ones are private to
// their owner and admins.
func canAccessClipping(actor *types.User, c types.Clipping) bool {
	if c.UserID == "" {
		return true
	}
	if actor == nil {
		return false
	}
	return actor.ID == c.UserID || isAdmin(actor)
}

// DecodeDataURL splits a base64 data URL such as
// "data:image/png;base64,iVBOR..." into its media type and bytes.
func DecodeDataURL(raw string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(raw), "data:")
	if !ok {
		return "", nil, errors.New("image must be a data url")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, errors.New("malformed data url")
	}
	mediaType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return "", nil, errors.New("data url must be base64 encoded")
	}
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxClippingBytes+3 {
		return "", nil, errors.New("image too large")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, errors.New("invalid base64 payload")
	}
	return strings.ToLower(mediaType), data, nil
}
