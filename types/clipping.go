package types

import "time"

// Clipping is a region a reader cut out of an e-paper page.
type Clipping struct {
	// ID is the unique identifier of the clipping.
	ID string `json:"id" db:"id"`

	// ObjectKey locates the clipped image in object storage.
	ObjectKey string `json:"object_key" db:"object_key"`

	// ContentType is the MIME type of the stored image.
	ContentType string `json:"content_type" db:"content_type"`

	// UserID references the reader who made the clipping, if signed in.
	UserID string `json:"user_id,omitempty" db:"user_id"`

	// CreatedAt is when the clipping was taken.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
