package types

import "time"

// ArticleStatus is the moderation stage of an article.
type ArticleStatus string

const (
	ArticleDraft     ArticleStatus = "draft"
	ArticlePending   ArticleStatus = "pending"
	ArticlePublished ArticleStatus = "published"
)

// Valid reports whether s is one of the known article statuses.
func (s ArticleStatus) Valid() bool {
	switch s {
	case ArticleDraft, ArticlePending, ArticlePublished:
		return true
	}
	return false
}

// Article represents a news story in the editorial system.
type Article struct {
	// ID is the unique identifier of the article.
	ID string `json:"id" db:"id"`

	// Title is the headline of the article.
	Title string `json:"title" db:"title"`

	// Excerpt is the short teaser shown on listing pages.
	Excerpt string `json:"excerpt" db:"excerpt"`

	// Category is the section the article is filed under
	// (e.g., "World", "Business").
	Category string `json:"category" db:"category"`

	// Author is the byline shown to readers.
	Author string `json:"author" db:"author"`

	// AuthorID references the user who created the article. It is a
	// non-owning reference: deleting the user keeps the article.
	AuthorID string `json:"author_id,omitempty" db:"author_id"`

	// Date is the publication date as entered by the editor.
	Date string `json:"date" db:"date"`

	// ImageURL points to the lead image.
	ImageURL string `json:"image_url" db:"image_url"`

	// VideoURL optionally points to an embedded video.
	VideoURL string `json:"video_url,omitempty" db:"video_url"`

	// Content is the full body of the article.
	Content string `json:"content" db:"content"`

	// Tags are free-form labels used for filtering and search.
	Tags []string `json:"tags" db:"tags"`

	// Status is the moderation stage. It is always recomputed from the
	// acting identity's privilege on create and update.
	Status ArticleStatus `json:"status" db:"status"`

	// IsFeatured marks the article for the front page hero slot.
	IsFeatured bool `json:"is_featured" db:"is_featured"`

	// Views counts how many times the article was opened.
	Views int64 `json:"views" db:"views"`

	// CreatedAt is the timestamp at which the article was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the article.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
