package types

import "time"

// AdSize is the banner slot dimension of an advertisement.
type AdSize string

const (
	AdSizeLeaderboard AdSize = "728x90"
	AdSizeRectangle   AdSize = "300x250"
	AdSizeSkyscraper  AdSize = "160x600"
)

// Valid reports whether s is one of the supported banner sizes.
func (s AdSize) Valid() bool {
	switch s {
	case AdSizeLeaderboard, AdSizeRectangle, AdSizeSkyscraper:
		return true
	}
	return false
}

// AdStatus is the moderation stage of an advertisement.
type AdStatus string

const (
	AdPending  AdStatus = "pending"
	AdActive   AdStatus = "active"
	AdInactive AdStatus = "inactive"
)

// Valid reports whether s is one of the known advertisement statuses.
func (s AdStatus) Valid() bool {
	switch s {
	case AdPending, AdActive, AdInactive:
		return true
	}
	return false
}

// Advertisement represents a banner campaign shown on the site.
type Advertisement struct {
	// ID is the unique identifier of the advertisement.
	ID string `json:"id" db:"id"`

	// AdvertiserName is the customer running the campaign.
	AdvertiserName string `json:"advertiser_name" db:"advertiser_name"`

	// ImageURL points to the banner creative.
	ImageURL string `json:"image_url" db:"image_url"`

	// TargetURL is where a click sends the reader.
	TargetURL string `json:"target_url" db:"target_url"`

	// Size is the slot dimension the creative was made for.
	Size AdSize `json:"size" db:"size"`

	// Status is the moderation stage. Only the chief account may set it
	// directly; everybody else's submissions are held as pending.
	Status AdStatus `json:"status" db:"status"`

	// StartDate and EndDate bound the campaign.
	StartDate string `json:"start_date" db:"start_date"`
	EndDate   string `json:"end_date" db:"end_date"`

	// Clicks counts unique origin addresses that clicked the banner.
	Clicks int64 `json:"clicks" db:"clicks"`

	// ClickedIPs is the set of origin addresses already credited.
	// An address increments Clicks at most once per advertisement.
	ClickedIPs []string `json:"clicked_ips" db:"clicked_ips"`

	// CreatedAt is the timestamp at which the advertisement was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
