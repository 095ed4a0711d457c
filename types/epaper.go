package types

import "time"

// EPaperStatus is the moderation stage of an e-paper page.
type EPaperStatus string

const (
	EPaperPending EPaperStatus = "pending"
	EPaperActive  EPaperStatus = "active"
)

// Valid reports whether s is one of the known page statuses.
func (s EPaperStatus) Valid() bool {
	return s == EPaperPending || s == EPaperActive
}

// EPaperPage is a single scanned page of a printed edition.
type EPaperPage struct {
	ID         string       `json:"id" db:"id"`
	PageNumber int          `json:"page_number" db:"page_number"`
	ImageURL   string       `json:"image_url" db:"image_url"`
	Date       string       `json:"date" db:"date"`
	Status     EPaperStatus `json:"status" db:"status"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
}
