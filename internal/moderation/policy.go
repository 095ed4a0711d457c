// Package moderation decides which status a content entity is persisted
// with, and where approve/reject decisions move it, based on who acts.
package moderation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cjnewshub/apiserver/types"
)

// ContentType tags the kind of moderated entity.
type ContentType string

const (
	Article       ContentType = "article"
	Advertisement ContentType = "ad"
	EPaper        ContentType = "epaper"
)

var (
	// ErrUnknownContentType is returned for tags outside article/ad/epaper.
	ErrUnknownContentType = errors.New("unknown content type")

	// ErrInvalidStatus is returned when a privileged actor requests a
	// status the content type does not have.
	ErrInvalidStatus = errors.New("invalid status")
)

// ParseContentType accepts the canonical tags plus a few long forms.
func ParseContentType(raw string) (ContentType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "article", "articles":
		return Article, nil
	case "ad", "ads", "advertisement", "advertisements":
		return Advertisement, nil
	case "epaper", "e-paper", "page", "pages":
		return EPaper, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownContentType, raw)
}

// Outcome is the effect of an approve or reject decision. When Remove is
// set the entity is deleted instead of moved to Status.
type Outcome struct {
	Status string
	Remove bool
}

type rule struct {
	// privileged reports whether the actor's requested status is honored.
	privileged func(p Policy, actor *types.User) bool
	valid      func(status string) bool
	// fallback is used when a privileged actor leaves the status empty.
	fallback string
	// forced pins the status for privileged actors regardless of request.
	forced   string
	held     string
	approve  Outcome
	reject   Outcome
}

var rules = map[ContentType]rule{
	Article: {
		privileged: func(_ Policy, actor *types.User) bool {
			return actor != nil && (actor.Role == types.RoleAdmin || actor.Role == types.RolePublisher)
		},
		valid:    func(s string) bool { return types.ArticleStatus(s).Valid() },
		fallback: string(types.ArticleDraft),
		held:     string(types.ArticlePending),
		approve:  Outcome{Status: string(types.ArticlePublished)},
		reject:   Outcome{Status: string(types.ArticleDraft)},
	},
	Advertisement: {
		privileged: Policy.IsChief,
		valid:      func(s string) bool { return types.AdStatus(s).Valid() },
		fallback:   string(types.AdActive),
		held:       string(types.AdPending),
		approve:    Outcome{Status: string(types.AdActive)},
		reject:     Outcome{Status: string(types.AdInactive)},
	},
	EPaper: {
		privileged: Policy.IsChief,
		valid:      func(s string) bool { return types.EPaperStatus(s).Valid() },
		forced:     string(types.EPaperActive),
		held:       string(types.EPaperPending),
		approve:    Outcome{Status: string(types.EPaperActive)},
		// Rejected pages are dropped rather than parked.
		reject: Outcome{Remove: true},
	},
}

// Policy maps (content type, acting identity) to persisted statuses.
type Policy struct {
	chiefID string
}

// NewPolicy builds a Policy for the given chief account id.
func NewPolicy(chiefID string) Policy {
	return Policy{chiefID: chiefID}
}

// ChiefID returns the id of the chief account.
func (p Policy) ChiefID() string {
	return p.chiefID
}

// IsChief reports whether actor is the chief account.
func (p Policy) IsChief(actor *types.User) bool {
	return actor != nil && p.chiefID != "" && actor.ID == p.chiefID
}

// CanModerate reports whether actor may approve or reject content.
func (p Policy) CanModerate(actor *types.User) bool {
	return p.IsChief(actor)
}

// Resolve returns the status to persist when actor submits content of
// type t asking for requested. Unprivileged submissions are always held
// for review, whatever was requested.
func (p Policy) Resolve(t ContentType, actor *types.User, requested string) (string, error) {
	r, ok := rules[t]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownContentType, t)
	}
	if !r.privileged(p, actor) {
		return r.held, nil
	}
	if r.forced != "" {
		return r.forced, nil
	}
	if requested == "" {
		return r.fallback, nil
	}
	if !r.valid(requested) {
		return "", fmt.Errorf("%w: %q for %s", ErrInvalidStatus, requested, t)
	}
	return requested, nil
}

// Approve returns where an approval moves content of type t.
func (p Policy) Approve(t ContentType) (Outcome, error) {
	r, ok := rules[t]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownContentType, t)
	}
	return r.approve, nil
}

// Reject returns where a rejection moves content of type t.
func (p Policy) Reject(t ContentType) (Outcome, error) {
	r, ok := rules[t]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownContentType, t)
	}
	return r.reject, nil
}

// ArticleStatus is Resolve specialised to articles.
func (p Policy) ArticleStatus(actor *types.User, requested types.ArticleStatus) (types.ArticleStatus, error) {
	s, err := p.Resolve(Article, actor, string(requested))
	return types.ArticleStatus(s), err
}

// AdStatus is Resolve specialised to advertisements.
func (p Policy) AdStatus(actor *types.User, requested types.AdStatus) (types.AdStatus, error) {
	s, err := p.Resolve(Advertisement, actor, string(requested))
	return types.AdStatus(s), err
}

// EPaperStatus is Resolve specialised to e-paper pages.
func (p Policy) EPaperStatus(actor *types.User) types.EPaperStatus {
	s, _ := p.Resolve(EPaper, actor, "")
	return types.EPaperStatus(s)
}
