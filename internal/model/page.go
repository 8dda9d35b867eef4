package model

import (
	"fmt"
	"time"
)

// PageAccess controls who can see a page.
type PageAccess string

const (
	PagePublic  PageAccess = "public"  // visible to every project member
	PagePrivate PageAccess = "private" // visible to the owner only
)

var validPageAccess = []PageAccess{PagePublic, PagePrivate}

// ValidatePageAccess returns an error if a is not a recognized access level.
func ValidatePageAccess(a PageAccess) error {
	for _, v := range validPageAccess {
		if a == v {
			return nil
		}
	}
	return fmt.Errorf("invalid page access %q: must be one of %v", a, validPageAccess)
}

// Page represents a project wiki page. The body lives behind the page
// service; the client state layer tracks the metadata used by page lists.
type Page struct {
	ID        string     `json:"id"`
	ProjectID string     `json:"project_id"`
	Title     string     `json:"title"`
	Access    PageAccess `json:"access"`
	OwnerID   string     `json:"owner_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RecordID implements the store record interface.
func (p Page) RecordID() string { return p.ID }
