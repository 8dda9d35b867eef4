package model

import (
	"fmt"
	"net/url"
	"time"
)

// Link represents an external URL attached to an issue.
type Link struct {
	ID        string    `json:"id"`
	IssueID   string    `json:"issue_id"`
	Title     string    `json:"title,omitempty"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// RecordID implements the store record interface.
func (l Link) RecordID() string { return l.ID }

// DisplayTitle returns the link title, falling back to the URL host when
// no title was given.
func (l Link) DisplayTitle() string {
	if l.Title != "" {
		return l.Title
	}
	if u, err := url.Parse(l.URL); err == nil && u.Host != "" {
		return u.Host
	}
	return l.URL
}

// ValidateURL returns an error if raw is not an absolute http(s) URL.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid url %q: missing host", raw)
	}
	return nil
}
