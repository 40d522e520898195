// Package models defines the content entities the bulk tooling works on.
package models

import "time"

// WorkItem identifies one remote entry and its version bookkeeping.
// It mirrors the entry's "sys" block and is never modified by the bulk core.
type WorkItem struct {
	ID               string     `json:"id"`
	Version          *int       `json:"version,omitempty"`
	PublishedVersion *int       `json:"publishedVersion,omitempty"`
	ArchivedVersion  *int       `json:"archivedVersion,omitempty"`
	PublishedAt      *time.Time `json:"publishedAt,omitempty"`
}

// IsDraft reports whether the entry has never been published.
func (w WorkItem) IsDraft() bool {
	return w.PublishedVersion == nil || *w.PublishedVersion == 0
}

// IsPublished reports whether the published version is the current one.
func (w WorkItem) IsPublished() bool {
	return w.PublishedVersion != nil && w.Version != nil && *w.Version == *w.PublishedVersion+1
}

// IsChanged reports whether the entry was edited after its last publish.
func (w WorkItem) IsChanged() bool {
	return w.PublishedVersion != nil && w.Version != nil && *w.Version >= *w.PublishedVersion+2
}

// IsArchived reports whether the entry is archived.
func (w WorkItem) IsArchived() bool {
	return w.ArchivedVersion != nil
}

// HasPublishedAt reports whether the entry carries a publish timestamp.
func (w WorkItem) HasPublishedAt() bool {
	return w.PublishedAt != nil
}

// VersionOr returns the entry version, or def when absent.
func (w WorkItem) VersionOr(def int) int {
	if w.Version == nil {
		return def
	}
	return *w.Version
}

// Fields is a mapping of field name to value.
// Values are either plain (applied to the default locale) or already keyed by locale.
type Fields map[string]any

// Payload is a create/update (or delete) request for a single entry.
// An empty ID asks the remote side to assign one.
type Payload struct {
	WorkItem
	ContentType string
	Fields      Fields
}

// Entry is an entry as returned by the listing endpoint.
type Entry struct {
	Sys    WorkItem `json:"sys"`
	Fields Fields   `json:"fields,omitempty"`
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }
