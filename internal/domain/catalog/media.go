package catalog

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopdesk/backoffice/internal/domain/shared"
)

// MediaItem is an image or video attached to a product.
// MediaID is the client-minted token that identifies the item across edits;
// ID is the storage identity assigned on insert.
type MediaItem struct {
	shared.BaseEntity
	ProductID uuid.UUID
	MediaID   string
	URL       string
	Title     *string
	IsDefault bool
	Order     int
}

// SubmittedMedia is one entry of a submitted product_media array
type SubmittedMedia struct {
	MediaID string
	URL     string
	Title   *string
	Default bool
	Order   int
}

// NormalizeMedia enforces the media invariants on a submitted list:
// Order becomes the array index and, when several items are flagged default,
// only the last flagged one keeps the flag. A list without a default is left as is.
// The input slice is not modified.
func NormalizeMedia(items []SubmittedMedia) []SubmittedMedia {
	out := make([]SubmittedMedia, len(items))
	copy(out, items)

	lastDefault := -1
	for i := range out {
		out[i].Order = i
		if out[i].Default {
			lastDefault = i
		}
	}
	for i := range out {
		out[i].Default = i == lastDefault
	}
	return out
}

// MediaUpdate pairs a persisted item with its new values
type MediaUpdate struct {
	Current MediaItem
	Values  SubmittedMedia
}

// MediaPlan is the set of writes that makes persisted media match a normalized list
type MediaPlan struct {
	Deletes []MediaItem
	Updates []MediaUpdate
	Creates []SubmittedMedia
}

// IsEmpty reports whether the plan has no writes
func (p MediaPlan) IsEmpty() bool {
	return len(p.Deletes) == 0 && len(p.Updates) == 0 && len(p.Creates) == 0
}

// DeletedMediaIDs returns the client tokens of deleted items
func (p MediaPlan) DeletedMediaIDs() []string {
	ids := make([]string, 0, len(p.Deletes))
	for _, d := range p.Deletes {
		ids = append(ids, d.MediaID)
	}
	return ids
}

// DiffMedia compares persisted media with a normalized submission keyed by MediaID.
// Items absent from the submission are deleted; unchanged items produce no write.
func DiffMedia(current []MediaItem, normalized []SubmittedMedia) MediaPlan {
	byToken := make(map[string]MediaItem, len(current))
	for _, m := range current {
		byToken[m.MediaID] = m
	}
	submitted := make(map[string]struct{}, len(normalized))

	var plan MediaPlan
	for _, item := range normalized {
		submitted[item.MediaID] = struct{}{}
		existing, ok := byToken[item.MediaID]
		if !ok {
			plan.Creates = append(plan.Creates, item)
			continue
		}
		if !mediaEqual(existing, item) {
			plan.Updates = append(plan.Updates, MediaUpdate{Current: existing, Values: item})
		}
	}

	for _, m := range SortMedia(current) {
		if _, ok := submitted[m.MediaID]; !ok {
			plan.Deletes = append(plan.Deletes, m)
		}
	}
	return plan
}

// SortMedia returns a copy of items ordered by display order, then ID
func SortMedia(items []MediaItem) []MediaItem {
	out := make([]MediaItem, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// DefaultMediaID returns the token of the default item, or "" when there is none
func DefaultMediaID(items []SubmittedMedia) string {
	for _, m := range items {
		if m.Default {
			return m.MediaID
		}
	}
	return ""
}

// MediaSummary describes a committed media replacement
type MediaSummary struct {
	Total   int    `json:"total"`
	Created int    `json:"created"`
	Updated int    `json:"updated"`
	Deleted int    `json:"deleted"`
	Default string `json:"default_media_id,omitempty"`
}

// Summarize builds the summary for the plan applied to the normalized list
func (p MediaPlan) Summarize(normalized []SubmittedMedia) MediaSummary {
	return MediaSummary{
		Total:   len(normalized),
		Created: len(p.Creates),
		Updated: len(p.Updates),
		Deleted: len(p.Deletes),
		Default: DefaultMediaID(normalized),
	}
}

func mediaEqual(m MediaItem, s SubmittedMedia) bool {
	return m.URL == s.URL &&
		m.IsDefault == s.Default &&
		m.Order == s.Order &&
		stringPtrEqual(m.Title, s.Title)
}
