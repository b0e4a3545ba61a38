package model

import (
	"strings"
	"time"
)

// GuideClipPrefix is the legacy identifier namespace for guide samples.
// Older records carried no SourceKind and were distinguished only by
// this prefix; NormalizeClip maps them onto the explicit field.
const GuideClipPrefix = "guide-"

// FolioClip is a user-curated audio clip kept outside the render history.
// Guide-sourced clips are read-only: they can never be removed.
type FolioClip struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	SourceKind        SourceKind    `json:"sourceKind"`
	SourcePersonaName string        `json:"sourcePersonaName,omitempty"`
	AddedAt           time.Time     `json:"addedAt"`
	Duration          float64       `json:"duration,omitempty"` // seconds
	Tags              []string      `json:"tags,omitempty"`
	AudioURL          string        `json:"audioUrl"`
	Beat              *BeatAnalysis `json:"beat,omitempty"`
}

// Removable reports whether the clip may be deleted by the user
func (c FolioClip) Removable() bool {
	return c.SourceKind != SourceGuide
}

// NormalizeClip backfills SourceKind on records written before the field
// existed. The guide id prefix is honored here, and only here; every
// decision downstream reads the explicit field.
func NormalizeClip(c FolioClip) FolioClip {
	if c.SourceKind == "" {
		if strings.HasPrefix(c.ID, GuideClipPrefix) {
			c.SourceKind = SourceGuide
		} else {
			c.SourceKind = SourceUpload
		}
	}
	return c
}

// UploadClipResponse acknowledges a folio upload
type UploadClipResponse struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	AudioURL string    `json:"audioUrl"`
	Duration float64   `json:"duration,omitempty"`
	AddedAt  time.Time `json:"addedAt"`
}
