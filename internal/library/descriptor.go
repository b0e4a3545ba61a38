// Package library implements the view engine shared by the render
// history and the folio: declarative filtering, sorting and grouping
// over an immutable collection snapshot.
package library

import (
	"time"

	"github.com/chromox/api/internal/model"
)

// Filter names understood by the shipped descriptors
const (
	FilterPersona = "persona"
	FilterRating  = "rating"
	FilterSource  = "source"
)

// Descriptor declares, per collection type, which fields the view
// engine can see. Accessors left nil mark the capability as absent:
// a collection without Rating does not support the liked/disliked
// sort or the rating group, and the engine degrades rather than fails.
type Descriptor[T any] struct {
	// ID returns the stable item identifier.
	ID func(T) string

	// SearchText returns the fields matched by free-text search.
	SearchText func(T) []string

	// DisplayName returns the user-visible name; may be empty.
	DisplayName func(T) string

	// Timestamp returns the creation/added time.
	Timestamp func(T) time.Time

	// Filters maps a categorical filter name to its derived value.
	Filters map[string]func(T) string

	// Persona returns the display persona name; empty when absent.
	Persona func(T) string

	// Rating returns the item rating. Nil for unrated collections.
	Rating func(T) model.Rating

	// Source returns the clip source kind. Nil for render jobs.
	Source func(T) model.SourceKind

	// Style returns the style prompt text. Nil for folio clips.
	Style func(T) string
}

// RenderJobs returns the descriptor for the render-history collection
func RenderJobs() Descriptor[model.RenderJob] {
	return Descriptor[model.RenderJob]{
		ID: func(j model.RenderJob) string { return j.ID },
		SearchText: func(j model.RenderJob) []string {
			return []string{j.PersonaName, j.Lyrics, j.Label, j.StylePrompt}
		},
		DisplayName: func(j model.RenderJob) string { return j.Label },
		Timestamp:   func(j model.RenderJob) time.Time { return j.CreatedAt },
		Filters: map[string]func(model.RenderJob) string{
			FilterPersona: func(j model.RenderJob) string { return j.PersonaID },
			FilterRating:  func(j model.RenderJob) string { return string(model.BucketOf(j.Rating)) },
		},
		Persona: func(j model.RenderJob) string { return j.PersonaName },
		Rating:  func(j model.RenderJob) model.Rating { return j.Rating },
		Style:   func(j model.RenderJob) string { return j.StylePrompt },
	}
}

// FolioClips returns the descriptor for the folio collection
func FolioClips() Descriptor[model.FolioClip] {
	return Descriptor[model.FolioClip]{
		ID: func(c model.FolioClip) string { return c.ID },
		SearchText: func(c model.FolioClip) []string {
			fields := []string{c.Name, c.SourcePersonaName}
			return append(fields, c.Tags...)
		},
		DisplayName: func(c model.FolioClip) string { return c.Name },
		Timestamp:   func(c model.FolioClip) time.Time { return c.AddedAt },
		Filters: map[string]func(model.FolioClip) string{
			FilterPersona: func(c model.FolioClip) string { return c.SourcePersonaName },
			FilterSource:  func(c model.FolioClip) string { return string(c.SourceKind) },
		},
		Persona: func(c model.FolioClip) string { return c.SourcePersonaName },
		Source:  func(c model.FolioClip) model.SourceKind { return c.SourceKind },
	}
}
