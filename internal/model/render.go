package model

import "time"

// RenderJob is one persisted voice-rendering request and its audio artifact.
// ID and CreatedAt never change after creation; Rating and Label are the
// only user-mutable fields.
type RenderJob struct {
	ID           string             `json:"id"`
	PersonaID    string             `json:"personaId"`
	PersonaName  string             `json:"personaName"`
	Lyrics       string             `json:"lyrics"`
	Label        string             `json:"label,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
	AudioURL     string             `json:"audioUrl"`
	StylePrompt  string             `json:"stylePrompt,omitempty"`
	Effects      *EffectsDescriptor `json:"effects,omitempty"`
	Rating       Rating             `json:"rating,omitempty"`
	Accent       string             `json:"accent,omitempty"`
	AccentLocked bool               `json:"accentLocked,omitempty"`
	Guide        *GuideSettings     `json:"guide,omitempty"`
	Beat         *BeatAnalysis      `json:"beat,omitempty"`
}

// EffectsDescriptor names the FX engine and its settings for a render
type EffectsDescriptor struct {
	Engine         EffectsEngine      `json:"engine"`
	Preset         string             `json:"preset,omitempty"`
	Params         map[string]float64 `json:"params,omitempty"`
	PreviewSeconds float64            `json:"previewSeconds,omitempty"`
}

// GuideSettings carries the guide-sample steering metadata for a render
type GuideSettings struct {
	SampleID        string  `json:"sampleId,omitempty"`
	MatchIntensity  float64 `json:"matchIntensity"` // 0..1
	UseLyrics       bool    `json:"useLyrics"`
	TempoMultiplier float64 `json:"tempoMultiplier,omitempty"`
}

// BeatAnalysis is the beat-service reading attached to an audio artifact
type BeatAnalysis struct {
	BPM        float64 `json:"bpm"`
	Confidence float64 `json:"confidence"`
	BeatCount  int     `json:"beatCount"`
	Duration   float64 `json:"duration"`
}

// ReplayJob tracks one background re-render of a library item
type ReplayJob struct {
	ID          string     `json:"id"`
	RenderID    string     `json:"renderId"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`
	CurrentStep string     `json:"currentStep,omitempty"`
	Error       *string    `json:"error,omitempty"`
	AudioURL    string     `json:"audioUrl,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// RateRequest is the body for POST /library/renders/:id/rating
type RateRequest struct {
	Rating Rating `json:"rating" validate:"required,oneof=like dislike"`
}

// RenameRequest is the body for PUT /library/renders/:id/label
type RenameRequest struct {
	Label string `json:"label" validate:"required,max=200"`
}

// SaveToFolioRequest is the body for POST /library/renders/:id/folio
type SaveToFolioRequest struct {
	Name string `json:"name,omitempty" validate:"omitempty,max=200"`
}

// ReplayResponse acknowledges a queued replay
type ReplayResponse struct {
	JobID     string    `json:"jobId"`
	RenderID  string    `json:"renderId"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// CollapseRequest is the body for the group collapse toggle endpoints
type CollapseRequest struct {
	Label string `json:"label"`
}

// CollapseResponse reports the new collapsed state of a group
type CollapseResponse struct {
	Label     string `json:"label"`
	Collapsed bool   `json:"collapsed"`
}
