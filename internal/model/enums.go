package model

// Rating is the user's verdict on a render job
type Rating string

const (
	RatingLike    Rating = "like"
	RatingDislike Rating = "dislike"
	RatingNeutral Rating = "neutral"
	RatingUnset   Rating = ""
)

// RatingBucket is the derived three-way partition used by filters,
// sorting and grouping. Neutral and unset both land in "unrated".
type RatingBucket string

const (
	BucketLiked    RatingBucket = "liked"
	BucketUnrated  RatingBucket = "unrated"
	BucketDisliked RatingBucket = "disliked"
)

// BucketOf derives the rating bucket for a rating value
func BucketOf(r Rating) RatingBucket {
	switch r {
	case RatingLike:
		return BucketLiked
	case RatingDislike:
		return BucketDisliked
	default:
		return BucketUnrated
	}
}

// SourceKind identifies how a folio clip came to exist
type SourceKind string

const (
	SourceRender SourceKind = "render"
	SourceUpload SourceKind = "upload"
	SourceGuide  SourceKind = "guide"
)

// SortKey selects a comparator for the library view
type SortKey string

const (
	SortRecent   SortKey = "recent"
	SortOldest   SortKey = "oldest"
	SortAZ       SortKey = "az"
	SortZA       SortKey = "za"
	SortLiked    SortKey = "liked"
	SortDisliked SortKey = "disliked"
)

// GroupKey selects a bucketing rule for the library view
type GroupKey string

const (
	GroupNone    GroupKey = "none"
	GroupPersona GroupKey = "persona"
	GroupDate    GroupKey = "date"
	GroupRating  GroupKey = "rating"
	GroupSource  GroupKey = "source"
	GroupStyle   GroupKey = "style"
)

// FilterAll is the sentinel value that disables a categorical filter
const FilterAll = "all"

// Job status for replay jobs
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// Effects engines supported by the FX service
type EffectsEngine string

const (
	EngineRaveDDSP   EffectsEngine = "rave-ddsp"
	EngineRaveDDSP8D EffectsEngine = "rave-ddsp-8d"
	EngineResonance  EffectsEngine = "resonance-8d"
)
