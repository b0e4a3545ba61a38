package library

import (
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/chromox/api/internal/model"
)

// Group label placeholders
const (
	PersonaFallback = "Uploaded"
	StyleFallback   = "No Style"
)

// Date bucket labels, in display order
const (
	DateToday     = "Today"
	DateYesterday = "Yesterday"
	DateThisWeek  = "This Week"
	DateThisMonth = "This Month"
	DateOlder     = "Older"
)

// Rating bucket labels, in display order
const (
	RatingLabelLiked    = "Liked"
	RatingLabelUnrated  = "Unrated"
	RatingLabelDisliked = "Disliked"
)

// Source bucket labels, in display order
const (
	SourceLabelGuide   = "Guide Samples"
	SourceLabelRenders = "Renders"
	SourceLabelUploads = "Uploads"
)

// Group is one labeled partition of the sorted sequence. Item order
// inside a group is inherited from the input; grouping never re-sorts.
type Group[T any] struct {
	Label     string `json:"label"`
	Count     int    `json:"count"`
	Collapsed bool   `json:"collapsed"`
	Items     []T    `json:"items"`
}

// GroupBy partitions the ordered sequence into labeled groups. Empty
// buckets are omitted. Group order depends on the key: fixed for
// date/rating/source, alphabetical for persona (placeholder last) and
// style, irrelevant for none. A key the descriptor cannot serve
// degrades to a single unlabeled group.
func GroupBy[T any](items []T, d Descriptor[T], key model.GroupKey, now time.Time) []Group[T] {
	switch key {
	case model.GroupPersona:
		if d.Persona == nil {
			break
		}
		return groupAlphabetical(items, func(item T) string {
			if name := d.Persona(item); name != "" {
				return name
			}
			return PersonaFallback
		}, PersonaFallback)
	case model.GroupDate:
		return groupFixed(items, []string{DateToday, DateYesterday, DateThisWeek, DateThisMonth, DateOlder},
			func(item T) string { return dateBucket(now, d.Timestamp(item)) })
	case model.GroupRating:
		if d.Rating == nil {
			break
		}
		return groupFixed(items, []string{RatingLabelLiked, RatingLabelUnrated, RatingLabelDisliked},
			func(item T) string { return ratingLabel(d.Rating(item)) })
	case model.GroupSource:
		if d.Source == nil {
			break
		}
		return groupFixed(items, []string{SourceLabelGuide, SourceLabelRenders, SourceLabelUploads},
			func(item T) string { return sourceLabel(d.Source(item)) })
	case model.GroupStyle:
		if d.Style == nil {
			break
		}
		return groupAlphabetical(items, func(item T) string {
			if style := d.Style(item); style != "" {
				return style
			}
			return StyleFallback
		}, "")
	}

	return []Group[T]{{Label: "", Count: len(items), Items: items}}
}

// groupFixed buckets items into a fixed label sequence, dropping
// labels that collected nothing.
func groupFixed[T any](items []T, labels []string, labelOf func(T) string) []Group[T] {
	buckets := make(map[string][]T, len(labels))
	for _, item := range items {
		label := labelOf(item)
		buckets[label] = append(buckets[label], item)
	}

	groups := make([]Group[T], 0, len(labels))
	for _, label := range labels {
		bucket := buckets[label]
		if len(bucket) == 0 {
			continue
		}
		groups = append(groups, Group[T]{Label: label, Count: len(bucket), Items: bucket})
	}
	return groups
}

// groupAlphabetical buckets by a derived label and orders groups by
// locale-aware label compare. When trailer is non-empty, the group
// with that label always sorts last.
func groupAlphabetical[T any](items []T, labelOf func(T) string, trailer string) []Group[T] {
	buckets := make(map[string][]T)
	var labels []string
	for _, item := range items {
		label := labelOf(item)
		if _, seen := buckets[label]; !seen {
			labels = append(labels, label)
		}
		buckets[label] = append(buckets[label], item)
	}

	col := collate.New(language.Und, collate.IgnoreCase)
	col.SortStrings(labels)
	if trailer != "" {
		for i, label := range labels {
			if label == trailer {
				labels = append(append(labels[:i:i], labels[i+1:]...), trailer)
				break
			}
		}
	}

	groups := make([]Group[T], 0, len(labels))
	for _, label := range labels {
		bucket := buckets[label]
		groups = append(groups, Group[T]{Label: label, Count: len(bucket), Items: bucket})
	}
	return groups
}

// dateBucket classifies a timestamp by whole-day distance from now.
// The boundary is the local day rollover, not a 24h wall-clock span.
func dateBucket(now, t time.Time) string {
	days := dayDiff(now, t)
	switch {
	case days <= 0:
		return DateToday
	case days == 1:
		return DateYesterday
	case days < 7:
		return DateThisWeek
	case days < 30:
		return DateThisMonth
	default:
		return DateOlder
	}
}

func dayDiff(now, t time.Time) int {
	nowDay := dayFloor(now)
	itemDay := dayFloor(t.In(now.Location()))
	// Round absorbs the hour a DST transition adds or removes between
	// two day floors.
	return int(nowDay.Sub(itemDay).Round(24*time.Hour) / (24 * time.Hour))
}

func dayFloor(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func ratingLabel(r model.Rating) string {
	switch model.BucketOf(r) {
	case model.BucketLiked:
		return RatingLabelLiked
	case model.BucketDisliked:
		return RatingLabelDisliked
	default:
		return RatingLabelUnrated
	}
}

func sourceLabel(k model.SourceKind) string {
	switch k {
	case model.SourceGuide:
		return SourceLabelGuide
	case model.SourceRender:
		return SourceLabelRenders
	default:
		return SourceLabelUploads
	}
}
