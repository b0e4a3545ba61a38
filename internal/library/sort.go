package library

import (
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/chromox/api/internal/model"
)

// UntitledName replaces an empty display name in the az/za comparators
const UntitledName = "Untitled..."

// Sort returns a new slice ordered by the given key. The sort is
// stable: equal-key items keep their relative order from the input.
// Keys the descriptor cannot serve (liked/disliked on an unrated
// collection, or an unknown key) fall back to recent.
func Sort[T any](items []T, d Descriptor[T], key model.SortKey) []T {
	out := slices.Clone(items)

	switch key {
	case model.SortOldest:
		slices.SortStableFunc(out, func(a, b T) int {
			return d.Timestamp(a).Compare(d.Timestamp(b))
		})
	case model.SortAZ, model.SortZA:
		// Collators carry internal buffers, so build one per call
		// rather than sharing across goroutines.
		col := collate.New(language.Und, collate.IgnoreCase)
		sign := 1
		if key == model.SortZA {
			sign = -1
		}
		slices.SortStableFunc(out, func(a, b T) int {
			return sign * col.CompareString(displayName(d, a), displayName(d, b))
		})
	case model.SortLiked, model.SortDisliked:
		if d.Rating == nil {
			sortRecent(out, d)
			break
		}
		slices.SortStableFunc(out, func(a, b T) int {
			return ratingRank(d.Rating(a), key) - ratingRank(d.Rating(b), key)
		})
	default:
		sortRecent(out, d)
	}
	return out
}

func sortRecent[T any](items []T, d Descriptor[T]) {
	slices.SortStableFunc(items, func(a, b T) int {
		return d.Timestamp(b).Compare(d.Timestamp(a))
	})
}

func displayName[T any](d Descriptor[T], item T) string {
	if name := d.DisplayName(item); name != "" {
		return name
	}
	return UntitledName
}

// ratingRank buckets a rating for the liked/disliked sorts: the
// favored rating first, neutral/unset in the middle, the opposite last.
func ratingRank(r model.Rating, key model.SortKey) int {
	first := model.RatingLike
	last := model.RatingDislike
	if key == model.SortDisliked {
		first, last = last, first
	}
	switch r {
	case first:
		return 0
	case last:
		return 2
	default:
		return 1
	}
}
