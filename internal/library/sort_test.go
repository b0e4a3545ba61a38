package library

import (
	"testing"
	"time"

	"github.com/chromox/api/internal/model"
)

func TestSortRecentAndOldest(t *testing.T) {
	d := RenderJobs()
	jobs := testJobs()

	recent := Sort(jobs, d, model.SortRecent)
	assertIDs(t, d, recent, "r1", "r4", "r2", "r3")

	oldest := Sort(jobs, d, model.SortOldest)
	assertIDs(t, d, oldest, "r3", "r2", "r4", "r1")
}

func TestSortAZUsesUntitledFallback(t *testing.T) {
	d := RenderJobs()
	jobs := testJobs() // r3 has no label

	az := Sort(jobs, d, model.SortAZ)
	assertIDs(t, d, az, "r1", "r2", "r4", "r3") // Alpha, Beta, Gamma, Untitled...

	za := Sort(jobs, d, model.SortZA)
	assertIDs(t, d, za, "r3", "r4", "r2", "r1")
}

func TestSortLikedBucketsWithStableTies(t *testing.T) {
	d := RenderJobs()
	jobs := []model.RenderJob{
		job("a", "Nova", "", "one", "", model.RatingUnset, 0),
		job("b", "Nova", "", "two", "", model.RatingDislike, 0),
		job("c", "Nova", "", "three", "", model.RatingLike, 0),
		job("d", "Nova", "", "four", "", model.RatingNeutral, 0),
		job("e", "Nova", "", "five", "", model.RatingLike, 0),
	}

	liked := Sort(jobs, d, model.SortLiked)
	// like bucket first in input order, neutral/unset next, dislike last
	assertIDs(t, d, liked, "c", "e", "a", "d", "b")

	disliked := Sort(jobs, d, model.SortDisliked)
	assertIDs(t, d, disliked, "b", "a", "d", "c", "e")
}

func TestSortIsIdempotent(t *testing.T) {
	d := RenderJobs()
	jobs := testJobs()

	for _, key := range []model.SortKey{model.SortRecent, model.SortOldest, model.SortAZ, model.SortLiked} {
		once := Sort(jobs, d, key)
		twice := Sort(once, d, key)
		onceIDs := ids(t, d, once)
		twiceIDs := ids(t, d, twice)
		for i := range onceIDs {
			if onceIDs[i] != twiceIDs[i] {
				t.Fatalf("%s: re-sorting changed order: %v vs %v", key, onceIDs, twiceIDs)
			}
		}
	}
}

func TestSortDoesNotMutateInput(t *testing.T) {
	d := RenderJobs()
	jobs := testJobs()
	before := ids(t, d, jobs)

	Sort(jobs, d, model.SortAZ)

	after := ids(t, d, jobs)
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("input order mutated: %v vs %v", before, after)
		}
	}
}

func TestSortUnsupportedKeyFallsBackToRecent(t *testing.T) {
	d := FolioClips()
	clips := []model.FolioClip{
		{ID: "old", Name: "Old", AddedAt: day0.Add(-48 * time.Hour)},
		{ID: "new", Name: "New", AddedAt: day0},
	}

	// Folio clips carry no rating; the liked sort degrades to recent.
	got := Sort(clips, d, model.SortLiked)
	assertIDs(t, d, got, "new", "old")
}
