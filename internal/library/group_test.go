package library

import (
	"testing"
	"time"

	"github.com/chromox/api/internal/model"
)

func labels[T any](groups []Group[T]) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.Label
	}
	return out
}

func assertLabels[T any](t *testing.T, groups []Group[T], want ...string) {
	t.Helper()
	got := labels(groups)
	if len(got) != len(want) {
		t.Fatalf("expected groups %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected groups %v, got %v", want, got)
		}
	}
}

func TestGroupNone(t *testing.T) {
	d := RenderJobs()
	jobs := testJobs()

	groups := GroupBy(jobs, d, model.GroupNone, day0)
	assertLabels(t, groups, "")
	if groups[0].Count != len(jobs) {
		t.Fatalf("expected count %d, got %d", len(jobs), groups[0].Count)
	}
}

func TestGroupPersonaAlphabeticalWithFallbackLast(t *testing.T) {
	d := FolioClips()
	clips := []model.FolioClip{
		{ID: "c1", Name: "One", SourceKind: model.SourceRender, SourcePersonaName: "Vex", AddedAt: day0},
		{ID: "c2", Name: "Two", SourceKind: model.SourceUpload, AddedAt: day0},
		{ID: "c3", Name: "Three", SourceKind: model.SourceRender, SourcePersonaName: "Lumen", AddedAt: day0},
		{ID: "c4", Name: "Four", SourceKind: model.SourceRender, SourcePersonaName: "Nova", AddedAt: day0},
	}

	groups := GroupBy(clips, d, model.GroupPersona, day0)
	// Alphabetical, except the no-persona placeholder always trails
	// even though "Uploaded" < "Vex" alphabetically.
	assertLabels(t, groups, "Lumen", "Nova", "Vex", PersonaFallback)
}

func TestGroupDateBuckets(t *testing.T) {
	d := RenderJobs()
	now := time.Date(2024, 5, 15, 1, 0, 0, 0, time.UTC)

	jobs := []model.RenderJob{
		{ID: "today", CreatedAt: now},
		{ID: "yesterday", CreatedAt: now.Add(-25 * time.Hour)}, // May 14 00:00, day diff 1
		{ID: "week", CreatedAt: now.AddDate(0, 0, -3)},
		{ID: "month", CreatedAt: now.AddDate(0, 0, -10)},
		{ID: "older", CreatedAt: now.AddDate(0, 0, -45)},
	}

	groups := GroupBy(jobs, d, model.GroupDate, now)
	assertLabels(t, groups, DateToday, DateYesterday, DateThisWeek, DateThisMonth, DateOlder)
}

func TestGroupDateBoundaryIsDayFloorNotWallClock(t *testing.T) {
	d := RenderJobs()

	// 23:00 local: 25 hours earlier is still only one day floor back.
	now := time.Date(2024, 5, 15, 23, 0, 0, 0, time.UTC)
	jobs := []model.RenderJob{{ID: "x", CreatedAt: now.Add(-25 * time.Hour)}}
	groups := GroupBy(jobs, d, model.GroupDate, now)
	assertLabels(t, groups, DateYesterday)

	// 00:30 local: 25 hours earlier crosses two day floors.
	now = time.Date(2024, 5, 15, 0, 30, 0, 0, time.UTC)
	jobs = []model.RenderJob{{ID: "x", CreatedAt: now.Add(-25 * time.Hour)}}
	groups = GroupBy(jobs, d, model.GroupDate, now)
	assertLabels(t, groups, DateThisWeek)

	// Timestamp exactly now buckets to Today.
	jobs = []model.RenderJob{{ID: "x", CreatedAt: now}}
	groups = GroupBy(jobs, d, model.GroupDate, now)
	assertLabels(t, groups, DateToday)
}

func TestGroupRatingFixedOrderOmitsEmpty(t *testing.T) {
	d := RenderJobs()
	jobs := []model.RenderJob{
		job("a", "Nova", "", "Alpha", "", model.RatingLike, 0),
		job("b", "Nova", "", "Beta", "", model.RatingUnset, 0),
	}

	groups := GroupBy(jobs, d, model.GroupRating, day0)
	assertLabels(t, groups, RatingLabelLiked, RatingLabelUnrated)
}

func TestGroupSourceFixedOrder(t *testing.T) {
	d := FolioClips()
	clips := []model.FolioClip{
		{ID: "u1", SourceKind: model.SourceUpload, AddedAt: day0},
		{ID: "g1", SourceKind: model.SourceGuide, AddedAt: day0},
		{ID: "r1", SourceKind: model.SourceRender, AddedAt: day0},
	}

	groups := GroupBy(clips, d, model.GroupSource, day0)
	assertLabels(t, groups, SourceLabelGuide, SourceLabelRenders, SourceLabelUploads)
}

func TestGroupStyleVerbatimKeysAlphabetical(t *testing.T) {
	d := RenderJobs()
	jobs := []model.RenderJob{
		job("a", "Nova", "", "", "synthwave", model.RatingUnset, 0),
		job("b", "Nova", "", "", "", model.RatingUnset, 0),
		job("c", "Nova", "", "", "dream pop", model.RatingUnset, 0),
	}

	groups := GroupBy(jobs, d, model.GroupStyle, day0)
	assertLabels(t, groups, "dream pop", StyleFallback, "synthwave")
}

func TestGroupingPartitionsInput(t *testing.T) {
	d := RenderJobs()
	jobs := testJobs()

	for _, key := range []model.GroupKey{model.GroupNone, model.GroupPersona, model.GroupDate, model.GroupRating, model.GroupStyle} {
		groups := GroupBy(jobs, d, key, day0)

		seen := make(map[string]int)
		for _, g := range groups {
			if len(g.Items) == 0 {
				t.Fatalf("%s: empty bucket %q present", key, g.Label)
			}
			if g.Count != len(g.Items) {
				t.Fatalf("%s: group %q count %d != len %d", key, g.Label, g.Count, len(g.Items))
			}
			for _, item := range g.Items {
				seen[item.ID]++
			}
		}

		if len(seen) != len(jobs) {
			t.Fatalf("%s: partition lost items: %v", key, seen)
		}
		for id, n := range seen {
			if n != 1 {
				t.Fatalf("%s: item %s appears %d times", key, id, n)
			}
		}
	}
}

func TestGroupInheritsItemOrder(t *testing.T) {
	d := RenderJobs()
	jobs := []model.RenderJob{
		job("id1", "Nova", "", "Alpha", "", model.RatingLike, 0),
		job("id2", "Nova", "", "Beta", "", model.RatingUnset, 5*24*time.Hour),
	}

	// The scenario from the library contract: az sort, then rating
	// grouping, yields liked [Alpha] before unrated [Beta].
	sorted := Sort(jobs, d, model.SortAZ)
	groups := GroupBy(sorted, d, model.GroupRating, day0)

	assertLabels(t, groups, RatingLabelLiked, RatingLabelUnrated)
	if groups[0].Items[0].Label != "Alpha" || groups[1].Items[0].Label != "Beta" {
		t.Fatalf("unexpected group membership: %+v", groups)
	}
}
