package library

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chromox/api/internal/model"
)

func TestViewRefreshSwapsWholeSnapshot(t *testing.T) {
	first := testJobs()[:2]
	second := testJobs()

	snapshots := [][]model.RenderJob{first, second}
	calls := 0
	v := NewView(RenderJobs(), func(ctx context.Context) ([]model.RenderJob, error) {
		s := snapshots[calls]
		calls++
		return s, nil
	})

	if err := v.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := v.Snapshot(); len(got) != 2 {
		t.Fatalf("expected 2 items after first refresh, got %d", len(got))
	}

	if err := v.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := v.Snapshot(); len(got) != 4 {
		t.Fatalf("expected 4 items after second refresh, got %d", len(got))
	}
}

func TestViewRefreshErrorKeepsSnapshot(t *testing.T) {
	fail := false
	v := NewView(RenderJobs(), func(ctx context.Context) ([]model.RenderJob, error) {
		if fail {
			return nil, errors.New("store unavailable")
		}
		return testJobs(), nil
	})

	if err := v.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	fail = true
	if err := v.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}
	if got := v.Snapshot(); len(got) != 4 {
		t.Fatalf("failed refresh replaced snapshot: %d items", len(got))
	}
}

func TestViewProjectRunsFullPipeline(t *testing.T) {
	v := NewView(RenderJobs(), func(ctx context.Context) ([]model.RenderJob, error) {
		return testJobs(), nil
	})
	v.now = func() time.Time { return day0 }
	if err := v.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	p := v.Project(Criteria{Search: "dream"}, model.SortAZ, model.GroupRating)
	if p.Total != 2 {
		t.Fatalf("expected 2 matches, got %d", p.Total)
	}
	assertLabels(t, p.Groups, RatingLabelLiked, RatingLabelDisliked)
}

func TestViewToggleGroup(t *testing.T) {
	v := NewView(RenderJobs(), func(ctx context.Context) ([]model.RenderJob, error) {
		return testJobs(), nil
	})
	v.now = func() time.Time { return day0 }
	if err := v.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if collapsed := v.ToggleGroup(RatingLabelLiked); !collapsed {
		t.Fatal("first toggle should collapse")
	}
	if !v.Collapsed(RatingLabelLiked) {
		t.Fatal("group should be collapsed")
	}

	// Collapsing never changes group membership, only the flag.
	p := v.Project(Criteria{}, model.SortRecent, model.GroupRating)
	for _, g := range p.Groups {
		if g.Label == RatingLabelLiked {
			if !g.Collapsed {
				t.Fatal("projection should carry collapsed flag")
			}
			if len(g.Items) == 0 {
				t.Fatal("collapsed group lost its items")
			}
		}
	}

	if collapsed := v.ToggleGroup(RatingLabelLiked); collapsed {
		t.Fatal("second toggle should expand")
	}
}

func TestViewFind(t *testing.T) {
	v := NewView(RenderJobs(), func(ctx context.Context) ([]model.RenderJob, error) {
		return testJobs(), nil
	})
	if err := v.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if item, ok := v.Find("r2"); !ok || item.Label != "Beta" {
		t.Fatalf("expected to find r2/Beta, got %+v ok=%v", item, ok)
	}
	if _, ok := v.Find("missing"); ok {
		t.Fatal("found item that does not exist")
	}
}
