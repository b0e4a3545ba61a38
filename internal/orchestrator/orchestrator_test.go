package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/chromox/api/internal/model"
)

type fakeStore struct {
	mu          sync.Mutex
	ratings     []model.Rating
	renames     []string
	removed     []string
	folioSaves  []string
	replays     []string
	failRename  bool
	failRating  bool
	renameGate  chan struct{} // when set, Rename blocks until closed
	renameInFly chan struct{} // signaled when Rename is entered
}

func (s *fakeStore) MutateRating(ctx context.Context, id string, rating model.Rating) error {
	s.mu.Lock()
	fail := s.failRating
	s.ratings = append(s.ratings, rating)
	s.mu.Unlock()
	if fail {
		return errors.New("backend down")
	}
	return nil
}

func (s *fakeStore) Rename(ctx context.Context, id, label string) error {
	s.mu.Lock()
	gate := s.renameGate
	inFly := s.renameInFly
	fail := s.failRename
	s.renames = append(s.renames, label)
	s.mu.Unlock()

	if inFly != nil {
		inFly <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if fail {
		return errors.New("backend down")
	}
	return nil
}

func (s *fakeStore) RemoveClip(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, id)
	return nil
}

func (s *fakeStore) AddToFolio(ctx context.Context, renderID, suggestedName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folioSaves = append(s.folioSaves, renderID)
	return nil
}

func (s *fakeStore) Replay(ctx context.Context, id string) (*model.ReplayResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replays = append(s.replays, id)
	return &model.ReplayResponse{JobID: "job-1", RenderID: id, Status: model.JobStatusQueued, CreatedAt: time.Now()}, nil
}

func (s *fakeStore) renameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.renames)
}

func TestNextRatingInvolution(t *testing.T) {
	cases := []struct {
		current, invoked, want model.Rating
	}{
		{model.RatingUnset, model.RatingLike, model.RatingLike},
		{model.RatingLike, model.RatingLike, model.RatingNeutral},
		{model.RatingNeutral, model.RatingLike, model.RatingLike},
		{model.RatingDislike, model.RatingLike, model.RatingLike},
		{model.RatingDislike, model.RatingDislike, model.RatingNeutral},
		{model.RatingLike, model.RatingDislike, model.RatingDislike},
	}
	for _, tc := range cases {
		if got := NextRating(tc.current, tc.invoked); got != tc.want {
			t.Errorf("NextRating(%q, %q) = %q, want %q", tc.current, tc.invoked, got, tc.want)
		}
	}
}

func TestToggleRatingSequence(t *testing.T) {
	store := &fakeStore{}
	o := New(store, Options{})
	ctx := context.Background()

	// like on an unset item rates it
	current, err := o.ToggleRating(ctx, "r1", model.RatingUnset, model.RatingLike)
	if err != nil || current != model.RatingLike {
		t.Fatalf("first toggle: got %q err %v", current, err)
	}
	// like again un-likes
	current, err = o.ToggleRating(ctx, "r1", current, model.RatingLike)
	if err != nil || current != model.RatingNeutral {
		t.Fatalf("second toggle: got %q err %v", current, err)
	}
	// third invocation likes again
	current, err = o.ToggleRating(ctx, "r1", current, model.RatingLike)
	if err != nil || current != model.RatingLike {
		t.Fatalf("third toggle: got %q err %v", current, err)
	}

	if len(store.ratings) != 3 {
		t.Fatalf("expected 3 store calls, got %d", len(store.ratings))
	}
}

func TestToggleRatingRefreshesOnSuccess(t *testing.T) {
	store := &fakeStore{}
	refreshed := 0
	var notified []string
	o := New(store, Options{
		RefreshRenders: func(ctx context.Context) error { refreshed++; return nil },
		Notify:         func(c string) { notified = append(notified, c) },
	})

	if _, err := o.ToggleRating(context.Background(), "r1", model.RatingUnset, model.RatingLike); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if refreshed != 1 {
		t.Fatalf("expected confirm-then-refresh, refreshed=%d", refreshed)
	}
	if len(notified) != 1 || notified[0] != model.CollectionRenders {
		t.Fatalf("expected renders notification, got %v", notified)
	}
}

func TestRatingFailureClearsBusy(t *testing.T) {
	store := &fakeStore{failRating: true}
	o := New(store, Options{})

	if _, err := o.ToggleRating(context.Background(), "r1", model.RatingUnset, model.RatingLike); err == nil {
		t.Fatal("expected error from failing store")
	}
	if o.Busy("r1", ActionRating) {
		t.Fatal("busy flag must clear on failure")
	}

	// The next attempt is not blocked.
	store.failRating = false
	if _, err := o.ToggleRating(context.Background(), "r1", model.RatingUnset, model.RatingLike); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
}

func TestRenameGuardDropsConcurrentCommit(t *testing.T) {
	store := &fakeStore{
		renameGate:  make(chan struct{}),
		renameInFly: make(chan struct{}, 1),
	}
	o := New(store, Options{})

	done := make(chan error, 1)
	go func() {
		done <- o.CommitRename(context.Background(), "r1", "First")
	}()
	<-store.renameInFly // first commit is now inside the store call

	if !o.Busy("r1", ActionRename) {
		t.Fatal("rename should be pending")
	}
	if err := o.CommitRename(context.Background(), "r1", "Second"); !errors.Is(err, ErrActionPending) {
		t.Fatalf("expected ErrActionPending, got %v", err)
	}

	close(store.renameGate)
	if err := <-done; err != nil {
		t.Fatalf("first commit: %v", err)
	}

	if n := store.renameCount(); n != 1 {
		t.Fatalf("expected exactly one backend call, got %d", n)
	}
	if o.Busy("r1", ActionRename) {
		t.Fatal("busy flag must clear after settle")
	}
}

func TestRenameEmptyLabelIsSilentNoop(t *testing.T) {
	store := &fakeStore{}
	o := New(store, Options{})
	o.BeginEdit("r1", "Old Label")

	if err := o.CommitRename(context.Background(), "r1", "   "); err != nil {
		t.Fatalf("empty commit should be silent, got %v", err)
	}
	if store.renameCount() != 0 {
		t.Fatal("empty commit must not reach the backend")
	}
	if state := o.StateOf("r1"); state.Editing {
		t.Fatal("empty commit should leave edit mode")
	}
}

func TestRenameFailureClearsEditState(t *testing.T) {
	store := &fakeStore{failRename: true}
	o := New(store, Options{})
	o.BeginEdit("r1", "Old Label")

	if err := o.CommitRename(context.Background(), "r1", "New Label"); err == nil {
		t.Fatal("expected rename failure")
	}
	state := o.StateOf("r1")
	if state.Editing {
		t.Fatal("failed rename must not trap the item in edit mode")
	}
	if o.Busy("r1", ActionRename) {
		t.Fatal("busy flag must clear on failure")
	}
}

func TestEditBufferHoldsOneItem(t *testing.T) {
	o := New(&fakeStore{}, Options{})

	o.BeginEdit("r1", "Alpha")
	if !o.UpdateEdit("r1", "Alpha 2") {
		t.Fatal("expected update to apply")
	}
	o.BeginEdit("r2", "Beta")

	if state := o.StateOf("r1"); state.Editing {
		t.Fatal("starting a second edit should displace the first")
	}
	state := o.StateOf("r2")
	if !state.Editing || state.EditText != "Beta" {
		t.Fatalf("unexpected edit state: %+v", state)
	}

	o.CancelEdit("r2")
	if state := o.StateOf("r2"); state.Editing {
		t.Fatal("cancel should clear the buffer")
	}
}

func TestSaveToFolioMarkerBlocksSecondSave(t *testing.T) {
	store := &fakeStore{}
	o := New(store, Options{})
	ctx := context.Background()

	if err := o.SaveToFolio(ctx, "r1", "Morning Hook"); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if !o.Saved("r1") {
		t.Fatal("saved marker should be set")
	}
	if err := o.SaveToFolio(ctx, "r1", "Morning Hook"); !errors.Is(err, ErrAlreadySaved) {
		t.Fatalf("expected ErrAlreadySaved, got %v", err)
	}
	if len(store.folioSaves) != 1 {
		t.Fatalf("expected one backend save, got %d", len(store.folioSaves))
	}
}

func TestRemoveClipRejectsGuideSamples(t *testing.T) {
	store := &fakeStore{}
	o := New(store, Options{})

	if err := o.RemoveClip(context.Background(), "guide-tempo-1", model.SourceGuide); !errors.Is(err, ErrGuideReadOnly) {
		t.Fatalf("expected ErrGuideReadOnly, got %v", err)
	}
	if len(store.removed) != 0 {
		t.Fatal("guide removal must not reach the backend")
	}

	if err := o.RemoveClip(context.Background(), "c1", model.SourceUpload); err != nil {
		t.Fatalf("upload removal: %v", err)
	}
	if len(store.removed) != 1 {
		t.Fatalf("expected one removal, got %d", len(store.removed))
	}
}

func TestReplayReturnsJobAndClearsBusy(t *testing.T) {
	store := &fakeStore{}
	o := New(store, Options{})

	resp, err := o.Replay(context.Background(), "r1")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if resp.RenderID != "r1" || resp.Status != model.JobStatusQueued {
		t.Fatalf("unexpected replay response: %+v", resp)
	}
	if o.Busy("r1", ActionReplay) {
		t.Fatal("busy flag must clear after replay settles")
	}
}

func TestActionsOnDifferentItemsRunIndependently(t *testing.T) {
	store := &fakeStore{
		renameGate:  make(chan struct{}),
		renameInFly: make(chan struct{}, 1),
	}
	o := New(store, Options{})

	done := make(chan error, 1)
	go func() {
		done <- o.CommitRename(context.Background(), "r1", "Busy One")
	}()
	<-store.renameInFly

	// A different item, and a different category on the busy item,
	// are both unaffected by r1's pending rename.
	if _, err := o.ToggleRating(context.Background(), "r1", model.RatingUnset, model.RatingLike); err != nil {
		t.Fatalf("rating on busy item: %v", err)
	}
	if err := o.SaveToFolio(context.Background(), "r2", "Other"); err != nil {
		t.Fatalf("folio save on other item: %v", err)
	}

	close(store.renameGate)
	if err := <-done; err != nil {
		t.Fatalf("rename: %v", err)
	}
}

func TestStateOfReportsBusyActions(t *testing.T) {
	store := &fakeStore{
		renameGate:  make(chan struct{}),
		renameInFly: make(chan struct{}, 1),
	}
	o := New(store, Options{})

	done := make(chan error, 1)
	go func() {
		done <- o.CommitRename(context.Background(), "r1", "Label")
	}()
	<-store.renameInFly

	state := o.StateOf("r1")
	if len(state.Busy) != 1 || state.Busy[0] != ActionRename {
		t.Fatalf("expected rename busy, got %+v", state)
	}

	close(store.renameGate)
	<-done
}
