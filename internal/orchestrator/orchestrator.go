// Package orchestrator coordinates per-item asynchronous actions
// against the item store: one in-flight mutation per (item, action)
// pair, local markers for session-scoped state, and a
// confirm-then-refresh cycle for authoritative fields.
package orchestrator

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/chromox/api/internal/model"
)

// Action names one mutation category. Each (item, action) pair admits
// at most one in-flight invocation; a second call is dropped, not queued.
type Action string

const (
	ActionRating Action = "rating"
	ActionRename Action = "rename"
	ActionFolio  Action = "folio"
	ActionReplay Action = "replay"
	ActionRemove Action = "remove"
)

var (
	// ErrActionPending signals an invocation dropped by the busy guard.
	ErrActionPending = errors.New("action already in flight")
	// ErrAlreadySaved signals a render already saved to the folio this session.
	ErrAlreadySaved = errors.New("render already saved to folio")
	// ErrGuideReadOnly signals a removal attempt on a guide sample.
	ErrGuideReadOnly = errors.New("guide samples cannot be removed")
)

// Store is the item-store collaborator contract. The orchestrator
// never inspects failures beyond "it failed".
type Store interface {
	MutateRating(ctx context.Context, id string, rating model.Rating) error
	Rename(ctx context.Context, id, label string) error
	RemoveClip(ctx context.Context, id string) error
	AddToFolio(ctx context.Context, renderID, suggestedName string) error
	Replay(ctx context.Context, id string) (*model.ReplayResponse, error)
}

// Options configures an Orchestrator.
type Options struct {
	// Timeout bounds every store call so a hung backend cannot pin a
	// busy flag forever. Zero disables the bound.
	Timeout time.Duration
	// RefreshRenders re-pulls the render snapshot after a confirmed
	// rating or rename mutation.
	RefreshRenders func(ctx context.Context) error
	// Notify announces a changed collection to interested clients.
	Notify func(collection string)
}

type actionKey struct {
	id     string
	action Action
}

type editState struct {
	id   string
	text string
}

// Orchestrator serializes item mutations. Safe for concurrent use.
type Orchestrator struct {
	store Store
	opts  Options

	mu      sync.Mutex
	pending map[actionKey]struct{}
	saved   map[string]struct{}
	edit    *editState
}

func New(store Store, opts Options) *Orchestrator {
	return &Orchestrator{
		store:   store,
		opts:    opts,
		pending: make(map[actionKey]struct{}),
		saved:   make(map[string]struct{}),
	}
}

// NextRating applies the toggle involution: invoking the rating an
// item already has clears it back to neutral, anything else adopts
// the invoked rating.
func NextRating(current, invoked model.Rating) model.Rating {
	if current == invoked {
		return model.RatingNeutral
	}
	return invoked
}

// ToggleRating computes the next rating from the current one, confirms
// it with the store, and refreshes the collection so rating state never
// diverges from the backend record. No optimistic local mutation.
func (o *Orchestrator) ToggleRating(ctx context.Context, id string, current, invoked model.Rating) (model.Rating, error) {
	if !o.begin(id, ActionRating) {
		return current, ErrActionPending
	}
	defer o.end(id, ActionRating)

	next := NextRating(current, invoked)

	opCtx, cancel := o.opCtx(ctx)
	defer cancel()
	if err := o.store.MutateRating(opCtx, id, next); err != nil {
		log.Printf("rating mutation failed for %s: %v", id, err)
		return current, err
	}

	o.settle(ctx, model.CollectionRenders)
	return next, nil
}

// BeginEdit opens the rename buffer for an item, replacing any edit
// already in progress elsewhere. At most one item edits at a time.
func (o *Orchestrator) BeginEdit(id, currentLabel string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.edit = &editState{id: id, text: currentLabel}
}

// UpdateEdit replaces the buffered text for the item being edited.
func (o *Orchestrator) UpdateEdit(id, text string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.edit == nil || o.edit.id != id {
		return false
	}
	o.edit.text = text
	return true
}

// CancelEdit abandons the rename buffer without committing.
func (o *Orchestrator) CancelEdit(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.edit != nil && o.edit.id == id {
		o.edit = nil
	}
}

// CommitRename commits a label edit. An empty trimmed label reverts
// silently with no store call. Whatever the store answers, the edit
// buffer is cleared: a failed rename must not trap the user in edit
// mode, so the failure is logged and the view simply shows the old
// label again.
func (o *Orchestrator) CommitRename(ctx context.Context, id, label string) error {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		o.CancelEdit(id)
		return nil
	}

	if !o.begin(id, ActionRename) {
		return ErrActionPending
	}
	defer o.end(id, ActionRename)
	defer o.CancelEdit(id)

	opCtx, cancel := o.opCtx(ctx)
	defer cancel()
	if err := o.store.Rename(opCtx, id, trimmed); err != nil {
		log.Printf("rename failed for %s: %v", id, err)
		return err
	}

	o.settle(ctx, model.CollectionRenders)
	return nil
}

// SaveToFolio copies a render into the folio once per session. The
// saved-marker set and the busy guard together prevent duplicate
// saves; the marker only resets with the process.
func (o *Orchestrator) SaveToFolio(ctx context.Context, renderID, suggestedName string) error {
	o.mu.Lock()
	_, alreadySaved := o.saved[renderID]
	o.mu.Unlock()
	if alreadySaved {
		return ErrAlreadySaved
	}

	if !o.begin(renderID, ActionFolio) {
		return ErrActionPending
	}
	defer o.end(renderID, ActionFolio)

	opCtx, cancel := o.opCtx(ctx)
	defer cancel()
	if err := o.store.AddToFolio(opCtx, renderID, suggestedName); err != nil {
		log.Printf("save to folio failed for %s: %v", renderID, err)
		return err
	}

	o.mu.Lock()
	o.saved[renderID] = struct{}{}
	o.mu.Unlock()

	if o.opts.Notify != nil {
		o.opts.Notify(model.CollectionClips)
	}
	return nil
}

// Replay asks the store to render the item again. The caller may react
// to the returned job, but the list projection only changes on an
// explicit refresh.
func (o *Orchestrator) Replay(ctx context.Context, id string) (*model.ReplayResponse, error) {
	if !o.begin(id, ActionReplay) {
		return nil, ErrActionPending
	}
	defer o.end(id, ActionReplay)

	opCtx, cancel := o.opCtx(ctx)
	defer cancel()
	resp, err := o.store.Replay(opCtx, id)
	if err != nil {
		log.Printf("replay failed for %s: %v", id, err)
		return nil, err
	}
	return resp, nil
}

// RemoveClip deletes a folio clip. Guide samples are read-only and
// rejected before any store call; the item disappears from the
// projection on the next refresh.
func (o *Orchestrator) RemoveClip(ctx context.Context, id string, kind model.SourceKind) error {
	if kind == model.SourceGuide {
		return ErrGuideReadOnly
	}

	if !o.begin(id, ActionRemove) {
		return ErrActionPending
	}
	defer o.end(id, ActionRemove)

	opCtx, cancel := o.opCtx(ctx)
	defer cancel()
	if err := o.store.RemoveClip(opCtx, id); err != nil {
		log.Printf("remove clip failed for %s: %v", id, err)
		return err
	}

	if o.opts.Notify != nil {
		o.opts.Notify(model.CollectionClips)
	}
	return nil
}

// Busy reports whether an action is in flight for the item.
func (o *Orchestrator) Busy(id string, action Action) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.pending[actionKey{id: id, action: action}]
	return ok
}

// Saved reports whether the render was saved to the folio this session.
func (o *Orchestrator) Saved(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.saved[id]
	return ok
}

// ItemState is the per-item status exposed to the presentation layer.
type ItemState struct {
	Busy     []Action `json:"busy,omitempty"`
	Saved    bool     `json:"saved,omitempty"`
	Editing  bool     `json:"editing,omitempty"`
	EditText string   `json:"editText,omitempty"`
}

// StateOf snapshots the busy flags, saved marker and edit buffer for
// one item.
func (o *Orchestrator) StateOf(id string) ItemState {
	o.mu.Lock()
	defer o.mu.Unlock()

	state := ItemState{}
	for _, action := range []Action{ActionRating, ActionRename, ActionFolio, ActionReplay, ActionRemove} {
		if _, ok := o.pending[actionKey{id: id, action: action}]; ok {
			state.Busy = append(state.Busy, action)
		}
	}
	if _, ok := o.saved[id]; ok {
		state.Saved = true
	}
	if o.edit != nil && o.edit.id == id {
		state.Editing = true
		state.EditText = o.edit.text
	}
	return state
}

// begin claims the (id, action) slot; false means the invocation is
// dropped by the guard.
func (o *Orchestrator) begin(id string, action Action) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	key := actionKey{id: id, action: action}
	if _, ok := o.pending[key]; ok {
		return false
	}
	o.pending[key] = struct{}{}
	return true
}

// end releases the slot. Callers defer it immediately after begin so
// the busy flag clears on every exit path.
func (o *Orchestrator) end(id string, action Action) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.pending, actionKey{id: id, action: action})
}

func (o *Orchestrator) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.opts.Timeout > 0 {
		return context.WithTimeout(ctx, o.opts.Timeout)
	}
	return context.WithCancel(ctx)
}

// settle runs the confirm-then-refresh cycle after an authoritative
// field mutation.
func (o *Orchestrator) settle(ctx context.Context, collection string) {
	if o.opts.RefreshRenders != nil {
		if err := o.opts.RefreshRenders(ctx); err != nil {
			log.Printf("post-action refresh failed: %v", err)
		}
	}
	if o.opts.Notify != nil {
		o.opts.Notify(collection)
	}
}
