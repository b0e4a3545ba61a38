package service

import (
	"context"

	"github.com/chromox/api/internal/model"
)

// LibraryStore bundles the render and folio services behind the single
// mutation contract the action orchestrator works against.
type LibraryStore struct {
	Library *LibraryService
	Folio   *FolioService
}

func NewLibraryStore(library *LibraryService, folio *FolioService) *LibraryStore {
	return &LibraryStore{Library: library, Folio: folio}
}

func (s *LibraryStore) MutateRating(ctx context.Context, id string, rating model.Rating) error {
	return s.Library.Rate(ctx, id, rating)
}

func (s *LibraryStore) Rename(ctx context.Context, id, label string) error {
	return s.Library.Rename(ctx, id, label)
}

func (s *LibraryStore) RemoveClip(ctx context.Context, id string) error {
	return s.Folio.RemoveClip(ctx, id)
}

func (s *LibraryStore) AddToFolio(ctx context.Context, renderID, suggestedName string) error {
	return s.Folio.AddFromRender(ctx, renderID, suggestedName)
}

func (s *LibraryStore) Replay(ctx context.Context, id string) (*model.ReplayResponse, error) {
	return s.Library.Replay(ctx, id)
}
