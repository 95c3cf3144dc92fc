package client

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"libraryclient/internal/catalog"
	"libraryclient/internal/favorites"
	"libraryclient/internal/models"
)

// LoadCatalog fetches the full catalog and re-derives the favorite flags.
// On failure the previously loaded catalog is kept.
func (s *Session) LoadCatalog(ctx context.Context) error {
	s.mu.Lock()
	s.catalogGen++
	gen := s.catalogGen
	s.mu.Unlock()

	items, err := s.backend.ListCatalog(ctx)
	if err != nil {
		s.logger.Warn("Failed to load catalog", zap.Error(err))
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.catalogGen {
		s.stale("catalog")
		return nil
	}
	s.catalog = items
	s.items = favorites.Reconcile(s.catalog, s.favorites)
	s.logger.Debug("Catalog loaded", zap.Int("items", len(items)))
	return nil
}

// SyncFavorites fetches the actor's favorites and re-derives every item's
// flag from them. Without an assertion the favorites are empty.
// On failure the previous favorites and flags are kept.
func (s *Session) SyncFavorites(ctx context.Context) error {
	s.mu.Lock()
	s.favoritesGen++
	gen := s.favoritesGen
	token := s.token
	if token == "" {
		s.favorites = nil
		s.items = favorites.Reconcile(s.catalog, nil)
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	entries, err := s.backend.ListFavorites(ctx, token)
	if err != nil {
		s.logger.Warn("Failed to load favorites", zap.Error(err))
		return fmt.Errorf("failed to load favorites: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.favoritesGen {
		s.stale("favorites")
		return nil
	}
	s.favorites = entries
	s.items = favorites.Reconcile(s.catalog, s.favorites)
	return nil
}

// Refresh loads the catalog and the favorites concurrently
func (s *Session) Refresh(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return s.LoadCatalog(ctx) })
	g.Go(func() error { return s.SyncFavorites(ctx) })
	return g.Wait()
}

// Items returns a copy of the reconciled catalog
func (s *Session) Items() []models.CatalogItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.CatalogItem, len(s.items))
	copy(out, s.items)
	return out
}

// Item looks up a book of the loaded catalog
func (s *Session) Item(bookID int64) (models.CatalogItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.itemLocked(bookID)
}

func (s *Session) itemLocked(bookID int64) (models.CatalogItem, bool) {
	for _, item := range s.items {
		if item.ID == bookID {
			return item, true
		}
	}
	return models.CatalogItem{}, false
}

// Favorites returns a copy of the last synced favorites
func (s *Session) Favorites() []models.FavoriteEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.FavoriteEntry, len(s.favorites))
	copy(out, s.favorites)
	return out
}

// Facets returns "All" followed by the genres of the loaded catalog
func (s *Session) Facets() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return catalog.Facets(s.items)
}

// Project runs a one-off projection without touching the navigation state
func (s *Session) Project(query, facet string, page int) catalog.Page {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.projector.Project(s.items, query, facet, page, s.pageSize)
}

// View projects the catalog with the current navigation criteria
func (s *Session) View() catalog.Page {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.criteria.Apply(s.projector, s.items, s.pageSize)
}

// Criteria returns the current navigation criteria
func (s *Session) Criteria() catalog.Criteria {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.criteria
}

// Search sets a new query, which resets the page to 1
func (s *Session) Search(query string) catalog.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.criteria = s.criteria.WithQuery(query)
	return s.criteria.Apply(s.projector, s.items, s.pageSize)
}

// SelectFacet sets a new facet, which resets the page to 1
func (s *Session) SelectFacet(facet string) catalog.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.criteria = s.criteria.WithFacet(facet)
	return s.criteria.Apply(s.projector, s.items, s.pageSize)
}

// GoToPage moves to page if it exists; otherwise the view is unchanged and
// ok is false
func (s *Session) GoToPage(page int) (view catalog.Page, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.criteria.Apply(s.projector, s.items, s.pageSize)
	next, ok := s.criteria.GoToPage(page, current.TotalPages)
	if !ok {
		return current, false
	}
	s.criteria = next
	return s.criteria.Apply(s.projector, s.items, s.pageSize), true
}

// ResetCriteria restores the empty query, facet All and page 1
func (s *Session) ResetCriteria() catalog.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.criteria = catalog.NewCriteria()
	return s.criteria.Apply(s.projector, s.items, s.pageSize)
}

// ToggleFavorite adds or removes bookID from the actor's favorites, then
// re-syncs favorites from the backend.
//
// Items are always derived from the favorites under one lock, so a flag
// without an entry means the cached state drifted. Then nothing is sent, the
// favorites are re-synced and favorites.ErrFavoriteEntryMissing is returned,
// joined with the re-sync error if that failed too.
func (s *Session) ToggleFavorite(ctx context.Context, bookID int64) (favorites.Action, error) {
	token, err := s.authToken()
	if err != nil {
		return "", err
	}

	s.mu.RLock()
	item, ok := s.itemLocked(bookID)
	favs := s.favorites
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownBook, bookID)
	}

	req, err := favorites.Toggle(item, favs)
	if errors.Is(err, favorites.ErrFavoriteEntryMissing) {
		s.logger.Warn("Favorite flag without entry, re-syncing", zap.Int64("book_id", bookID))
		if syncErr := s.SyncFavorites(ctx); syncErr != nil {
			return "", errors.Join(err, syncErr)
		}
		return "", err
	}
	if err != nil {
		return "", err
	}

	switch req.Action {
	case favorites.ActionAdd:
		err = s.backend.AddFavorite(ctx, token, req.BookID)
	case favorites.ActionRemove:
		err = s.backend.DeleteFavorite(ctx, token, req.EntryID)
	}
	if err != nil {
		s.logger.Warn("Failed to toggle favorite",
			zap.Int64("book_id", bookID),
			zap.String("action", string(req.Action)),
			zap.Error(err),
		)
		return "", err
	}

	if err := s.SyncFavorites(ctx); err != nil {
		return req.Action, fmt.Errorf("favorite updated but refresh failed: %w", err)
	}
	return req.Action, nil
}
