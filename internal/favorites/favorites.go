// Package favorites maps the server-side bookmark set onto catalog items and
// turns a favorite toggle into the single request that performs it.
package favorites

import (
	"errors"
	"fmt"

	"libraryclient/internal/models"
)

// ErrFavoriteEntryMissing signals that an item is shown as favorite but no
// bookmark entry backs it. Callers should force a reconciliation.
var ErrFavoriteEntryMissing = errors.New("no favorite entry for favorited book")

// Action is the kind of mutation a toggle resolves to
type Action string

const (
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
)

// Request is the mutation to send for a toggle.
// EntryID is only set for ActionRemove.
type Request struct {
	Action  Action `json:"action"`
	BookID  int64  `json:"bookId"`
	EntryID int64  `json:"entryId,omitempty"`
}

// Index maps book ids onto their favorite entry
type Index map[int64]models.FavoriteEntry

// NewIndex builds an Index. When a book is bookmarked twice the first entry wins.
func NewIndex(favorites []models.FavoriteEntry) Index {
	idx := make(Index, len(favorites))
	for _, f := range favorites {
		if _, ok := idx[f.BookID()]; ok {
			continue
		}
		idx[f.BookID()] = f
	}
	return idx
}

// Reconcile returns a copy of items with IsFavorite set exactly for the items
// whose id appears among the favorites' book ids
func Reconcile(items []models.CatalogItem, favorites []models.FavoriteEntry) []models.CatalogItem {
	idx := NewIndex(favorites)
	out := make([]models.CatalogItem, len(items))
	for i, item := range items {
		_, item.IsFavorite = idx[item.ID]
		out[i] = item
	}
	return out
}

// Toggle resolves the request that flips item's favorite state
func Toggle(item models.CatalogItem, favorites []models.FavoriteEntry) (Request, error) {
	if !item.IsFavorite {
		return Request{Action: ActionAdd, BookID: item.ID}, nil
	}

	entry, ok := NewIndex(favorites)[item.ID]
	if !ok {
		return Request{}, fmt.Errorf("%w: book %d", ErrFavoriteEntryMissing, item.ID)
	}
	return Request{Action: ActionRemove, BookID: item.ID, EntryID: entry.ID}, nil
}
