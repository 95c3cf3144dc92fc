package comments

import (
	"sort"
	"strings"

	"libraryclient/internal/models"
)

// CanDelete decides whether the actor described by claim may delete comment.
//
// Resolution order, first match wins:
//  1. admin role
//  2. author id equals claim subject id
//  3. author username equals claim username (case-insensitive)
//  4. author email equals claim email (case-insensitive)
//
// Anything else, including a comment without an author, is denied.
// The answer is advisory: the backend re-checks every delete.
func CanDelete(comment models.CommentRecord, claim models.IdentityClaim) bool {
	if claim.IsAdmin() {
		return true
	}

	author := comment.Author
	if author == nil {
		return false
	}

	if author.ID != nil && claim.SubjectID != nil && *author.ID == *claim.SubjectID {
		return true
	}
	if author.Username != "" && claim.Username != "" && strings.EqualFold(author.Username, claim.Username) {
		return true
	}
	if author.Email != "" && claim.Email != "" && strings.EqualFold(author.Email, claim.Email) {
		return true
	}
	return false
}

// AdminDeletable reports whether the admin-scoped delete endpoint should be tried first
func AdminDeletable(claim models.IdentityClaim) bool {
	return claim.IsAdmin()
}

// View is a comment prepared for display
type View struct {
	models.CommentRecord
	DisplayName string `json:"displayName"`
	CanDelete   bool   `json:"canDelete"`
}

// Annotate resolves display names and delete capability, newest first
func Annotate(records []models.CommentRecord, claim models.IdentityClaim) []View {
	views := make([]View, 0, len(records))
	for _, rec := range records {
		views = append(views, View{
			CommentRecord: rec,
			DisplayName:   rec.Author.DisplayName(),
			CanDelete:     CanDelete(rec, claim),
		})
	}

	sort.SliceStable(views, func(i, j int) bool {
		a, b := views[i].CreatedAt.Time, views[j].CreatedAt.Time
		if !a.Equal(b) {
			return a.After(b)
		}
		return views[i].ID > views[j].ID
	})
	return views
}
