package comments

import (
	"context"
	"errors"
	"fmt"

	"libraryclient/internal/models"
)

var (
	// ErrNotPermitted is returned, without any request, when the actor
	// neither owns the comment nor holds the admin role
	ErrNotPermitted = errors.New("not permitted to delete this comment")
	// ErrInvalidRating is returned for ratings outside 1..5
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)

// MinRating and MaxRating bound a comment rating
const (
	MinRating = 1
	MaxRating = 5
)

// Route names the endpoint that carried out a delete
type Route string

const (
	RouteAdmin Route = "admin"
	RouteSelf  Route = "self"
)

// Deleter is the subset of the backend used to delete comments
type Deleter interface {
	DeleteComment(ctx context.Context, token string, commentID int64) error
	DeleteCommentAsAdmin(ctx context.Context, token string, commentID int64) error
}

// Delete removes comment on behalf of claim.
// Admins go through the admin endpoint first and fall back to the self
// endpoint when it fails, since the UI role may not match the role the
// backend enforces. Owners use the self endpoint directly.
func Delete(ctx context.Context, d Deleter, token string, comment models.CommentRecord, claim models.IdentityClaim) (Route, error) {
	if !CanDelete(comment, claim) {
		return "", fmt.Errorf("%w: comment %d", ErrNotPermitted, comment.ID)
	}

	if AdminDeletable(claim) {
		adminErr := d.DeleteCommentAsAdmin(ctx, token, comment.ID)
		if adminErr == nil {
			return RouteAdmin, nil
		}
		if err := d.DeleteComment(ctx, token, comment.ID); err != nil {
			return "", errors.Join(adminErr, err)
		}
		return RouteSelf, nil
	}

	if err := d.DeleteComment(ctx, token, comment.ID); err != nil {
		return "", err
	}
	return RouteSelf, nil
}

// ValidateRating checks a rating before it is sent
func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return fmt.Errorf("%w: got %d", ErrInvalidRating, rating)
	}
	return nil
}
