package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"libraryclient/internal/comments"
	"libraryclient/internal/models"
)

var (
	// ErrCommentNotFound is returned when a comment is not among the book's comments
	ErrCommentNotFound = errors.New("comment not found")
	// ErrEmptyComment is returned for blank comment text
	ErrEmptyComment = errors.New("comment text is empty")
)

// Comments fetches the comments of a book, newest first, each annotated with
// whether the current actor may delete it. On failure the last fetched
// comments of the book are kept.
func (s *Session) Comments(ctx context.Context, bookID int64) ([]comments.View, error) {
	records, err := s.fetchComments(ctx, bookID)
	if err != nil {
		return nil, err
	}
	return comments.Annotate(records, s.Claim()), nil
}

// fetchComments loads and caches the comments of a book. A response
// overtaken by a newer fetch for the same book returns the newer cache.
func (s *Session) fetchComments(ctx context.Context, bookID int64) ([]models.CommentRecord, error) {
	s.mu.Lock()
	s.commentsGen[bookID]++
	gen := s.commentsGen[bookID]
	s.mu.Unlock()

	records, err := s.backend.ListComments(ctx, bookID)
	if err != nil {
		s.logger.Warn("Failed to load comments", zap.Int64("book_id", bookID), zap.Error(err))
		return nil, fmt.Errorf("failed to load comments: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.commentsGen[bookID] {
		s.stale("comments")
		return s.comments[bookID], nil
	}
	s.comments[bookID] = records
	return records, nil
}

// AddComment posts a review and returns the re-fetched comments of the book.
// The rating is validated before any request is made.
func (s *Session) AddComment(ctx context.Context, bookID int64, content string, rating int) ([]comments.View, error) {
	token, err := s.authToken()
	if err != nil {
		return nil, err
	}
	if err := comments.ValidateRating(rating); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyComment
	}

	if err := s.backend.AddComment(ctx, token, bookID, content, rating); err != nil {
		s.logger.Warn("Failed to add comment", zap.Int64("book_id", bookID), zap.Error(err))
		return nil, err
	}
	return s.Comments(ctx, bookID)
}

// DeleteComment deletes a comment of a book through the endpoint matching the
// actor's role, then returns the re-fetched comments. The comment is looked up
// in the cached comments, fetching them first when the book was never loaded.
func (s *Session) DeleteComment(ctx context.Context, bookID, commentID int64) (comments.Route, []comments.View, error) {
	token, err := s.authToken()
	if err != nil {
		return "", nil, err
	}

	record, ok := s.cachedComment(bookID, commentID)
	if !ok {
		records, err := s.fetchComments(ctx, bookID)
		if err != nil {
			return "", nil, err
		}
		record, ok = findComment(records, commentID)
		if !ok {
			return "", nil, fmt.Errorf("%w: %d", ErrCommentNotFound, commentID)
		}
	}

	route, err := comments.Delete(ctx, s.backend, token, record, s.Claim())
	if err != nil {
		s.logger.Warn("Failed to delete comment",
			zap.Int64("book_id", bookID),
			zap.Int64("comment_id", commentID),
			zap.Error(err),
		)
		return "", nil, err
	}
	s.logger.Info("Comment deleted", zap.Int64("comment_id", commentID), zap.String("route", string(route)))

	views, err := s.Comments(ctx, bookID)
	return route, views, err
}

func (s *Session) cachedComment(bookID, commentID int64) (models.CommentRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findComment(s.comments[bookID], commentID)
}

func findComment(records []models.CommentRecord, id int64) (models.CommentRecord, bool) {
	for _, r := range records {
		if r.ID == id {
			return r, true
		}
	}
	return models.CommentRecord{}, false
}
