package client

import (
	"context"

	"go.uber.org/zap"

	"libraryclient/internal/borrow"
	"libraryclient/internal/models"
)

// MyBorrows returns the actor's loans, currently borrowed first
func (s *Session) MyBorrows(ctx context.Context) ([]models.BorrowRecord, error) {
	token, err := s.authToken()
	if err != nil {
		return nil, err
	}
	records, err := s.backend.MyBorrowRecords(ctx, token)
	if err != nil {
		return nil, err
	}
	return borrow.Order(records), nil
}

// PatronBorrows returns a patron's loans, currently borrowed first
func (s *Session) PatronBorrows(ctx context.Context, patronID int64) ([]models.BorrowRecord, error) {
	token, err := s.authToken()
	if err != nil {
		return nil, err
	}
	records, err := s.backend.BorrowRecordsForUser(ctx, token, patronID)
	if err != nil {
		return nil, err
	}
	return borrow.Order(records), nil
}

// ReturnBook marks a loan returned and re-fetches the patron's loans.
// The returned state always comes from the server.
func (s *Session) ReturnBook(ctx context.Context, recordID, patronID int64) ([]models.BorrowRecord, error) {
	token, err := s.authToken()
	if err != nil {
		return nil, err
	}
	if err := s.backend.ReturnBook(ctx, token, recordID); err != nil {
		s.logger.Warn("Failed to return book", zap.Int64("record_id", recordID), zap.Error(err))
		return nil, err
	}
	s.logger.Info("Book returned", zap.Int64("record_id", recordID), zap.Int64("patron_id", patronID))
	return s.PatronBorrows(ctx, patronID)
}
