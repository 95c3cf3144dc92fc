package remote

import (
	"context"

	"libraryclient/internal/models"
)

// Backend defines the operations the client consumes from the library REST API.
// Every token argument is the opaque session assertion, forwarded verbatim.
type Backend interface {
	// Catalog operations
	ListCatalog(ctx context.Context) ([]models.CatalogItem, error)

	// Favorite operations
	ListFavorites(ctx context.Context, token string) ([]models.FavoriteEntry, error)
	AddFavorite(ctx context.Context, token string, bookID int64) error
	DeleteFavorite(ctx context.Context, token string, entryID int64) error

	// Comment operations
	ListComments(ctx context.Context, bookID int64) ([]models.CommentRecord, error)
	AddComment(ctx context.Context, token string, bookID int64, content string, rating int) error
	DeleteComment(ctx context.Context, token string, commentID int64) error
	DeleteCommentAsAdmin(ctx context.Context, token string, commentID int64) error

	// Borrow operations

	// MyBorrowRecords returns the records of the user the token belongs to
	MyBorrowRecords(ctx context.Context, token string) ([]models.BorrowRecord, error)
	// BorrowRecordsForUser returns a patron's records (librarian scope)
	BorrowRecordsForUser(ctx context.Context, token string, userID int64) ([]models.BorrowRecord, error)
	ReturnBook(ctx context.Context, token string, recordID int64) error

	// Statistics operations
	MonthlyStatistic(ctx context.Context, token string, month, year int) (string, error)
	DashboardStatistics(ctx context.Context, token string) (models.DashboardStatistics, error)

	// Account operations
	Login(ctx context.Context, username, password string) (string, error)
	CurrentUser(ctx context.Context, token string) (models.UserProfile, error)
}
