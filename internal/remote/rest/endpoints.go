package rest

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"libraryclient/internal/models"
)

const (
	pathCatalog            = "/api/public/find-all-book"
	pathFavorites          = "/api/user/find-bookmark-by-user"
	pathAddFavorite        = "/api/user/add-bookmark"
	pathDeleteFavorite     = "/api/user/delete-bookmark"
	pathComments           = "/api/public/find-comment-by-book"
	pathAddComment         = "/api/user/add-comment"
	pathDeleteComment      = "/api/user/delete-comment"
	pathAdminDeleteComment = "/api/admin/delete-comment"
	pathMyBorrows          = "/api/user/find-borrowBook-by-user"
	pathPatronBorrows      = "/api/system/find-borrowBook"
	pathReturnBook         = "/api/system/return-book"
	pathMonthlyStatistic   = "/api/admin/statistics-monthly"
	pathDashboard          = "/api/admin/dashboard-statistics"
	pathLogin              = "/api/login"
	pathCurrentUser        = "/api/userlogged"
)

// bookRef is the {"book":{"id":N}} shape the backend expects in bodies
type bookRef struct {
	ID int64 `json:"id"`
}

func idQuery(key string, id int64) url.Values {
	return url.Values{key: []string{strconv.FormatInt(id, 10)}}
}

// ListCatalog fetches the whole public catalog
func (cl *Client) ListCatalog(ctx context.Context) ([]models.CatalogItem, error) {
	var items []models.CatalogItem
	err := cl.do(ctx, call{op: "list_catalog", method: http.MethodGet, path: pathCatalog}, &items)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ListFavorites fetches the bookmarks of the token's user
func (cl *Client) ListFavorites(ctx context.Context, token string) ([]models.FavoriteEntry, error) {
	var entries []models.FavoriteEntry
	err := cl.do(ctx, call{op: "list_favorites", method: http.MethodGet, path: pathFavorites, token: token}, &entries)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// AddFavorite bookmarks a book
func (cl *Client) AddFavorite(ctx context.Context, token string, bookID int64) error {
	body := struct {
		Book bookRef `json:"book"`
	}{Book: bookRef{ID: bookID}}
	return cl.do(ctx, call{op: "add_favorite", method: http.MethodPost, path: pathAddFavorite, token: token, body: body}, nil)
}

// DeleteFavorite removes a bookmark by its entry id
func (cl *Client) DeleteFavorite(ctx context.Context, token string, entryID int64) error {
	return cl.do(ctx, call{
		op:     "delete_favorite",
		method: http.MethodDelete,
		path:   pathDeleteFavorite,
		query:  idQuery("id", entryID),
		token:  token,
	}, nil)
}

// ListComments fetches the comments of a book
func (cl *Client) ListComments(ctx context.Context, bookID int64) ([]models.CommentRecord, error) {
	var records []models.CommentRecord
	err := cl.do(ctx, call{
		op:     "list_comments",
		method: http.MethodGet,
		path:   pathComments,
		query:  idQuery("bookId", bookID),
	}, &records)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// AddComment posts a review
func (cl *Client) AddComment(ctx context.Context, token string, bookID int64, content string, rating int) error {
	body := struct {
		Content string  `json:"content"`
		Star    int     `json:"star"`
		Book    bookRef `json:"book"`
	}{Content: content, Star: rating, Book: bookRef{ID: bookID}}
	return cl.do(ctx, call{op: "add_comment", method: http.MethodPost, path: pathAddComment, token: token, body: body}, nil)
}

// DeleteComment deletes one of the caller's own comments
func (cl *Client) DeleteComment(ctx context.Context, token string, commentID int64) error {
	return cl.do(ctx, call{
		op:     "delete_comment",
		method: http.MethodDelete,
		path:   pathDeleteComment,
		query:  idQuery("id", commentID),
		token:  token,
	}, nil)
}

// DeleteCommentAsAdmin deletes any comment through the admin endpoint
func (cl *Client) DeleteCommentAsAdmin(ctx context.Context, token string, commentID int64) error {
	return cl.do(ctx, call{
		op:     "delete_comment_admin",
		method: http.MethodDelete,
		path:   pathAdminDeleteComment,
		query:  idQuery("id", commentID),
		token:  token,
	}, nil)
}

// MyBorrowRecords fetches the borrow history of the token's user
func (cl *Client) MyBorrowRecords(ctx context.Context, token string) ([]models.BorrowRecord, error) {
	var records []models.BorrowRecord
	err := cl.do(ctx, call{op: "list_my_borrows", method: http.MethodGet, path: pathMyBorrows, token: token}, &records)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// BorrowRecordsForUser fetches a patron's borrow history
func (cl *Client) BorrowRecordsForUser(ctx context.Context, token string, userID int64) ([]models.BorrowRecord, error) {
	var records []models.BorrowRecord
	err := cl.do(ctx, call{
		op:     "list_patron_borrows",
		method: http.MethodGet,
		path:   pathPatronBorrows,
		query:  idQuery("userId", userID),
		token:  token,
	}, &records)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ReturnBook marks a borrow record as returned
func (cl *Client) ReturnBook(ctx context.Context, token string, recordID int64) error {
	return cl.do(ctx, call{
		op:     "return_book",
		method: http.MethodPost,
		path:   pathReturnBook,
		query:  idQuery("borrowBookId", recordID),
		token:  token,
		body:   struct{}{},
	}, nil)
}

// MonthlyStatistic fetches the statistic text of one month
func (cl *Client) MonthlyStatistic(ctx context.Context, token string, month, year int) (string, error) {
	return cl.doText(ctx, call{
		op:     "monthly_statistic",
		method: http.MethodGet,
		path:   pathMonthlyStatistic,
		query: url.Values{
			"month": []string{strconv.Itoa(month)},
			"year":  []string{strconv.Itoa(year)},
		},
		token: token,
	})
}

// DashboardStatistics fetches the borrow counters of the admin dashboard
func (cl *Client) DashboardStatistics(ctx context.Context, token string) (models.DashboardStatistics, error) {
	var st models.DashboardStatistics
	err := cl.do(ctx, call{op: "dashboard_statistics", method: http.MethodGet, path: pathDashboard, token: token}, &st)
	return st, err
}

// Login exchanges credentials for a session assertion
func (cl *Client) Login(ctx context.Context, username, password string) (string, error) {
	body := struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}{Username: username, Password: password}
	token, err := cl.doText(ctx, call{op: "login", method: http.MethodPost, path: pathLogin, body: body})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(token), nil
}

// CurrentUser fetches the server's profile of the token's user
func (cl *Client) CurrentUser(ctx context.Context, token string) (models.UserProfile, error) {
	var profile models.UserProfile
	err := cl.do(ctx, call{op: "current_user", method: http.MethodPost, path: pathCurrentUser, token: token, body: struct{}{}}, &profile)
	return profile, err
}
