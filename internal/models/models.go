package models

import (
	"time"
)

// Role names carried by an IdentityClaim
const (
	RoleAdmin     = "admin"
	RoleLibrarian = "librarian"
	RoleUser      = "user"
)

// Author is the author reference embedded in a catalog record
type Author struct {
	ID       int64  `json:"id"`
	Fullname string `json:"fullname"`
}

// Genre is the genre reference embedded in a catalog record
type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CatalogItem represents a book in the remote catalog.
// IsFavorite is owned by the client and only ever set by favorites.Reconcile.
type CatalogItem struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Author     *Author `json:"author,omitempty"`
	Genre      *Genre  `json:"genres,omitempty"`
	Quantity   int     `json:"quantity"`
	Location   string  `json:"location,omitempty"`
	IsFavorite bool    `json:"isFavorite"`
}

// AuthorName returns the author's display name or "" when no author is attached
func (c CatalogItem) AuthorName() string {
	if c.Author == nil {
		return ""
	}
	return c.Author.Fullname
}

// GenreName returns the genre name or "" when no genre is attached
func (c CatalogItem) GenreName() string {
	if c.Genre == nil {
		return ""
	}
	return c.Genre.Name
}

// BookSummary is the minimal book reference carried by favorites and borrow records
type BookSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}

// FavoriteEntry is a server-side bookmark. ID is needed to delete it.
type FavoriteEntry struct {
	ID   int64       `json:"id"`
	Book BookSummary `json:"book"`
}

// BookID returns the id of the bookmarked book
func (f FavoriteEntry) BookID() int64 {
	return f.Book.ID
}

// CommentRecord represents a review left on a book.
// Author is nil when the server did not attach any author reference.
type CommentRecord struct {
	ID        int64      `json:"id"`
	Content   string     `json:"content"`
	Rating    int        `json:"star"`
	BookID    int64      `json:"bookId,omitempty"`
	Author    *AuthorRef `json:"user,omitempty"`
	CreatedAt Timestamp  `json:"createdDate"`
}

// Patron is the user reference embedded in a borrow record
type Patron struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
	Fullname string `json:"fullname,omitempty"`
	IDCard   string `json:"idCard,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// BorrowRecord represents one loan of a book.
// Returned is flipped by the server only; the client re-fetches after a return.
type BorrowRecord struct {
	ID           int64       `json:"id"`
	Book         BookSummary `json:"book"`
	User         Patron      `json:"user"`
	CreatedDate  Timestamp   `json:"createdDate"`
	Returned     bool        `json:"returned"`
	ReturnedDate Timestamp   `json:"returnedDate"`
}

// IdentityClaim is the advisory, unverified identity decoded from the session assertion
type IdentityClaim struct {
	SubjectID *int64   `json:"subjectId,omitempty"`
	Username  string   `json:"username,omitempty"`
	Email     string   `json:"email,omitempty"`
	Roles     []string `json:"roles"`
}

// HasRole reports whether the claim carries the given role
func (c IdentityClaim) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the claim carries the admin role
func (c IdentityClaim) IsAdmin() bool {
	return c.HasRole(RoleAdmin)
}

// IsEmpty reports whether nothing could be decoded
func (c IdentityClaim) IsEmpty() bool {
	return c.SubjectID == nil && c.Username == "" && c.Email == "" && len(c.Roles) == 0
}

// UserProfile is the server's view of the logged-in user
type UserProfile struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Fullname string `json:"fullname,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	IDCard   string `json:"idCard,omitempty"`
	Role     string `json:"role"`
}

// DashboardStatistics holds the admin dashboard borrow counters
type DashboardStatistics struct {
	ReturnedOnTime int `json:"returnedOnTime"`
	ReturnedLate   int `json:"returnedLate"`
	NotReturned    int `json:"notReturned"`
}

// MonthlyStatistic is one archived monthly statistic value
type MonthlyStatistic struct {
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Value     string    `json:"value"`
	FetchedAt time.Time `json:"fetchedAt"`
}
