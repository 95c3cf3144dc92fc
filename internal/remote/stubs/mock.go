package stubs

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"libraryclient/internal/models"
	"libraryclient/internal/remote"
)

// onTimeWindow is how long a loan may run before a return counts as late
const onTimeWindow = 14 * 24 * time.Hour

type account struct {
	profile  models.UserProfile
	password string
}

type favoriteRow struct {
	entry  models.FavoriteEntry
	userID int64
}

// MockBackend is an in-memory implementation of the Backend interface for
// testing and for running without a real server. Failures can be injected
// per operation with SetFailure.
type MockBackend struct {
	mu        sync.RWMutex
	books     map[int64]models.CatalogItem
	accounts  map[string]account // by username
	tokens    map[string]string  // token -> username
	favorites []favoriteRow
	comments  []models.CommentRecord
	borrows   []models.BorrowRecord
	monthly   map[[2]int]string // {year, month}
	failures  map[string]error
	calls     map[string]int
	nextID    int64
	now       func() time.Time
}

var _ remote.Backend = (*MockBackend)(nil)

// NewMockBackend creates an empty mock backend
func NewMockBackend() *MockBackend {
	return &MockBackend{
		books:    make(map[int64]models.CatalogItem),
		accounts: make(map[string]account),
		tokens:   make(map[string]string),
		monthly:  make(map[[2]int]string),
		failures: make(map[string]error),
		calls:    make(map[string]int),
		nextID:   1000,
		now:      time.Now,
	}
}

// SetClock replaces the time source used for new records
func (m *MockBackend) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// SetFailure makes every call of op return err until cleared with a nil err
func (m *MockBackend) SetFailure(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

// Calls returns how many times op was invoked
func (m *MockBackend) Calls(op string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[op]
}

// AddBook adds or replaces a catalog record
func (m *MockBackend) AddBook(item models.CatalogItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item.IsFavorite = false
	m.books[item.ID] = item
}

// AddUser registers an account and returns a session assertion for it
func (m *MockBackend) AddUser(profile models.UserProfile, password string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[profile.Username] = account{profile: profile, password: password}
	token := IssueToken(profile)
	m.tokens[token] = profile.Username
	return token
}

// PutComment stores a comment as-is, bypassing authorization
func (m *MockBackend) PutComment(c models.CommentRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.comments = append(m.comments, c)
}

// PutBorrow stores a borrow record as-is
func (m *MockBackend) PutBorrow(r models.BorrowRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.borrows = append(m.borrows, r)
}

// PutFavorite stores a bookmark for userID as-is
func (m *MockBackend) PutFavorite(userID int64, e models.FavoriteEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.favorites = append(m.favorites, favoriteRow{entry: e, userID: userID})
}

// SetMonthlyStatistic sets the value reported for a month
func (m *MockBackend) SetMonthlyStatistic(year, month int, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.monthly[[2]int{year, month}] = value
}

// IssueToken builds an unsigned session assertion carrying the profile's claims.
// The same profile always yields the same token.
func IssueToken(p models.UserProfile) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"id":    p.ID,
		"sub":   p.Username,
		"email": p.Email,
		"role":  "ROLE_" + strings.ToUpper(p.Role),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		panic(fmt.Sprintf("issue token: %v", err))
	}
	return token
}

// begin counts the call and returns an injected failure, if any.
// Must be called with m.mu held.
func (m *MockBackend) begin(op string) error {
	m.calls[op]++
	return m.failures[op]
}

func (m *MockBackend) nextIDLocked() int64 {
	m.nextID++
	return m.nextID
}

// userLocked resolves token to an account. Must be called with m.mu held.
func (m *MockBackend) userLocked(op, token string) (models.UserProfile, error) {
	username, ok := m.tokens[token]
	if !ok {
		return models.UserProfile{}, &remote.Error{Op: op, StatusCode: http.StatusUnauthorized, Message: "invalid token"}
	}
	return m.accounts[username].profile, nil
}

func requireRole(op string, p models.UserProfile, roles ...string) error {
	for _, r := range roles {
		if p.Role == r {
			return nil
		}
	}
	return &remote.Error{Op: op, StatusCode: http.StatusForbidden, Message: "access denied"}
}

func notFound(op, what string, id int64) error {
	return &remote.Error{Op: op, StatusCode: http.StatusNotFound, Message: fmt.Sprintf("%s %d not found", what, id)}
}

// ListCatalog returns all books sorted by id
func (m *MockBackend) ListCatalog(ctx context.Context) ([]models.CatalogItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("list_catalog"); err != nil {
		return nil, err
	}

	items := make([]models.CatalogItem, 0, len(m.books))
	for _, b := range m.books {
		items = append(items, b)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].ID < items[j].ID
	})
	return items, nil
}

// ListFavorites returns the caller's bookmarks in insertion order
func (m *MockBackend) ListFavorites(ctx context.Context, token string) ([]models.FavoriteEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	const op = "list_favorites"
	if err := m.begin(op); err != nil {
		return nil, err
	}
	user, err := m.userLocked(op, token)
	if err != nil {
		return nil, err
	}

	entries := make([]models.FavoriteEntry, 0)
	for _, row := range m.favorites {
		if row.userID == user.ID {
			entries = append(entries, row.entry)
		}
	}
	return entries, nil
}

// AddFavorite bookmarks a book; a duplicate is a conflict
func (m *MockBackend) AddFavorite(ctx context.Context, token string, bookID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	const op = "add_favorite"
	if err := m.begin(op); err != nil {
		return err
	}
	user, err := m.userLocked(op, token)
	if err != nil {
		return err
	}
	book, ok := m.books[bookID]
	if !ok {
		return notFound(op, "book", bookID)
	}
	for _, row := range m.favorites {
		if row.userID == user.ID && row.entry.BookID() == bookID {
			return &remote.Error{Op: op, StatusCode: http.StatusConflict, Message: "book already in favorites"}
		}
	}

	m.favorites = append(m.favorites, favoriteRow{
		entry:  models.FavoriteEntry{ID: m.nextIDLocked(), Book: models.BookSummary{ID: book.ID, Name: book.Name}},
		userID: user.ID,
	})
	return nil
}

// DeleteFavorite removes one of the caller's bookmarks
func (m *MockBackend) DeleteFavorite(ctx context.Context, token string, entryID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	const op = "delete_favorite"
	if err := m.begin(op); err != nil {
		return err
	}
	user, err := m.userLocked(op, token)
	if err != nil {
		return err
	}

	for i, row := range m.favorites {
		if row.entry.ID == entryID && row.userID == user.ID {
			m.favorites = append(m.favorites[:i], m.favorites[i+1:]...)
			return nil
		}
	}
	return notFound(op, "favorite", entryID)
}

// ListComments returns the comments of a book in insertion order
func (m *MockBackend) ListComments(ctx context.Context, bookID int64) ([]models.CommentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("list_comments"); err != nil {
		return nil, err
	}

	records := make([]models.CommentRecord, 0)
	for _, c := range m.comments {
		if c.BookID == bookID {
			records = append(records, c)
		}
	}
	return records, nil
}

// AddComment stores a review authored by the caller
func (m *MockBackend) AddComment(ctx context.Context, token string, bookID int64, content string, rating int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	const op = "add_comment"
	if err := m.begin(op); err != nil {
		return err
	}
	user, err := m.userLocked(op, token)
	if err != nil {
		return err
	}
	if _, ok := m.books[bookID]; !ok {
		return notFound(op, "book", bookID)
	}

	id := user.ID
	m.comments = append(m.comments, models.CommentRecord{
		ID:      m.nextIDLocked(),
		Content: content,
		Rating:  rating,
		BookID:  bookID,
		Author: &models.AuthorRef{
			ID:       &id,
			Username: user.Username,
			Email:    user.Email,
			Fullname: user.Fullname,
		},
		CreatedAt: models.NewTimestamp(m.now()),
	})
	return nil
}

// DeleteComment deletes a comment the caller authored
func (m *MockBackend) DeleteComment(ctx context.Context, token string, commentID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	const op = "delete_comment"
	if err := m.begin(op); err != nil {
		return err
	}
	user, err := m.userLocked(op, token)
	if err != nil {
		return err
	}

	i := m.commentIndexLocked(commentID)
	if i < 0 {
		return notFound(op, "comment", commentID)
	}
	author := m.comments[i].Author
	if author == nil || author.ID == nil || *author.ID != user.ID {
		return &remote.Error{Op: op, StatusCode: http.StatusForbidden, Message: "not the author of this comment"}
	}
	m.comments = append(m.comments[:i], m.comments[i+1:]...)
	return nil
}

// DeleteCommentAsAdmin deletes any comment; the caller must be an admin
func (m *MockBackend) DeleteCommentAsAdmin(ctx context.Context, token string, commentID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	const op = "delete_comment_admin"
	if err := m.begin(op); err != nil {
		return err
	}
	user, err := m.userLocked(op, token)
	if err != nil {
		return err
	}
	if err := requireRole(op, user, models.RoleAdmin); err != nil {
		return err
	}

	i := m.commentIndexLocked(commentID)
	if i < 0 {
		return notFound(op, "comment", commentID)
	}
	m.comments = append(m.comments[:i], m.comments[i+1:]...)
	return nil
}

func (m *MockBackend) commentIndexLocked(id int64) int {
	for i, c := range m.comments {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// MyBorrowRecords returns the caller's loans
func (m *MockBackend) MyBorrowRecords(ctx context.Context, token string) ([]models.BorrowRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	const op = "list_my_borrows"
	if err := m.begin(op); err != nil {
		return nil, err
	}
	user, err := m.userLocked(op, token)
	if err != nil {
		return nil, err
	}
	return m.borrowsForLocked(user.ID), nil
}

// BorrowRecordsForUser returns a patron's loans; librarian or admin only
func (m *MockBackend) BorrowRecordsForUser(ctx context.Context, token string, userID int64) ([]models.BorrowRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	const op = "list_patron_borrows"
	if err := m.begin(op); err != nil {
		return nil, err
	}
	user, err := m.userLocked(op, token)
	if err != nil {
		return nil, err
	}
	if err := requireRole(op, user, models.RoleLibrarian, models.RoleAdmin); err != nil {
		return nil, err
	}
	return m.borrowsForLocked(userID), nil
}

func (m *MockBackend) borrowsForLocked(userID int64) []models.BorrowRecord {
	records := make([]models.BorrowRecord, 0)
	for _, r := range m.borrows {
		if r.User.ID == userID {
			records = append(records, r)
		}
	}
	return records
}

// ReturnBook marks a loan returned; librarian or admin only
func (m *MockBackend) ReturnBook(ctx context.Context, token string, recordID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	const op = "return_book"
	if err := m.begin(op); err != nil {
		return err
	}
	user, err := m.userLocked(op, token)
	if err != nil {
		return err
	}
	if err := requireRole(op, user, models.RoleLibrarian, models.RoleAdmin); err != nil {
		return err
	}

	for i := range m.borrows {
		if m.borrows[i].ID != recordID {
			continue
		}
		if m.borrows[i].Returned {
			return &remote.Error{Op: op, StatusCode: http.StatusConflict, Message: "book already returned"}
		}
		m.borrows[i].Returned = true
		m.borrows[i].ReturnedDate = models.NewTimestamp(m.now())
		return nil
	}
	return notFound(op, "borrow record", recordID)
}

// MonthlyStatistic returns the configured value for a month, or "0"
func (m *MockBackend) MonthlyStatistic(ctx context.Context, token string, month, year int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	const op = "monthly_statistic"
	if err := m.begin(op); err != nil {
		return "", err
	}
	user, err := m.userLocked(op, token)
	if err != nil {
		return "", err
	}
	if err := requireRole(op, user, models.RoleAdmin); err != nil {
		return "", err
	}
	if month < 1 || month > 12 {
		return "", &remote.Error{Op: op, StatusCode: http.StatusBadRequest, Message: "invalid month"}
	}

	if v, ok := m.monthly[[2]int{year, month}]; ok {
		return v, nil
	}
	return "0", nil
}

// DashboardStatistics derives the counters from the stored loans
func (m *MockBackend) DashboardStatistics(ctx context.Context, token string) (models.DashboardStatistics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	const op = "dashboard_statistics"
	if err := m.begin(op); err != nil {
		return models.DashboardStatistics{}, err
	}
	user, err := m.userLocked(op, token)
	if err != nil {
		return models.DashboardStatistics{}, err
	}
	if err := requireRole(op, user, models.RoleAdmin); err != nil {
		return models.DashboardStatistics{}, err
	}

	var st models.DashboardStatistics
	for _, r := range m.borrows {
		switch {
		case !r.Returned:
			st.NotReturned++
		case r.ReturnedDate.Sub(r.CreatedDate.Time) > onTimeWindow:
			st.ReturnedLate++
		default:
			st.ReturnedOnTime++
		}
	}
	return st, nil
}

// Login checks credentials and returns the account's session assertion
func (m *MockBackend) Login(ctx context.Context, username, password string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	const op = "login"
	if err := m.begin(op); err != nil {
		return "", err
	}

	acc, ok := m.accounts[username]
	if !ok || acc.password != password {
		return "", &remote.Error{Op: op, StatusCode: http.StatusUnauthorized, Message: "wrong username or password"}
	}
	token := IssueToken(acc.profile)
	m.tokens[token] = username
	return token, nil
}

// CurrentUser returns the profile behind token
func (m *MockBackend) CurrentUser(ctx context.Context, token string) (models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	const op = "current_user"
	if err := m.begin(op); err != nil {
		return models.UserProfile{}, err
	}
	return m.userLocked(op, token)
}
