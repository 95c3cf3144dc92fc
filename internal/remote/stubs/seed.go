package stubs

import (
	"time"

	"libraryclient/internal/models"
)

// Demo credentials created by Seed
const (
	DemoAdmin     = "admin"
	DemoLibrarian = "librarian"
	DemoReader    = "reader"
	DemoPassword  = "password"
)

// Seed fills the backend with a small demo library. It returns the
// session assertions of the three demo accounts keyed by username.
func (m *MockBackend) Seed(now time.Time) map[string]string {
	tokens := map[string]string{
		DemoAdmin: m.AddUser(models.UserProfile{
			ID: 1, Username: DemoAdmin, Fullname: "Ada Admin", Email: "admin@library.local", Role: models.RoleAdmin,
		}, DemoPassword),
		DemoLibrarian: m.AddUser(models.UserProfile{
			ID: 2, Username: DemoLibrarian, Fullname: "Lena Librarian", Email: "lena@library.local", Role: models.RoleLibrarian,
		}, DemoPassword),
		DemoReader: m.AddUser(models.UserProfile{
			ID: 3, Username: DemoReader, Fullname: "Rui Reader", Email: "rui@library.local", Role: models.RoleUser,
			IDCard: "0123456789", Phone: "555-0100",
		}, DemoPassword),
	}

	fiction := &models.Genre{ID: 1, Name: "Fiction"}
	science := &models.Genre{ID: 2, Name: "Science"}
	history := &models.Genre{ID: 3, Name: "History"}

	books := []models.CatalogItem{
		{ID: 1, Name: "Dune", Author: &models.Author{ID: 1, Fullname: "Frank Herbert"}, Genre: fiction, Quantity: 3, Location: "A1"},
		{ID: 2, Name: "A Brief History of Time", Author: &models.Author{ID: 2, Fullname: "Stephen Hawking"}, Genre: science, Quantity: 2, Location: "B4"},
		{ID: 3, Name: "The Guns of August", Author: &models.Author{ID: 3, Fullname: "Barbara Tuchman"}, Genre: history, Quantity: 1, Location: "C2"},
		{ID: 4, Name: "Foundation", Author: &models.Author{ID: 4, Fullname: "Isaac Asimov"}, Genre: fiction, Quantity: 4, Location: "A2"},
		{ID: 5, Name: "Cosmos", Author: &models.Author{ID: 5, Fullname: "Carl Sagan"}, Genre: science, Quantity: 2, Location: "B1"},
		{ID: 6, Name: "Untitled Manuscript"},
	}
	for _, b := range books {
		m.AddBook(b)
	}

	readerID := int64(3)
	m.PutComment(models.CommentRecord{
		ID: 100, Content: "A classic.", Rating: 5, BookID: 1,
		Author:    &models.AuthorRef{ID: &readerID, Username: DemoReader, Fullname: "Rui Reader"},
		CreatedAt: models.NewTimestamp(now.Add(-48 * time.Hour)),
	})
	m.PutComment(models.CommentRecord{
		ID: 101, Content: "Too long for me.", Rating: 3, BookID: 1,
		CreatedAt: models.NewTimestamp(now.Add(-24 * time.Hour)),
	})

	m.PutFavorite(readerID, models.FavoriteEntry{ID: 200, Book: models.BookSummary{ID: 4, Name: "Foundation"}})

	reader := models.Patron{ID: readerID, Username: DemoReader, Fullname: "Rui Reader", IDCard: "0123456789", Phone: "555-0100"}
	m.PutBorrow(models.BorrowRecord{
		ID: 300, Book: models.BookSummary{ID: 2, Name: "A Brief History of Time"}, User: reader,
		CreatedDate: models.NewTimestamp(now.Add(-30 * 24 * time.Hour)), Returned: true,
		ReturnedDate: models.NewTimestamp(now.Add(-25 * 24 * time.Hour)),
	})
	m.PutBorrow(models.BorrowRecord{
		ID: 301, Book: models.BookSummary{ID: 1, Name: "Dune"}, User: reader,
		CreatedDate: models.NewTimestamp(now.Add(-3 * 24 * time.Hour)),
	})

	for month := 1; month <= 12; month++ {
		m.SetMonthlyStatistic(now.Year(), month, "0")
	}
	m.SetMonthlyStatistic(now.Year(), int(now.Month()), "2")

	return tokens
}
