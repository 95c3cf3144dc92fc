package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"libraryclient/internal/borrow"
	"libraryclient/internal/client"
	"libraryclient/internal/models"
)

// ensureCatalog loads the catalog on first use, or on ?refresh=true.
// A favorites failure only costs the flags and is logged.
func (hs *HTTPServer) ensureCatalog(ctx context.Context, s *client.Session, force bool) error {
	if !force && len(s.Items()) > 0 {
		return nil
	}
	if err := s.LoadCatalog(ctx); err != nil {
		return err
	}
	if err := s.SyncFavorites(ctx); err != nil {
		hs.logger.Warn("Serving catalog without favorite flags", zap.Error(err))
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", name, r.PathValue(name))
	}
	return id, nil
}

// queryInt reads an optional integer query parameter
func queryInt(r *http.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", name, s)
	}
	return n, nil
}

type meResponse struct {
	Authenticated bool                 `json:"authenticated"`
	Claim         models.IdentityClaim `json:"claim"`
	Profile       *models.UserProfile  `json:"profile,omitempty"`
}

// handleMe returns the advisory claim and, when authenticated, the server profile
func (hs *HTTPServer) handleMe(w http.ResponseWriter, r *http.Request) {
	s := hs.session(r)
	resp := meResponse{Authenticated: s.IsAuthenticated(), Claim: s.Claim()}
	if resp.Authenticated {
		profile, err := s.Profile(r.Context())
		if err != nil {
			hs.writeError(w, r, err)
			return
		}
		resp.Profile = &profile
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleBooks returns one page of the catalog for ?q=&facet=&page=
func (hs *HTTPServer) handleBooks(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	q := r.URL.Query()

	s := hs.session(r)
	if err := hs.ensureCatalog(r.Context(), s, q.Get("refresh") == "true"); err != nil {
		hs.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Project(q.Get("q"), q.Get("facet"), page))
}

func (hs *HTTPServer) handleFacets(w http.ResponseWriter, r *http.Request) {
	s := hs.session(r)
	if err := hs.ensureCatalog(r.Context(), s, false); err != nil {
		hs.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Facets())
}

type toggleResponse struct {
	Action string             `json:"action"`
	Book   models.CatalogItem `json:"book"`
}

func (hs *HTTPServer) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	bookID, err := pathID(r, "bookId")
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	s := hs.session(r)
	if err := hs.ensureCatalog(r.Context(), s, false); err != nil {
		hs.writeError(w, r, err)
		return
	}

	action, err := s.ToggleFavorite(r.Context(), bookID)
	if err != nil {
		hs.writeError(w, r, err)
		return
	}
	item, _ := s.Item(bookID)
	writeJSON(w, http.StatusOK, toggleResponse{Action: string(action), Book: item})
}

func (hs *HTTPServer) handleListComments(w http.ResponseWriter, r *http.Request) {
	bookID, err := pathID(r, "bookId")
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	views, err := hs.session(r).Comments(r.Context(), bookID)
	if err != nil {
		hs.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// AddCommentRequest is the body of POST /api/books/{bookId}/comments
type AddCommentRequest struct {
	Content string `json:"content"`
	Rating  int    `json:"rating"`
}

func (hs *HTTPServer) handleAddComment(w http.ResponseWriter, r *http.Request) {
	bookID, err := pathID(r, "bookId")
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	var req AddCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		hs.logger.Warn("Failed to decode request body", zap.Error(err))
		badRequest(w, "invalid request body")
		return
	}

	views, err := hs.session(r).AddComment(r.Context(), bookID, req.Content, req.Rating)
	if err != nil {
		hs.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, views)
}

type deleteCommentResponse struct {
	Route    string      `json:"route"`
	Comments interface{} `json:"comments"`
}

// handleDeleteComment deletes /api/comments/{id}?bookId=
func (hs *HTTPServer) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	commentID, err := pathID(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	bookID, err := queryInt(r, "bookId", 0)
	if err != nil || bookID <= 0 {
		badRequest(w, "bookId query parameter is required")
		return
	}

	route, views, err := hs.session(r).DeleteComment(r.Context(), int64(bookID), commentID)
	if err != nil {
		hs.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteCommentResponse{Route: string(route), Comments: views})
}

// handleBorrows returns the caller's loans, or a patron's with ?userId=
func (hs *HTTPServer) handleBorrows(w http.ResponseWriter, r *http.Request) {
	userID, err := queryInt(r, "userId", 0)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	s := hs.session(r)
	var records []models.BorrowRecord
	if userID > 0 {
		records, err = s.PatronBorrows(r.Context(), int64(userID))
	} else {
		records, err = s.MyBorrows(r.Context())
	}
	if err != nil {
		hs.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, borrow.Views(records))
}

// handleReturn returns /api/borrows/{id}/return?userId= and answers with the
// patron's re-fetched loans
func (hs *HTTPServer) handleReturn(w http.ResponseWriter, r *http.Request) {
	recordID, err := pathID(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	userID, err := queryInt(r, "userId", 0)
	if err != nil || userID <= 0 {
		badRequest(w, "userId query parameter is required")
		return
	}

	records, err := hs.session(r).ReturnBook(r.Context(), recordID, int64(userID))
	if err != nil {
		hs.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, borrow.Views(records))
}

type monthlyResponse struct {
	Year   int            `json:"year"`
	Month  int            `json:"month,omitempty"`
	Value  string         `json:"value,omitempty"`
	Months map[int]string `json:"months,omitempty"`
}

// handleMonthly returns one month with ?month=, otherwise all twelve
func (hs *HTTPServer) handleMonthly(w http.ResponseWriter, r *http.Request) {
	year, err := queryInt(r, "year", time.Now().Year())
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	month, err := queryInt(r, "month", 0)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	s := hs.session(r)
	if month != 0 {
		value, err := s.MonthlyStatistic(r.Context(), month, year)
		if err != nil {
			hs.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, monthlyResponse{Year: year, Month: month, Value: value})
		return
	}

	months, err := s.MonthlyStatistics(r.Context(), year)
	if err != nil {
		hs.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, monthlyResponse{Year: year, Months: months})
}

func (hs *HTTPServer) handleDashboard(w http.ResponseWriter, r *http.Request) {
	st, err := hs.session(r).Dashboard(r.Context())
	if err != nil {
		hs.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (hs *HTTPServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	year, err := queryInt(r, "year", time.Now().Year())
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	history, err := hs.session(r).StatisticsHistory(r.Context(), year)
	if err != nil {
		hs.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}
