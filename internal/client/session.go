package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"libraryclient/internal/catalog"
	"libraryclient/internal/favorites"
	"libraryclient/internal/identity"
	"libraryclient/internal/metrics"
	"libraryclient/internal/models"
	"libraryclient/internal/remote"
	"libraryclient/internal/storage"
)

var (
	// ErrAuthRequired is returned, without any request, when an operation
	// needs a session assertion and none is present
	ErrAuthRequired = errors.New("authentication required")
	// ErrUnknownBook is returned when a book id is not in the loaded catalog
	ErrUnknownBook = errors.New("book not in catalog")
)

// Options configures a Session
type Options struct {
	Backend   remote.Backend
	Archive   storage.Archive // optional
	Logger    *zap.Logger
	Metrics   *metrics.Metrics // optional
	Projector catalog.Projector
	PageSize  int
	Token     string
	Now       func() time.Time
}

// Session is the client-side state of one actor: the session assertion, the
// claim decoded from it, and the cached catalog and favorites. Every mutation
// is followed by a re-fetch; local state is never edited optimistically.
type Session struct {
	backend   remote.Backend
	archive   storage.Archive
	logger    *zap.Logger
	metrics   *metrics.Metrics
	projector catalog.Projector
	pageSize  int
	now       func() time.Time

	mu        sync.RWMutex
	token     string
	claim     models.IdentityClaim
	catalog   []models.CatalogItem // as served, IsFavorite ignored
	favorites []models.FavoriteEntry
	items     []models.CatalogItem // catalog reconciled with favorites
	criteria  catalog.Criteria
	comments  map[int64][]models.CommentRecord

	// generation counters: a response is applied only if no newer fetch of
	// the same kind was started meanwhile
	catalogGen   uint64
	favoritesGen uint64
	commentsGen  map[int64]uint64
}

// NewSession creates a Session. The catalog is empty until LoadCatalog.
func NewSession(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = catalog.DefaultPageSize
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Session{
		backend:     opts.Backend,
		archive:     opts.Archive,
		logger:      logger,
		metrics:     opts.Metrics,
		projector:   opts.Projector,
		pageSize:    pageSize,
		now:         now,
		criteria:    catalog.NewCriteria(),
		comments:    make(map[int64][]models.CommentRecord),
		commentsGen: make(map[int64]uint64),
	}
	s.setTokenLocked(opts.Token)
	return s
}

// SetToken replaces the session assertion. Cached favorites belong to the
// previous actor and are dropped; in-flight favorite fetches become stale.
func (s *Session) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setTokenLocked(token)
}

func (s *Session) setTokenLocked(token string) {
	s.token = token
	claim, err := identity.Decode(token)
	if err != nil && token != "" {
		s.logger.Debug("Session assertion is not decodable, continuing without identity", zap.Error(err))
	}
	s.claim = claim
	s.favorites = nil
	s.favoritesGen++
	s.items = favorites.Reconcile(s.catalog, nil)
}

// Token returns the current session assertion
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Claim returns the advisory identity decoded from the assertion
func (s *Session) Claim() models.IdentityClaim {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.claim
}

// IsAuthenticated reports whether an assertion is present. It is not validated.
func (s *Session) IsAuthenticated() bool {
	return s.Token() != ""
}

// authToken returns the assertion or ErrAuthRequired
func (s *Session) authToken() (string, error) {
	token := s.Token()
	if token == "" {
		return "", ErrAuthRequired
	}
	return token, nil
}

// Login exchanges credentials for an assertion and switches the session to it
func (s *Session) Login(ctx context.Context, username, password string) (string, error) {
	token, err := s.backend.Login(ctx, username, password)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", fmt.Errorf("login: backend returned an empty assertion")
	}
	s.SetToken(token)
	s.logger.Info("Logged in", zap.String("username", username))
	return token, nil
}

// Profile fetches the server's view of the current user
func (s *Session) Profile(ctx context.Context) (models.UserProfile, error) {
	token, err := s.authToken()
	if err != nil {
		return models.UserProfile{}, err
	}
	return s.backend.CurrentUser(ctx, token)
}

// stale counts a discarded response
func (s *Session) stale(kind string) {
	s.metrics.StaleResponse(kind)
	s.logger.Debug("Discarding stale response", zap.String("kind", kind))
}
