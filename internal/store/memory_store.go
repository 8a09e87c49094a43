package store

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"movie-app/internal/domain"
	"movie-app/internal/rating"
)

// MemoryStore keeps every collection in process memory behind one lock. It enforces the
// same uniqueness rules as the Postgres schema and backs tests and memory:// runs.
type MemoryStore struct {
	Movies    *MemoryMovieStore
	Reviews   *MemoryReviewStore
	Watchlist *MemoryWatchlistStore
	Users     *MemoryUserStore
}

type memoryDB struct {
	mu        sync.RWMutex
	movies    map[string]*domain.Movie
	reviews   map[string]*domain.Review
	helpful   map[string]map[string]struct{}
	watchlist map[string]*domain.WatchlistEntry
	users     map[string]*domain.User
	now       func() time.Time
}

type MemoryMovieStore struct{ db *memoryDB }
type MemoryReviewStore struct{ db *memoryDB }
type MemoryWatchlistStore struct{ db *memoryDB }
type MemoryUserStore struct{ db *memoryDB }

// NewMemoryStore returns empty stores backed by one shared, mutex-guarded dataset.
func NewMemoryStore() *MemoryStore {
	db := &memoryDB{
		movies:    make(map[string]*domain.Movie),
		reviews:   make(map[string]*domain.Review),
		helpful:   make(map[string]map[string]struct{}),
		watchlist: make(map[string]*domain.WatchlistEntry),
		users:     make(map[string]*domain.User),
		now:       func() time.Time { return time.Now().UTC() },
	}
	return &MemoryStore{
		Movies:    &MemoryMovieStore{db: db},
		Reviews:   &MemoryReviewStore{db: db},
		Watchlist: &MemoryWatchlistStore{db: db},
		Users:     &MemoryUserStore{db: db},
	}
}

func paginate[T any](items []T, page domain.Page) []T {
	start := page.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := len(items)
	if page.Size > 0 && start+page.Size < end {
		end = start + page.Size
	}
	return items[start:end]
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func direction(order SortOrder) int {
	if order == SortAsc {
		return 1
	}
	return -1
}

// compareTimePtr orders nil after every value regardless of direction.
func compareTimePtr(a, b *time.Time, dir int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return dir * a.Compare(*b)
}

// ---- movies ----

func (s *MemoryMovieStore) Upsert(_ context.Context, movie *domain.Movie) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	now := s.db.now()
	if movie.Genres == nil {
		movie.Genres = pq.StringArray{}
	}
	if movie.Cast == nil {
		movie.Cast = pq.StringArray{}
	}
	for _, existing := range s.db.movies {
		if existing.TMDBID != movie.TMDBID {
			continue
		}
		updated := *movie
		updated.ID = existing.ID
		updated.AverageRating = existing.AverageRating
		updated.ReviewCount = existing.ReviewCount
		updated.CreatedAt = existing.CreatedAt
		updated.LastSyncDate = now
		updated.UpdatedAt = now
		s.db.movies[existing.ID] = &updated
		*movie = updated
		return false, nil
	}

	created := *movie
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	created.AverageRating, created.ReviewCount = 0, 0
	created.LastSyncDate, created.CreatedAt, created.UpdatedAt = now, now, now
	s.db.movies[created.ID] = &created
	*movie = created
	return true, nil
}

func (s *MemoryMovieStore) GetByID(_ context.Context, id string) (*domain.Movie, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	m, ok := s.db.movies[id]
	if !ok {
		return nil, ErrMovieNotFound
	}
	c := *m
	return &c, nil
}

func (s *MemoryMovieStore) GetByTMDBID(_ context.Context, tmdbID int64) (*domain.Movie, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	for _, m := range s.db.movies {
		if m.TMDBID == tmdbID {
			c := *m
			return &c, nil
		}
	}
	return nil, ErrMovieNotFound
}

func movieMatches(m *domain.Movie, p MovieListParams) bool {
	if p.Genre != "" && !slices.ContainsFunc(m.Genres, func(g string) bool { return containsFold(g, p.Genre) }) {
		return false
	}
	if p.Year != 0 {
		from, to := yearRange(p.Year)
		if m.ReleaseDate == nil || m.ReleaseDate.Before(from) || !m.ReleaseDate.Before(to) {
			return false
		}
	}
	if p.Search != "" {
		hit := containsFold(m.Title, p.Search) || containsFold(m.OriginalTitle, p.Search) ||
			containsFold(m.Overview, p.Search) || containsFold(m.Director, p.Search) ||
			containsFold(strings.Join(m.Cast, " "), p.Search)
		if !hit {
			return false
		}
	}
	return true
}

func (s *MemoryMovieStore) List(_ context.Context, params MovieListParams) ([]*domain.Movie, int, error) {
	if !ValidMovieSort(params.Sort) {
		return nil, 0, ErrInvalidSort
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var matched []*domain.Movie
	for _, m := range s.db.movies {
		if movieMatches(m, params) {
			c := *m
			matched = append(matched, &c)
		}
	}

	dir := direction(params.Order)
	slices.SortFunc(matched, func(a, b *domain.Movie) int {
		var c int
		switch params.Sort {
		case MovieSortTitle:
			c = dir * cmp.Compare(a.Title, b.Title)
		case MovieSortReleaseDate:
			c = compareTimePtr(a.ReleaseDate, b.ReleaseDate, dir)
		case MovieSortAverageRating:
			c = dir * cmp.Compare(a.AverageRating, b.AverageRating)
		default:
			c = dir * cmp.Compare(a.Popularity, b.Popularity)
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return paginate(matched, params.Page), len(matched), nil
}

func (s *MemoryMovieStore) ranked(limit int, keep func(*domain.Movie) bool, less func(a, b *domain.Movie) int) []*domain.Movie {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	out := []*domain.Movie{}
	for _, m := range s.db.movies {
		if keep(m) {
			c := *m
			out = append(out, &c)
		}
	}
	slices.SortFunc(out, func(a, b *domain.Movie) int {
		if c := less(a, b); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *MemoryMovieStore) Trending(_ context.Context, limit int) ([]*domain.Movie, error) {
	return s.ranked(limit,
		func(*domain.Movie) bool { return true },
		func(a, b *domain.Movie) int {
			if c := cmp.Compare(b.Popularity, a.Popularity); c != 0 {
				return c
			}
			return cmp.Compare(b.AverageRating, a.AverageRating)
		}), nil
}

func (s *MemoryMovieStore) TopRated(_ context.Context, minReviews, limit int) ([]*domain.Movie, error) {
	return s.ranked(limit,
		func(m *domain.Movie) bool { return m.ReviewCount >= minReviews },
		func(a, b *domain.Movie) int {
			if c := cmp.Compare(b.AverageRating, a.AverageRating); c != 0 {
				return c
			}
			return cmp.Compare(b.ReviewCount, a.ReviewCount)
		}), nil
}

func (s *MemoryMovieStore) UpdateRating(_ context.Context, movieID string, agg domain.RatingAggregate) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	m, ok := s.db.movies[movieID]
	if !ok {
		return ErrMovieNotFound
	}
	m.AverageRating = agg.Average
	m.ReviewCount = agg.Count
	m.UpdatedAt = s.db.now()
	return nil
}

// ---- reviews ----

func (db *memoryDB) enrichReview(r *domain.Review) *domain.Review {
	c := *r
	if u, ok := db.users[r.UserID]; ok {
		c.Username = u.Username
	}
	if m, ok := db.movies[r.MovieID]; ok {
		c.MovieTitle = m.Title
		c.MoviePosterPath = m.PosterPath
	}
	return &c
}

func (s *MemoryReviewStore) Create(_ context.Context, review *domain.Review) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, existing := range s.db.reviews {
		if existing.UserID == review.UserID && existing.MovieID == review.MovieID {
			return ErrDuplicateReview
		}
	}
	now := s.db.now()
	review.CreatedAt, review.UpdatedAt = now, now
	c := *review
	s.db.reviews[review.ID] = &c
	return nil
}

func (s *MemoryReviewStore) GetByID(_ context.Context, reviewID string) (*domain.Review, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	r, ok := s.db.reviews[reviewID]
	if !ok {
		return nil, ErrReviewNotFound
	}
	return s.db.enrichReview(r), nil
}

func (s *MemoryReviewStore) GetByUserAndMovie(_ context.Context, userID, movieID string) (*domain.Review, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	for _, r := range s.db.reviews {
		if r.UserID == userID && r.MovieID == movieID {
			return s.db.enrichReview(r), nil
		}
	}
	return nil, ErrReviewNotFound
}

func (s *MemoryReviewStore) Update(_ context.Context, review *domain.Review) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	existing, ok := s.db.reviews[review.ID]
	if !ok {
		return ErrReviewNotFound
	}
	review.UpdatedAt = s.db.now()
	existing.Rating = review.Rating
	existing.Title = review.Title
	existing.ReviewText = review.ReviewText
	existing.ContainsSpoilers = review.ContainsSpoilers
	existing.Status = review.Status
	existing.LastEditedAt = review.LastEditedAt
	existing.UpdatedAt = review.UpdatedAt
	return nil
}

func (s *MemoryReviewStore) Delete(_ context.Context, reviewID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.reviews[reviewID]; !ok {
		return ErrReviewNotFound
	}
	delete(s.db.reviews, reviewID)
	delete(s.db.helpful, reviewID)
	return nil
}

func reviewMatches(r *domain.Review, p ReviewListParams) bool {
	switch {
	case p.Status != "" && r.Status != p.Status:
		return false
	case p.MovieID != "" && r.MovieID != p.MovieID:
		return false
	case p.UserID != "" && r.UserID != p.UserID:
		return false
	case p.MinRating != nil && r.Rating < *p.MinRating:
		return false
	case p.MaxRating != nil && r.Rating > *p.MaxRating:
		return false
	}
	return true
}

func (s *MemoryReviewStore) List(_ context.Context, params ReviewListParams) ([]*domain.Review, int, error) {
	if !ValidReviewSort(params.Sort) {
		return nil, 0, ErrInvalidSort
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var matched []*domain.Review
	for _, r := range s.db.reviews {
		if reviewMatches(r, params) {
			matched = append(matched, s.db.enrichReview(r))
		}
	}

	dir := direction(params.Order)
	slices.SortFunc(matched, func(a, b *domain.Review) int {
		var c int
		switch params.Sort {
		case ReviewSortRating:
			c = dir * cmp.Compare(a.Rating, b.Rating)
		case ReviewSortHelpfulVotes:
			c = dir * cmp.Compare(a.HelpfulVotes, b.HelpfulVotes)
		default:
			c = dir * a.CreatedAt.Compare(b.CreatedAt)
		}
		if c != 0 {
			return c
		}
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return paginate(matched, params.Page), len(matched), nil
}

func (s *MemoryReviewStore) RatingStats(_ context.Context, movieID string) (domain.RatingAggregate, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	var sum float64
	var n int
	for _, r := range s.db.reviews {
		if r.MovieID == movieID && r.Status == domain.ReviewApproved {
			sum += r.Rating
			n++
		}
	}
	if n == 0 {
		return domain.RatingAggregate{}, nil
	}
	return domain.RatingAggregate{Average: sum / float64(n), Count: n}, nil
}

func (s *MemoryReviewStore) ToggleHelpful(_ context.Context, reviewID, userID string) (domain.HelpfulVoteResult, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	r, ok := s.db.reviews[reviewID]
	if !ok {
		return domain.HelpfulVoteResult{}, ErrReviewNotFound
	}
	voters, ok := s.db.helpful[reviewID]
	if !ok {
		voters = make(map[string]struct{})
		s.db.helpful[reviewID] = voters
	}

	var res domain.HelpfulVoteResult
	if _, voted := voters[userID]; voted {
		delete(voters, userID)
		r.HelpfulVotes = max(r.HelpfulVotes-1, 0)
	} else {
		voters[userID] = struct{}{}
		r.HelpfulVotes++
		res.UserVoted = true
	}
	res.HelpfulVotes = r.HelpfulVotes
	return res, nil
}

func (s *MemoryReviewStore) CountByUser(_ context.Context, userID string, status domain.ReviewStatus) (int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	n := 0
	for _, r := range s.db.reviews {
		if r.UserID == userID && (status == "" || r.Status == status) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryReviewStore) TopReviewers(_ context.Context, limit int) ([]domain.ReviewerStats, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	byUser := make(map[string][]float64)
	for _, r := range s.db.reviews {
		if r.Status != domain.ReviewApproved {
			continue
		}
		if _, ok := s.db.users[r.UserID]; !ok {
			continue
		}
		byUser[r.UserID] = append(byUser[r.UserID], r.Rating)
	}

	stats := make([]domain.ReviewerStats, 0, len(byUser))
	for userID, ratings := range byUser {
		agg := rating.Aggregate(ratings)
		u := s.db.users[userID]
		stats = append(stats, domain.ReviewerStats{
			UserID:         userID,
			Username:       u.Username,
			ProfilePicture: u.ProfilePicture,
			ReviewCount:    agg.Count,
			AverageRating:  agg.Average,
		})
	}
	slices.SortFunc(stats, func(a, b domain.ReviewerStats) int {
		if c := cmp.Compare(b.ReviewCount, a.ReviewCount); c != 0 {
			return c
		}
		if c := cmp.Compare(b.AverageRating, a.AverageRating); c != 0 {
			return c
		}
		return cmp.Compare(a.UserID, b.UserID)
	})
	if len(stats) > limit {
		stats = stats[:limit]
	}
	return stats, nil
}

// ---- watchlist ----

func (db *memoryDB) enrichEntry(e *domain.WatchlistEntry) *domain.WatchlistEntry {
	c := *e
	if m, ok := db.movies[e.MovieID]; ok {
		c.Movie = m.Summary()
	}
	return &c
}

func (s *MemoryWatchlistStore) Create(_ context.Context, entry *domain.WatchlistEntry) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, existing := range s.db.watchlist {
		if existing.UserID == entry.UserID &&
			(existing.MovieID == entry.MovieID || existing.TMDBMovieID == entry.TMDBMovieID) {
			return ErrDuplicateWatchlistEntry
		}
	}
	now := s.db.now()
	entry.CreatedAt, entry.UpdatedAt = now, now
	if entry.Tags == nil {
		entry.Tags = pq.StringArray{}
	}
	c := *entry
	c.Movie = nil
	s.db.watchlist[entry.ID] = &c
	return nil
}

func (s *MemoryWatchlistStore) GetByID(_ context.Context, entryID string) (*domain.WatchlistEntry, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	e, ok := s.db.watchlist[entryID]
	if !ok {
		return nil, ErrWatchlistEntryNotFound
	}
	return s.db.enrichEntry(e), nil
}

func (s *MemoryWatchlistStore) find(match func(*domain.WatchlistEntry) bool) (*domain.WatchlistEntry, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	for _, e := range s.db.watchlist {
		if match(e) {
			return s.db.enrichEntry(e), nil
		}
	}
	return nil, ErrWatchlistEntryNotFound
}

func (s *MemoryWatchlistStore) GetByUserAndMovie(_ context.Context, userID, movieID string) (*domain.WatchlistEntry, error) {
	return s.find(func(e *domain.WatchlistEntry) bool { return e.UserID == userID && e.MovieID == movieID })
}

func (s *MemoryWatchlistStore) GetByUserAndTMDBID(_ context.Context, userID string, tmdbID int64) (*domain.WatchlistEntry, error) {
	return s.find(func(e *domain.WatchlistEntry) bool { return e.UserID == userID && e.TMDBMovieID == tmdbID })
}

func (s *MemoryWatchlistStore) Update(_ context.Context, entry *domain.WatchlistEntry) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	existing, ok := s.db.watchlist[entry.ID]
	if !ok {
		return ErrWatchlistEntryNotFound
	}
	entry.UpdatedAt = s.db.now()
	c := *entry
	c.Movie = nil
	c.UserID, c.MovieID, c.TMDBMovieID = existing.UserID, existing.MovieID, existing.TMDBMovieID
	c.DateAdded, c.CreatedAt = existing.DateAdded, existing.CreatedAt
	if c.Tags == nil {
		c.Tags = pq.StringArray{}
	}
	s.db.watchlist[entry.ID] = &c
	return nil
}

func (s *MemoryWatchlistStore) Delete(_ context.Context, entryID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.watchlist[entryID]; !ok {
		return ErrWatchlistEntryNotFound
	}
	delete(s.db.watchlist, entryID)
	return nil
}

func watchlistMatches(e *domain.WatchlistEntry, p WatchlistListParams) bool {
	switch {
	case e.UserID != p.UserID:
		return false
	case p.Status != "" && e.Status != p.Status:
		return false
	case p.Priority != "" && e.Priority != p.Priority:
		return false
	case p.PublicOnly && !e.IsPublic:
		return false
	}
	return true
}

func (s *MemoryWatchlistStore) List(_ context.Context, params WatchlistListParams) ([]*domain.WatchlistEntry, int, error) {
	if !ValidWatchlistSort(params.Sort) {
		return nil, 0, ErrInvalidSort
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var matched []*domain.WatchlistEntry
	for _, e := range s.db.watchlist {
		if watchlistMatches(e, params) {
			matched = append(matched, s.db.enrichEntry(e))
		}
	}

	dir := direction(params.Order)
	title := func(e *domain.WatchlistEntry) string {
		if e.Movie == nil {
			return ""
		}
		return e.Movie.Title
	}
	slices.SortFunc(matched, func(a, b *domain.WatchlistEntry) int {
		var c int
		switch params.Sort {
		case WatchlistSortPriority:
			c = dir * cmp.Compare(a.Priority.Rank(), b.Priority.Rank())
		case WatchlistSortTitle:
			c = dir * cmp.Compare(title(a), title(b))
		default:
			c = dir * a.DateAdded.Compare(b.DateAdded)
		}
		if c != 0 {
			return c
		}
		if c := b.DateAdded.Compare(a.DateAdded); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return paginate(matched, params.Page), len(matched), nil
}

func (s *MemoryWatchlistStore) StatusCounts(_ context.Context, userID string) (domain.WatchlistStats, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	counts := make(map[domain.WatchStatus]int)
	for _, e := range s.db.watchlist {
		if e.UserID == userID {
			counts[e.Status]++
		}
	}
	return statsFromCounts(counts), nil
}

func (s *MemoryWatchlistStore) Count(_ context.Context, userID string, publicOnly bool) (int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	n := 0
	for _, e := range s.db.watchlist {
		if e.UserID == userID && (!publicOnly || e.IsPublic) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryWatchlistStore) Popular(_ context.Context, limit int) ([]domain.MovieCount, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	counts := make(map[string]int)
	for _, e := range s.db.watchlist {
		if e.Status == domain.StatusWantToWatch {
			counts[e.MovieID]++
		}
	}
	out := make([]domain.MovieCount, 0, len(counts))
	for id, n := range counts {
		out = append(out, domain.MovieCount{MovieID: id, Count: n})
	}
	slices.SortFunc(out, func(a, b domain.MovieCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.MovieID, b.MovieID)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryWatchlistStore) DueReminders(_ context.Context, asOf time.Time) ([]*domain.WatchlistEntry, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	out := []*domain.WatchlistEntry{}
	for _, e := range s.db.watchlist {
		if !e.ReminderEnabled || e.ReminderDate == nil || e.ReminderDate.After(asOf) {
			continue
		}
		if e.Status != domain.StatusWantToWatch && e.Status != domain.StatusWatching {
			continue
		}
		out = append(out, s.db.enrichEntry(e))
	}
	slices.SortFunc(out, func(a, b *domain.WatchlistEntry) int {
		if c := a.ReminderDate.Compare(*b.ReminderDate); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// ---- users ----

func (s *MemoryUserStore) conflicts(user *domain.User) bool {
	for _, existing := range s.db.users {
		if existing.ID == user.ID {
			continue
		}
		if strings.EqualFold(existing.Email, user.Email) || strings.EqualFold(existing.Username, user.Username) {
			return true
		}
	}
	return false
}

func (s *MemoryUserStore) Create(_ context.Context, user *domain.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.conflicts(user) {
		return ErrUserAlreadyExists
	}
	now := s.db.now()
	user.JoinDate, user.UpdatedAt = now, now
	c := *user
	s.db.users[user.ID] = &c
	return nil
}

func (s *MemoryUserStore) GetByID(_ context.Context, userID string) (*domain.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	u, ok := s.db.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (s *MemoryUserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	for _, u := range s.db.users {
		if strings.EqualFold(u.Email, email) {
			c := *u
			return &c, nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *MemoryUserStore) Update(_ context.Context, user *domain.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	existing, ok := s.db.users[user.ID]
	if !ok {
		return ErrUserNotFound
	}
	if s.conflicts(user) {
		return ErrUserAlreadyExists
	}
	user.UpdatedAt = s.db.now()
	c := *user
	c.PasswordHash = existing.PasswordHash
	c.JoinDate = existing.JoinDate
	s.db.users[user.ID] = &c
	return nil
}

func (s *MemoryUserStore) Search(_ context.Context, params UserSearchParams) ([]*domain.User, int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	q := strings.TrimSpace(params.Query)
	var matched []*domain.User
	for _, u := range s.db.users {
		if !u.IsActive {
			continue
		}
		if q != "" && !containsFold(u.Username, q) && !containsFold(u.Email, q) {
			continue
		}
		c := *u
		matched = append(matched, &c)
	}
	slices.SortFunc(matched, func(a, b *domain.User) int {
		if c := b.JoinDate.Compare(a.JoinDate); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return paginate(matched, params.Page), len(matched), nil
}
