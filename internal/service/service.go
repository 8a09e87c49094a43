// Package service implements the business operations behind the HTTP and gRPC surfaces.
package service

import (
	"errors"
	"slices"
	"strings"

	"movie-app/internal/domain"
	"movie-app/internal/store"
)

var (
	ErrForbidden          = errors.New("not authorized to modify this resource")
	ErrOwnReviewVote      = errors.New("cannot vote on your own review")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// ListOptions are the raw paging and sorting inputs of a listing. Zero values select
// the listing's defaults.
type ListOptions struct {
	Page  int
	Limit int
	Sort  string
	Order string
}

type listDefaults struct {
	sort   string
	limit  int
	fields []string
}

var (
	movieListDefaults = listDefaults{
		sort:   store.MovieSortPopularity,
		limit:  20,
		fields: []string{store.MovieSortTitle, store.MovieSortReleaseDate, store.MovieSortAverageRating, store.MovieSortPopularity},
	}
	reviewListDefaults = listDefaults{
		sort:   store.ReviewSortCreatedAt,
		limit:  10,
		fields: []string{store.ReviewSortCreatedAt, store.ReviewSortRating, store.ReviewSortHelpfulVotes},
	}
	watchlistListDefaults = listDefaults{
		sort:   store.WatchlistSortDateAdded,
		limit:  20,
		fields: []string{store.WatchlistSortDateAdded, store.WatchlistSortPriority, store.WatchlistSortTitle},
	}
	userListDefaults = listDefaults{limit: 20}
)

// resolve validates o against d. Limits above domain.MaxPageSize are clamped.
func (o ListOptions) resolve(d listDefaults) (domain.Page, string, store.SortOrder, error) {
	var fieldErrs []domain.FieldError

	page := o.Page
	switch {
	case page == 0:
		page = 1
	case page < 0:
		fieldErrs = append(fieldErrs, domain.FieldError{Field: "page", Message: "must be at least 1"})
	}

	limit := o.Limit
	switch {
	case limit == 0:
		limit = d.limit
	case limit < 0:
		fieldErrs = append(fieldErrs, domain.FieldError{Field: "limit", Message: "must be at least 1"})
	case limit > domain.MaxPageSize:
		limit = domain.MaxPageSize
	}

	sort := o.Sort
	if sort == "" {
		sort = d.sort
	} else if !slices.Contains(d.fields, sort) {
		fieldErrs = append(fieldErrs, domain.FieldError{
			Field:   "sort",
			Message: "must be one of: " + strings.Join(d.fields, ", "),
		})
	}

	order := store.SortDesc
	switch strings.ToLower(o.Order) {
	case "", "desc":
	case "asc":
		order = store.SortAsc
	default:
		fieldErrs = append(fieldErrs, domain.FieldError{Field: "order", Message: "must be one of: asc, desc"})
	}

	if len(fieldErrs) > 0 {
		return domain.Page{}, "", "", &domain.ValidationError{Errors: fieldErrs}
	}
	return domain.Page{Number: page, Size: limit}, sort, order, nil
}

// Paged is one page of a listing.
type Paged[T any] struct {
	Items      []T
	Pagination domain.Pagination
}

func newPaged[T any](items []T, page domain.Page, total int) Paged[T] {
	if items == nil {
		items = []T{}
	}
	return Paged[T]{Items: items, Pagination: domain.NewPagination(page.Number, page.Size, total)}
}

// rankLimit applies the default and cap of the ranked, unpaginated listings.
func rankLimit(limit, def int) (int, error) {
	switch {
	case limit == 0:
		return def, nil
	case limit < 0:
		return 0, domain.NewValidationError("limit", "must be at least 1")
	case limit > domain.MaxPageSize:
		return domain.MaxPageSize, nil
	}
	return limit, nil
}

func trimmedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
