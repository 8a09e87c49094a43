package store

import (
	"fmt"
	"strings"
	"time"

	"movie-app/internal/domain"
)

// whereBuilder collects AND-ed conditions with numbered placeholders.
type whereBuilder struct {
	conds []string
	args  []interface{}
}

// arg registers v and returns its placeholder.
func (b *whereBuilder) arg(v interface{}) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *whereBuilder) add(cond string) {
	b.conds = append(b.conds, cond)
}

func (b *whereBuilder) clause() string {
	if len(b.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conds, " AND ")
}

// escapeLike escapes LIKE metacharacters so user input matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func containsPattern(s string) string {
	return "%" + escapeLike(s) + "%"
}

func orderClause(columns map[string]string, field string, order SortOrder, tiebreak string) (string, error) {
	col, ok := columns[field]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidSort, field)
	}
	dir := "DESC"
	if order == SortAsc {
		dir = "ASC"
	}
	nulls := ""
	if dir == "DESC" {
		nulls = " NULLS LAST"
	}
	return fmt.Sprintf(" ORDER BY %s %s%s, %s", col, dir, nulls, tiebreak), nil
}

func pageClause(b *whereBuilder, limit, offset int) string {
	return fmt.Sprintf(" LIMIT %s OFFSET %s", b.arg(limit), b.arg(offset))
}

// yearRange returns [Jan 1 of year, Jan 1 of year+1) in UTC.
func yearRange(year int) (time.Time, time.Time) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(1, 0, 0)
}

func movieFilter(p MovieListParams) *whereBuilder {
	b := &whereBuilder{}
	if p.Genre != "" {
		b.add(fmt.Sprintf("EXISTS (SELECT 1 FROM unnest(genres) AS g WHERE g ILIKE %s)", b.arg(containsPattern(p.Genre))))
	}
	if p.Year != 0 {
		from, to := yearRange(p.Year)
		b.add(fmt.Sprintf("release_date >= %s AND release_date < %s", b.arg(from), b.arg(to)))
	}
	if p.Search != "" {
		ph := b.arg(containsPattern(p.Search))
		b.add(fmt.Sprintf("(title ILIKE %[1]s OR original_title ILIKE %[1]s OR overview ILIKE %[1]s OR director ILIKE %[1]s OR array_to_string(cast_members, ' ') ILIKE %[1]s)", ph))
	}
	return b
}

// listQuery is a count query plus the matching page query. The page query's
// args extend the count args with LIMIT and OFFSET.
type listQuery struct {
	count     string
	countArgs []interface{}
	page      string
	pageArgs  []interface{}
}

func newListQuery(b *whereBuilder, countFrom, selectFrom, order string, page domain.Page) listQuery {
	where := b.clause()
	q := listQuery{
		count:     "SELECT COUNT(*) FROM " + countFrom + where,
		countArgs: append([]interface{}(nil), b.args...),
	}
	q.page = "SELECT " + selectFrom + where + order + pageClause(b, page.Size, page.Offset())
	q.pageArgs = b.args
	return q
}

func buildMovieListQuery(p MovieListParams) (listQuery, error) {
	order, err := orderClause(movieSortColumns, p.Sort, p.Order, "id")
	if err != nil {
		return listQuery{}, err
	}
	return newListQuery(movieFilter(p), "movies", movieColumns+" FROM movies", order, p.Page), nil
}

func reviewFilter(p ReviewListParams) *whereBuilder {
	b := &whereBuilder{}
	if p.Status != "" {
		b.add("r.status = " + b.arg(string(p.Status)))
	}
	if p.MovieID != "" {
		b.add("r.movie_id = " + b.arg(p.MovieID))
	}
	if p.UserID != "" {
		b.add("r.user_id = " + b.arg(p.UserID))
	}
	if p.MinRating != nil {
		b.add("r.rating >= " + b.arg(*p.MinRating))
	}
	if p.MaxRating != nil {
		b.add("r.rating <= " + b.arg(*p.MaxRating))
	}
	return b
}

func buildReviewListQuery(p ReviewListParams) (listQuery, error) {
	order, err := orderClause(reviewSortColumns, p.Sort, p.Order, "r.created_at DESC, r.id")
	if err != nil {
		return listQuery{}, err
	}
	return newListQuery(reviewFilter(p), "reviews r", reviewSelect, order, p.Page), nil
}

func watchlistFilter(p WatchlistListParams) *whereBuilder {
	b := &whereBuilder{}
	b.add("w.user_id = " + b.arg(p.UserID))
	if p.Status != "" {
		b.add("w.status = " + b.arg(string(p.Status)))
	}
	if p.Priority != "" {
		b.add("w.priority = " + b.arg(string(p.Priority)))
	}
	if p.PublicOnly {
		b.add("w.is_public = TRUE")
	}
	return b
}

func buildWatchlistListQuery(p WatchlistListParams) (listQuery, error) {
	order, err := orderClause(watchlistSortColumns, p.Sort, p.Order, "w.date_added DESC, w.id")
	if err != nil {
		return listQuery{}, err
	}
	return newListQuery(watchlistFilter(p), "watchlist_entries w", watchlistSelect, order, p.Page), nil
}
