package api

import (
	"net/url"
	"strconv"
	"strings"

	"movie-app/internal/domain"
	"movie-app/internal/service"
)

// queryParser collects every malformed query parameter of one request.
type queryParser struct {
	q    url.Values
	errs []domain.FieldError
}

func newQueryParser(q url.Values) *queryParser {
	return &queryParser{q: q}
}

// positiveInt returns 0 when key is absent.
func (p *queryParser) positiveInt(key string) int {
	raw := strings.TrimSpace(p.q.Get(key))
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		p.errs = append(p.errs, domain.FieldError{Field: key, Message: "must be a positive integer"})
		return 0
	}
	return n
}

func (p *queryParser) float(key string) *float64 {
	raw := strings.TrimSpace(p.q.Get(key))
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.errs = append(p.errs, domain.FieldError{Field: key, Message: "must be a number"})
		return nil
	}
	return &f
}

func (p *queryParser) str(key string) string {
	return strings.TrimSpace(p.q.Get(key))
}

func (p *queryParser) listOptions() service.ListOptions {
	return service.ListOptions{
		Page:  p.positiveInt("page"),
		Limit: p.positiveInt("limit"),
		Sort:  p.str("sort"),
		Order: p.str("order"),
	}
}

func (p *queryParser) err() error {
	if len(p.errs) == 0 {
		return nil
	}
	return &domain.ValidationError{Errors: p.errs}
}

func pathInt64(raw string) (int64, bool) {
	n, err := strconv.ParseInt(raw, 10, 64)
	return n, err == nil && n > 0
}
