package github

import (
	"fmt"
	"strings"

	"github.com/jonwraymond/reposcore/vcs"
)

// Paging limits of the search API. Only the first 1000 results of a query
// are reachable.
const (
	DefaultPerPage = 20
	MaxPerPage     = 100
	MaxResults     = 1000

	DefaultSort  = "stars"
	DefaultOrder = "desc"
)

var (
	allowedSorts  = []string{"stars", "forks", "help-wanted-issues", "updated"}
	allowedOrders = []string{"asc", "desc"}
)

// searchPayload is the canonical upstream request. It is both the query
// string and the raw cache key payload.
type searchPayload struct {
	Q       string `json:"q"`
	PerPage int    `json:"per_page"`
	Page    int    `json:"page"`
	Sort    string `json:"sort"`
	Order   string `json:"order"`
}

func (p searchPayload) query() map[string]any {
	return map[string]any{
		"q":        p.Q,
		"per_page": p.PerPage,
		"page":     p.Page,
		"sort":     p.Sort,
		"order":    p.Order,
	}
}

// BuildQuery renders params as a GitHub search query: qualifiers joined by
// spaces, created first. An empty query becomes stars:>0 so the API always
// receives a valid q.
func BuildQuery(params vcs.SearchParams) string {
	var parts []string
	if params.CreatedFrom != "" {
		parts = append(parts, "created:>="+params.CreatedFrom)
	}
	if params.Language != "" {
		parts = append(parts, "language:"+params.Language)
	}
	if len(parts) == 0 {
		return "stars:>0"
	}
	return strings.Join(parts, " ")
}

// ClampPaging applies the default page size, clamps it to [1, MaxPerPage],
// and clamps page to [1, max(1, MaxResults/perPage)].
func ClampPaging(perPage, page int) (int, int) {
	if perPage == 0 {
		perPage = DefaultPerPage
	}
	perPage = min(max(perPage, 1), MaxPerPage)
	maxPage := max(1, MaxResults/perPage)
	page = min(max(page, 1), maxPage)
	return perPage, page
}

// buildPayload validates params and produces the canonical request.
func buildPayload(params vcs.SearchParams) (searchPayload, error) {
	q := BuildQuery(params)
	if err := vcs.ValidateQuery(q); err != nil {
		return searchPayload{}, err
	}

	sort, err := oneOf(params.Sort, DefaultSort, allowedSorts, vcs.CodeInvalidSort, "sort")
	if err != nil {
		return searchPayload{}, err
	}
	order, err := oneOf(params.Order, DefaultOrder, allowedOrders, vcs.CodeInvalidOrder, "order")
	if err != nil {
		return searchPayload{}, err
	}

	perPage, page := ClampPaging(params.PerPage, params.Page)
	return searchPayload{Q: q, PerPage: perPage, Page: page, Sort: sort, Order: order}, nil
}

func oneOf(v, def string, allowed []string, code, field string) (string, error) {
	if v == "" {
		return def, nil
	}
	for _, a := range allowed {
		if v == a {
			return v, nil
		}
	}
	return "", &vcs.BadRequestError{
		Code:    code,
		Message: fmt.Sprintf("%s must be one of %s", field, strings.Join(allowed, ", ")),
		Details: map[string]any{field: v, "allowed": allowed},
	}
}
