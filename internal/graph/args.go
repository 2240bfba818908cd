package graph

import (
	"time"

	"github.com/geocoder89/fraghub/internal/apperr"
	"github.com/geocoder89/fraghub/internal/domain/post"
	"github.com/geocoder89/fraghub/internal/domain/user"
)

const dateOnly = "2006-01-02"

func stringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return s
}

func intArg(args map[string]interface{}, key string) int {
	n, _ := args[key].(int)
	return n
}

func inputArg(args map[string]interface{}, key string) map[string]interface{} {
	m, _ := args[key].(map[string]interface{})
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}

func optString(m map[string]interface{}, key string) *string {
	s, ok := m[key].(string)
	if !ok {
		return nil
	}
	return &s
}

func parseFilter(m map[string]interface{}) (post.Filter, error) {
	f := post.Filter{
		Title:      optString(m, "title"),
		AuthorName: optString(m, "authorName"),
		Order:      post.ParseSortOrder(stringArg(m, "sortOrder")),
		Page:       intArg(m, "page"),
		Limit:      intArg(m, "limit"),
	}

	// explicit zero is a bad page, absent means default
	if v, ok := m["page"].(int); ok && v == 0 {
		f.Page = -1
	}
	if v, ok := m["limit"].(int); ok && v == 0 {
		f.Limit = -1
	}

	var err error
	if f.StartDate, err = parseDate(m, "startDate"); err != nil {
		return post.Filter{}, err
	}
	if f.EndDate, err = parseDate(m, "endDate"); err != nil {
		return post.Filter{}, err
	}

	return f, nil
}

// parseDate accepts RFC 3339 timestamps and plain dates. A plain date is
// midnight UTC, so an endDate of 2024-01-01 stops at the start of that day.
func parseDate(m map[string]interface{}, key string) (*time.Time, error) {
	s, ok := m[key].(string)
	if !ok || s == "" {
		return nil, nil
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t = t.UTC()
		return &t, nil
	}

	t, err := time.Parse(dateOnly, s)
	if err != nil {
		return nil, apperr.InvalidInput("Invalid input: " + key + " must be a date (YYYY-MM-DD) or an RFC 3339 timestamp")
	}
	return &t, nil
}

func parseUpdate(m map[string]interface{}) user.UpdateRequest {
	req := user.UpdateRequest{
		Username: optString(m, "username"),
		Email:    optString(m, "email"),
		Password: optString(m, "password"),
	}
	if r := optString(m, "role"); r != nil {
		role := user.Role(*r)
		req.Role = &role
	}
	return req
}
