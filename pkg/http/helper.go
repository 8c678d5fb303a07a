package http

import (
	"net/http"
	"strconv"
	"time"

	"basecamp/pkg/config"
	apperrors "basecamp/pkg/errors"
)

const dateLayout = "2006-01-02"

func ExtractLimitOffset(r *http.Request) (int, int64, error) {
	query := r.URL.Query()

	limit := 0
	if s := query.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid limit parameter: " + s)
		}
		limit = v
	}

	var offset int64 = 0
	if s := query.Get("offset"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid offset parameter: " + s)
		}
		offset = v
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	return limit, offset, nil
}

// ExtractDate parses an optional ISO date query parameter (YYYY-MM-DD).
// Returns nil when the parameter is absent.
func ExtractDate(r *http.Request, name string) (*time.Time, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil
	}

	parsed, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid " + name + " parameter, must be YYYY-MM-DD: " + s)
	}

	return &parsed, nil
}
