package validators

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// ParsePagination reads ?page and ?limit. Non-numeric values are a
// validation error; numbers outside the allowed range are clamped.
func ParsePagination(r *http.Request) (pagination.Params, error) {
	query := r.URL.Query()
	page, err := queryInt(query, "page", pagination.DefaultPage)
	if err != nil {
		return pagination.Params{}, err
	}
	limit, err := queryInt(query, "limit", pagination.DefaultLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Page: page, Limit: limit}.Normalize(), nil
}

func queryInt(query url.Values, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(query.Get(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "%s must be a whole number", key).
			WithDetails(map[string]any{"field": key, "value": raw})
	}
	return int(value), nil
}

// ParseUUIDParam validates a path identifier; field names the parameter in
// the error.
func ParseUUIDParam(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid %s", field)
	}
	return id, nil
}

// ParseOptionalBool reads a true/false query value. An absent key yields nil.
func ParseOptionalBool(query url.Values, key string) (*bool, error) {
	raw := strings.TrimSpace(query.Get(key))
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "%s must be true or false", key).
			WithDetails(map[string]any{"field": key, "value": raw})
	}
	return &value, nil
}
