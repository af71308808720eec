package lists

import (
	"net/url"
	"strconv"
)

// DefaultPageSize is the number of contacts requested per page when the
// caller does not specify one. It matches HubSpot's own default.
const DefaultPageSize = 20

// RequestOptions controls pagination of a list fetch.
type RequestOptions struct {
	// PageSize is sent as the count query parameter. Zero means the client default.
	PageSize int

	// Offset is the vidOffset cursor returned by a previous page.
	// Nil starts from the beginning; a zero value is sent as-is.
	Offset *int64
}

// Offset returns a pointer to v for use in RequestOptions.Offset.
func Offset(v int64) *int64 {
	return &v
}

// withDefaults returns a copy of opts with the page size defaulted.
func (o *RequestOptions) withDefaults(pageSize int) RequestOptions {
	if o == nil {
		return RequestOptions{PageSize: pageSize}
	}
	out := *o
	if out.PageSize <= 0 {
		out.PageSize = pageSize
	}
	return out
}

// query encodes the options as HubSpot query parameters.
func (o RequestOptions) query() url.Values {
	q := url.Values{}
	q.Set("count", strconv.Itoa(o.PageSize))
	if o.Offset != nil {
		q.Set("vidOffset", strconv.FormatInt(*o.Offset, 10))
	}
	return q
}
