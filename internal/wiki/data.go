package wiki

import (
	"net/url"
	"strconv"
)

// DefaultEndpoint is the English Wikipedia API.
const DefaultEndpoint = "https://en.wikipedia.org/w/api.php"

// QueryParam describes the prefix query sent for every term.
type QueryParam struct {
	endpoint  url.URL
	userAgent string
	limit     int
	thumbSize int
}

func NewQueryParam(endpoint url.URL, userAgent string, limit int, thumbSize int) QueryParam {
	return QueryParam{
		endpoint:  endpoint,
		userAgent: userAgent,
		limit:     limit,
		thumbSize: thumbSize,
	}
}

func (q QueryParam) Endpoint() url.URL {
	return q.endpoint
}

func (q QueryParam) UserAgent() string {
	return q.userAgent
}

// BuildURL returns the allpages prefix query for term, asking for page
// info (full URL) and page images (thumbnail) of every match.
// term is sent verbatim; encoding is left to url.Values.
func (q QueryParam) BuildURL(term string) url.URL {
	u := q.endpoint
	values := url.Values{}
	values.Set("action", "query")
	values.Set("format", "json")
	values.Set("prop", "pageimages|info")
	values.Set("piprop", "thumbnail")
	values.Set("inprop", "url")
	values.Set("pilimit", strconv.Itoa(q.limit))
	values.Set("pithumbsize", strconv.Itoa(q.thumbSize))
	values.Set("generator", "allpages")
	values.Set("gaplimit", strconv.Itoa(q.limit))
	values.Set("gapprefix", term)
	u.RawQuery = values.Encode()
	return u
}

// response is a raw HTTP answer from the API.
type response struct {
	statusCode int
	body       []byte
}
