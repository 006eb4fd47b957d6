package wiki

import (
	"sort"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/rohmanhakim/wikisearch/internal/search"
)

type apiResponse struct {
	Query *apiQuery `json:"query"`
}

type apiQuery struct {
	Pages map[string]json.RawMessage `json:"pages"`
}

type apiPage struct {
	PageID    int64         `json:"pageid"`
	Title     string        `json:"title"`
	FullURL   string        `json:"fullurl"`
	Thumbnail *apiThumbnail `json:"thumbnail"`
}

type apiThumbnail struct {
	Source string `json:"source"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// skippedPage records a query.pages entry that could not be used.
type skippedPage struct {
	key    string
	reason string
}

// parseResults turns an API body into a result list.
//
// A body without query or query.pages is a valid empty answer (no page
// matched the prefix). A body that is not JSON is an error. Entries of
// query.pages that do not decode are skipped and reported back; a page
// without a title is kept with an empty one.
func parseResults(body []byte) (*search.ResultList, []skippedPage, *WikiError) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, nil, &WikiError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseMalformedResponse,
		}
	}
	if resp.Query == nil || len(resp.Query.Pages) == 0 {
		return search.NewResultList(), nil, nil
	}

	pages := make([]search.Page, 0, len(resp.Query.Pages))
	var skipped []skippedPage
	for key, raw := range resp.Query.Pages {
		var p apiPage
		if err := json.Unmarshal(raw, &p); err != nil {
			skipped = append(skipped, skippedPage{key: key, reason: err.Error()})
			continue
		}
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			id = p.PageID
		}
		page := search.Page{
			ID:    id,
			Title: p.Title,
			URL:   p.FullURL,
		}
		if p.Thumbnail != nil {
			page.ThumbnailURL = p.Thumbnail.Source
		}
		pages = append(pages, page)
	}

	sort.Slice(pages, func(i, j int) bool {
		if pages[i].Title != pages[j].Title {
			return pages[i].Title < pages[j].Title
		}
		return pages[i].ID < pages[j].ID
	})
	sort.Slice(skipped, func(i, j int) bool {
		return skipped[i].key < skipped[j].key
	})

	return search.NewResultList(pages...), skipped, nil
}
