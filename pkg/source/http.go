package source

import (
	"fmt"
	"io"
	"net/http"
)

// HTTPSource fetches pages from a remote server by substituting the page
// number into a URL pattern, e.g. "https://host/chapter/7/%d.png". Retry
// policy and authentication are the caller's concern; the client is used
// as given.
type HTTPSource struct {
	urlPattern string
	pageCount  int
	client     *http.Client
}

// NewHTTPSource creates a source of pageCount pages fetched from
// urlPattern, which must contain one %d verb for the page number.
func NewHTTPSource(urlPattern string, pageCount int, client *http.Client) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{
		urlPattern: urlPattern,
		pageCount:  pageCount,
		client:     client,
	}
}

func (s *HTTPSource) PageCount() int {
	return s.pageCount
}

func (s *HTTPSource) Fetch(page int) ([]byte, error) {
	if page < 1 || page > s.pageCount {
		return nil, fmt.Errorf("page number %d out of range (1-%d)", page, s.pageCount)
	}

	url := fmt.Sprintf(s.urlPattern, page)
	resp, err := s.client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: status %s", url, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}
	return data, nil
}

func (s *HTTPSource) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
