package source

import (
	"context"
	"fmt"
	"image"
	"net/http"
	"strings"
	"time"
)

// HTTPSource fetches {baseURL}/{NNNN}.{ext}, the layout a static site
// serves its frame sequence with.
type HTTPSource struct {
	BaseURL string
	Ext     string
	Start   int
	N       int
	Client  *http.Client
}

func NewHTTPSource(baseURL, ext string, start, count int) *HTTPSource {
	if start <= 0 {
		start = 1
	}
	return &HTTPSource{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Ext:     ext,
		Start:   start,
		N:       count,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *HTTPSource) Count() int {
	return s.N
}

func (s *HTTPSource) Name(i int) string {
	return s.BaseURL + "/" + FrameName(s.Start+i, s.Ext)
}

func (s *HTTPSource) Frame(ctx context.Context, i int) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.Name(i), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", s.Name(i), resp.Status)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.Name(i), err)
	}
	return img, nil
}

func (s *HTTPSource) Close() error {
	s.Client.CloseIdleConnections()
	return nil
}
