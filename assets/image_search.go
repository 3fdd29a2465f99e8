package assets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"shortreel/config"
)

// ImageSource resolves an image prompt to a concrete image: its URL and the
// downloaded bytes.
type ImageSource interface {
	Fetch(ctx context.Context, query string) (string, []byte, error)
}

// ImageSearcher queries a stock-photo search API and downloads the first
// ranked hit. When the search returns no results it falls back to a
// configured placeholder image instead of failing the run.
type ImageSearcher struct {
	httpClient  *http.Client
	endpoint    string
	apiKey      string
	fallbackURL string
}

// NewImageSearcher creates a searcher from config. The API key comes from
// the IMAGE_SEARCH_API_KEY env var.
func NewImageSearcher(cfg *config.Config) *ImageSearcher {
	return &ImageSearcher{
		httpClient:  &http.Client{Timeout: time.Duration(cfg.Assets.RequestTimeoutSec) * time.Second},
		endpoint:    cfg.Assets.ImageSearchURL,
		apiKey:      os.Getenv("IMAGE_SEARCH_API_KEY"),
		fallbackURL: cfg.Assets.FallbackImageURL,
	}
}

type searchResponse struct {
	Photos []struct {
		Src struct {
			Portrait string `json:"portrait"`
			Large    string `json:"large"`
		} `json:"src"`
	} `json:"photos"`
}

// Fetch resolves query to an image URL and downloads it. A search with zero
// hits is degraded to the fallback image; a failed request or download is an
// error.
func (s *ImageSearcher) Fetch(ctx context.Context, query string) (string, []byte, error) {
	imageURL, err := s.search(ctx, query)
	if err != nil {
		return "", nil, err
	}
	data, err := s.download(ctx, imageURL)
	if err != nil {
		return "", nil, err
	}
	return imageURL, data, nil
}

func (s *ImageSearcher) search(ctx context.Context, query string) (string, error) {
	u := fmt.Sprintf("%s?query=%s&per_page=3&orientation=portrait", s.endpoint, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("image search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image search HTTP %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("parse image search response: %w", err)
	}

	if len(parsed.Photos) == 0 {
		log.Printf("[assets] no image results for %q, using fallback image", query)
		return s.fallbackURL, nil
	}

	first := parsed.Photos[0].Src
	if first.Portrait != "" {
		return first.Portrait, nil
	}
	return first.Large, nil
}

func (s *ImageSearcher) download(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", imageURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image download HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	// A tiny body is an error page, not an image
	if len(data) < 100 {
		return nil, fmt.Errorf("image response too small (%d bytes)", len(data))
	}
	return data, nil
}
