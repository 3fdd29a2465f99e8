// Package upload publishes a finished artifact to YouTube. It is an
// optional post-step: the assembly pipeline never depends on it.
package upload

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"shortreel/config"
)

// Uploader pushes a video with minimal metadata via the Data API v3.
type Uploader struct {
	cfg config.UploadConfig
}

func New(cfg *config.Config) *Uploader {
	return &Uploader{cfg: cfg.Upload}
}

// Run uploads the artifact bytes and returns the video ID and watch URL.
func (u *Uploader) Run(ctx context.Context, data []byte, title string) (string, string, error) {
	log.Println("[upload] authenticating with YouTube API...")

	client, err := u.oauthClient(ctx)
	if err != nil {
		return "", "", fmt.Errorf("youtube auth: %w", err)
	}

	svc, err := youtube.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return "", "", fmt.Errorf("youtube service: %w", err)
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:      title,
			CategoryId: u.cfg.CategoryID,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: u.cfg.Visibility,
		},
	}

	log.Printf("[upload] uploading %q (%.1f MB)", title, float64(len(data))/1024/1024)

	call := svc.Videos.Insert([]string{"snippet", "status"}, video)
	call.Media(bytes.NewReader(data))

	uploaded, err := call.Do()
	if err != nil {
		return "", "", fmt.Errorf("youtube upload: %w", err)
	}

	url := fmt.Sprintf("https://www.youtube.com/watch?v=%s", uploaded.Id)
	log.Printf("[upload] ✅ uploaded: %s", url)
	return uploaded.Id, url, nil
}

func (u *Uploader) oauthClient(ctx context.Context) (*http.Client, error) {
	clientID := os.Getenv("YOUTUBE_CLIENT_ID")
	clientSecret := os.Getenv("YOUTUBE_CLIENT_SECRET")
	refreshToken := os.Getenv("YOUTUBE_REFRESH_TOKEN")

	if clientID == "" || clientSecret == "" || refreshToken == "" {
		return nil, fmt.Errorf("YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET, or YOUTUBE_REFRESH_TOKEN not set")
	}

	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope},
	}

	token := &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Now().Add(-time.Hour), // force refresh
	}

	return conf.Client(ctx, token), nil
}
