package assets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"shortreel/config"
)

// SpeechSource synthesizes narration text into raw audio bytes. The response
// carries no duration metadata; the resolver probes the payload itself.
type SpeechSource interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// SpeechClient calls an OpenAI-compatible text-to-speech endpoint and
// returns the MP3 payload verbatim.
type SpeechClient struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	voice      string
}

// NewSpeechClient creates a client from config. The API key comes from the
// SPEECH_API_KEY env var, falling back to OPENAI_API_KEY.
func NewSpeechClient(cfg *config.Config) *SpeechClient {
	key := os.Getenv("SPEECH_API_KEY")
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}
	return &SpeechClient{
		httpClient: &http.Client{Timeout: time.Duration(cfg.Assets.RequestTimeoutSec) * time.Second},
		endpoint:   cfg.Assets.SpeechURL,
		apiKey:     key,
		voice:      cfg.Assets.Voice,
	}
}

type speechRequest struct {
	Model  string `json:"model"`
	Input  string `json:"input"`
	Voice  string `json:"voice"`
	Format string `json:"response_format"`
}

// Synthesize turns text into MP3 bytes.
func (c *SpeechClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	body, err := json.Marshal(speechRequest{
		Model:  "tts-1",
		Input:  text,
		Voice:  c.voice,
		Format: "mp3",
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("speech HTTP %d: %s", resp.StatusCode, msg)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("speech endpoint returned empty audio")
	}
	return data, nil
}
