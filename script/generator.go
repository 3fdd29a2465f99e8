package script

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"shortreel/config"
	"shortreel/types"
)

// scriptResponse is the structured output the model must return
type scriptResponse struct {
	Segments []segmentResponse `json:"segments" jsonschema_description:"Ordered narration segments for the video. 3-8 segments."`
}

type segmentResponse struct {
	Text        string `json:"text" jsonschema_description:"The exact narration to be spoken, 1-2 sentences."`
	ImagePrompt string `json:"image_prompt" jsonschema_description:"A short stock-photo search query matching the narration."`
}

// GenerateSchema generates a JSON schema for structured outputs
func GenerateSchema[T any]() interface{} {
	// Structured Outputs uses a subset of JSON schema
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	return schema
}

var scriptResponseSchema = GenerateSchema[scriptResponse]()

// Generator turns a topic into an ordered list of narration segments via the
// external script-generation service.
type Generator struct {
	client openai.Client
	cfg    config.ScriptConfig
}

// New creates a Generator. The API key comes from OPENAI_API_KEY; extra
// request options (for example a custom base URL) are appended after it.
func New(cfg *config.Config, opts ...option.RequestOption) (*Generator, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}
	allOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Generator{
		client: openai.NewClient(allOpts...),
		cfg:    cfg.Script,
	}, nil
}

// Generate produces the segment list for a topic. An empty or malformed
// response is fatal to the run.
func (g *Generator) Generate(ctx context.Context, topic string) ([]types.Segment, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("empty topic")
	}

	log.Printf("[script] generating script for topic %q...", topic)

	prompt := fmt.Sprintf(`You are a scriptwriter for short vertical videos (reels/shorts).
Write a narration script about: %q.

Split the narration into at most %d segments. Each segment is 1-2 spoken
sentences and gets one background image. For every segment also write a
short, concrete image search query (2-5 words) that matches what is being
said.

Respond in JSON with an ordered "segments" array.`, topic, g.cfg.MaxSegments)

	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "video_script",
		Description: openai.String("Narration segments with image search queries"),
		Schema:      scriptResponseSchema,
		Strict:      openai.Bool(true),
	}

	chatCompletion, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model:       openai.ChatModel(g.cfg.Model),
		Temperature: openai.Float(g.cfg.Temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: schemaParam,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("script API error: %w", err)
	}

	if len(chatCompletion.Choices) == 0 {
		return nil, fmt.Errorf("script service returned no choices")
	}

	raw := chatCompletion.Choices[0].Message.Content
	if raw == "" {
		return nil, fmt.Errorf("script service returned empty content")
	}

	var parsed scriptResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parse script JSON: %w", err)
	}

	segments, err := toSegments(parsed)
	if err != nil {
		return nil, err
	}

	log.Printf("[script] ✅ script ready: %d segments", len(segments))
	return segments, nil
}

func toSegments(parsed scriptResponse) ([]types.Segment, error) {
	if len(parsed.Segments) == 0 {
		return nil, fmt.Errorf("script contains no segments")
	}

	segments := make([]types.Segment, 0, len(parsed.Segments))
	for i, s := range parsed.Segments {
		seg := types.Segment{
			Index:       i,
			Text:        strings.TrimSpace(s.Text),
			ImagePrompt: strings.TrimSpace(s.ImagePrompt),
		}
		if err := seg.Validate(); err != nil {
			return nil, fmt.Errorf("malformed script: %w", err)
		}
		segments = append(segments, seg)
	}
	return segments, nil
}
