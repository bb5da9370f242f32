package speech

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrDisabled is returned by Silent.
var ErrDisabled = errors.New("speech synthesis disabled")

var tracer = otel.Tracer("github.com/mcdev12/jeopardy/go/internal/speech")

// Config selects the synthesis model and voice.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Voice      string
	MaxRetries int
}

// DefaultConfig returns the host voice settings.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:     apiKey,
		Model:      "tts-1",
		Voice:      "onyx",
		MaxRetries: 1,
	}
}

// OpenAISpeaker synthesizes host lines with the OpenAI speech endpoint.
type OpenAISpeaker struct {
	client openai.Client
	cfg    Config
}

func NewOpenAISpeaker(cfg Config) *OpenAISpeaker {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAISpeaker{client: openai.NewClient(opts...), cfg: cfg}
}

// Speak returns the encoded audio for text.
func (s *OpenAISpeaker) Speak(ctx context.Context, text string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "speech.Speak")
	defer span.End()
	span.SetAttributes(
		attribute.String("speech.voice", s.cfg.Voice),
		attribute.Int("speech.chars", len(text)),
	)

	resp, err := s.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model: openai.SpeechModel(s.cfg.Model),
		Voice: openai.AudioSpeechNewParamsVoice(s.cfg.Voice),
		Input: text,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "synthesis failed")
		return nil, fmt.Errorf("failed to synthesize speech: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read speech audio: %w", err)
	}
	span.SetAttributes(attribute.Int("speech.bytes", len(audio)))
	return audio, nil
}

// Silent never produces audio. Cues still carry their text.
type Silent struct{}

func (Silent) Speak(context.Context, string) ([]byte, error) { return nil, ErrDisabled }
