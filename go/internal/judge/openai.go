package judge

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const systemPrompt = `You are a Jeopardy judge. You must determine if answers are acceptable according to these rules:
- Spelling doesn't have to be exact but should be phonetically similar
- Articles (a, an, the) can be omitted or different
- For people's names, last names alone are usually acceptable
- Additional information beyond the correct answer is okay as long as it doesn't contradict the answer
Respond with exactly "true" if acceptable or "false" if not acceptable.`

var tracer = otel.Tracer("github.com/mcdev12/jeopardy/go/internal/judge")

// OpenAIConfig configures the chat-completion judge.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int64
	MaxRetries  int
}

// DefaultOpenAIConfig returns the model settings the judge was tuned with.
func DefaultOpenAIConfig(apiKey string) OpenAIConfig {
	return OpenAIConfig{
		APIKey:      apiKey,
		Model:       "gpt-4",
		Temperature: 0.3,
		MaxTokens:   3,
		MaxRetries:  2,
	}
}

// OpenAIJudge asks a chat model whether a candidate answer is acceptable.
type OpenAIJudge struct {
	client openai.Client
	cfg    OpenAIConfig
}

// NewOpenAIJudge creates a judge backed by the OpenAI chat completions API.
func NewOpenAIJudge(cfg OpenAIConfig) *OpenAIJudge {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIJudge{
		client: openai.NewClient(opts...),
		cfg:    cfg,
	}
}

// JudgeAnswer returns true only when the model answers exactly "true".
func (j *OpenAIJudge) JudgeAnswer(ctx context.Context, candidate, reference string) (bool, error) {
	ctx, span := tracer.Start(ctx, "judge.JudgeAnswer")
	defer span.End()
	span.SetAttributes(attribute.String("judge.model", j.cfg.Model))

	completion, err := j.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(fmt.Sprintf("Correct answer: %q\nParticipant's answer: %q", reference, candidate)),
		},
		Model:       openai.ChatModel(j.cfg.Model),
		Temperature: openai.Float(j.cfg.Temperature),
		MaxTokens:   openai.Int(j.cfg.MaxTokens),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat completion failed")
		return false, fmt.Errorf("failed to judge answer: %w", err)
	}
	if len(completion.Choices) == 0 {
		span.SetStatus(codes.Error, "no choices")
		return false, fmt.Errorf("failed to judge answer: empty completion")
	}

	raw := completion.Choices[0].Message.Content
	correct := strings.ToLower(strings.TrimSpace(raw)) == "true"
	span.SetAttributes(attribute.Bool("judge.correct", correct))

	log.Debug().
		Str("reference", reference).
		Str("candidate", candidate).
		Str("raw_response", raw).
		Bool("correct", correct).
		Msg("answer judged by model")
	return correct, nil
}
