package narration

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/openai/openai-go"

	"github.com/aaronzipp/werewolf-gm/internal/llm"
)

const systemPrompt = "You are the game master of a Werewolf game. Narrate events with suspense, " +
	"stay short and clear. Give the players instructions for the current phase " +
	"without revealing secrets unless the phase requires it."

var errEmptyReply = errors.New("empty narration from model")

// OpenAINarrator narrates through an OpenAI-compatible chat model and falls
// back to Template when the model cannot be reached
type OpenAINarrator struct {
	client   openai.Client
	model    string
	logger   *slog.Logger
	fallback Narrator

	maxTries     uint
	retryInitial time.Duration
}

// NewOpenAI creates a narrator for cfg
func NewOpenAI(cfg llm.Config, logger *slog.Logger) *OpenAINarrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAINarrator{
		client:       llm.NewClient(cfg),
		model:        cfg.ModelName(),
		logger:       logger,
		fallback:     Template{},
		maxTries:     3,
		retryInitial: 2 * time.Second,
	}
}

// New returns the OpenAI narrator when cfg has a key, otherwise Template
func New(cfg llm.Config, logger *slog.Logger) Narrator {
	if !cfg.Enabled() {
		return Template{}
	}
	return NewOpenAI(cfg, logger)
}

// Narrate asks the model for narration, retrying with exponential backoff
func (n *OpenAINarrator) Narrate(ctx context.Context, snap Snapshot) string {
	if !snap.Active {
		return n.fallback.Narrate(ctx, snap)
	}
	prompt := Prompt(snap)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = n.retryInitial
	text, err := backoff.Retry(ctx, func() (string, error) {
		resp, err := n.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: openai.ChatModel(n.model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(systemPrompt),
				openai.UserMessage(prompt),
			},
			Temperature:         openai.Float(0.7),
			MaxCompletionTokens: openai.Int(300),
		})
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
			return "", errEmptyReply
		}
		return strings.TrimSpace(resp.Choices[0].Message.Content), nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(n.maxTries))
	if err != nil {
		n.logger.Warn("narration model unavailable, using template", "code", snap.Code, "error", err)
		return n.fallback.Narrate(ctx, snap)
	}
	return text
}
