package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"

	"github.com/aaronzipp/werewolf-gm/internal/dispatch"
	"github.com/aaronzipp/werewolf-gm/internal/llm"
	"github.com/aaronzipp/werewolf-gm/internal/models"
)

// Interpreter maps one moderator utterance to at most one command. When no
// command applies, reply carries the model's direct answer.
type Interpreter interface {
	Interpret(ctx context.Context, history []models.ChatMessage, utterance, code string) (cmd *dispatch.Command, reply string, err error)
}

// maxHistory bounds how many past turns are replayed to the model
const maxHistory = 20

// OpenAIInterpreter resolves utterances with function calling against the
// command catalog
type OpenAIInterpreter struct {
	client openai.Client
	model  string
	tools  []openai.ChatCompletionToolParam
	logger *slog.Logger
}

// NewOpenAIInterpreter creates an interpreter for cfg
func NewOpenAIInterpreter(cfg llm.Config, logger *slog.Logger) *OpenAIInterpreter {
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAIInterpreter{
		client: llm.NewClient(cfg),
		model:  cfg.ModelName(),
		tools:  toolParams(),
		logger: logger,
	}
}

func toolParams() []openai.ChatCompletionToolParam {
	tools := make([]openai.ChatCompletionToolParam, len(dispatch.Catalog))
	for i, spec := range dispatch.Catalog {
		tools[i] = openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        spec.Name,
				Description: openai.String(spec.Description),
				Parameters:  openai.FunctionParameters(spec.JSONSchema()),
			},
		}
	}
	return tools
}

func systemPrompt(code string) string {
	var b strings.Builder
	b.WriteString("You are the game master of a Werewolf game run by a human moderator. ")
	b.WriteString("Translate the moderator's request into exactly one tool call when an action is asked for. ")
	b.WriteString("Never invent player names and never reveal roles yourself. ")
	b.WriteString("During the night prefer runNightSequence to learn who acts next. ")
	if code == "" {
		b.WriteString("No session is bound yet: the moderator must create or join one first.")
	} else {
		b.WriteString("The bound session code is ")
		b.WriteString(code)
		b.WriteString(".")
	}
	return b.String()
}

// Interpret sends the conversation and tool catalog to the model
func (in *OpenAIInterpreter) Interpret(ctx context.Context, history []models.ChatMessage, utterance, code string) (*dispatch.Command, string, error) {
	msgs := []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(systemPrompt(code))}
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	for _, m := range history {
		switch m.Role {
		case models.ChatUser:
			msgs = append(msgs, openai.UserMessage(m.Content))
		case models.ChatAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		}
	}
	msgs = append(msgs, openai.UserMessage(utterance))

	resp, err := in.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(in.model),
		Messages:    msgs,
		Tools:       in.tools,
		Temperature: openai.Float(0),
	})
	if err != nil {
		return nil, "", fmt.Errorf("interpret utterance: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, "", fmt.Errorf("interpret utterance: no choices returned")
	}

	msg := resp.Choices[0].Message
	if len(msg.ToolCalls) == 0 {
		return nil, strings.TrimSpace(msg.Content), nil
	}
	if len(msg.ToolCalls) > 1 {
		in.logger.Debug("model proposed several tool calls, keeping the first", "count", len(msg.ToolCalls))
	}
	call := msg.ToolCalls[0]
	args, err := dispatch.DecodeArgs(call.Function.Arguments)
	if err != nil {
		return nil, "", fmt.Errorf("tool call %s: %w", call.Function.Name, err)
	}
	return &dispatch.Command{Name: call.Function.Name, Args: args}, strings.TrimSpace(msg.Content), nil
}
