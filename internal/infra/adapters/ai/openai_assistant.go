package ai

import (
	"context"
	"errors"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/pkoukk/tiktoken-go"

	"drug-shortage-assistant/internal/domain"
	"drug-shortage-assistant/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.TextGenerator = (*OpenAIAssistant)(nil)

// OpenAIAssistant implements adapter.TextGenerator on OpenAI chat
// completions. The assistant-thread conversation model is normalized away:
// history is carried explicitly on every call, so the worker and the chat
// use case never see threads or run polling.
type OpenAIAssistant struct {
	client openai.Client
	model  string
}

func NewOpenAIAssistant(apiKey, model string) (*OpenAIAssistant, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIAssistant{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

func (o *OpenAIAssistant) Name() string { return "openai-assistant" }

func (o *OpenAIAssistant) Generate(ctx context.Context, history []adapter.Message, prompt string) (string, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	for _, m := range history {
		switch m.Role {
		case "assistant":
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		case "system":
			msgs = append(msgs, openai.SystemMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}
	msgs = append(msgs, openai.UserMessage(prompt))

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: msgs,
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &BackendError{Backend: o.Name(), Status: apiErr.StatusCode, Err: err}
		}
		return "", &BackendError{Backend: o.Name(), Err: err}
	}
	for _, c := range resp.Choices {
		if c.Message.Content != "" {
			return c.Message.Content, nil
		}
	}
	return "", domain.ErrEmptyCompletion
}

// CountTokens uses tiktoken locally; falls back to cl100k_base for models the
// library doesn't know.
func (o *OpenAIAssistant) CountTokens(ctx context.Context, messages []adapter.Message) (int, error) {
	enc, err := tiktoken.EncodingForModel(o.model)
	if err != nil {
		if enc, err = tiktoken.GetEncoding("cl100k_base"); err != nil {
			return 0, err
		}
	}
	total := 0
	for _, m := range messages {
		total += len(enc.Encode(m.Content, nil, nil))
	}
	return total, nil
}
