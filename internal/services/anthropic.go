package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jwebster45206/anima-narrator/pkg/chat"
)

const (
	anthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"

	DefaultAnthropicModel       = "claude-sonnet-4-5"
	DefaultAnthropicTemperature = 0.8
	DefaultAnthropicMaxTokens   = 2048

	// jsonPrefill opens the assistant turn so the model continues a JSON object.
	jsonPrefill = "{"
)

// AnthropicService narrates through the Anthropic Messages API.
type AnthropicService struct {
	apiKey     string
	modelName  string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type AnthropicChatRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type AnthropicChatResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func NewAnthropicService(apiKey string, modelName string, logger *slog.Logger) *AnthropicService {
	if modelName == "" {
		modelName = DefaultAnthropicModel
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &AnthropicService{
		apiKey:     apiKey,
		modelName:  modelName,
		baseURL:    anthropicBaseURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		logger:     logger,
	}
}

// InitModel is a no-op; hosted models need no warm-up.
func (a *AnthropicService) InitModel(ctx context.Context, modelName string) error {
	return nil
}

// toAnthropic moves system prompts into the top-level system field and folds
// consecutive same-role turns, since the Messages API wants strict
// user/assistant alternation starting with the player.
func toAnthropic(messages []chat.ChatMessage) (string, []anthropicMessage) {
	var system []string
	var turns []anthropicMessage
	for _, m := range messages {
		if m.Role == chat.ChatRoleSystem {
			system = append(system, m.Content)
			continue
		}
		role := chat.ChatRoleUser
		if m.Role == chat.ChatRoleAgent {
			role = chat.ChatRoleAgent
		}
		if len(turns) == 0 && role != chat.ChatRoleUser {
			continue
		}
		if n := len(turns); n > 0 && turns[n-1].Role == role {
			turns[n-1].Content += "\n\n" + m.Content
			continue
		}
		turns = append(turns, anthropicMessage{Role: role, Content: m.Content})
	}
	return strings.Join(system, "\n\n"), turns
}

// Chat sends the conversation with a "{" prefill and returns the completed
// JSON object. A reply cut off by max_tokens is returned as ErrTruncatedReply.
func (a *AnthropicService) Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	system, turns := toAnthropic(messages)
	if len(turns) == 0 {
		return nil, fmt.Errorf("anthropic: conversation has no player turn")
	}
	turns = append(turns, anthropicMessage{Role: chat.ChatRoleAgent, Content: jsonPrefill})

	header := http.Header{}
	header.Set("x-api-key", a.apiKey)
	header.Set("anthropic-version", anthropicVersion)

	var resp AnthropicChatResponse
	err := postJSON(ctx, a.httpClient, "anthropic", a.baseURL+"/messages", header, AnthropicChatRequest{
		Model:       a.modelName,
		MaxTokens:   DefaultAnthropicMaxTokens,
		Temperature: DefaultAnthropicTemperature,
		System:      system,
		Messages:    turns,
	}, &resp)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("Anthropic reply",
		"model", resp.Model,
		"stop_reason", resp.StopReason,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens)

	if resp.StopReason == "max_tokens" {
		return nil, ErrTruncatedReply
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	reply := text.String()
	switch {
	case strings.TrimSpace(reply) == "":
		reply = msgNoResponse
	case !strings.HasPrefix(strings.TrimSpace(reply), jsonPrefill):
		// the model continued the prefill rather than restarting the object
		reply = jsonPrefill + reply
	}
	return &chat.ChatResponse{Message: reply, Model: a.modelName}, nil
}
