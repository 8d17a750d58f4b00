package services

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jwebster45206/anima-narrator/pkg/chat"
)

const (
	veniceBaseURL = "https://api.venice.ai/api/v1"

	DefaultVeniceModel       = "llama-3.3-70b"
	DefaultVeniceTemperature = 0.8
	DefaultVeniceMaxTokens   = 1024
)

// VeniceService narrates through Venice's OpenAI-compatible chat endpoint,
// constraining replies with a JSON schema.
type VeniceService struct {
	apiKey     string
	modelName  string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

type VeniceResponseFormat struct {
	Type       string           `json:"type"`
	JSONSchema VeniceJSONSchema `json:"json_schema"`
}

type VeniceJSONSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

// VeniceParameters turns off Venice's own persona prompt and web search,
// either of which would leak into the narration.
type VeniceParameters struct {
	IncludeVeniceSystemPrompt bool   `json:"include_venice_system_prompt"`
	EnableWebSearch           string `json:"enable_web_search"`
}

type VeniceChatRequest struct {
	Model            string                `json:"model"`
	Messages         []chat.ChatMessage    `json:"messages"`
	Temperature      float64               `json:"temperature"`
	MaxTokens        int                   `json:"max_tokens"`
	ResponseFormat   *VeniceResponseFormat `json:"response_format,omitempty"`
	VeniceParameters VeniceParameters      `json:"venice_parameters"`
}

type VeniceChatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func NewVeniceService(apiKey string, modelName string, logger *slog.Logger) *VeniceService {
	if modelName == "" {
		modelName = DefaultVeniceModel
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &VeniceService{
		apiKey:     apiKey,
		modelName:  modelName,
		baseURL:    veniceBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
	}
}

// InitModel is a no-op; hosted models need no warm-up.
func (v *VeniceService) InitModel(ctx context.Context, modelName string) error {
	return nil
}

// narratorResponseFormat asks Venice for the narrator's JSON reply shape.
// The nested state_update stays open; the engine validates it fragment by fragment.
func narratorResponseFormat() *VeniceResponseFormat {
	check := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"skill":     map[string]any{"type": "string"},
			"attribute": map[string]any{"type": "string"},
		},
	}
	return &VeniceResponseFormat{
		Type: "json_schema",
		JSONSchema: VeniceJSONSchema{
			Name:   "narrator_turn",
			Strict: false,
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"narrative": map[string]any{"type": "string"},
					"ascii_art": map[string]any{"type": []string{"string", "null"}},
					"required_roll": map[string]any{
						"type": []string{"object", "null"},
						"properties": map[string]any{
							"skill":      map[string]any{"type": "string"},
							"attribute":  map[string]any{"type": "string"},
							"difficulty": map[string]any{"type": "integer"},
							"bonus": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"narrative":   map[string]any{"type": "integer"},
									"effort":      map[string]any{"type": "integer"},
									"situational": map[string]any{"type": "integer"},
								},
							},
							"alternative": check,
						},
						"required": []string{"skill", "attribute", "difficulty"},
					},
					"state_update": map[string]any{"type": []string{"object", "null"}},
				},
				"required": []string{"narrative"},
			},
		},
	}
}

// Chat returns the first choice. A choice stopped by the length limit is
// returned as ErrTruncatedReply.
func (v *VeniceService) Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+v.apiKey)

	var resp VeniceChatResponse
	err := postJSON(ctx, v.httpClient, "venice", v.baseURL+"/chat/completions", header, VeniceChatRequest{
		Model:          v.modelName,
		Messages:       messages,
		Temperature:    DefaultVeniceTemperature,
		MaxTokens:      DefaultVeniceMaxTokens,
		ResponseFormat: narratorResponseFormat(),
		VeniceParameters: VeniceParameters{
			EnableWebSearch: "off",
		},
	}, &resp)
	if err != nil {
		return nil, err
	}

	v.logger.Debug("Venice reply",
		"model", resp.Model,
		"choices", len(resp.Choices),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	reply := msgNoResponse
	if len(resp.Choices) > 0 {
		if resp.Choices[0].FinishReason == "length" {
			return nil, ErrTruncatedReply
		}
		reply = resp.Choices[0].Message.Content
	}
	return &chat.ChatResponse{Message: reply, Model: v.modelName}, nil
}
