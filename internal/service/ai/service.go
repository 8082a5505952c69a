package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"newsbot/internal/config"
	"newsbot/internal/logger"
	"newsbot/internal/models"
)

const (
	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderClaude = "claude"

	claudeMaxTokens = 3000
)

// ErrUnavailable wraps every failure to obtain a reply from the model.
var ErrUnavailable = errors.New("ai model unavailable")

// Service sends single-turn prompts to a chat-completion model.
type Service struct {
	chatModel model.BaseChatModel
	provider  string
	model     string
	log       *zap.Logger
}

// NewAiService builds the chat model for the configured provider.
func NewAiService(ctx context.Context, cfg config.ProviderConfig) (*Service, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Name))
	if provider == "" {
		provider = ProviderGroq
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("provider %s: %w", provider, config.ErrMissingAPIKey)
	}

	var (
		chatModel model.BaseChatModel
		err       error
	)
	switch provider {
	case ProviderGroq, ProviderOpenAI:
		chatModel, err = openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			APIKey:  cfg.APIKey,
		})
	case ProviderGemini:
		client, cerr := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey: cfg.APIKey,
		})
		if cerr != nil {
			return nil, fmt.Errorf("new gemini client: %w", cerr)
		}
		chatModel, err = gemini.NewChatModel(ctx, &gemini.Config{
			Client: client,
			Model:  cfg.Model,
		})
	case ProviderClaude:
		var baseURLPtr *string
		if cfg.BaseURL != "" {
			baseURLPtr = &cfg.BaseURL
		}
		chatModel, err = claude.NewChatModel(ctx, &claude.Config{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			BaseURL:   baseURLPtr,
			MaxTokens: claudeMaxTokens,
		})
	default:
		return nil, fmt.Errorf("invalid provider: %s", provider)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s chat model: %w", provider, err)
	}
	return NewWithModel(chatModel, provider, cfg.Model), nil
}

// NewWithModel wraps an already constructed chat model.
func NewWithModel(chatModel model.BaseChatModel, provider, modelName string) *Service {
	return &Service{
		chatModel: chatModel,
		provider:  provider,
		model:     modelName,
		log:       logger.Named("ai"),
	}
}

// Ask sends the question as one user message and returns the reply text.
func (s *Service) Ask(ctx context.Context, question string) (string, error) {
	messages := convertMessages([]models.Message{{Role: models.RoleUser, Content: question}})
	resp, err := s.chatModel.Generate(ctx, messages)
	if err != nil {
		s.log.Error("error querying AI", zap.String("provider", s.provider), zap.String("model", s.model), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		s.log.Error("empty reply from AI", zap.String("provider", s.provider), zap.String("model", s.model))
		return "", fmt.Errorf("%w: empty reply", ErrUnavailable)
	}
	return resp.Content, nil
}

func convertMessages(history []models.Message) []*schema.Message {
	messages := make([]*schema.Message, 0, len(history))
	for _, msg := range history {
		var role schema.RoleType
		switch msg.Role {
		case models.RoleUser:
			role = schema.User
		case models.RoleAssistant:
			role = schema.Assistant
		case models.RoleSystem:
			role = schema.System
		default:
			role = schema.User
		}
		messages = append(messages, &schema.Message{
			Role:    role,
			Content: msg.Content,
		})
	}
	return messages
}
