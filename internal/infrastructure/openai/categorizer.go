package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/pricelens/backend/internal/domain"
)

// MaxCategories caps the categories kept from one completion.
const MaxCategories = 5

const categorizerSystemPrompt = "You are a grocery product categorization expert. " +
	"Based on the provided product information, identify up to 5 relevant grocery store categories. " +
	"Return the categories as a comma-separated list. " +
	"Example categories: 'Dairy, Eggs & Cheese', 'Beverages', 'Snacks', 'Pantry Staples', 'Fruits & Vegetables', " +
	"'Meat & Seafood', 'Frozen Foods', 'Bakery', 'Household & Cleaning', 'Personal Care & Health'. " +
	"If the product is 'Coca-Cola Original Taste', categories could be: 'Beverages, Soda, Soft Drinks'."

// Categorizer assigns grocery categories to products with a chat model.
type Categorizer struct {
	client  *openai.Client
	model   string
	retrier retrier
	logger  zerolog.Logger
}

// NewCategorizer creates a categorizer for cfg.ChatModel.
func NewCategorizer(cfg Config, logger zerolog.Logger) *Categorizer {
	model := cfg.ChatModel
	if model == "" {
		model = DefaultChatModel
	}
	logger = logger.With().Str("component", "categorizer").Logger()
	return &Categorizer{
		client:  newClient(cfg),
		model:   model,
		retrier: newRetrier(cfg, logger),
		logger:  logger,
	}
}

// Categorize returns up to MaxCategories categories for the product. An empty
// completion yields no categories.
func (c *Categorizer) Categorize(ctx context.Context, name, brand string) ([]string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return []string{}, nil
	}

	var resp openai.ChatCompletionResponse
	err := c.retrier.do(ctx, "chat", func() error {
		var err error
		resp, err = c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: categorizerSystemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: userPrompt(name, brand)},
			},
			MaxTokens:   100,
			Temperature: 0.2,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("categorize %q: %w", name, err)
	}
	if len(resp.Choices) == 0 {
		return []string{}, nil
	}

	categories := ParseCategories(resp.Choices[0].Message.Content)
	c.logger.Debug().Str("name", name).Strs("categories", categories).Msg("categorized product")
	return categories, nil
}

func userPrompt(name, brand string) string {
	var b strings.Builder
	b.WriteString("Product Information:\nProduct Name: ")
	b.WriteString(name)
	if brand = strings.TrimSpace(brand); brand != "" {
		b.WriteString("\nBrand: ")
		b.WriteString(brand)
	}
	b.WriteString("\n\nCategories (comma-separated list):")
	return b.String()
}

// ParseCategories splits a comma-separated completion, dropping blanks and keeping
// at most MaxCategories entries.
func ParseCategories(completion string) []string {
	categories := make([]string, 0, MaxCategories)
	for _, part := range strings.Split(completion, ",") {
		part = strings.Trim(strings.TrimSpace(part), `'"`)
		if part == "" {
			continue
		}
		categories = append(categories, part)
		if len(categories) == MaxCategories {
			break
		}
	}
	return categories
}

var _ domain.Categorizer = (*Categorizer)(nil)
