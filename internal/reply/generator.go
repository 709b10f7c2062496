package reply

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sofelijo/ai-agent-sekolah-sub001/internal/models"
	"github.com/sofelijo/ai-agent-sekolah-sub001/internal/state"
	"github.com/sofelijo/ai-agent-sekolah-sub001/internal/storage"
	"go.uber.org/zap"
)

// Fixed fallback replies. The bot answers even when the QA backend cannot;
// silence would look like the agent is ignoring people.
const (
	NoData         = "Maaf, ASKA belum punya data untuk menjawab itu."
	TechnicalIssue = "Maaf, ASKA lagi ada kendala teknis. Coba tanya lagi nanti ya."
)

const historyLimit = 5

// CompletionClient is the slice of the OpenAI client the generator needs.
// *openai.Client satisfies it; tests substitute a fake.
type CompletionClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Generator produces tweet-sized answers from the QA service, optionally in
// terse mode, trimmed to the configured character budget.
type Generator struct {
	client        CompletionClient
	storage       storage.Storage
	model         string
	maxTokens     int
	temperature   float64
	terseMode     bool
	maxReplyChars int
	hardLimit     int
	logger        *zap.Logger
}

func NewGenerator(client CompletionClient, store storage.Storage, model string, maxTokens int, temperature float64, terseMode bool, maxReplyChars, hardLimit int, logger *zap.Logger) *Generator {
	return &Generator{
		client:        client,
		storage:       store,
		model:         model,
		maxTokens:     maxTokens,
		temperature:   temperature,
		terseMode:     terseMode,
		maxReplyChars: maxReplyChars,
		hardLimit:     hardLimit,
		logger:        logger,
	}
}

// GenerateReply answers a mention. It never returns an empty string: an empty
// or failed QA response comes back as one of the fixed fallback replies.
func (g *Generator) GenerateReply(ctx context.Context, userID int64, message string) string {
	message = state.CollapseWhitespace(message)

	messages := make([]openai.ChatCompletionMessage, 0, historyLimit+2)
	if g.terseMode {
		messages = append(messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleSystem,
			Content: fmt.Sprintf(
				"Jawab sangat singkat (maksimal %d karakter), bahasa Indonesia sederhana, tanpa markdown, emoji, atau daftar.",
				g.maxReplyChars),
		})
	}

	history, err := g.storage.RecentMessages(ctx, userID, historyLimit)
	if err != nil {
		g.logger.Error("Failed to load chat history",
			zap.Error(err),
			zap.Int64("user_id", userID))
		// History is an enrichment, not a requirement.
	}
	for _, turn := range history {
		role := openai.ChatMessageRoleUser
		if turn.Role == models.RoleAska {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: turn.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})

	text, err := g.complete(ctx, messages)
	if err != nil {
		g.logger.Error("QA completion failed",
			zap.Error(err),
			zap.Int64("user_id", userID))
		return TechnicalIssue
	}

	text = state.CollapseWhitespace(stripMarkdown(stripSignature(text)))
	limit := g.maxReplyChars
	if g.hardLimit < limit {
		limit = g.hardLimit
	}
	text = SmartTrim(text, limit)
	if text == "" {
		return NoData
	}
	return text
}

// GenerateAutopost answers a RAG prompt with no preamble and no history; the
// prompt is authoritative. The caller decides what to do with an error.
func (g *Generator) GenerateAutopost(ctx context.Context, prompt string) (string, error) {
	text, err := g.complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: state.CollapseWhitespace(prompt)},
	})
	if err != nil {
		return "", err
	}
	return state.CollapseWhitespace(stripMarkdown(stripSignature(text))), nil
}

func (g *Generator) complete(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		MaxTokens:   g.maxTokens,
		Temperature: float32(g.temperature),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
