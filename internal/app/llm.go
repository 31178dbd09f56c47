package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"gopherai-docchat/internal/ai"
	"gopherai-docchat/internal/model"
	"gopherai-docchat/internal/pkg/textextract"
	"gopherai-docchat/internal/storage"
)

const (
	descriptionInstruction = "please generate 1 sentence description for this document"
	descriptionFallback    = "Could not figure out the description for this document"
	answerFallback         = "Could not generate response"
)

var ErrLLMUnavailable = errors.New("llm request failed")

// LLM is the subset of the OpenAI compatible client the services need.
type LLM interface {
	Complete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage) (string, error)
	Embed(ctx context.Context, cfg ai.EmbeddingConfig, text string) ([]float32, error)
}

type LLMConfig struct {
	Chat      ai.ChatConfig
	Embedding ai.EmbeddingConfig
}

func (c LLMConfig) MarshalZerologObject(e *zerolog.Event) {
	e.Str("base_url", c.Chat.BaseURL).
		Str("model", c.Chat.Model).
		Str("embedding_model", c.Embedding.Model).
		Str("api_key", maskSecret(c.Chat.APIKey))
}

// TokenBudget trims document text before it is placed in a prompt.
type TokenBudget interface {
	Truncate(text string) (string, error)
}

func descriptionPrompt(text string) []ai.ChatMessage {
	return []ai.ChatMessage{
		{Role: ai.RoleSystem, Content: "Here is a text file: " + text},
		{Role: ai.RoleUser, Content: descriptionInstruction},
	}
}

func questionPrompt(text, question string) []ai.ChatMessage {
	return []ai.ChatMessage{
		{Role: ai.RoleSystem, Content: "Here is a text file: " + text},
		{Role: ai.RoleUser, Content: "Please answer this question " + question},
	}
}

// firstOr substitutes fallback only for missing content; a null message
// content decodes to "".
func firstOr(content, fallback string) string {
	if content == "" {
		return fallback
	}
	return content
}

func maskSecret(secret string) string {
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + strings.Repeat("*", len(secret)-8) + secret[len(secret)-4:]
}

// loadDocumentText fetches the stored file, extracts its text and applies the
// token budget. storage.ErrNotFound is returned unwrapped so callers can map it.
func loadDocumentText(ctx context.Context, files FileStore, budget TokenBudget, fileID, contentType, title string) (string, error) {
	f, err := files.Get(ctx, fileID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidFileID) {
			return "", storage.ErrNotFound
		}
		return "", err
	}
	if contentType == "" {
		contentType = f.ContentType
	}

	text, err := textextract.Extract(f.Data, contentType, title)
	if err != nil {
		return "", fmt.Errorf("extract document text failed: %w", err)
	}
	if budget == nil {
		return text, nil
	}
	return budget.Truncate(text)
}

// accessibleDocument loads a document owned by tokenIdentifier. Missing and
// foreign documents both yield ErrDocumentAccess.
func accessibleDocument(docs DocumentStore, tokenIdentifier string, id uint) (*model.Document, error) {
	if tokenIdentifier == "" || id == 0 {
		return nil, ErrDocumentAccess
	}
	doc, err := docs.GetByID(id)
	if err != nil {
		return nil, err
	}
	if doc == nil || doc.TokenIdentifier != tokenIdentifier {
		return nil, ErrDocumentAccess
	}
	return doc, nil
}
