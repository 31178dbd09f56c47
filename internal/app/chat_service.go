package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"gopherai-docchat/internal/model"
)

var ErrQuestionEmpty = errors.New("question is empty")

type ChatRecordStore interface {
	Create(record *model.ChatRecord) error
	ListByDocumentAndToken(documentID uint, tokenIdentifier string) ([]model.ChatRecord, error)
}

type ChatHistoryCache interface {
	Get(ctx context.Context, documentID uint, tokenIdentifier string) ([]model.ChatRecord, bool, error)
	Version(ctx context.Context, documentID uint, tokenIdentifier string) (int64, error)
	Set(ctx context.Context, documentID uint, tokenIdentifier string, version int64, records []model.ChatRecord) (bool, error)
	Invalidate(ctx context.Context, documentID uint, tokenIdentifier string) error
}

type ChatService struct {
	docs      DocumentStore
	chats     ChatRecordStore
	files     FileStore
	history   ChatHistoryCache
	llm       LLM
	llmConfig LLMConfig
	budget    TokenBudget
	logger    zerolog.Logger
}

type ChatServiceDeps struct {
	Documents DocumentStore
	Chats     ChatRecordStore
	Files     FileStore
	History   ChatHistoryCache
	LLM       LLM
	LLMConfig LLMConfig
	Budget    TokenBudget
	Logger    zerolog.Logger
}

func NewChatService(deps ChatServiceDeps) *ChatService {
	return &ChatService{
		docs:      deps.Documents,
		chats:     deps.Chats,
		files:     deps.Files,
		history:   deps.History,
		llm:       deps.LLM,
		llmConfig: deps.LLMConfig,
		budget:    deps.Budget,
		logger:    deps.Logger.With().Str("component", "chat_service").Logger(),
	}
}

type AskQuestionInput struct {
	TokenIdentifier string
	DocumentID      uint
	Question        string
}

// AskQuestion answers a question about one document. The human record is
// stored before the model record, and nothing is stored when the LLM fails.
func (s *ChatService) AskQuestion(ctx context.Context, input AskQuestionInput) (string, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return "", ErrQuestionEmpty
	}

	doc, err := accessibleDocument(s.docs, input.TokenIdentifier, input.DocumentID)
	if err != nil {
		return "", err
	}

	text, err := loadDocumentText(ctx, s.files, s.budget, doc.FileID, doc.ContentType, doc.SourceName())
	if err != nil {
		s.logger.Warn().Err(err).
			Uint("document_id", doc.ID).
			Str("file_id", doc.FileID).
			Msg("document text unavailable, asking without it")
		text = ""
	}

	content, err := s.llm.Complete(ctx, s.llmConfig.Chat, questionPrompt(text, question))
	if err != nil {
		s.logger.Error().Err(err).Object("llm", s.llmConfig).Uint("document_id", doc.ID).Msg("question completion failed")
		return "", fmt.Errorf("%w: %v", ErrLLMUnavailable, err)
	}
	answer := firstOr(content, answerFallback)

	if err := s.insert(ctx, &model.ChatRecord{
		DocumentID:      doc.ID,
		TokenIdentifier: input.TokenIdentifier,
		Text:            question,
		IsHuman:         true,
	}); err != nil {
		return "", err
	}
	if err := s.insert(ctx, &model.ChatRecord{
		DocumentID:      doc.ID,
		TokenIdentifier: input.TokenIdentifier,
		Text:            answer,
		IsHuman:         false,
	}); err != nil {
		return "", err
	}
	return answer, nil
}

// ListChats returns the caller's records for a document in insertion order.
func (s *ChatService) ListChats(ctx context.Context, tokenIdentifier string, documentID uint) ([]model.ChatRecord, error) {
	if tokenIdentifier == "" || documentID == 0 {
		return []model.ChatRecord{}, nil
	}

	cacheable := false
	var version int64
	if s.history != nil {
		cached, hit, err := s.history.Get(ctx, documentID, tokenIdentifier)
		if err != nil {
			s.logger.Warn().Err(err).Uint("document_id", documentID).Msg("read chat history cache failed")
		} else if hit {
			return cached, nil
		}
		// The version is read before the DB so a concurrent insert makes the
		// snapshot below unstorable.
		if version, err = s.history.Version(ctx, documentID, tokenIdentifier); err != nil {
			s.logger.Warn().Err(err).Uint("document_id", documentID).Msg("read chat history version failed")
		} else {
			cacheable = true
		}
	}

	records, err := s.chats.ListByDocumentAndToken(documentID, tokenIdentifier)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []model.ChatRecord{}
	}

	if cacheable {
		stored, err := s.history.Set(ctx, documentID, tokenIdentifier, version, records)
		if err != nil {
			s.logger.Warn().Err(err).Uint("document_id", documentID).Msg("write chat history cache failed")
		} else if !stored {
			s.logger.Debug().Uint("document_id", documentID).Msg("chat history changed while loading, cache skipped")
		}
	}
	return records, nil
}

func (s *ChatService) insert(ctx context.Context, record *model.ChatRecord) error {
	if err := s.chats.Create(record); err != nil {
		return err
	}
	if s.history != nil {
		if err := s.history.Invalidate(ctx, record.DocumentID, record.TokenIdentifier); err != nil {
			s.logger.Warn().Err(err).Uint("document_id", record.DocumentID).Msg("invalidate chat history failed")
		}
	}
	return nil
}
